package grpcapi

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"amlguard/internal/models"
	"amlguard/internal/services/transaction"
	"amlguard/internal/validation"
)

var _ RiskEngineServer = (*Handler)(nil)

// Handler serves RiskEngine from the transaction service's dry-run path.
// Nothing is stored.
type Handler struct {
	UnimplementedRiskEngineServer
	transactions transaction.Service
}

func NewHandler(transactions transaction.Service) *Handler {
	return &Handler{transactions: transactions}
}

func (h *Handler) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "amount: must be a decimal number")
	}

	description := req.Description
	in := &models.TransactionInput{
		ID:          req.ID,
		Date:        strings.TrimSpace(req.Date),
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		Amount:      &amount,
		Description: &description,
	}

	assessment, err := h.transactions.Evaluate(ctx, in)
	if errs, ok := validation.AsErrors(err); ok {
		return nil, status.Error(codes.InvalidArgument, errs.Error())
	}
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("transaction_id", in.ID).Msg("grpc evaluate failed")
		return nil, status.Error(codes.Internal, "evaluation failed")
	}

	return &EvaluateResponse{
		TransactionID: in.ID,
		RiskScore:     assessment.RiskScore,
		Flags:         assessment.Flags,
		Status:        string(assessment.Status),
	}, nil
}

func (h *Handler) ListRules(context.Context, *ListRulesRequest) (*ListRulesResponse, error) {
	return &ListRulesResponse{Rules: h.transactions.Rules()}, nil
}
