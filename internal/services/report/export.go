// Package report moves transactions in and out of the service in bulk:
// the analysis CSV export and CSV or JSON uploads.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"amlguard/internal/metrics"
	"amlguard/internal/models"
	"amlguard/internal/repositories"
	"amlguard/internal/services/transaction"
)

// ExportFilename is the attachment name of the analysis export.
const ExportFilename = "all_transactions_analysis.csv"

const exportBatch = 500

var exportHeader = []string{
	"Transaction ID", "Date", "From Account", "To Account", "Amount",
	"Description", "Risk Score", "Status", "Flags",
}

type Service struct {
	transactions transaction.Service
	repo         repositories.TransactionRepository
	metrics      metrics.Collector
}

func NewService(transactions transaction.Service, repo repositories.TransactionRepository, m metrics.Collector) *Service {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Service{
		transactions: transactions,
		repo:         repo,
		metrics:      m,
	}
}

// Export streams every stored transaction with its assessment as CSV and
// returns the number of rows written.
func (s *Service) Export(ctx context.Context, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("write export header: %w", err)
	}

	rows := 0
	err := s.repo.FindInBatches(ctx, exportBatch, func(batch []models.Transaction) error {
		for i := range batch {
			if err := cw.Write(exportRow(&batch[i])); err != nil {
				return err
			}
			rows++
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return rows, fmt.Errorf("export transactions: %w", err)
	}

	cw.Flush()
	return rows, cw.Error()
}

func exportRow(tx *models.Transaction) []string {
	return []string{
		tx.ID,
		tx.Date.Format(models.DateLayout),
		tx.FromAccount,
		tx.ToAccount,
		tx.Amount.StringFixed(2),
		tx.Description,
		formatScore(tx.RiskScore),
		string(tx.Status),
		strings.Join(tx.Flags, "; "),
	}
}

// formatScore always keeps one fractional digit, so 9 renders as 9.0.
func formatScore(score float64) string {
	s := strconv.FormatFloat(score, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
