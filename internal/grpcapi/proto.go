package grpcapi

// Service descriptor for amlguard.risk.v1.RiskEngine. Messages travel as JSON
// through the codec registered in codec.go, so there is no generated code.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"amlguard/internal/services/risk"
)

const (
	ServiceName = "amlguard.risk.v1.RiskEngine"

	EvaluateMethod  = "/" + ServiceName + "/Evaluate"
	ListRulesMethod = "/" + ServiceName + "/ListRules"
)

// EvaluateRequest carries one transaction to score. Amount is a decimal
// string and Date is YYYY-MM-DD.
type EvaluateRequest struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	FromAccount string `json:"from_account"`
	ToAccount   string `json:"to_account"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type EvaluateResponse struct {
	TransactionID string   `json:"transaction_id"`
	RiskScore     float64  `json:"risk_score"`
	Flags         []string `json:"flags"`
	Status        string   `json:"status"`
}

type ListRulesRequest struct{}

type ListRulesResponse struct {
	Rules []risk.RuleInfo `json:"rules"`
}

// RiskEngineServer is the server API for RiskEngine.
type RiskEngineServer interface {
	Evaluate(context.Context, *EvaluateRequest) (*EvaluateResponse, error)
	ListRules(context.Context, *ListRulesRequest) (*ListRulesResponse, error)
	mustEmbedUnimplementedRiskEngineServer()
}

type UnimplementedRiskEngineServer struct{}

func (UnimplementedRiskEngineServer) Evaluate(context.Context, *EvaluateRequest) (*EvaluateResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Evaluate not implemented")
}
func (UnimplementedRiskEngineServer) ListRules(context.Context, *ListRulesRequest) (*ListRulesResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListRules not implemented")
}
func (UnimplementedRiskEngineServer) mustEmbedUnimplementedRiskEngineServer() {}

func RegisterRiskEngineServer(s grpclib.ServiceRegistrar, srv RiskEngineServer) {
	s.RegisterService(&riskEngineServiceDesc, srv)
}

var riskEngineServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RiskEngineServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
		{MethodName: "ListRules", Handler: listRulesHandler},
	},
	Streams: []grpclib.StreamDesc{},
}

func evaluateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	req := new(EvaluateRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RiskEngineServer).Evaluate(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: EvaluateMethod}
	return interceptor(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RiskEngineServer).Evaluate(ctx, req.(*EvaluateRequest))
	})
}

func listRulesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	req := new(ListRulesRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RiskEngineServer).ListRules(ctx, req)
	}
	info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: ListRulesMethod}
	return interceptor(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RiskEngineServer).ListRules(ctx, req.(*ListRulesRequest))
	})
}

// RiskEngineClient calls RiskEngine over an existing connection.
type RiskEngineClient struct {
	cc grpclib.ClientConnInterface
}

func NewRiskEngineClient(cc grpclib.ClientConnInterface) *RiskEngineClient {
	return &RiskEngineClient{cc: cc}
}

func (c *RiskEngineClient) Evaluate(ctx context.Context, in *EvaluateRequest, opts ...grpclib.CallOption) (*EvaluateResponse, error) {
	out := new(EvaluateResponse)
	opts = append([]grpclib.CallOption{grpclib.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, EvaluateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RiskEngineClient) ListRules(ctx context.Context, in *ListRulesRequest, opts ...grpclib.CallOption) (*ListRulesResponse, error) {
	out := new(ListRulesResponse)
	opts = append([]grpclib.CallOption{grpclib.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, ListRulesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
