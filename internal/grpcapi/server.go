package grpcapi

import (
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server wraps the gRPC server with the RiskEngine handler and the
// standard health service.
type Server struct {
	address    string
	grpcServer *grpc.Server
	health     *health.Server
}

// NewServer builds the server. A nil authn leaves RiskEngine open, which
// only tests should do.
func NewServer(handler *Handler, address string, authn Authenticator) *Server {
	interceptors := []grpc.UnaryServerInterceptor{loggingInterceptor}
	if authn != nil {
		interceptors = append(interceptors, authInterceptor(authn))
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	RegisterRiskEngineServer(grpcServer, handler)

	return &Server{
		address:    address,
		grpcServer: grpcServer,
		health:     healthServer,
	}
}

// Start listens on the configured address and blocks serving requests.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	log.Info().Str("address", s.address).Msg("gRPC server starting")
	return s.Serve(listener)
}

func (s *Server) Serve(listener net.Listener) error {
	return s.grpcServer.Serve(listener)
}

// Stop marks the service as not serving and drains in-flight calls.
func (s *Server) Stop() {
	log.Info().Msg("gRPC server shutting down")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
