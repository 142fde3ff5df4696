package grpcapi

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"amlguard/internal/models"
)

// Authenticator resolves a bearer access token to its claims.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.UserClaims, error)
}

// methods outside RiskEngine (health, reflection) stay public
func requiresAuth(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/"+ServiceName+"/")
}

func authInterceptor(authn Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !requiresAuth(info.FullMethod) {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "authorization metadata required")
		}
		token, ok := strings.CutPrefix(values[0], "Bearer ")
		if !ok || token == "" {
			return nil, status.Error(codes.Unauthenticated, "invalid authorization format")
		}

		claims, err := authn.Authenticate(ctx, token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		if claims.Role != models.RoleAdmin && !claims.HasPermission(models.PermissionTransactionRead) {
			return nil, status.Error(codes.PermissionDenied, "insufficient permissions")
		}
		return handler(ctx, req)
	}
}

func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	logger := log.With().Str("method", info.FullMethod).Logger()
	ctx = logger.WithContext(ctx)

	resp, err := handler(ctx, req)

	logger.Info().
		Str("code", status.Code(err).String()).
		Dur("took", time.Since(start)).
		Msg("grpc request")
	return resp, err
}
