package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// authInterceptor applies the strategy to every unary call: no credentials
// on a protected method is Unauthenticated, credentials that resolve to
// nobody is PermissionDenied.
func (s *GRPCServer) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !s.auth.RequiresAuth(info.FullMethod, s.excluded) {
		s.metrics.ObserveAuth(s.auth.Name(), metrics.OutcomeExcluded)
		return handler(ctx, req)
	}

	md, _ := metadata.FromIncomingContext(ctx)
	r := auth.MetadataRequest{MD: md}
	if s.auth.AuthorizationHeader(r) == "" && s.auth.SessionCookie(r) == "" {
		s.metrics.ObserveAuth(s.auth.Name(), metrics.OutcomeUnauthorized)
		return nil, status.Error(codes.Unauthenticated, "missing credentials")
	}

	u, ok := s.auth.CurrentUser(ctx, r)
	if !ok {
		s.metrics.ObserveAuth(s.auth.Name(), metrics.OutcomeForbidden)
		return nil, status.Error(codes.PermissionDenied, "forbidden")
	}
	s.metrics.ObserveAuth(s.auth.Name(), metrics.OutcomeAllowed)

	return handler(auth.WithUser(ctx, u), req)
}

func (s *GRPCServer) observeInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)

	s.metrics.ObserveRequest("grpc", info.FullMethod, int(code), time.Since(start))
	s.logger.Info(ctx, "call", "method", info.FullMethod, "code", code.String(), "duration", time.Since(start))
	return resp, err
}
