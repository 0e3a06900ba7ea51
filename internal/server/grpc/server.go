// Package grpc exposes the auth layer over gRPC. Credentials travel in
// metadata: "authorization" for Basic and Bearer, "cookie" for sessions.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"google.golang.org/grpc"
)

// DefaultExcludedMethods never require authentication.
var DefaultExcludedMethods = []string{
	"/" + ServiceName + "/Status",
}

type GRPCServer struct {
	address  string
	auth     auth.Authenticator
	users    *services.UserService
	metrics  *metrics.Metrics
	logger   logging.Logger
	excluded []string
}

type Deps struct {
	Auth            auth.Authenticator
	Users           *services.UserService
	Metrics         *metrics.Metrics
	Logger          logging.Logger
	ExcludedMethods []string
}

func NewGRPCServer(address string, d Deps) *GRPCServer {
	l := d.Logger
	if l == nil {
		l = logging.Nop()
	}
	excluded := d.ExcludedMethods
	if excluded == nil {
		excluded = DefaultExcludedMethods
	}
	return &GRPCServer{
		address:  address,
		auth:     d.Auth,
		users:    d.Users,
		metrics:  d.Metrics,
		logger:   l.With("module", "grpc_server"),
		excluded: excluded,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.observeInterceptor, s.authInterceptor))
	srv.RegisterService(&AuthServiceDesc, s)
	return srv
}

// Run listens on the configured address until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis and stops gracefully when ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
