package grpc

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "gatekeeper.v1.AuthService"

// AuthServiceServer is the server API of gatekeeper.v1.AuthService.
type AuthServiceServer interface {
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Me(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type unaryCall func(AuthServiceServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthServiceServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AuthServiceDesc describes gatekeeper.v1.AuthService. Requests are empty
// and responses are JSON-like structs.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Status", Handler: unaryHandler("Status", AuthServiceServer.Status)},
		{MethodName: "Stats", Handler: unaryHandler("Stats", AuthServiceServer.Stats)},
		{MethodName: "Me", Handler: unaryHandler("Me", AuthServiceServer.Me)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gatekeeper/v1/auth.proto",
}

func (s *GRPCServer) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "OK"})
}

func (s *GRPCServer) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"users": s.users.Count()})
}

func (s *GRPCServer) Me(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	u, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return structpb.NewStruct(map[string]any{
		"id":           u.ID,
		"email":        u.Email,
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"display_name": u.DisplayName(),
		"created_at":   u.CreatedAt.String(),
	})
}
