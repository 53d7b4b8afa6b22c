package grpcstore

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/purse/storage"
)

// Server exposes a storage.Store over the Store gRPC service.
type Server struct {
	UnimplementedStoreServer
	Store storage.Store
}

func (s *Server) Exists(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	path, err := storage.SplitPath(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	ok, err := s.Store.Exists(ctx, path...)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(ok), nil
}

func (s *Server) Read(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	path, err := storage.SplitPath(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	b, err := s.Store.Read(ctx, path...)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Write(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get(PathMetadataKey)
	if len(vals) != 1 {
		return nil, status.Error(codes.InvalidArgument, storage.ErrInvalidPath.Error())
	}
	path, err := storage.SplitPath(vals[0])
	if err != nil {
		return nil, mapErr(err)
	}
	if err := s.Store.Write(ctx, in.GetValue(), path...); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

// LoggingInterceptor logs every failed call at Warn and, when debug is
// enabled, every call with its latency.
func LoggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil && status.Code(err) != codes.NotFound {
			log.Warn("store request failed", zap.String("method", info.FullMethod), zap.Error(err))
		} else {
			log.Debug("store request", zap.String("method", info.FullMethod), zap.Duration("took", time.Since(start)))
		}
		return resp, err
	}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, storage.ErrNotFound.Error())
	case errors.Is(err, storage.ErrInvalidPath):
		return status.Error(codes.InvalidArgument, storage.ErrInvalidPath.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
