package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

const defaultRequestTimeout = 10 * time.Second

// ServerOptions returns the options every appointments server runs with.
func ServerOptions(requestTimeout time.Duration) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ForceServerCodec(Codec{}),
		grpc.UnaryInterceptor(RequestTimeoutInterceptor(requestTimeout)),
	}
}

// RequestTimeoutInterceptor applies timeout to calls that arrive without a
// deadline of their own.
func RequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}
