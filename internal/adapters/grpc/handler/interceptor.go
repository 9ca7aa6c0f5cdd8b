package handler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnaryLoggingInterceptor は RPC ごとにメソッド名と結果コードをログに出力します。
func UnaryLoggingInterceptor(logger *logrus.Entry) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		started := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		entry := logger.WithFields(logrus.Fields{
			"method":     info.FullMethod,
			"code":       code.String(),
			"elapsed_ms": time.Since(started).Milliseconds(),
		})
		switch code {
		case codes.OK:
			entry.Debug("rpc completed")
		case codes.Internal, codes.Unknown, codes.DataLoss:
			entry.WithError(err).Error("rpc failed")
		default:
			entry.WithError(err).Info("rpc rejected")
		}

		return resp, err
	}
}
