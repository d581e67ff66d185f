package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-rewards-ledger/pkg/logger"
	"github.com/JoeShih716/go-rewards-ledger/pkg/metrics"
)

// CorrelationIDHeader 客戶端可帶入的追蹤 ID，沒有帶時由伺服器產生
const CorrelationIDHeader = "x-correlation-id"

// UnaryServerInterceptor 為每個請求掛上 correlation id，記錄耗時與結果
//
// correlation id 會同時寫回 response header
func UnaryServerInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var incoming string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(CorrelationIDHeader); len(values) > 0 {
				incoming = values[0]
			}
		}
		ctx = logger.WithCorrelationID(ctx, incoming)
		_ = grpc.SetHeader(ctx, metadata.Pairs(CorrelationIDHeader, logger.CorrelationIDFromContext(ctx)))

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		metrics.RecordGRPCRequest(info.FullMethod, code.String())

		attrs := []any{
			slog.String("method", info.FullMethod),
			slog.String("code", code.String()),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			log.WarnContext(ctx, "grpc request failed", append(attrs, slog.Any("error", err))...)
		} else {
			log.DebugContext(ctx, "grpc request", attrs...)
		}
		return resp, err
	}
}
