package logger

import (
	"context"

	"github.com/google/uuid"
)

// correlationIDKey context 中存放 correlation id 的 key
type correlationIDKey struct{}

// WithCorrelationID 把 id 放進 ctx，id 為空時產生新的 UUID
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext 取出 ctx 中的 correlation id，沒有時回傳空字串
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}
