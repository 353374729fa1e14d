package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		with func(context.Context, string) context.Context
		get  func(context.Context) (string, bool)
	}{
		{"trace id", WithTraceID, TraceID},
		{"request id", WithRequestID, RequestID},
		{"user id", WithUserID, UserID},
		{"llm model", WithLLMModel, LLMModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tt.get(context.Background())
			assert.False(t, ok)

			_, ok = tt.get(tt.with(context.Background(), ""))
			assert.False(t, ok, "empty value is treated as absent")

			v, ok := tt.get(tt.with(context.Background(), "abc"))
			assert.True(t, ok)
			assert.Equal(t, "abc", v)
		})
	}
}

func TestContextKeys_Independent(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithTraceID(ctx, "trace-1")

	req, _ := RequestID(ctx)
	trace, _ := TraceID(ctx)
	assert.Equal(t, "req-1", req)
	assert.Equal(t, "trace-1", trace)

	_, ok := UserID(ctx)
	assert.False(t, ok)
}
