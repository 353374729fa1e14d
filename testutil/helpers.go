// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供上下文、消息比较与 JSON 断言等通用辅助
//
// 使用方法:
//
//	ctx := testutil.TestContext(t)
//	testutil.AssertMessagesEqual(t, expected, call.Request.Messages)
//	testutil.AssertJSONEqual(t, `{"question":"q"}`, record)
// =============================================================================
package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/BaSui01/quizflow/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestContext 返回 30 秒超时的测试上下文，测试结束时取消
func TestContext(t *testing.T) context.Context {
	return TestContextWithTimeout(t, 30*time.Second)
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// AssertMessagesEqual 按角色与内容逐条比较消息
func AssertMessagesEqual(t *testing.T, expected, actual []llm.Message) {
	t.Helper()
	if !assert.Len(t, actual, len(expected), "message count mismatch") {
		return
	}
	for i := range expected {
		assert.Equal(t, expected[i].Role, actual[i].Role, "message[%d] role", i)
		assert.Equal(t, expected[i].Content, actual[i].Content, "message[%d] content", i)
	}
}

// AssertJSONEqual 断言 actual 编码后的 JSON 与 expected 文本语义相等
func AssertJSONEqual(t *testing.T, expected string, actual any) {
	t.Helper()
	assert.JSONEq(t, expected, MustJSON(t, actual))
}

// MustJSON 编码失败时终止测试
func MustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
