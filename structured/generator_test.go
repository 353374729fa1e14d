package structured

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/quizflow/internal/ctxkeys"
	"github.com/BaSui01/quizflow/llm"
	"github.com/BaSui01/quizflow/llm/tokenizer"
	"github.com/BaSui01/quizflow/testutil"
	"github.com/BaSui01/quizflow/testutil/fixtures"
	"github.com/BaSui01/quizflow/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func qaSchema() *Schema {
	return NewSchema().
		Free("question", "question").
		Free("answer", "answer with max length of 15 words")
}

func newTestGenerator(t *testing.T, p llm.Provider, opts ...Option) *Generator {
	t.Helper()
	g, err := NewGenerator(p, opts...)
	require.NoError(t, err)
	return g
}

// 记录指标调用的 Recorder
type fakeRecorder struct {
	mu       sync.Mutex
	attempts []ErrorKind
	runs     []bool
	runCount []int
	tokens   int
}

func (f *fakeRecorder) RecordGenerationAttempt(_ string, kind ErrorKind, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, kind)
}

func (f *fakeRecorder) RecordGenerationRun(_ string, ok bool, attempts int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, ok)
	f.runCount = append(f.runCount, attempts)
}

func (f *fakeRecorder) RecordPromptTokens(_ string, tokens int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens += tokens
}

func TestNewGenerator_NilProvider(t *testing.T) {
	g, err := NewGenerator(nil)
	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrNilProvider)
}

func TestNewGenerator_Defaults(t *testing.T) {
	g := newTestGenerator(t, mocks.NewMockProvider())
	assert.Equal(t, Defaults{Model: "gpt-3.5-turbo", Temperature: 1, MaxAttempts: 3}, g.Defaults())

	g = newTestGenerator(t, mocks.NewMockProvider(), WithDefaults(Defaults{Model: "m", MaxAttempts: 5}))
	assert.Equal(t, Defaults{Model: "m", Temperature: 1, MaxAttempts: 5}, g.Defaults())
}

func TestGenerator_Run_SingleSuccess(t *testing.T) {
	provider := mocks.NewSuccessProvider(fixtures.OpenEndedOutput("What's 2+2?", "four"))
	g := newTestGenerator(t, provider)

	records, err := g.Run(testutil.TestContext(t), SingleInput("You are a quiz maker.", "arithmetic", qaSchema()))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "What's 2+2?", records[0].Text("question"))
	assert.Equal(t, "four", records[0].Text("answer"))

	require.Equal(t, 1, provider.GetCallCount())
	call := provider.GetLastCall()
	assert.Equal(t, "gpt-3.5-turbo", call.Request.Model)
	assert.Equal(t, float32(1), call.Request.Temperature)
	testutil.AssertMessagesEqual(t, llm.SystemUserMessages(
		"You are a quiz maker."+ComposePrompt(qaSchema(), PromptOptions{}),
		"arithmetic",
	), call.Request.Messages)
}

func TestGenerator_Run_RetryCarriesErrorContext(t *testing.T) {
	provider := mocks.NewScriptedProvider(
		fixtures.MalformedOutput(),
		`{"question": "q"}`,
		`{"question": "q", "answer": "a"}`,
	)
	g := newTestGenerator(t, provider)

	records, attempts, err := g.RunWithAttempts(context.Background(), SingleInput("sys", "topic", qaSchema()))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, attempts, 3)
	assert.Equal(t, 3, provider.GetCallCount())

	var decoded any
	parseErr := json.Unmarshal([]byte(fixtures.MalformedOutput()), &decoded)
	require.Error(t, parseErr)

	prompts := provider.SystemPrompts()
	require.Len(t, prompts, 3)
	assert.Equal(t, "sys"+ComposePrompt(qaSchema(), PromptOptions{}), prompts[0])
	assert.True(t, strings.HasSuffix(prompts[1],
		"\n\nResult: "+fixtures.MalformedOutput()+"\n\nError message: Error: "+parseErr.Error()))
	assert.True(t, strings.HasSuffix(prompts[2],
		"\n\nResult: {\"question\": \"q\"}\n\nError message: Error: answer not in json output"))
	// 只携带上一次的错误
	assert.NotContains(t, prompts[2], fixtures.MalformedOutput())

	assert.Equal(t, KindMalformedOutput, attempts[0].Err.Kind)
	assert.Equal(t, KindMissingField, attempts[1].Err.Kind)
	assert.True(t, attempts[2].Succeeded())
	for i, a := range attempts {
		assert.Equal(t, i+1, a.Number)
		assert.Equal(t, "topic", a.Input)
	}
}

func TestGenerator_Run_Exhausted(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		wantCalls   int
	}{
		{"default budget", 0, 3},
		{"negative falls back", -2, 3},
		{"single attempt", 1, 1},
		{"custom budget", 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mocks.NewSuccessProvider(fixtures.MalformedOutput())
			g := newTestGenerator(t, provider)

			req := SingleInput("sys", "topic", qaSchema())
			req.MaxAttempts = tt.maxAttempts
			records, attempts, err := g.RunWithAttempts(context.Background(), req)
			require.NoError(t, err)
			require.NotNil(t, records)
			assert.Empty(t, records)
			assert.Len(t, attempts, tt.wantCalls)
			assert.Equal(t, tt.wantCalls, provider.GetCallCount())
		})
	}
}

func TestGenerator_Run_ProviderErrorIsRetried(t *testing.T) {
	provider := mocks.NewMockProvider().WithScript(
		mocks.ScriptStep{Err: errors.New("upstream exploded")},
		mocks.ScriptStep{Content: `{"question": "q", "answer": "a"}`},
	)
	g := newTestGenerator(t, provider)

	records, attempts, err := g.RunWithAttempts(context.Background(), SingleInput("sys", "topic", qaSchema()))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, attempts, 2)
	assert.Equal(t, KindGenerationFailure, attempts[0].Err.Kind)
	assert.True(t, strings.HasSuffix(provider.SystemPrompts()[1], "\n\nError message: Error: upstream exploded"))
}

func TestGenerator_Run_EmptyChoices(t *testing.T) {
	provider := mocks.NewMockProvider().WithCompletionFunc(func(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
		return fixtures.EmptyChoicesResponse(), nil
	})
	g := newTestGenerator(t, provider)

	records, attempts, err := g.RunWithAttempts(context.Background(), SingleInput("sys", "topic", qaSchema()))
	require.NoError(t, err)
	assert.Empty(t, records)
	require.Len(t, attempts, 3)
	assert.Equal(t, KindGenerationFailure, attempts[0].Err.Kind)
}

func TestGenerator_Run_Batched(t *testing.T) {
	provider := mocks.NewScriptedProvider(fixtures.OpenEndedBatch(2), fixtures.OpenEndedBatch(3))
	g := newTestGenerator(t, provider)

	inputs := []string{"history", "history", "history"}
	records, attempts, err := g.RunWithAttempts(context.Background(), BatchInput("sys", inputs, qaSchema()))
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Len(t, attempts, 2)
	assert.Equal(t, KindShapeMismatch, attempts[0].Err.Kind)

	for i, rec := range records {
		assert.Equal(t, []string{"question", "answer"}, rec.Keys(), "record %d", i)
	}
	assert.Equal(t, "history,history,history", provider.UserPrompts()[0])
	assert.Contains(t, provider.SystemPrompts()[0], batchHint)
}

func TestGenerator_Run_BatchedBareObject(t *testing.T) {
	provider := mocks.NewSuccessProvider(`{"question": "q", "answer": "a"}`)
	g := newTestGenerator(t, provider)

	records, attempts, err := g.RunWithAttempts(context.Background(), BatchInput("sys", []string{"a"}, qaSchema()))
	require.NoError(t, err)
	assert.Empty(t, records)
	for _, a := range attempts {
		assert.Equal(t, "Output format not in a list of json", a.Err.Message)
	}
}

func TestGenerator_Run_DefaultCategoryAndValueOnly(t *testing.T) {
	provider := mocks.NewSuccessProvider(`{"category": "literature"}`)
	g := newTestGenerator(t, provider)

	req := SingleInput("classify", "poems", NewSchema().Enum("category", "math", "science"))
	req.DefaultCategory = "general"
	records, err := g.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "general", records[0].Text("category"))
	assert.Contains(t, provider.SystemPrompts()[0], enumeratedHint)

	provider = mocks.NewSuccessProvider(`{"topic": "math", "explanation": "about algebra"}`)
	g = newTestGenerator(t, provider)
	req = SingleInput("explain", "x", NewSchema().Free("topic", "topic").Free("explanation", "explanation"))
	req.ValueOnly = true
	records, err = g.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"question", "answer"}, records[0].Keys())
	assert.Equal(t, "math", records[0].Text("question"))
	assert.Equal(t, "about algebra", records[0].Text("answer"))
}

func TestGenerator_Run_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"nil schema", SingleInput("s", "u", nil), ErrNilSchema},
		{"no input", Request{Schema: qaSchema()}, ErrNoInput},
		{"empty batch", BatchInput("s", nil, qaSchema()), ErrNoInput},
		{"two inputs not batched", Request{Schema: qaSchema(), Inputs: []string{"a", "b"}}, ErrSingleInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mocks.NewMockProvider()
			g := newTestGenerator(t, provider)

			records, err := g.Run(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, records)
			assert.Equal(t, 0, provider.GetCallCount())
		})
	}
}

func TestGenerator_Run_RequestOverrides(t *testing.T) {
	provider := mocks.NewSuccessProvider(`{"question": "q", "answer": "a"}`)
	g := newTestGenerator(t, provider, WithDefaults(Defaults{Model: "house-model", Temperature: 0.3}))

	_, err := g.Run(context.Background(), SingleInput("s", "u", qaSchema()))
	require.NoError(t, err)
	assert.Equal(t, "house-model", provider.GetLastCall().Request.Model)
	assert.Equal(t, float32(0.3), provider.GetLastCall().Request.Temperature)

	req := SingleInput("s", "u", qaSchema())
	req.Model = "gpt-4o-mini"
	req.Temperature = 0.7
	_, err = g.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", provider.GetLastCall().Request.Model)
	assert.Equal(t, float32(0.7), provider.GetLastCall().Request.Temperature)
}

func TestGenerator_Run_PropagatesTraceID(t *testing.T) {
	provider := mocks.NewSuccessProvider(`{"question": "q", "answer": "a"}`)
	g := newTestGenerator(t, provider)

	ctx := ctxkeys.WithTraceID(context.Background(), "trace-123")
	_, err := g.Run(ctx, SingleInput("s", "u", qaSchema()))
	require.NoError(t, err)
	assert.Equal(t, "trace-123", provider.GetLastCall().Request.TraceID)
}

func TestGenerator_Run_ModelFromContext(t *testing.T) {
	provider := mocks.NewSuccessProvider(`{"question": "q", "answer": "a"}`)
	g := newTestGenerator(t, provider)

	ctx := ctxkeys.WithLLMModel(context.Background(), "deepseek-chat")
	_, err := g.Run(ctx, SingleInput("s", "u", qaSchema()))
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", provider.GetLastCall().Request.Model)

	// 请求中显式指定的模型优先
	req := SingleInput("s", "u", qaSchema())
	req.Model = "gpt-4o"
	_, err = g.Run(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", provider.GetLastCall().Request.Model)
}

func TestGenerator_Run_ContextCancelledBeforeStart(t *testing.T) {
	provider := mocks.NewMockProvider()
	g := newTestGenerator(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, err := g.Run(ctx, SingleInput("s", "u", qaSchema()))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, records)
	assert.Equal(t, 0, provider.GetCallCount())
}

func TestGenerator_Run_ContextCancelledDuringAttempt(t *testing.T) {
	provider := mocks.NewMockProvider().WithDelay(time.Second)
	g := newTestGenerator(t, provider)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, attempts, err := g.RunWithAttempts(ctx, SingleInput("s", "u", qaSchema()))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, attempts, 1)
	assert.Equal(t, 1, provider.GetCallCount())
}

func TestGenerator_Run_Recorder(t *testing.T) {
	rec := &fakeRecorder{}
	provider := mocks.NewScriptedProvider("nope", `{"question": "q", "answer": "a"}`)
	g := newTestGenerator(t, provider,
		WithRecorder(rec),
		WithTokenizer(func(model string) tokenizer.Tokenizer {
			return tokenizer.NewEstimatorTokenizer(model, 0)
		}),
	)

	_, err := g.Run(context.Background(), SingleInput("s", "u", qaSchema()))
	require.NoError(t, err)

	assert.Equal(t, []ErrorKind{KindMalformedOutput, ""}, rec.attempts)
	assert.Equal(t, []bool{true}, rec.runs)
	assert.Equal(t, []int{2}, rec.runCount)
	assert.Greater(t, rec.tokens, 0)
}

func TestGenerator_Run_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	provider := mocks.NewScriptedProvider("nope", `{"question": "q", "answer": "a"}`)
	g := newTestGenerator(t, provider, WithLogger(zap.New(core)))

	req := SingleInput("s", "u", qaSchema())
	req.Verbose = true
	_, err := g.Run(context.Background(), req)
	require.NoError(t, err)

	failures := logs.FilterMessage("structured attempt failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, string(KindMalformedOutput), failures[0].ContextMap()["error_kind"])
	assert.Equal(t, "structured_generator", failures[0].ContextMap()["component"])

	assert.Equal(t, 2, logs.FilterMessage("system prompt").Len())
	assert.Equal(t, 2, logs.FilterMessage("model response").Len())

	// 非 verbose 模式不输出提示词
	logs.TakeAll()
	_, err = g.Run(context.Background(), SingleInput("s", "u", qaSchema()))
	require.NoError(t, err)
	assert.Equal(t, 0, logs.FilterMessage("system prompt").Len())
}

func TestGenerator_Run_Concurrent(t *testing.T) {
	provider := mocks.NewSuccessProvider(`{"question": "q", "answer": "a"}`)
	g := newTestGenerator(t, provider)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			records, err := g.Run(context.Background(), SingleInput("s", "u", qaSchema()))
			assert.NoError(t, err)
			assert.Len(t, records, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, provider.GetCallCount())
}

func TestAttempt_String(t *testing.T) {
	ok := Attempt{Number: 1, Records: []Record{{}}}
	assert.Equal(t, "attempt 1: ok (1 records)", ok.String())

	failed := Attempt{Number: 2, Err: newAttemptError(KindMissingField, nil, "answer not in json output")}
	assert.Equal(t, "attempt 2: missing_field: answer not in json output", failed.String())
	assert.Empty(t, ok.ErrorContext())
	assert.Equal(t, "\n\nResult: \n\nError message: Error: answer not in json output", failed.ErrorContext())
}
