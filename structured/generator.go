package structured

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/quizflow/internal/ctxkeys"
	"github.com/BaSui01/quizflow/llm"
	"github.com/BaSui01/quizflow/llm/tokenizer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// 默认参数
const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = float32(1)
	DefaultMaxAttempts = 3
)

// Request 描述一次结构化生成调用。
type Request struct {
	// SystemPrompt 调用方的 system 指令，格式说明追加在其后。
	SystemPrompt string
	// Inputs 非批量时恰好一个元素；批量时为有序的输入列表。
	Inputs []string
	// Batched 为 true 时每个输入对应一条输出记录。
	Batched bool
	// Schema 输出契约，必填。
	Schema *Schema
	// DefaultCategory 分类字段无法归类时使用的默认值，可为空。
	DefaultCategory string
	// ValueOnly 为 true 时输出重塑为 {question, answer}。
	ValueOnly bool
	// Model 为空时使用 Generator 的默认模型。
	Model string
	// Temperature 为 0 时使用 Generator 的默认温度。
	Temperature float32
	// MaxAttempts 小于等于 0 时使用 Generator 的默认次数。
	MaxAttempts int
	// Verbose 为 true 时记录每次尝试的提示词与模型输出。
	Verbose bool
}

// SingleInput 构造非批量请求。
func SingleInput(systemPrompt, input string, schema *Schema) Request {
	return Request{SystemPrompt: systemPrompt, Inputs: []string{input}, Schema: schema}
}

// BatchInput 构造批量请求，inputs 的顺序决定输出顺序。
func BatchInput(systemPrompt string, inputs []string, schema *Schema) Request {
	cp := make([]string, len(inputs))
	copy(cp, inputs)
	return Request{SystemPrompt: systemPrompt, Inputs: cp, Batched: true, Schema: schema}
}

func (r Request) validate() error {
	if r.Schema == nil {
		return ErrNilSchema
	}
	if len(r.Inputs) == 0 {
		return ErrNoInput
	}
	if !r.Batched && len(r.Inputs) != 1 {
		return ErrSingleInput
	}
	return nil
}

// userPrompt 批量输入以逗号拼接为一条 user 消息。
func (r Request) userPrompt() string {
	if r.Batched {
		return strings.Join(r.Inputs, ",")
	}
	return r.Inputs[0]
}

// Attempt 是一次尝试的不可变记录。
type Attempt struct {
	Number       int
	Input        string
	SystemPrompt string
	RawOutput    string
	Normalized   string
	Records      []Record
	Err          *AttemptError
	Duration     time.Duration
}

// Succeeded 报告该尝试是否得到合法输出。
func (a Attempt) Succeeded() bool { return a.Err == nil }

// ErrorContext 返回写入下一次尝试 system 提示词的纠错上下文。
func (a Attempt) ErrorContext() string {
	if a.Err == nil {
		return ""
	}
	return ErrorContext(a.Normalized, a.Err)
}

// Recorder 接收生成过程的指标。
type Recorder interface {
	RecordGenerationAttempt(model string, kind ErrorKind, duration time.Duration)
	RecordGenerationRun(model string, succeeded bool, attempts int, duration time.Duration)
	RecordPromptTokens(model string, tokens int)
}

type nopRecorder struct{}

func (nopRecorder) RecordGenerationAttempt(string, ErrorKind, time.Duration) {}
func (nopRecorder) RecordGenerationRun(string, bool, int, time.Duration)     {}
func (nopRecorder) RecordPromptTokens(string, int)                           {}

// Defaults 是 Generator 级别的默认参数，Request 中的零值回退到这里。
type Defaults struct {
	Model       string
	Temperature float32
	MaxAttempts int
}

// Generator 驱动"组装提示词 → 调用模型 → 归一化 → 解析 → 校验"的修复重试循环。
// Generator 在调用之间无状态，可被多个 goroutine 并发使用。
type Generator struct {
	provider  llm.Provider
	logger    *zap.Logger
	recorder  Recorder
	tracer    trace.Tracer
	tokenizer func(model string) tokenizer.Tokenizer
	defaults  Defaults
}

// Option 配置 Generator。
type Option func(*Generator)

// WithLogger 设置日志记录器。
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithRecorder 设置指标接收器。
func WithRecorder(r Recorder) Option {
	return func(g *Generator) {
		if r != nil {
			g.recorder = r
		}
	}
}

// WithTracer 设置 OpenTelemetry tracer。
func WithTracer(t trace.Tracer) Option {
	return func(g *Generator) {
		if t != nil {
			g.tracer = t
		}
	}
}

// WithTokenizer 启用提示词 token 计数。
func WithTokenizer(fn func(model string) tokenizer.Tokenizer) Option {
	return func(g *Generator) { g.tokenizer = fn }
}

// WithDefaults 覆盖默认模型、温度与尝试次数，零值字段保持内置默认。
func WithDefaults(d Defaults) Option {
	return func(g *Generator) {
		if d.Model != "" {
			g.defaults.Model = d.Model
		}
		if d.Temperature > 0 {
			g.defaults.Temperature = d.Temperature
		}
		if d.MaxAttempts > 0 {
			g.defaults.MaxAttempts = d.MaxAttempts
		}
	}
}

// NewGenerator 创建 Generator。
func NewGenerator(provider llm.Provider, opts ...Option) (*Generator, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	g := &Generator{
		provider: provider,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer("github.com/BaSui01/quizflow/structured"),
		defaults: Defaults{
			Model:       DefaultModel,
			Temperature: DefaultTemperature,
			MaxAttempts: DefaultMaxAttempts,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.String("component", "structured_generator"))
	return g, nil
}

// Defaults 返回生效的默认参数。
func (g *Generator) Defaults() Defaults { return g.defaults }

// resolve 补全请求参数，模型优先级: 请求 → context → 默认值。
func (g *Generator) resolve(ctx context.Context, req Request) Request {
	if req.Model == "" {
		if model, ok := ctxkeys.LLMModel(ctx); ok {
			req.Model = model
		} else {
			req.Model = g.defaults.Model
		}
	}
	if req.Temperature == 0 {
		req.Temperature = g.defaults.Temperature
	}
	if req.MaxAttempts <= 0 {
		req.MaxAttempts = g.defaults.MaxAttempts
	}
	return req
}

// Run 执行修复重试循环。
//
// 成功时每个输入对应一条记录（非批量为一条）；重试预算耗尽时返回空切片与 nil。
// 错误仅用于非法请求与 context 取消，模型输出问题不会以错误形式返回。
func (g *Generator) Run(ctx context.Context, req Request) ([]Record, error) {
	records, _, err := g.RunWithAttempts(ctx, req)
	return records, err
}

// RunWithAttempts 与 Run 相同，另外返回全部尝试记录用于诊断。
func (g *Generator) RunWithAttempts(ctx context.Context, req Request) ([]Record, []Attempt, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}
	req = g.resolve(ctx, req)

	ctx, span := g.tracer.Start(ctx, "structured.Run", trace.WithAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Bool("structured.batched", req.Batched),
		attribute.Int("structured.inputs", len(req.Inputs)),
		attribute.Int("structured.max_attempts", req.MaxAttempts),
	))
	defer span.End()

	start := time.Now()
	user := req.userPrompt()
	attempts := make([]Attempt, 0, req.MaxAttempts)

	for n := 1; n <= req.MaxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return g.abort(span, req, attempts, start, err)
		}

		var errCtx string
		if len(attempts) > 0 {
			errCtx = attempts[len(attempts)-1].ErrorContext()
		}
		system := req.SystemPrompt + ComposePrompt(req.Schema, PromptOptions{
			Batched:      req.Batched,
			ErrorContext: errCtx,
		})

		attempt := g.attempt(ctx, n, system, user, req)
		attempts = append(attempts, attempt)

		if attempt.Succeeded() {
			g.recorder.RecordGenerationRun(req.Model, true, n, time.Since(start))
			span.SetAttributes(attribute.Int("structured.attempts", n))
			span.SetStatus(codes.Ok, "")
			return attempt.Records, attempts, nil
		}
		if err := ctx.Err(); err != nil {
			return g.abort(span, req, attempts, start, err)
		}
	}

	g.recorder.RecordGenerationRun(req.Model, false, len(attempts), time.Since(start))
	span.SetAttributes(attribute.Int("structured.attempts", len(attempts)))
	span.SetStatus(codes.Error, "retry budget exhausted")
	g.logger.Warn("structured generation exhausted",
		zap.Int("attempts", len(attempts)),
		zap.String("model", req.Model))
	return []Record{}, attempts, nil
}

func (g *Generator) abort(span trace.Span, req Request, attempts []Attempt, start time.Time, err error) ([]Record, []Attempt, error) {
	g.recorder.RecordGenerationRun(req.Model, false, len(attempts), time.Since(start))
	span.RecordError(err)
	span.SetStatus(codes.Error, "context done")
	return nil, attempts, err
}

// attempt 执行一次完整尝试，失败原因记录在返回值中。
func (g *Generator) attempt(ctx context.Context, n int, system, user string, req Request) Attempt {
	ctx, span := g.tracer.Start(ctx, "structured.Attempt", trace.WithAttributes(attribute.Int("structured.attempt", n)))
	defer span.End()

	start := time.Now()
	a := Attempt{Number: n, Input: user, SystemPrompt: system}
	messages := llm.SystemUserMessages(system, user)
	g.countPrompt(req.Model, messages)

	if req.Verbose {
		g.logger.Info("system prompt", zap.Int("attempt", n), zap.String("prompt", system))
		g.logger.Info("user prompt", zap.Int("attempt", n), zap.String("prompt", user))
	}

	chatReq := &llm.ChatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if traceID, ok := ctxkeys.TraceID(ctx); ok {
		chatReq.TraceID = traceID
	}

	resp, err := g.provider.Completion(ctx, chatReq)
	if err == nil {
		a.RawOutput, err = llm.FirstContent(resp)
	}
	if err != nil {
		a.Err = newAttemptError(KindGenerationFailure, err, "%s", err.Error())
		return g.finish(span, req.Model, a, start)
	}

	a.Normalized = NormalizeQuotes(a.RawOutput)
	if req.Verbose {
		g.logger.Info("model response", zap.Int("attempt", n), zap.String("response", a.Normalized))
	}

	parsed, err := ParseOutput(a.Normalized)
	if err != nil {
		a.Err = asAttemptError(err)
		return g.finish(span, req.Model, a, start)
	}

	expected := 0
	if req.Batched {
		expected = len(req.Inputs)
	}
	records, err := Coerce(parsed, req.Schema, CoerceOptions{
		DefaultCategory: req.DefaultCategory,
		Batched:         req.Batched,
		ExpectedCount:   expected,
		ValueOnly:       req.ValueOnly,
	})
	if err != nil {
		a.Err = asAttemptError(err)
		return g.finish(span, req.Model, a, start)
	}
	a.Records = records
	return g.finish(span, req.Model, a, start)
}

func (g *Generator) finish(span trace.Span, model string, a Attempt, start time.Time) Attempt {
	a.Duration = time.Since(start)
	var kind ErrorKind
	if a.Err != nil {
		kind = a.Err.Kind
		span.SetStatus(codes.Error, string(kind))
		span.SetAttributes(attribute.String("structured.error_kind", string(kind)))
		g.logger.Warn("structured attempt failed",
			zap.Int("attempt", a.Number),
			zap.String("error_kind", string(kind)),
			zap.String("error", a.Err.Message),
			zap.String("output", a.Normalized))
	}
	g.recorder.RecordGenerationAttempt(model, kind, a.Duration)
	return a
}

func (g *Generator) countPrompt(model string, messages []llm.Message) {
	if g.tokenizer == nil {
		return
	}
	tk := g.tokenizer(model)
	if tk == nil {
		return
	}
	msgs := make([]tokenizer.Message, len(messages))
	for i, m := range messages {
		msgs[i] = tokenizer.Message{Role: string(m.Role), Content: m.Content}
	}
	n, err := tk.CountMessages(msgs)
	if err != nil {
		g.logger.Debug("prompt token count failed", zap.Error(err))
		return
	}
	g.recorder.RecordPromptTokens(model, n)
}

// String 便于日志输出。
func (a Attempt) String() string {
	if a.Err == nil {
		return fmt.Sprintf("attempt %d: ok (%d records)", a.Number, len(a.Records))
	}
	return fmt.Sprintf("attempt %d: %s: %s", a.Number, a.Err.Kind, a.Err.Message)
}
