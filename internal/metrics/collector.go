package metrics

import (
	"strconv"
	"time"

	"github.com/BaSui01/quizflow/structured"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	llmLatencyBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}
	sizeBuckets       = prometheus.ExponentialBuckets(100, 10, 8)
)

// Collector 指标收集器，注册在默认 Registry 上，/metrics 直接暴露
type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	generationAttempts     *prometheus.CounterVec
	generationAttemptTime  *prometheus.HistogramVec
	generationRuns         *prometheus.CounterVec
	generationRunAttempts  *prometheus.HistogramVec
	generationPromptTokens *prometheus.HistogramVec

	gamesCreated   *prometheus.CounterVec
	answersChecked *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec
	dbQueryDuration   *prometheus.HistogramVec

	logger *zap.Logger
}

// builder 在同一 namespace 下批量声明向量指标
type builder struct {
	factory   promauto.Factory
	namespace string
}

func (b builder) counter(name, help string, labels ...string) *prometheus.CounterVec {
	return b.factory.NewCounterVec(prometheus.CounterOpts{Namespace: b.namespace, Name: name, Help: help}, labels)
}

func (b builder) gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	return b.factory.NewGaugeVec(prometheus.GaugeOpts{Namespace: b.namespace, Name: name, Help: help}, labels)
}

func (b builder) histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return b.factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: b.namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
}

// NewCollector 创建指标收集器；同一进程内 namespace 不可重复
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	b := builder{factory: promauto.With(prometheus.DefaultRegisterer), namespace: namespace}

	c := &Collector{
		httpRequestsTotal:   b.counter("http_requests_total", "HTTP requests served, by status class", "method", "path", "status"),
		httpRequestDuration: b.histogram("http_request_duration_seconds", "HTTP handler latency", prometheus.DefBuckets, "method", "path"),
		httpRequestSize:     b.histogram("http_request_size_bytes", "HTTP request body size", sizeBuckets, "method", "path"),
		httpResponseSize:    b.histogram("http_response_size_bytes", "HTTP response body size", sizeBuckets, "method", "path"),

		llmRequestsTotal:   b.counter("llm_requests_total", "Chat completion calls, by outcome", "provider", "model", "status"),
		llmRequestDuration: b.histogram("llm_request_duration_seconds", "Chat completion latency", llmLatencyBuckets, "provider", "model"),
		llmTokensUsed:      b.counter("llm_tokens_used_total", "Tokens reported by the provider", "provider", "model", "type"),

		generationAttempts:     b.counter("generation_attempts_total", "Structured generation attempts, by failure kind", "model", "result"),
		generationAttemptTime:  b.histogram("generation_attempt_duration_seconds", "Latency of a single generation attempt", llmLatencyBuckets, "model"),
		generationRuns:         b.counter("generation_runs_total", "Repair loops that succeeded or ran out of attempts", "model", "status"),
		generationRunAttempts:  b.histogram("generation_run_attempts", "Attempts consumed by one repair loop", []float64{1, 2, 3, 4, 5, 8}, "model"),
		generationPromptTokens: b.histogram("generation_prompt_tokens", "Prompt size of a generation attempt in tokens", prometheus.ExponentialBuckets(64, 2, 10), "model"),

		gamesCreated:   b.counter("games_created_total", "Quiz games created", "game_type"),
		answersChecked: b.counter("answers_checked_total", "Answers checked, by verdict", "game_type", "result"),

		cacheHits:   b.counter("cache_hits_total", "Cache lookups served from cache", "cache_type"),
		cacheMisses: b.counter("cache_misses_total", "Cache lookups that fell through", "cache_type"),

		dbConnectionsOpen: b.gauge("db_connections_open", "Open connections in the pool", "database"),
		dbConnectionsIdle: b.gauge("db_connections_idle", "Idle connections in the pool", "database"),
		dbQueryDuration:   b.histogram("db_query_duration_seconds", "Transaction latency", prometheus.DefBuckets, "database", "operation"),

		logger: logger.With(zap.String("component", "metrics")),
	}

	c.logger.Info("metrics collector registered", zap.String("namespace", namespace))
	return c
}

// ===== HTTP =====

// RecordHTTPRequest 状态码按 2xx/3xx/4xx/5xx 归类
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// ===== LLM =====

// RecordLLMRequest 实现 llm.RequestRecorder
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// ===== 结构化生成 =====

var _ structured.Recorder = (*Collector)(nil)

// RecordGenerationAttempt kind 为空记为 ok
func (c *Collector) RecordGenerationAttempt(model string, kind structured.ErrorKind, duration time.Duration) {
	result := string(kind)
	if result == "" {
		result = "ok"
	}
	c.generationAttempts.WithLabelValues(model, result).Inc()
	c.generationAttemptTime.WithLabelValues(model).Observe(duration.Seconds())
}

func (c *Collector) RecordGenerationRun(model string, succeeded bool, attempts int, duration time.Duration) {
	c.generationRunAttempts.WithLabelValues(model).Observe(float64(attempts))
	if succeeded {
		c.generationRuns.WithLabelValues(model, "success").Inc()
		return
	}
	c.generationRuns.WithLabelValues(model, "exhausted").Inc()
	c.logger.Debug("generation exhausted",
		zap.String("model", model),
		zap.Int("attempts", attempts),
		zap.Duration("duration", duration))
}

func (c *Collector) RecordPromptTokens(model string, tokens int) {
	c.generationPromptTokens.WithLabelValues(model).Observe(float64(tokens))
}

// ===== 测验 =====

func (c *Collector) RecordGameCreated(gameType string) {
	c.gamesCreated.WithLabelValues(gameType).Inc()
}

func (c *Collector) RecordAnswerChecked(gameType string, correct bool) {
	verdict := map[bool]string{true: "correct", false: "incorrect"}[correct]
	c.answersChecked.WithLabelValues(gameType, verdict).Inc()
}

// ===== 缓存 =====

func (c *Collector) RecordCacheHit(cacheType string) { c.cacheHits.WithLabelValues(cacheType).Inc() }

func (c *Collector) RecordCacheMiss(cacheType string) { c.cacheMisses.WithLabelValues(cacheType).Inc() }

// ===== 数据库 =====

// RecordDBConnections 实现 database.StatsRecorder
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

func (c *Collector) RecordDBQuery(database, operation string, duration time.Duration) {
	c.dbQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// statusCode 200..599 之外记为 unknown
func statusCode(code int) string {
	if code < 200 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
