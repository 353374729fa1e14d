package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/BaSui01/quizflow/structured"
	"github.com/BaSui01/quizflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🎯 提示词与输出格式
// =============================================================================

const (
	mcqSystemPrompt = "You are a helpful AI that is able to generate mcq questions and answers, " +
		"the length of each answer should not be more than 15 words, " +
		"store all answers and questions and options in a JSON array"
	mcqUserPrompt = "You are to generate a random hard mcq question about %s"

	openEndedSystemPrompt = "You are a helpful AI that is able to generate a pair of question and answers, " +
		"the length of each answer should not be more than 15 words, " +
		"store all the pairs of answers and questions in a JSON array"
	openEndedUserPrompt = "You are to generate a random hard open-ended questions about %s"

	classifySystemPrompt = "You are a helpful AI that classifies a quiz topic into exactly one category"

	// DefaultCategory 无法归类时的主题分类
	DefaultCategory = "general"

	// MinAmount / MaxAmount 单局题目数量范围
	MinAmount = 1
	MaxAmount = 10
)

// DefaultCategories 主题分类候选
var DefaultCategories = []string{
	"science", "math", "history", "geography", "technology",
	"sports", "music", "art", "entertainment", DefaultCategory,
}

func mcqSchema() *structured.Schema {
	return structured.NewSchema().
		Free("question", "question").
		Free("answer", "answer with max length of 15 words").
		Free("option1", "option1 with max length of 15 words").
		Free("option2", "option2 with max length of 15 words").
		Free("option3", "option3 with max length of 15 words")
}

func openEndedSchema() *structured.Schema {
	return structured.NewSchema().
		Free("question", "question").
		Free("answer", "answer with max length of 15 words")
}

// =============================================================================
// 🧩 依赖与选项
// =============================================================================

// Generator 结构化生成器，*structured.Generator 满足该接口
type Generator interface {
	RunWithAttempts(ctx context.Context, req structured.Request) ([]structured.Record, []structured.Attempt, error)
}

// Recorder 业务指标
type Recorder interface {
	RecordGameCreated(gameType string)
	RecordAnswerChecked(gameType string, correct bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordGameCreated(string)         {}
func (nopRecorder) RecordAnswerChecked(string, bool) {}

// Option 服务选项
type Option func(*Service)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder 设置指标记录
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithShuffle 替换选项洗牌函数
func WithShuffle(fn func([]string)) Option {
	return func(s *Service) {
		if fn != nil {
			s.shuffle = fn
		}
	}
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCategories 替换主题分类候选
func WithCategories(categories ...string) Option {
	return func(s *Service) {
		if len(categories) > 0 {
			s.categories = append([]string{}, categories...)
		}
	}
}

// WithVerbose 打开生成器的逐次尝试日志
func WithVerbose(verbose bool) Option {
	return func(s *Service) { s.verbose = verbose }
}

// =============================================================================
// 🚀 Service
// =============================================================================

// Service 测验业务：出题、判题、主题分类
type Service struct {
	store      Store
	generator  Generator
	recorder   Recorder
	logger     *zap.Logger
	shuffle    func([]string)
	now        func() time.Time
	categories []string
	verbose    bool
}

// NewService 创建服务
func NewService(store Store, generator Generator, opts ...Option) *Service {
	s := &Service{
		store:      store,
		generator:  generator,
		recorder:   nopRecorder{},
		logger:     zap.NewNop(),
		shuffle:    shuffleStrings,
		now:        time.Now,
		categories: DefaultCategories,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "quiz_service"))
	return s
}

func shuffleStrings(s []string) {
	rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

// GameRequest 创建游戏参数
type GameRequest struct {
	UserID string
	Topic  string
	Type   GameType
	Amount int
}

// Validate 校验参数
func (r GameRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return ErrEmptyTopic
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidGameType, r.Type)
	}
	if r.Amount < MinAmount || r.Amount > MaxAmount {
		return ErrInvalidAmount
	}
	return nil
}

// GenerateGame 批量生成 amount 道题目并持久化为一局游戏
func (s *Service) GenerateGame(ctx context.Context, req GameRequest) (*Game, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	topic := strings.TrimSpace(req.Topic)

	var sreq structured.Request
	inputs := make([]string, req.Amount)
	switch req.Type {
	case GameTypeMCQ:
		for i := range inputs {
			inputs[i] = fmt.Sprintf(mcqUserPrompt, topic)
		}
		sreq = structured.BatchInput(mcqSystemPrompt, inputs, mcqSchema())
	default:
		for i := range inputs {
			inputs[i] = fmt.Sprintf(openEndedUserPrompt, topic)
		}
		sreq = structured.BatchInput(openEndedSystemPrompt, inputs, openEndedSchema())
	}
	sreq.Verbose = s.verbose

	records, err := s.run(ctx, sreq)
	if err != nil {
		return nil, err
	}

	game := &Game{
		UserID:      req.UserID,
		Topic:       topic,
		GameType:    req.Type,
		TimeStarted: s.now(),
		Questions:   make([]Question, 0, len(records)),
	}
	for i, rec := range records {
		q := Question{
			Position:     i,
			Question:     rec.Text("question"),
			Answer:       rec.Text("answer"),
			QuestionType: req.Type,
		}
		if req.Type == GameTypeMCQ {
			options := []string{rec.Text("answer"), rec.Text("option1"), rec.Text("option2"), rec.Text("option3")}
			s.shuffle(options)
			q.Options = options
		}
		game.Questions = append(game.Questions, q)
	}

	if err := s.store.CreateGame(ctx, game); err != nil {
		return nil, err
	}
	s.recorder.RecordGameCreated(string(req.Type))
	s.logger.Info("game created",
		zap.String("game_id", game.ID),
		zap.String("topic", topic),
		zap.String("game_type", string(req.Type)),
		zap.Int("questions", len(game.Questions)))
	return game, nil
}

// run 执行生成，预算耗尽时返回 GENERATION_EXHAUSTED
func (s *Service) run(ctx context.Context, req structured.Request) ([]structured.Record, error) {
	records, attempts, err := s.generator.RunWithAttempts(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		fields := []zap.Field{zap.Int("attempts", len(attempts))}
		if n := len(attempts); n > 0 && attempts[n-1].Err != nil {
			fields = append(fields, zap.NamedError("last_error", attempts[n-1].Err))
		}
		s.logger.Warn("generation exhausted", fields...)
		return nil, types.NewGenerationExhaustedError(len(attempts)).WithCause(ErrGenerationExhausted)
	}
	return records, nil
}

// CheckAnswer 判题并写回作答结果：单选题比较规范化后的文本，开放题按编辑距离给出相似度
func (s *Service) CheckAnswer(ctx context.Context, questionID, userInput string) (AnswerResult, error) {
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return AnswerResult{}, err
	}

	var (
		result  AnswerResult
		update  = QuestionResult{UserAnswer: userInput}
		correct bool
	)
	switch q.QuestionType {
	case GameTypeMCQ:
		correct = MatchExact(q.Answer, userInput)
		update.IsCorrect = &correct
		result.IsCorrect = &correct
	case GameTypeOpenEnded:
		pct := Similarity(q.Answer, userInput)
		f := float64(pct)
		update.PercentageCorrect = &f
		result.PercentageSimilar = &pct
		correct = pct == 100
	default:
		return AnswerResult{}, fmt.Errorf("%w: %q", ErrInvalidGameType, q.QuestionType)
	}

	if err := s.store.UpdateQuestionResult(ctx, questionID, update); err != nil {
		return AnswerResult{}, err
	}
	s.recorder.RecordAnswerChecked(string(q.QuestionType), correct)
	return result, nil
}

// ClassifyTopic 将自由文本主题归入候选分类之一，无法归类时为 general
func (s *Service) ClassifyTopic(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrEmptyTopic
	}
	req := structured.SingleInput(classifySystemPrompt, topic,
		structured.NewSchema().Enum("category", s.categories...))
	req.DefaultCategory = DefaultCategory
	req.Verbose = s.verbose

	records, err := s.run(ctx, req)
	if err != nil {
		return "", err
	}
	category := records[0].Text("category")
	if category == "" {
		category = DefaultCategory
	}
	return category, nil
}

// GetGame 读取游戏
func (s *Service) GetGame(ctx context.Context, id string) (*Game, error) {
	return s.store.GetGame(ctx, id)
}

// EndGame 结束游戏
func (s *Service) EndGame(ctx context.Context, id string) error {
	return s.store.EndGame(ctx, id, s.now())
}

// TopicCounts 词云数据
func (s *Service) TopicCounts(ctx context.Context, limit int) ([]TopicCount, error) {
	return s.store.TopicCounts(ctx, limit)
}

// IsNotFound 报告 err 是否为游戏或题目不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrGameNotFound) || errors.Is(err, ErrQuestionNotFound)
}

// IsInvalid 报告 err 是否为参数错误
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidGameType) || errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrEmptyTopic)
}
