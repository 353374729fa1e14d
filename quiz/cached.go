package quiz

import (
	"context"
	"time"

	"github.com/BaSui01/quizflow/internal/cache"
	"go.uber.org/zap"
)

const questionCacheType = "questions"

// CacheRecorder 缓存命中统计
type CacheRecorder interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

type nopCacheRecorder struct{}

func (nopCacheRecorder) RecordCacheHit(string)  {}
func (nopCacheRecorder) RecordCacheMiss(string) {}

// CachedStore 在 Store 之上为题目读取加一层 Redis 旁路缓存，写入时失效。
// 缓存故障只记录日志，读写继续走底层 Store。
type CachedStore struct {
	Store
	cache    *cache.Manager
	ttl      time.Duration
	recorder CacheRecorder
	logger   *zap.Logger
}

var _ Store = (*CachedStore)(nil)

// NewCachedStore 包装 next，ttl 为 0 时使用缓存默认 TTL
func NewCachedStore(next Store, c *cache.Manager, ttl time.Duration, recorder CacheRecorder, logger *zap.Logger) *CachedStore {
	if recorder == nil {
		recorder = nopCacheRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedStore{
		Store:    next,
		cache:    c,
		ttl:      ttl,
		recorder: recorder,
		logger:   logger.With(zap.String("component", "quiz_cache")),
	}
}

func questionKey(id string) string { return "question:" + id }

// GetQuestion 先查缓存，未命中再读 Store 并回填
func (s *CachedStore) GetQuestion(ctx context.Context, id string) (*Question, error) {
	var q Question
	err := s.cache.GetJSON(ctx, questionKey(id), &q)
	if err == nil {
		s.recorder.RecordCacheHit(questionCacheType)
		return &q, nil
	}
	s.recorder.RecordCacheMiss(questionCacheType)
	if !cache.IsCacheMiss(err) {
		s.logger.Warn("question cache read failed", zap.String("question_id", id), zap.Error(err))
	}

	found, err := s.Store.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, questionKey(id), found, s.ttl); err != nil {
		s.logger.Warn("question cache write failed", zap.String("question_id", id), zap.Error(err))
	}
	return found, nil
}

// UpdateQuestionResult 写入后删除缓存项
func (s *CachedStore) UpdateQuestionResult(ctx context.Context, id string, result QuestionResult) error {
	if err := s.Store.UpdateQuestionResult(ctx, id, result); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, questionKey(id)); err != nil {
		s.logger.Warn("question cache invalidation failed", zap.String("question_id", id), zap.Error(err))
	}
	return nil
}
