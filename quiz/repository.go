package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/quizflow/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuestionResult 一次作答写回的字段
type QuestionResult struct {
	UserAnswer        string
	IsCorrect         *bool
	PercentageCorrect *float64
}

// Store 游戏与题目的持久化接口
type Store interface {
	CreateGame(ctx context.Context, game *Game) error
	GetGame(ctx context.Context, id string) (*Game, error)
	GetQuestion(ctx context.Context, id string) (*Question, error)
	UpdateQuestionResult(ctx context.Context, id string, result QuestionResult) error
	EndGame(ctx context.Context, id string, at time.Time) error
	TopicCounts(ctx context.Context, limit int) ([]TopicCount, error)
}

// createGameRetries 创建游戏事务的最大重试次数
const createGameRetries = 3

// GormRepository 基于 gorm 的 Store 实现
type GormRepository struct {
	pool *database.PoolManager
}

var _ Store = (*GormRepository)(nil)

// NewGormRepository 创建仓储
func NewGormRepository(pool *database.PoolManager) *GormRepository {
	return &GormRepository{pool: pool}
}

// CreateGame 在一个事务内写入游戏、题目并累加主题计数
func (r *GormRepository) CreateGame(ctx context.Context, game *Game) error {
	for i := range game.Questions {
		game.Questions[i].Position = i
	}
	err := r.pool.WithTransactionRetry(ctx, createGameRetries, func(tx *gorm.DB) error {
		if err := tx.Create(game).Error; err != nil {
			return fmt.Errorf("create game: %w", err)
		}
		upsert := clause.OnConflict{
			Columns:   []clause.Column{{Name: "topic"}},
			DoUpdates: clause.Assignments(map[string]any{"count": gorm.Expr("topic_counts.count + 1")}),
		}
		if err := tx.Clauses(upsert).Create(&TopicCount{Topic: game.Topic, Count: 1}).Error; err != nil {
			return fmt.Errorf("count topic: %w", err)
		}
		return nil
	})
	return err
}

// GetGame 读取游戏及按顺序排列的题目
func (r *GormRepository) GetGame(ctx context.Context, id string) (*Game, error) {
	var game Game
	err := r.pool.DB().WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&game, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game %s: %w", id, err)
	}
	return &game, nil
}

// GetQuestion 读取单个题目
func (r *GormRepository) GetQuestion(ctx context.Context, id string) (*Question, error) {
	var q Question
	err := r.pool.DB().WithContext(ctx).First(&q, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question %s: %w", id, err)
	}
	return &q, nil
}

// UpdateQuestionResult 写回作答结果
func (r *GormRepository) UpdateQuestionResult(ctx context.Context, id string, result QuestionResult) error {
	res := r.pool.DB().WithContext(ctx).
		Model(&Question{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"user_answer":        result.UserAnswer,
			"is_correct":         result.IsCorrect,
			"percentage_correct": result.PercentageCorrect,
		})
	if res.Error != nil {
		return fmt.Errorf("update question %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// EndGame 记录结束时间
func (r *GormRepository) EndGame(ctx context.Context, id string, at time.Time) error {
	res := r.pool.DB().WithContext(ctx).
		Model(&Game{}).
		Where("id = ?", id).
		Update("time_ended", at)
	if res.Error != nil {
		return fmt.Errorf("end game %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrGameNotFound
	}
	return nil
}

// TopicCounts 按次数降序、主题升序返回主题计数，limit <= 0 表示不限
func (r *GormRepository) TopicCounts(ctx context.Context, limit int) ([]TopicCount, error) {
	q := r.pool.DB().WithContext(ctx).Order("count DESC").Order("topic ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var counts []TopicCount
	if err := q.Find(&counts).Error; err != nil {
		return nil, fmt.Errorf("list topic counts: %w", err)
	}
	return counts, nil
}
