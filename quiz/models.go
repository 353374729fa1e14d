package quiz

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GameType 游戏（题目）类型
type GameType string

const (
	// GameTypeMCQ 单选题，四个选项
	GameTypeMCQ GameType = "mcq"
	// GameTypeOpenEnded 开放题，按编辑距离评分
	GameTypeOpenEnded GameType = "open_ended"
)

// Valid 是否为已知类型
func (t GameType) Valid() bool {
	return t == GameTypeMCQ || t == GameTypeOpenEnded
}

// Game 一局测验
type Game struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string     `gorm:"type:varchar(128);not null;default:'';index" json:"userId"`
	Topic       string     `gorm:"type:varchar(255);not null" json:"topic"`
	GameType    GameType   `gorm:"type:varchar(20);not null" json:"gameType"`
	TimeStarted time.Time  `gorm:"not null" json:"timeStarted"`
	TimeEnded   *time.Time `json:"timeEnded,omitempty"`
	Questions   []Question `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// BeforeCreate 分配 UUID
func (g *Game) BeforeCreate(*gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// Question 一道题目及其作答结果
type Question struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	GameID            string    `gorm:"type:varchar(36);not null;index" json:"gameId"`
	Position          int       `gorm:"not null;default:0" json:"position"`
	Question          string    `gorm:"type:text;not null" json:"question"`
	Answer            string    `gorm:"type:text;not null" json:"answer"`
	Options           []string  `gorm:"type:text;serializer:json" json:"options,omitempty"`
	QuestionType      GameType  `gorm:"type:varchar(20);not null" json:"questionType"`
	UserAnswer        *string   `gorm:"type:text" json:"userAnswer,omitempty"`
	IsCorrect         *bool     `json:"isCorrect,omitempty"`
	PercentageCorrect *float64  `json:"percentageCorrect,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// BeforeCreate 分配 UUID
func (q *Question) BeforeCreate(*gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// TopicCount 每个主题被创建游戏的次数（词云数据）
type TopicCount struct {
	ID    uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	Topic string `gorm:"type:varchar(255);not null;uniqueIndex" json:"text"`
	Count int    `gorm:"not null;default:0" json:"value"`
}

// QuestionView 不含答案的题目视图，用于答题中的游戏
type QuestionView struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	Options      []string `json:"options,omitempty"`
	QuestionType GameType `json:"questionType"`
}

// GameView 不含答案的游戏视图
type GameView struct {
	ID          string         `json:"id"`
	Topic       string         `json:"topic"`
	GameType    GameType       `json:"gameType"`
	TimeStarted time.Time      `json:"timeStarted"`
	TimeEnded   *time.Time     `json:"timeEnded,omitempty"`
	Questions   []QuestionView `json:"questions"`
}

// View 隐藏答案
func (g *Game) View() GameView {
	v := GameView{
		ID:          g.ID,
		Topic:       g.Topic,
		GameType:    g.GameType,
		TimeStarted: g.TimeStarted,
		TimeEnded:   g.TimeEnded,
		Questions:   make([]QuestionView, 0, len(g.Questions)),
	}
	for _, q := range g.Questions {
		v.Questions = append(v.Questions, QuestionView{
			ID:           q.ID,
			Question:     q.Question,
			Options:      q.Options,
			QuestionType: q.QuestionType,
		})
	}
	return v
}

// AnswerResult 作答结果：单选题填 IsCorrect，开放题填 PercentageSimilar
type AnswerResult struct {
	IsCorrect         *bool `json:"isCorrect,omitempty"`
	PercentageSimilar *int  `json:"percentageSimilar,omitempty"`
}
