package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/BaSui01/quizflow/internal/ctxkeys"
	"github.com/BaSui01/quizflow/quiz"
	"github.com/BaSui01/quizflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🎮 测验接口 Handler
// =============================================================================

// QuizService QuizHandler 依赖的业务接口，*quiz.Service 满足该接口
type QuizService interface {
	GenerateGame(ctx context.Context, req quiz.GameRequest) (*quiz.Game, error)
	GetGame(ctx context.Context, id string) (*quiz.Game, error)
	EndGame(ctx context.Context, id string) error
	CheckAnswer(ctx context.Context, questionID, userInput string) (quiz.AnswerResult, error)
	ClassifyTopic(ctx context.Context, topic string) (string, error)
	TopicCounts(ctx context.Context, limit int) ([]quiz.TopicCount, error)
}

// QuizHandler 测验接口处理器
type QuizHandler struct {
	service QuizService
	logger  *zap.Logger
}

// NewQuizHandler 创建测验处理器
func NewQuizHandler(service QuizService, logger *zap.Logger) *QuizHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizHandler{
		service: service,
		logger:  logger.With(zap.String("component", "quiz_handler")),
	}
}

// Register 挂载测验路由
func (h *QuizHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/game", h.HandleCreateGame)
	mux.HandleFunc("GET /api/game/{id}", h.HandleGetGame)
	mux.HandleFunc("POST /api/game/{id}/end", h.HandleEndGame)
	mux.HandleFunc("POST /api/checkAnswer", h.HandleCheckAnswer)
	mux.HandleFunc("POST /api/topic/classify", h.HandleClassifyTopic)
	mux.HandleFunc("GET /api/topics", h.HandleTopics)
}

// CreateGameRequest 创建游戏请求体
type CreateGameRequest struct {
	Topic  string        `json:"topic"`
	Type   quiz.GameType `json:"type"`
	Amount int           `json:"amount"`
}

// CreateGameResponse 创建游戏响应
type CreateGameResponse struct {
	GameID string `json:"gameId"`
}

// CheckAnswerRequest 判题请求体
type CheckAnswerRequest struct {
	QuestionID string `json:"questionId"`
	UserInput  string `json:"userInput"`
}

// ClassifyTopicRequest 主题分类请求体
type ClassifyTopicRequest struct {
	Topic string `json:"topic"`
}

// ClassifyTopicResponse 主题分类响应
type ClassifyTopicResponse struct {
	Topic    string `json:"topic"`
	Category string `json:"category"`
}

// decode 校验 Content-Type 后解码请求体，失败时已写出 400
func (h *QuizHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return ValidateContentType(w, r, h.logger) && DecodeJSONBody(w, r, dst, h.logger) == nil
}

// HandleCreateGame 处理 POST /api/game
func (h *QuizHandler) HandleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if !h.decode(w, r, &req) {
		return
	}

	userID, _ := ctxkeys.UserID(r.Context())
	game, err := h.service.GenerateGame(r.Context(), quiz.GameRequest{
		UserID: userID,
		Topic:  req.Topic,
		Type:   req.Type,
		Amount: req.Amount,
	})
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteCreated(w, CreateGameResponse{GameID: game.ID})
}

// HandleGetGame 处理 GET /api/game/{id}，不返回答案
func (h *QuizHandler) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.GetGame(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, game.View())
}

// HandleEndGame 处理 POST /api/game/{id}/end
func (h *QuizHandler) HandleEndGame(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.EndGame(r.Context(), id); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"gameId": id})
}

// HandleCheckAnswer 处理 POST /api/checkAnswer
func (h *QuizHandler) HandleCheckAnswer(w http.ResponseWriter, r *http.Request) {
	var req CheckAnswerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.QuestionID) == "" {
		WriteError(w, types.NewInvalidRequestError("questionId is required"), h.logger)
		return
	}

	result, err := h.service.CheckAnswer(r.Context(), req.QuestionID, req.UserInput)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, result)
}

// HandleClassifyTopic 处理 POST /api/topic/classify
func (h *QuizHandler) HandleClassifyTopic(w http.ResponseWriter, r *http.Request) {
	var req ClassifyTopicRequest
	if !h.decode(w, r, &req) {
		return
	}

	category, err := h.service.ClassifyTopic(r.Context(), req.Topic)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, ClassifyTopicResponse{Topic: req.Topic, Category: category})
}

// HandleTopics 处理 GET /api/topics?limit=N
func (h *QuizHandler) HandleTopics(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, types.NewInvalidRequestError("limit must be a non-negative integer"), h.logger)
			return
		}
		limit = n
	}

	counts, err := h.service.TopicCounts(r.Context(), limit)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	if counts == nil {
		counts = []quiz.TopicCount{}
	}
	WriteSuccess(w, counts)
}
