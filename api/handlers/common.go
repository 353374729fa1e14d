package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/BaSui01/quizflow/quiz"
	"github.com/BaSui01/quizflow/types"
	"go.uber.org/zap"
)

// RequestIDHeader 由请求 ID 中间件写入响应头，信封中回显
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes 请求体上限 1 MB
const maxBodyBytes = 1 << 20

// Response 所有 JSON 接口的响应信封
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorInfo 信封中的错误部分
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable,omitempty"`
	HTTPStatus int    `json:"-"`
}

// codeStatus 未显式设置 HTTPStatus 的错误码到状态码，缺省 500
var codeStatus = map[types.ErrorCode]int{
	types.ErrInvalidRequest:      http.StatusBadRequest,
	types.ErrUnauthorized:        http.StatusUnauthorized,
	types.ErrNotFound:            http.StatusNotFound,
	types.ErrRateLimited:         http.StatusTooManyRequests,
	types.ErrUpstreamTimeout:     http.StatusGatewayTimeout,
	types.ErrUpstreamError:       http.StatusBadGateway,
	types.ErrGenerationExhausted: http.StatusBadGateway,
	types.ErrProviderUnavailable: http.StatusServiceUnavailable,
	types.ErrServiceUnavailable:  http.StatusServiceUnavailable,
}

func statusFor(err *types.Error) int {
	if err.HTTPStatus != 0 {
		return err.HTTPStatus
	}
	if s, ok := codeStatus[err.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// WriteJSON 头写出后编码失败只能丢弃
func WriteJSON(w http.ResponseWriter, status int, data any) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func envelope(w http.ResponseWriter) Response {
	return Response{Timestamp: time.Now(), RequestID: w.Header().Get(RequestIDHeader)}
}

func writeData(w http.ResponseWriter, status int, data any) {
	resp := envelope(w)
	resp.Success, resp.Data = true, data
	WriteJSON(w, status, resp)
}

func WriteSuccess(w http.ResponseWriter, data any) { writeData(w, http.StatusOK, data) }

func WriteCreated(w http.ResponseWriter, data any) { writeData(w, http.StatusCreated, data) }

// WriteError 5xx 记 error，其余记 warn
func WriteError(w http.ResponseWriter, err *types.Error, logger *zap.Logger) {
	status := statusFor(err)
	if logger != nil {
		level := logger.Warn
		if status >= http.StatusInternalServerError {
			level = logger.Error
		}
		level("api error",
			zap.String("code", string(err.Code)),
			zap.String("message", err.Message),
			zap.Int("status", status),
			zap.String("request_id", w.Header().Get(RequestIDHeader)),
			zap.Error(err.Cause))
	}

	resp := envelope(w)
	resp.Error = &ErrorInfo{Code: string(err.Code), Message: err.Message, Retryable: err.Retryable, HTTPStatus: status}
	WriteJSON(w, status, resp)
}

// WriteServiceError 业务错误转为 types.Error；未知错误只返回通用消息
func WriteServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	WriteError(w, toAPIError(err), logger)
}

func toAPIError(err error) *types.Error {
	if apiErr, ok := types.AsError(err); ok {
		return apiErr
	}
	switch {
	case quiz.IsNotFound(err):
		return types.NewNotFoundError(err.Error()).WithCause(err)
	case quiz.IsInvalid(err):
		return types.NewInvalidRequestError(err.Error()).WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return types.NewError(types.ErrUpstreamTimeout, "request timed out").WithCause(err).WithHTTPStatus(http.StatusGatewayTimeout)
	case errors.Is(err, context.Canceled):
		return types.NewError(types.ErrServiceUnavailable, "request canceled").WithCause(err).WithHTTPStatus(http.StatusServiceUnavailable)
	}
	return types.NewInternalError("internal error").WithCause(err)
}

// DecodeJSONBody 拒绝空体、未知字段与超过 1 MB 的请求体，失败时已写出 400
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) error {
	var apiErr *types.Error
	if r.Body == nil || r.Body == http.NoBody {
		apiErr = types.NewInvalidRequestError("request body is empty")
	} else {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil {
			apiErr = types.NewInvalidRequestError("invalid JSON body").WithCause(err)
		}
	}
	if apiErr != nil {
		WriteError(w, apiErr, logger)
		return apiErr
	}
	return nil
}

// ValidateContentType 只接受 application/json（参数不限），否则写出 400
func ValidateContentType(w http.ResponseWriter, r *http.Request, logger *zap.Logger) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && mediaType == "application/json" {
		return true
	}
	WriteError(w, types.NewInvalidRequestError("Content-Type must be application/json"), logger)
	return false
}

// ResponseWriter 记录状态码与写出字节数，供日志与指标中间件使用
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
	Written    bool
	Bytes      int64
}

func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
}

// WriteHeader 只有第一次生效
func (rw *ResponseWriter) WriteHeader(code int) {
	if rw.Written {
		return
	}
	rw.StatusCode, rw.Written = code, true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *ResponseWriter) Write(b []byte) (int, error) {
	rw.WriteHeader(http.StatusOK)
	n, err := rw.ResponseWriter.Write(b)
	rw.Bytes += int64(n)
	return n, err
}
