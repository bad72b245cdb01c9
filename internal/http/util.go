package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"nest-data/internal/domain"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// pathID 解析路由变量；非法 id 视为不存在
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeError 按错误分类写 {"msg"}；未知错误只记录日志
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeMsg(w, http.StatusNotFound, clientMessage(err, domain.ErrNotFound))
	case errors.Is(err, domain.ErrInvalidInput):
		writeMsg(w, http.StatusBadRequest, clientMessage(err, domain.ErrInvalidInput))
	case errors.Is(err, domain.ErrNoBedsAvailable):
		writeMsg(w, http.StatusConflict, "No beds available")
	case errors.Is(err, domain.ErrInvalidState):
		writeMsg(w, http.StatusConflict, clientMessage(err, domain.ErrInvalidState))
	case errors.Is(err, domain.ErrForbidden):
		writeMsg(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		logger.Error("Upstream call failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"msg":     "AI service unavailable",
			"details": "Check if the AI recommendation service is running",
		})
	default:
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		writeMsg(w, http.StatusInternalServerError, "Server error")
	}
}

// clientMessage 去掉末尾的分类后缀，例如 "description is required: invalid input"
func clientMessage(err, kind error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+kind.Error())
	if msg == "" || msg == kind.Error() {
		return strings.ToUpper(kind.Error()[:1]) + kind.Error()[1:]
	}
	return msg
}
