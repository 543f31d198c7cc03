package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/holdex/internal/domain"
)

// Error codes returned in the "code" field.
const (
	CodeBadRequest    = "bad_request"
	CodeUnauthorized  = "unauthorized"
	CodeNotFound      = "not_found"
	CodeLimitExceeded = "limit_exceeded"
	CodeUnavailable   = "service_unavailable"
	CodeInternal      = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// LimitResponse is the 429 body.
type LimitResponse struct {
	Error        string `json:"error"`
	Code         string `json:"code"`
	Service      string `json:"service"`
	LimitReached bool   `json:"limit_reached"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		quotaExceededHandler,
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrUnavailable, http.StatusServiceUnavailable, CodeUnavailable),
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees the sentinel's message, never the wrapped chain.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// quotaExceededHandler maps an exhausted quota to 429 with the service name.
func quotaExceededHandler(w http.ResponseWriter, err error) bool {
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		return false
	}
	writeJSON(w, http.StatusTooManyRequests, LimitResponse{
		Error:        "Service limit reached, please try again later",
		Code:         CodeLimitExceeded,
		Service:      qe.Service,
		LimitReached: true,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.requestLogger(r)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
