package http

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

// validationErrors map to 422 with the error text as message.
var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrEmptyCategory,
	core.ErrEmptyPerson,
	core.ErrInvalidType,
	core.ErrInvalidDirection,
	core.ErrInvalidFrequency,
	core.ErrEndBeforeStart,
	core.ErrInvalidDate,
	core.ErrInvalidMonth,
}

// statusFor maps a service error to its HTTP status and error message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidJSON):
		return http.StatusBadRequest, CodeInvalidJSON
	case errors.Is(err, services.ErrInvalidUser):
		return http.StatusBadRequest, CodeInvalidUser
	case errors.Is(err, ledger.ErrMalformedSnapshot):
		return http.StatusBadRequest, CodeInvalidState
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ledger.ErrDebtClosed):
		return http.StatusConflict, CodeDebtClosed
	case errors.Is(err, services.ErrStorage):
		return http.StatusInternalServerError, CodeDBError
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity, err.Error()
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	_ = NewJSONResponse().Status(status).Body(v).Send(w)
}

func writeOK(w http.ResponseWriter) {
	_ = NewJSONResponse().OK().Send(w)
}

// writeError logs server-side failures and writes the mapped error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldPath, r.URL.Path, applog.FieldError, err)
	}
	_ = NewJSONResponse().Error(status, msg).Send(w)
}

// userParam returns the trimmed {user} path value.
func userParam(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("user"))
}

// sanitizeInput removes control characters except tab, newline and carriage return, and trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// isMutating reports whether method changes server state.
func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}
