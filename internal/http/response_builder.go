// Package http serves the ledger over a JSON API.
//
// This file holds the fluent builder used for every JSON response.
package http

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in the "error" field.
const (
	CodeInvalidState = "invalid_state"
	CodeInvalidJSON  = "invalid_json"
	CodeInvalidUser  = "invalid_user"
	CodeNotFound     = "not_found"
	CodeDebtClosed   = "debt_closed"
	CodeDBError      = "db_error"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal_error"
)

type errorBody struct {
	Error string `json:"error"`
}

// okBody is the acknowledgement of writes that return nothing else.
type okBody struct {
	OK bool `json:"ok"`
}

// JSONResponseBuilder assembles a JSON response before writing it.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a builder with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Error sets status and an {"error": msg} body.
func (b *JSONResponseBuilder) Error(code int, msg string) *JSONResponseBuilder {
	b.statusCode = code
	b.body = errorBody{Error: msg}
	return b
}

// OK sets an {"ok": true} body.
func (b *JSONResponseBuilder) OK() *JSONResponseBuilder {
	b.body = okBody{OK: true}
	return b
}

// StatusCode returns the configured status code.
func (b *JSONResponseBuilder) StatusCode() int {
	return b.statusCode
}

// Send encodes the body first so an encoding failure can still become a 500.
func (b *JSONResponseBuilder) Send(w http.ResponseWriter) error {
	data, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"` + CodeInternal + `"}`))
		return err
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, err = w.Write(append(data, '\n'))
	return err
}
