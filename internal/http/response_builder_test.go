package http

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONResponseBuilder(t *testing.T) {
	tests := []struct {
		name       string
		build      func() *JSONResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{
			name:       "default ok body",
			build:      func() *JSONResponseBuilder { return NewJSONResponse().OK() },
			wantStatus: http.StatusOK,
			wantBody:   `{"ok":true}` + "\n",
		},
		{
			name:       "error body",
			build:      func() *JSONResponseBuilder { return NewJSONResponse().Error(http.StatusNotFound, CodeNotFound) },
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"not_found"}` + "\n",
		},
		{
			name: "custom status and body",
			build: func() *JSONResponseBuilder {
				return NewJSONResponse().Status(http.StatusCreated).Body(map[string]int{"n": 1})
			},
			wantStatus: http.StatusCreated,
			wantBody:   `{"n":1}` + "\n",
		},
		{
			name:       "nil body",
			build:      func() *JSONResponseBuilder { return NewJSONResponse() },
			wantStatus: http.StatusOK,
			wantBody:   "null\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			if err := tt.build().Send(rr); err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestJSONResponseBuilder_Headers(t *testing.T) {
	rr := httptest.NewRecorder()
	b := NewJSONResponse().Header("Retry-After", "60").Error(http.StatusTooManyRequests, CodeRateLimited)
	if b.StatusCode() != http.StatusTooManyRequests {
		t.Errorf("StatusCode() = %d", b.StatusCode())
	}
	if err := b.Send(rr); err != nil {
		t.Fatal(err)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After header missing")
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	err := NewJSONResponse().Body(math.Inf(1)).Send(rr)
	if err == nil {
		t.Fatal("expected encode error")
	}
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}
