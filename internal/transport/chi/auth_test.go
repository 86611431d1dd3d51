package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/carrel-labs/pebble/internal/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		path   string
		header string
		want   int
	}{
		{"no keys passes through", nil, "/v1/items/search", "", http.StatusOK},
		{"blank keys pass through", []string{"", ""}, "/v1/items/search", "", http.StatusOK},
		{"missing header", []string{"secret"}, "/v1/items/search", "", http.StatusUnauthorized},
		{"basic scheme", []string{"secret"}, "/v1/items/search", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"wrong key", []string{"secret"}, "/v1/items/search", "Bearer wrong-key", http.StatusUnauthorized},
		{"valid key", []string{"secret"}, "/v1/items/search", "Bearer secret", http.StatusOK},
		{"second of two keys", []string{"key1", "key2"}, "/v1/items", "Bearer key2", http.StatusOK},
		{"health exempt", []string{"secret"}, "/health", "", http.StatusOK},
		{"metrics exempt", []string{"secret"}, "/metrics", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := BearerAuthMiddleware(tt.keys)(okHandler())

			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want != http.StatusUnauthorized {
				return
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Code != CodeUnauthorized {
				t.Errorf("code = %s, want %s", resp.Code, CodeUnauthorized)
			}
		})
	}
}

func TestBearerAuthMiddleware_LogsRejection(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	handler := BearerAuthMiddleware([]string{"secret"})(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/items/search", http.NoBody)
	req = req.WithContext(logger.ContextWithLogger(req.Context(), zap.New(core)))
	req.Header.Set("Authorization", "Bearer nope")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("request rejected").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d rejections, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["reason"] != "invalid api key" || fields["path"] != "/v1/items/search" {
		t.Errorf("fields = %v", fields)
	}
}

func TestCheckBearer(t *testing.T) {
	keys := [][]byte{[]byte("k1"), []byte("k2")}
	tests := []struct {
		header, want string
	}{
		{"", "missing authorization header"},
		{"Token k1", "authorization header must use Bearer scheme"},
		{"Bearer ", "invalid api key"},
		{"Bearer k3", "invalid api key"},
		{"Bearer k1x", "invalid api key"},
		{"Bearer k2", ""},
	}
	for _, tt := range tests {
		if got := checkBearer(tt.header, keys); got != tt.want {
			t.Errorf("checkBearer(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
