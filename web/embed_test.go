package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleHandler(t *testing.T) {
	h := ConsoleHandler(ConsoleConfig{Title: "Desk <staging>", WSPath: "/ws/chat"})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{method: http.MethodGet, path: "/", want: http.StatusOK},
		{method: http.MethodGet, path: "/index.html", want: http.StatusOK},
		{method: http.MethodHead, path: "/", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/evnets", want: http.StatusNotFound},
		{method: http.MethodPost, path: "/", want: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestConsoleRendersConfig(t *testing.T) {
	h := ConsoleHandler(ConsoleConfig{Title: "Desk <staging>", WSPath: "/ws/chat"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `data-ws-path="/ws/chat"`)
	assert.Contains(t, body, "<title>Desk &lt;staging&gt;</title>")
	assert.NotContains(t, body, "{{")
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "connect-src 'self'")
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}
