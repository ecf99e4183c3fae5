package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serveCORS(origins []string, method, origin string) *httptest.ResponseRecorder {
	h := CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(method, "/api/events", nil)
	req.Header.Set("Origin", origin)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORSExplicitOrigin(t *testing.T) {
	rec := serveCORS([]string{"https://desk.example"}, http.MethodPost, "https://desk.example")

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "https://desk.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-User-ID")
}

func TestCORSWildcardHasNoCredentials(t *testing.T) {
	rec := serveCORS([]string{"*"}, http.MethodGet, "https://any.example")

	assert.Equal(t, "https://any.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSUnknownOrigin(t *testing.T) {
	rec := serveCORS([]string{"https://desk.example"}, http.MethodGet, "https://evil.example")

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	rec := serveCORS([]string{"https://desk.example"}, http.MethodOptions, "https://desk.example")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSNoOriginPassesThrough(t *testing.T) {
	rec := serveCORS([]string{"*"}, http.MethodGet, "")

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Vary"))
}

func TestCORSVariesOnOrigin(t *testing.T) {
	rec := serveCORS([]string{"https://desk.example"}, http.MethodGet, "https://desk.example")

	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}
