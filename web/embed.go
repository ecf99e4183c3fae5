// Package web serves the browser chat console.
package web

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"
	"time"
)

//go:embed static/index.html
var consolePage string

var consoleTmpl = template.Must(template.New("console").Parse(consolePage))

const consoleCSP = "default-src 'none'; connect-src 'self'; script-src 'unsafe-inline'; style-src 'unsafe-inline'; img-src 'self' data:"

// ConsoleConfig is rendered into the console page.
type ConsoleConfig struct {
	Title  string
	WSPath string // chat WebSocket endpoint, e.g. /ws/chat
}

// ConsoleHandler serves the console at "/" and "/index.html". The page is
// rendered once; other paths get 404 so API typos are not masked.
func ConsoleHandler(cfg ConsoleConfig) http.Handler {
	var buf bytes.Buffer
	if err := consoleTmpl.Execute(&buf, cfg); err != nil {
		panic("web: failed to render console: " + err.Error())
	}
	page := buf.Bytes()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		h := w.Header()
		h.Set("Content-Type", "text/html; charset=utf-8")
		h.Set("Cache-Control", "no-cache")
		h.Set("Content-Security-Policy", consoleCSP)
		h.Set("X-Content-Type-Options", "nosniff")
		http.ServeContent(w, r, "index.html", time.Time{}, bytes.NewReader(page))
	})
}
