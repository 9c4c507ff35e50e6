package handlers

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/chartserver/internal/middleware"
)

// UI serves the embedded web UI for every unmatched GET. Unknown paths fall
// back to index.html so client side routes work; unknown /api paths get a
// JSON 404.
func UI(uiFS fs.FS) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			middleware.RespondError(c, middleware.NewHTTPError("Not found", "not_found", http.StatusNotFound))
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			middleware.RespondError(c, middleware.NewHTTPError("Not found", "not_found", http.StatusNotFound))
			return
		}

		p := strings.TrimPrefix(path.Clean(c.Request.URL.Path), "/")
		if p == "" {
			p = "index.html"
		}
		if stat, err := fs.Stat(uiFS, p); err != nil || stat.IsDir() {
			p = "index.html"
		}

		if strings.HasSuffix(p, ".js") {
			c.Header("Content-Type", "application/javascript")
		}
		// index.html is not versioned, the hashed assets are.
		if p == "index.html" {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		} else {
			c.Header("Cache-Control", "public, max-age=31536000")
		}
		http.ServeFileFS(c.Writer, c.Request, uiFS, p)
	}
}
