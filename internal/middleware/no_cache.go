package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoCache sets Cache-Control: no-cache on responses whose handler did not
// set a Cache-Control header itself.
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		w := &noCacheWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()
		// Status-only responses are flushed by the engine on the inner writer.
		if !w.Written() {
			w.WriteHeaderNow()
		}
	}
}

// noCacheWriter fills in the header right before the status line goes out,
// the last moment headers can change.
type noCacheWriter struct {
	gin.ResponseWriter
}

func (w *noCacheWriter) ensure() {
	if !w.Written() && w.Header().Get("Cache-Control") == "" {
		w.Header().Set("Cache-Control", "no-cache")
	}
}

func (w *noCacheWriter) WriteHeaderNow() {
	w.ensure()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *noCacheWriter) Write(data []byte) (int, error) {
	w.ensure()
	return w.ResponseWriter.Write(data)
}

func (w *noCacheWriter) WriteString(s string) (int, error) {
	w.ensure()
	return w.ResponseWriter.WriteString(s)
}
