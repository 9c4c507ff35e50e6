package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Compress gzips responses for clients that accept it. Requests under any
// of the skip prefixes are served as is; rendered images are already
// compressed.
func Compress(skip ...string) gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths(skip))
}
