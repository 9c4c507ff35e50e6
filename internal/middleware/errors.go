package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HTTPError is the JSON body of every failed request.
type HTTPError struct {
	Message  string   `json:"message"`
	Category string   `json:"category"`
	Code     string   `json:"code"`
	Status   int      `json:"status"`
	Extra    []string `json:"extra,omitempty"`
}

func (e HTTPError) Error() string {
	return e.Message
}

// NewHTTPError returns an error with status 400 unless status is given.
func NewHTTPError(message, category string, status ...int) HTTPError {
	e := HTTPError{Message: message, Category: category, Status: http.StatusBadRequest}
	if len(status) > 0 && status[0] != 0 {
		e.Status = status[0]
	}
	return e
}

// RespondError aborts the request with e as JSON. Error responses are never
// cached.
func RespondError(c *gin.Context, e HTTPError) {
	if http.StatusText(e.Status) == "" {
		e.Status = http.StatusBadRequest
	}
	c.Header("Cache-Control", "no-cache")
	c.AbortWithStatusJSON(e.Status, e)
}
