package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/chartserver/internal/config"
	"github.com/rmitchellscott/chartserver/internal/database"
	"github.com/rmitchellscott/chartserver/internal/middleware"
	"github.com/rmitchellscott/chartserver/internal/rendering"
	"github.com/rmitchellscott/chartserver/internal/version"
)

// ChartHandler serves the chart API. Pool and logs may be nil.
type ChartHandler struct {
	pipeline *rendering.Pipeline
	pool     *rendering.WorkerPool
	logs     *database.RenderLogService
}

func NewChartHandler(pipeline *rendering.Pipeline, pool *rendering.WorkerPool, logs *database.RenderLogService) *ChartHandler {
	return &ChartHandler{pipeline: pipeline, pool: pool, logs: logs}
}

// RegisterChartRoutes mounts the API on r. protect guards the render
// endpoints only.
func RegisterChartRoutes(r gin.IRouter, h *ChartHandler, protect ...gin.HandlerFunc) {
	r.GET("/ping", Ping)

	api := r.Group("/api")
	api.GET("/basic-info", h.BasicInfo)
	api.GET("/stats", h.Stats)
	api.GET("/renders", h.Renders)

	charts := api.Group("/charts", protect...)
	charts.GET("", h.Preview)
	for _, f := range rendering.Formats {
		charts.POST("/"+string(f), h.Render(f))
	}
}

// Ping answers health probes.
func Ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

// BasicInfo lists the font families, themes and chart types the server knows.
func (h *ChartHandler) BasicInfo(c *gin.Context) {
	reg := h.pipeline.Dispatcher().Registry()
	kinds := make([]string, 0, len(rendering.ChartKinds()))
	for _, k := range rendering.ChartKinds() {
		kinds = append(kinds, k.String())
	}
	formats := make([]string, 0, len(rendering.Formats))
	for _, f := range rendering.Formats {
		formats = append(formats, string(f))
	}
	info := version.Get()
	c.JSON(http.StatusOK, gin.H{
		"families": reg.Families(),
		"themes":   reg.ThemeNames(),
		"charts":   kinds,
		"formats":  formats,
		"version":  info.Version,
		"build":    info,
	})
}

// Preview renders the chart given in the opts query parameter, so a chart
// can be used directly as an image URL.
func (h *ChartHandler) Preview(c *gin.Context) {
	opts, ok := c.GetQuery("opts")
	if !ok {
		middleware.RespondError(c, middleware.NewHTTPError("Missing opts query parameter", "query"))
		return
	}
	h.respond(c, []byte(opts), rendering.ParseFormat(c.Query("format")))
}

// Render returns a handler that renders the request body as format.
func (h *ChartHandler) Render(format rendering.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				e := middleware.NewHTTPError("Request payload too large", "body_too_large", http.StatusRequestEntityTooLarge)
				e.Extra = []string{"max_size=" + strconv.FormatInt(maxErr.Limit, 10) + "B"}
				middleware.RespondError(c, e)
				return
			}
			middleware.RespondError(c, middleware.NewHTTPError(err.Error(), "body_to_bytes"))
			return
		}
		h.respond(c, body, format)
	}
}

func (h *ChartHandler) respond(c *gin.Context, body []byte, format rendering.Format) {
	ctx := rendering.WithRequestID(c.Request.Context(), middleware.GetRequestID(c))
	resp, err := h.pipeline.RenderRequest(ctx, body, format)
	if err != nil {
		middleware.RespondError(c, HTTPErrorFrom(err))
		return
	}
	c.Data(http.StatusOK, resp.ContentType, resp.Body)
}

// HTTPErrorFrom converts a pipeline error into the JSON error body.
func HTTPErrorFrom(err error) middleware.HTTPError {
	e := rendering.AsError(err)
	return middleware.HTTPError{
		Message:  e.Message,
		Category: e.Category,
		Code:     e.Kind.String(),
		Status:   e.Status,
	}
}

// Stats reports worker pool health and, with the audit log enabled, render
// statistics for the window given by ?since= (default 24h).
func (h *ChartHandler) Stats(c *gin.Context) {
	out := gin.H{}
	if h.pool != nil {
		out["health"] = h.pool.Monitoring().GetHealthStatus()
	}
	if h.logs == nil {
		c.JSON(http.StatusOK, out)
		return
	}

	window, err := config.ParseDuration(c.DefaultQuery("since", "24h"))
	if err != nil || window < 0 {
		middleware.RespondError(c, middleware.NewHTTPError("Invalid since duration", "query"))
		return
	}
	var since time.Time
	if window > 0 {
		since = time.Now().Add(-window)
	}
	stats, err := h.logs.Stats(c.Request.Context(), since)
	if err != nil {
		middleware.RespondError(c, middleware.NewHTTPError(err.Error(), "database", http.StatusInternalServerError))
		return
	}
	out["renders"] = stats
	out["dropped_records"] = h.logs.Dropped()
	c.JSON(http.StatusOK, out)
}

// Renders lists the newest audit log entries.
func (h *ChartHandler) Renders(c *gin.Context) {
	if h.logs == nil {
		middleware.RespondError(c, middleware.NewHTTPError("Render log is disabled", "database", http.StatusNotFound))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	failed := c.Query("failed") == "true"

	logs, err := h.logs.Recent(c.Request.Context(), limit, failed)
	if err != nil {
		middleware.RespondError(c, middleware.NewHTTPError(err.Error(), "database", http.StatusInternalServerError))
		return
	}
	c.JSON(http.StatusOK, gin.H{"renders": logs})
}
