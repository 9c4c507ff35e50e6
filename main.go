package main

import (
	// standard library
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// third-party
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	// internal
	"github.com/rmitchellscott/chartserver/internal/auth"
	"github.com/rmitchellscott/chartserver/internal/config"
	"github.com/rmitchellscott/chartserver/internal/database"
	"github.com/rmitchellscott/chartserver/internal/handlers"
	"github.com/rmitchellscott/chartserver/internal/logging"
	"github.com/rmitchellscott/chartserver/internal/middleware"
	"github.com/rmitchellscott/chartserver/internal/rendering"
	"github.com/rmitchellscott/chartserver/internal/version"
)

//go:embed ui/dist
var embeddedUI embed.FS

func main() {
	_ = godotenv.Load()
	logging.SetLogger(logging.New(os.Stdout, config.Get("LOG_LEVEL", "info"), config.Get("LOG_FORMAT", "")))

	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println(version.String())
		os.Exit(0)
	}
	logging.InfoWithComponent(logging.ComponentStartup, "Starting chartserver", "version", version.String(), "env", config.Env())

	appConfig, err := config.Load()
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to load config", "error", err)
		os.Exit(1)
	}
	basic, err := config.NewBasicConfig(appConfig)
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Invalid config", "error", err)
		os.Exit(1)
	}
	dbConfig, err := config.NewDatabaseConfig(appConfig)
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Invalid config", "error", err)
		os.Exit(1)
	}

	registry, err := rendering.RegistryFromEnv()
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to load fonts", "error", err)
		os.Exit(1)
	}
	pipelineOpts, err := rendering.OptionsFromEnv()
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Invalid render options", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Initialize(dbConfig); err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	var renderLogs *database.RenderLogService
	if db := database.GetDB(); db != nil {
		renderLogs = database.NewRenderLogService(db)
		defer renderLogs.Close()
		pipelineOpts.Recorder = renderLogs
		go renderLogs.RunRetention(ctx, dbConfig.Retention, time.Hour)
	}

	pool := rendering.NewWorkerPool(basic.Workers, basic.QueueSize)
	pool.Start(ctx)
	pipelineOpts.Pool = pool
	pipeline := rendering.NewPipeline(registry, pipelineOpts)

	uiFS, err := fs.Sub(embeddedUI, "ui/dist")
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to create embedded UI filesystem", "error", err)
		os.Exit(1)
	}

	if mode := config.Get("GIN_MODE", ""); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	trustedProxies := config.GetList("TRUSTED_PROXIES")
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(), middleware.NoCache())
	router.Use(middleware.Compress("/api/charts"))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
		"X-API-Key",
		middleware.RequestIDHeader,
	}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	router.Use(
		middleware.Timeout(basic.Timeout),
		middleware.ConcurrencyLimit(int64(basic.RequestLimit), time.Second),
	)
	if basic.RateLimit > 0 {
		limiter := middleware.NewIPRateLimiter(basic.RateLimit, basic.RateBurst)
		if len(trustedProxies) > 0 {
			limiter.TrustForwarded()
		}
		go limiter.RunCleanup(ctx, 5*time.Minute)
		router.Use(limiter.RateLimit())
		logging.InfoWithComponent(logging.ComponentStartup, "Per-IP rate limit enabled",
			"per_second", basic.RateLimit,
			"burst", basic.RateBurst)
	}
	router.Use(middleware.RequestSizeLimit(basic.MaxBodySize))

	authenticator := auth.NewAuthenticator(config.Get("JWT_SECRET", ""), config.Get("API_KEY", ""))
	if authenticator.Enabled() {
		logging.InfoWithComponent(logging.ComponentStartup, "Render endpoints require authentication")
	}

	handler := handlers.NewChartHandler(pipeline, pool, renderLogs)
	handlers.RegisterChartRoutes(router, handler, authenticator.Required())
	router.NoRoute(handlers.UI(uiFS))

	srv := &http.Server{
		Addr:    basic.Listen,
		Handler: router,
	}

	go func() {
		logging.InfoWithComponent(logging.ComponentStartup, "Listening",
			"address", basic.Listen,
			"workers", pool.WorkerCount(),
			"request_limit", basic.RequestLimit)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorWithComponent(logging.ComponentStartup, "Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.InfoWithComponent(logging.ComponentShutdown, "Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorWithComponent(logging.ComponentShutdown, "Server forced to shutdown", "error", err)
	}

	pool.Monitoring().LogHealthSummary()
	pool.Stop()
	cancel()

	logging.InfoWithComponent(logging.ComponentShutdown, "Server stopped")
}
