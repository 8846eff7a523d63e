package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	api "github.com/rohitbr234/study-scheduler/api"
	middlewares "github.com/rohitbr234/study-scheduler/api/middlewares"
	"github.com/rohitbr234/study-scheduler/completion"
	config "github.com/rohitbr234/study-scheduler/config"
	"github.com/rohitbr234/study-scheduler/gcal"
	l "github.com/rohitbr234/study-scheduler/logger"
	"github.com/rohitbr234/study-scheduler/metrics"
	"github.com/rohitbr234/study-scheduler/sessions"
)

func main() {
	// Local development settings; absent in deployed environments.
	_ = godotenv.Load()

	var config config.Config
	cfg, err := config.Load(envconfig.OsLookuper())
	if err != nil {
		log.Printf("Config load error: %v", err)
		return
	}

	var logger l.Logger
	logger, err = l.NewLogger(cfg.Environment)
	if err != nil {
		log.Printf("Logger init error: %v", err)
		return
	}

	oauth, err := gcal.NewOAuthManager(cfg.Google, logger)
	if err != nil {
		logger.Error("Failed to initialize Google OAuth", err)
		return
	}

	client := completion.NewClient(cfg.Completion, logger)
	store := sessions.NewStore(sessions.DefaultTTL)

	api := api.NewRouter(cfg, logger, client, oauth, gcal.NewCalendarAPI)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestLogger(logger))
	r.Use(metrics.Middleware())
	r.Use(middlewares.Session(store))

	r.GET("/", api.IndexHandler)
	r.POST("/schedule", api.GenerateScheduleHandler)
	r.POST("/calendar/connect", api.ConnectCalendarHandler)
	r.POST("/calendar/events", api.CreateEventsHandler)
	r.GET("/health", api.HealthcheckHandler)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.NoRoute(api.NotFoundHandler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting Study Scheduler", "port", cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ListenAndServe error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("Server Shutdown error", err)
	} else {
		logger.Info("Server gracefully stopped")
	}
}
