// @title           QR Studio API
// @version         1.0
// @description     Generate, store and re-render QR codes behind session-cookie auth.
// @BasePath        /api
// @securityDefinitions.apikey  CookieAuth
// @in                          cookie
// @name                        session_id
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qrstudio/internal/app"
	"qrstudio/internal/config"
	"qrstudio/internal/logging"

	_ "qrstudio/docs"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logging.NewJSON(os.Stderr, "info").Error(ctx, "config", "error", err)
		os.Exit(1)
	}
	log := logging.NewJSON(os.Stdout, cfg.App.LogLevel).With("service", "qrstudio", "env", cfg.App.Env)
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Info(ctx, "config loaded, connecting to DB and Redis")

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "app init", "error", err)
		os.Exit(1)
	}
	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTP.Port,
		Handler:      application.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info(ctx, "shutting down", "signal", sig.String())
	case err := <-serveErr:
		log.Error(ctx, "HTTP server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "HTTP shutdown", "error", err)
	}
	if err := application.Close(shutdownCtx); err != nil {
		log.Error(ctx, "app close", "error", err)
	}
}
