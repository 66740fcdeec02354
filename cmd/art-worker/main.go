package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kitgore/lyrictype-sub002/cmd/art-worker/handlers"
	"github.com/kitgore/lyrictype-sub002/cmd/art-worker/security"
	"github.com/kitgore/lyrictype-sub002/cmd/art-worker/worker"
	"github.com/kitgore/lyrictype-sub002/common/bootstrap"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components. The worker is stateless: it never
	// touches the record store.
	components, err := bootstrap.Setup(ctx, "art-worker", bootstrap.WithoutStore())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap art-worker: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	processor := worker.New(
		components.Logger,
		components.Config.Fetch.Timeout,
		components.Config.Fetch.MaxBytes,
	)
	validator := security.NewURLValidator(components.Config.Fetch.AllowPrivate)
	processHandler := handlers.NewProcessHandler(components, processor, validator)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "art-worker",
		})
	})
	e.POST("/api/v1/process", processHandler.ProcessImage)

	startServer(ctx, e, components)
}

// startServer runs the Echo server until SIGINT/SIGTERM, then drains
// in-flight requests before exiting
func startServer(ctx context.Context, e *echo.Echo, components *bootstrap.Components) {
	port := components.Config.Service.Port
	components.Logger.Info("Starting art-worker", "port", port)

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", port)); err != nil && err != http.ErrServerClosed {
			components.Logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	components.Logger.Info("Shutting down art-worker")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		components.Logger.Error("Server shutdown error", "error", err)
	}
}
