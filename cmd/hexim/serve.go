package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kentzo-Omakse/hexim/internal/handlers"
	"github.com/Kentzo-Omakse/hexim/pkg/health"
	"github.com/Kentzo-Omakse/hexim/pkg/middleware"
	"github.com/Kentzo-Omakse/hexim/pkg/startup"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

const (
	startupAttempts = 5
	shutdownTimeout = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduled sync with the operations API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, startupAttempts)
		if err != nil {
			return err
		}

		checker := health.NewChecker(a.cfg.Version).
			AddCheck("database", health.PingFunc(a.db.PingContext)).
			AddCheck("redis", a.redis).
			AddCheck("shopware", a.target).
			WithLastRun(a.scheduler.LastRun)

		e := newServer(a, checker)
		addr := fmt.Sprintf(":%d", a.cfg.Port)

		a.startup.Add(
			startup.Func{ID: "scheduler", StartFn: a.scheduler.Start, StopFn: a.scheduler.Stop},
			startup.Func{
				ID: "http",
				StartFn: func(ctx context.Context) error {
					go func() {
						if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
							a.logger.WithError(err).Error("HTTP server stopped")
						}
					}()
					checker.SetReady(true)
					return nil
				},
				StopFn: func(ctx context.Context) error {
					checker.SetReady(false)
					return e.Shutdown(ctx)
				},
			},
		)

		shutdownCtx := func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		}

		if err := a.startup.Start(ctx); err != nil {
			sctx, cancel := shutdownCtx()
			defer cancel()
			a.close(sctx)
			return err
		}
		a.logger.WithContext(ctx).Infof("Listening on %s", addr)

		<-ctx.Done()
		a.logger.Info("Shutting down")

		sctx, cancel := shutdownCtx()
		defer cancel()
		a.close(sctx)
		return nil
	},
}

func newServer(a *app, checker *health.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(a.logger)
	e.Use(otelecho.Middleware(a.cfg.AppName), middleware.RequestID(), middleware.Logger(a.logger))

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	handlers.NewSyncHandler(a.scheduler, a.driver, a.queue, a.source).RegisterRoutes(api)
	handlers.NewMappingFieldHandler(a.overrides).RegisterRoutes(api)
	return e
}
