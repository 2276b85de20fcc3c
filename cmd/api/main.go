// Command api serves the SportsFest registration API: catalog availability,
// carts with inventory and tent-quota reservations, and payment confirmation.
//
// @title                       SportsFest Registration API
// @version                     1.0
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sportsfest/registration/internal/infrastructure/config"
	"github.com/sportsfest/registration/pkg/logger"
	"github.com/sportsfest/registration/pkg/metrics"
	"github.com/sportsfest/registration/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zlog.Info("config loaded",
		zap.Int("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("cart_store", cfg.Cart.Store),
		zap.Bool("rabbitmq", cfg.RabbitMQ.Enabled),
	)

	metrics.InitMetrics()

	if cfg.Tracing.Enabled {
		shutdownTracer, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				zlog.Warn("flush traces", zap.Error(err))
			}
		}()
	}

	engine, cleanup, err := buildEngine(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildEngine wires the application by hand; wire.go declares the same graph
// for `wire gen ./cmd/api`.
func buildEngine(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (*gin.Engine, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	stores, closeStores, err := provideStores(cfg, zlog)
	if err != nil {
		return nil, nil, err
	}
	cleanups = append(cleanups, closeStores)

	session, closeSession, err := provideSession(ctx, cfg, zlog)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, closeSession)

	publisher, closePublisher, err := providePublisher(cfg, zlog)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, closePublisher)

	ledger := provideLedger(stores, zlog)
	tents := provideTentQuota(stores, ledger, zlog)
	carts := provideCartService(stores, session, ledger, tents, zlog)
	payments := providePaymentService(cfg, stores, session, ledger, tents, publisher, zlog)
	reporter := provideReporter(stores, tents)

	handlers := provideHandlers(cfg, reporter, ledger, tents, carts, payments, zlog)
	engine := provideEngine(cfg, handlers, provideJWTManager(cfg), zlog)
	return engine, cleanup, nil
}
