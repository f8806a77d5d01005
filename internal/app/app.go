package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/market-checkout/internal/adapter/api"
	"github.com/rl1809/market-checkout/internal/adapter/events"
	"github.com/rl1809/market-checkout/internal/adapter/handler"
	"github.com/rl1809/market-checkout/internal/adapter/location"
	"github.com/rl1809/market-checkout/internal/adapter/storage"
	"github.com/rl1809/market-checkout/internal/config"
	"github.com/rl1809/market-checkout/internal/core/domain"
	"github.com/rl1809/market-checkout/internal/core/service"
	"github.com/rl1809/market-checkout/internal/port"
)

const healthInterval = 5 * time.Second

// App wires the adapters into the services and owns every connection it
// opened.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	rdb       *redis.Client
	db        *sql.DB
	publisher *events.KafkaPublisher

	Session  *service.SessionService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	History  *service.HistoryService

	httpHandler http.Handler
	grpcServer  *grpc.Server
	health      *handler.HealthReporter
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	a.rdb = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 20,
	})
	if err := a.rdb.Ping(ctx).Err(); err != nil {
		a.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	redisAdapter := storage.NewRedisAdapter(a.rdb, cfg.DeviceID, cfg.GuardTTL)

	journal, err := a.openJournal(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var publisher port.EventPublisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		a.publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publisher = a.publisher
		logger.Info("publishing checkout events",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic))
	}

	var loc *domain.Location
	if cfg.DeviceLat != nil && cfg.DeviceLng != nil {
		loc = &domain.Location{Lat: *cfg.DeviceLat, Lng: *cfg.DeviceLng}
	}

	client := api.NewClient(api.Config{
		BaseURL:     cfg.APIBaseURL,
		Timeout:     cfg.APITimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, logger)

	a.Session, err = service.NewSessionService(ctx, client, redisAdapter, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Cart = service.NewCartService(client, logger)
	a.Checkout = service.NewCheckoutService(client, a.Session, a.Cart, redisAdapter, journal, publisher,
		location.NewStatic(loc), service.CheckoutConfig{
			CallTimeout:          cfg.OrderCallTimeout,
			MaxParallel:          cfg.MaxParallelOrders,
			AllowUnknownLocation: cfg.AllowUnknownLocation,
		}, logger)
	a.History = service.NewHistoryService(client, a.Session, logger)

	a.httpHandler = handler.NewHTTPHandler(a.Session, a.Cart, a.Checkout, a.History, client, logger).Routes()

	healthServer := health.NewServer()
	a.grpcServer = grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(a.grpcServer, healthServer)
	a.health = handler.NewHealthReporter(healthServer, client, logger)

	return a, nil
}

// openJournal uses MySQL when a DSN is configured and an in-memory journal
// otherwise.
func (a *App) openJournal(ctx context.Context) (port.CheckoutJournal, error) {
	if a.cfg.MySQLDSN == "" {
		a.logger.Warn("MYSQL_DSN not set, checkout journal kept in memory")
		return storage.NewMemoryJournal(), nil
	}

	db, err := sql.Open("mysql", a.cfg.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	a.db = db

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	a.logger.Info("connected to mysql")

	adapter := storage.NewMySQLAdapter(db)
	if err := adapter.Migrate(ctx); err != nil {
		return nil, err
	}
	return adapter, nil
}

func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run serves HTTP and gRPC until ctx is cancelled, then shuts both down.
func (a *App) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	httpServer := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("gRPC server listening", zap.String("addr", a.cfg.GRPCAddr))
		if err := a.grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	healthCtx, stopHealth := context.WithCancel(ctx)
	defer stopHealth()
	go a.health.Run(healthCtx, healthInterval)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	a.logger.Info("shutting down")
	stopHealth()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", zap.Error(err))
	}
	a.logger.Info("HTTP server stopped")

	a.grpcServer.GracefulStop()
	a.logger.Info("gRPC server stopped")

	return runErr
}

func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("close kafka writer", zap.Error(err))
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	a.logger.Info("connections closed")
}
