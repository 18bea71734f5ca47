package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/admin"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	grpcsvc "github.com/vladislavdragonenkov/storefront/internal/service/grpc"
	"github.com/vladislavdragonenkov/storefront/internal/service/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Run открывает выбранный бэкенд и обслуживает REST, gRPC и метрики до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.WithField("component", "app")
	store, err := OpenStorage(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return err
	}

	return serve(ctx, cfg, store, logger)
}

// serve поднимает все серверы поверх уже открытого хранилища и закрывает его при выходе.
func serve(ctx context.Context, cfg Config, store Storage, logger *log.Entry) error {
	defer closeStorage(store, cfg.ShutdownTimeout, logger)

	if cfg.SessionSecret == DefaultSessionSecret {
		logger.Warn("STOREFRONT_SESSION_SECRET is not set, using development secret")
	}

	registerer := prometheus.DefaultRegisterer
	repos := metrics.InstrumentRepositories(store.Repositories(), cfg.StorageDriver, metrics.NewRepositoryMetrics(registerer))

	gateway, err := initPaymentGateway(cfg, logger.WithField("layer", "payment"))
	if err != nil {
		return err
	}

	checkoutSvc := checkout.NewService(repos, gateway,
		checkout.WithMetrics(metrics.NewCheckoutMetrics(registerer)),
		checkout.WithLogger(logger.WithField("layer", "checkout")),
	)
	adminSvc := admin.NewService(repos, admin.Credentials{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	}, logger.WithField("layer", "admin"))

	router, err := httpapi.NewRouter(httpapi.Dependencies{
		Repositories: repos,
		Checkout:     checkoutSvc,
		Admin:        adminSvc,
		Payments:     gateway,
		Logger:       logger.WithField("layer", "http"),
	}, httpapi.Config{
		UploadDir:      cfg.UploadDir,
		SessionSecret:  cfg.SessionSecret,
		SecureCookies:  cfg.SecureCookies,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Backend:        cfg.StorageDriver,
		Version:        version.GetVersion(),
	})
	if err != nil {
		return err
	}

	publishers := initOutboxPublishers(cfg, logger.WithField("layer", "outbox"))
	defer func() {
		if err := publishers.closeFn(); err != nil {
			logger.WithError(err).Warn("failed to close outbox publisher")
		}
	}()
	worker := outbox.NewWorker(repos.Outbox, publishers.events,
		outbox.WithLogger(logger.WithField("layer", "outbox")),
		outbox.WithMetrics(metrics.NewOutboxMetrics(registerer)),
		outbox.WithDeadLetter(publishers.deadLetter),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	)

	grpcServer, grpcHealth := newGRPCServer(grpcsvc.NewOrderService(repos.Orders, checkoutSvc, logger.WithField("layer", "grpc")), logger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", healthcheck.NewStorageChecker(cfg.StorageDriver, store))

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = httpLis.Close()
		return err
	}
	metricsLis, err := net.Listen("tcp", cfg.MetricsAddr)
	if err != nil {
		_ = httpLis.Close()
		_ = grpcLis.Close()
		return err
	}

	httpSrv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	metricsSrv := &http.Server{Handler: newMetricsMux(healthHandler), ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("HTTP API слушает %s", httpLis.Addr())
		return serveHTTP(httpSrv, httpLis)
	})
	g.Go(func() error {
		logger.Infof("gRPC сервер слушает %s", grpcLis.Addr())
		return grpcServer.Serve(grpcLis)
	})
	g.Go(func() error {
		logger.Infof("метрики доступны по адресу %s/metrics", metricsLis.Addr())
		return serveHTTP(metricsSrv, metricsLis)
	})
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("получен сигнал остановки, останавливаем серверы")
		grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		shutdownHTTP(httpSrv, cfg.ShutdownTimeout, logger)
		stopGRPC(grpcServer, cfg.ShutdownTimeout, logger)
		shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// newGRPCServer собирает gRPC-сервер с метриками, health и reflection.
func newGRPCServer(orders grpcsvc.OrderServiceServer, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	grpcsvc.RegisterOrderServiceServer(server, orders)
	grpcMetrics.InitializeMetrics(server)

	// reflection нужен grpcurl и cmd/loadtest
	reflection.Register(server)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	return server, healthServer
}

// newMetricsMux отдаёт /metrics для Prometheus и health-эндпоинты.
func newMetricsMux(healthHandler *healthcheck.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	healthHandler.Register(mux)
	return mux
}

func serveHTTP(srv *http.Server, lis net.Listener) error {
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

func stopGRPC(server *grpc.Server, timeout time.Duration, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

func closeStorage(store Storage, timeout time.Duration, logger *log.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		logger.WithError(err).Warn("failed to close storage")
		return
	}
	logger.Info("storage closed")
}
