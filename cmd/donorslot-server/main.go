package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"donorslot/internal/config"
	"donorslot/internal/domain"
	"donorslot/internal/platform/metrics"
	"donorslot/internal/service/appointments"
	"donorslot/internal/store"
	"donorslot/internal/store/memory"
	"donorslot/internal/store/postgres"
	"donorslot/internal/store/redis"
	grpcTransport "donorslot/internal/transport/grpc"
	httpTransport "donorslot/internal/transport/http"
)

type directorySeeder interface {
	SeedDonors(ctx context.Context, donors ...domain.Donor) error
	SeedCenters(ctx context.Context, centers ...domain.Center) error
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "donorslot-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "donorslot-server"),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, log, cfg)
	if err != nil {
		log.Error("store open failed", slog.Any("err", err), slog.String("store_driver", cfg.StoreDriver))
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn("store close failed", slog.Any("err", err))
		}
	}()

	m := metrics.New(nil)
	instrumented := store.NewInstrumented(backend, cfg.StoreDriver, m)

	svc := appointments.NewService(instrumented, instrumented, instrumented,
		appointments.WithRecoveryDays(cfg.RecoveryDays),
		appointments.WithLocation(cfg.TimeZone),
		appointments.WithLogger(log),
		appointments.WithOutcomeRecorder(m),
	)

	grpcServer := grpc.NewServer(grpcTransport.ServerOptions(cfg.GRPCRequestTimeout)...)
	grpcTransport.RegisterAppointmentsServiceServer(grpcServer, grpcTransport.NewAppointmentsServer(svc, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpTransport.NewRouter(instrumented, nil, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")
		shutdown(log, grpcServer, httpServer, cfg.ShutdownTimeout)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func openBackend(ctx context.Context, log *slog.Logger, cfg config.Config) (store.Backend, error) {
	var (
		backend store.Backend
		seedTo  directorySeeder
	)

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		mem := memory.New()
		backend, seedTo = mem, mem

	case config.StoreDriverRedis:
		client, err := redis.NewClient(ctx, redis.ClientConfig{
			URL:          cfg.RedisURL,
			PoolSize:     cfg.RedisPoolSize,
			DialTimeout:  cfg.RedisDialTimeout,
			ReadTimeout:  cfg.RedisReadTimeout,
			WriteTimeout: cfg.RedisWriteTimeout,
		})
		if err != nil {
			return nil, err
		}
		rs := redis.New(client, redis.WithKeyPrefix(cfg.RedisKeyPrefix))
		backend, seedTo = rs, rs

	default:
		log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
		db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		})
		if err != nil {
			args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
			log.Error("database connection failed", args...)
			return nil, err
		}
		if cfg.DatabaseAutoMigrate {
			if err := postgres.ApplyMigrations(ctx, db); err != nil {
				_ = postgres.Close(db)
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			log.Info("database migrations applied")
		}
		pg := postgres.NewBackend(db)
		backend, seedTo = pg, pg
	}

	if cfg.SeedFile != "" {
		seed, err := config.LoadSeed(cfg.SeedFile)
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
		if err := seedTo.SeedDonors(ctx, seed.Donors...); err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("seed donors: %w", err)
		}
		if err := seedTo.SeedCenters(ctx, seed.Centers...); err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("seed centers: %w", err)
		}
		log.Info("directories seeded",
			slog.String("seed_file", cfg.SeedFile),
			slog.Int("donors", len(seed.Donors)),
			slog.Int("centers", len(seed.Centers)),
		)
	}
	return backend, nil
}

func shutdown(log *slog.Logger, s *grpc.Server, h *http.Server, timeout time.Duration) {
	log.Info("shutting down", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := h.Shutdown(ctx); err != nil {
		log.Warn("http shutdown failed", slog.Any("err", err))
	}

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
