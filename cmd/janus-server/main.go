package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/BrandonDHaskell/Janus/server/internal/config"
	"github.com/BrandonDHaskell/Janus/server/internal/db"
	"github.com/BrandonDHaskell/Janus/server/internal/grpcapi"
	"github.com/BrandonDHaskell/Janus/server/internal/httpapi"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/notify"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store/memory"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/store/sqlite"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
	"github.com/BrandonDHaskell/Janus/server/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "janus-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Storage ──────────────────────────────────────────────────────────
	reg, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── Metrics ──────────────────────────────────────────────────────────
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	// ── Services ─────────────────────────────────────────────────────────
	bus := notify.NewBus(0, m)
	devices := service.NewDeviceRegistry(reg, nil)
	enrollment := service.NewEnrollmentCoordinator(reg, bus, m, logger.With("component", "enrollment"),
		service.EnrollmentConfig{Timeout: cfg.EnrollmentTimeout, Devices: devices})
	integrity := service.NewIntegrityManager(reg, bus, m, logger.With("component", "integrity"))

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:            logger.With("component", "http"),
		Addr:              cfg.HTTPAddr,
		CORSOrigins:       cfg.CORSOrigins,
		HeartbeatService:  service.NewHeartbeatService(devices, logger.With("component", "heartbeat")),
		AccessService:     service.NewAccessService(reg, devices, bus, m, logger.With("component", "access")),
		EnrollmentService: enrollment,
		AdminService:      service.NewAdminService(reg, integrity, bus, logger.With("component", "admin")),
		AnalyticsService:  service.NewAnalyticsService(reg, cfg.AnalyticsTZ),
		Bus:               bus,
		Store:             reg,
		Gatherer:          promReg,
	})

	var (
		health  *grpcapi.HealthServer
		grpcLis net.Listener
	)
	if cfg.GRPCAddr != "" {
		if grpcLis, err = net.Listen("tcp", cfg.GRPCAddr); err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		health = grpcapi.NewHealthServer(reg, 0, logger.With("component", "grpc"))
	}

	// ── Background ───────────────────────────────────────────────────────
	reaper := service.NewEnrollmentReaper(enrollment, cfg.ReaperInterval, logger.With("component", "reaper"))
	reaper.Start(ctx)
	defer reaper.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.HTTPAddr, "store", cfg.Store, "env", cfg.Env)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})

	if health != nil {
		g.Go(func() error {
			health.Run(gctx)
			return nil
		})
		g.Go(func() error {
			logger.Info("grpc health listening", "addr", cfg.GRPCAddr)
			if err := health.Serve(grpcLis); err != nil {
				return fmt.Errorf("grpc: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if health != nil {
			health.Stop()
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler
	if cfg.Env == "prod" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(h).With("service", "janus-server")
}

// openStore returns the configured backend and a func that releases it.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Registry, func(), error) {
	if cfg.Store == "memory" {
		st := memory.New()
		if cfg.SeedDev {
			if err := seedMemory(ctx, st); err != nil {
				return nil, nil, err
			}
			logger.Info("seeded dev data", "device", db.DevDeviceID)
		}
		return st, func() {}, nil
	}

	conn, err := db.Open(ctx, db.Config{DSN: cfg.DBPath})
	if err != nil {
		return nil, nil, err
	}
	if cfg.SeedDev {
		if err := db.SeedDev(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		logger.Info("seeded dev data", "device", db.DevDeviceID)
	}

	worker := db.NewWorker(conn)
	closeFn := func() {
		worker.Close()
		if err := conn.Close(); err != nil {
			logger.Warn("close db", "err", err)
		}
	}
	return sqlite.New(conn, worker), closeFn, nil
}

// seedMemory mirrors db.SeedDev for the in-memory backend.
func seedMemory(ctx context.Context, st *memory.Store) error {
	now := time.Now().UTC()
	if err := st.CreateOrganization(ctx, types.Organization{
		ID: db.DevOrganizationID, Name: "Dev University", Kind: types.OrganizationUniversity,
		Active: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("seed organization: %w", err)
	}
	if err := st.CreateDepartment(ctx, types.Department{
		ID: db.DevDepartmentID, OrganizationID: db.DevOrganizationID, Name: "Engineering",
		Location: "Building A", Active: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("seed department: %w", err)
	}
	if err := st.CreateDevice(ctx, types.Device{
		DeviceID: db.DevDeviceID, Location: "Main Entrance", Active: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("seed device: %w", err)
	}
	return nil
}
