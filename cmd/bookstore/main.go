package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"BookStore/internal/auth"
	"BookStore/internal/catalog"
	"BookStore/internal/config"
	"BookStore/internal/report"
	"BookStore/pkg/kit"
)

const service = "bookstore"

func main() {
	configPath := flag.String("config", "config.yaml", "path to an optional YAML config file")
	envFile := flag.String("env-file", ".env", "path to an optional dotenv file")
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of a staff password and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := kit.NewLogger(service, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Fatal("bookstore stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("config loaded", zap.Stringer("config", cfg))

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	manager := catalog.NewManager(report.Text{}, catalog.WithStrictStock(cfg.Sales.StrictStock))
	svc := catalog.NewService(manager, store, log, catalog.NewMetrics(reg))
	if err := svc.Load(ctx); err != nil {
		return err
	}

	deps := catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
		LoginLimit:     cfg.Auth.LoginLimit,
		LoginWindow:    cfg.Auth.LoginWindow,
		TrustProxy:     cfg.HTTP.TrustProxy,
	}
	if cfg.Auth.Enabled {
		staff, err := auth.NewStaff(cfg.Auth.StaffUser, cfg.Auth.PasswordHash)
		if err != nil {
			return fmt.Errorf("staff account: %w", err)
		}
		deps.Auth = &auth.Server{
			Log:      log,
			Staff:    staff,
			JWT:      auth.NewTokenMaker(cfg.Auth.JWTSecret),
			TokenTTL: cfg.Auth.TokenTTL,
		}
	} else {
		log.Warn("auth disabled: catalog mutations are open")
	}

	h := catalog.NewHandler(catalog.NewServer(svc, log), deps)

	return kit.RunHTTPServer(ctx, kit.ServerConfig{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout,
	}, h, log)
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (catalog.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := catalog.OpenPostgres(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		store := catalog.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		if cfg.Seed.Demo {
			if err := seedIfEmpty(ctx, store, log); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return store, func() { _ = db.Close() }, nil

	default:
		if cfg.Seed.Demo {
			log.Info("seeding demo inventory")
			return catalog.NewSeededMemStore(catalog.DemoBooks()...), func() {}, nil
		}
		return catalog.NewMemStore(), func() {}, nil
	}
}

func seedIfEmpty(ctx context.Context, store catalog.Store, log *zap.Logger) error {
	snap, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load for seed: %w", err)
	}
	if len(snap.Books) > 0 || len(snap.Sales) > 0 {
		return nil
	}
	log.Info("seeding demo inventory")
	return store.Save(ctx, catalog.Snapshot{Books: catalog.DemoBooks()})
}
