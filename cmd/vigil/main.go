package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vigil-irs/api"
	"vigil-irs/config"
	"vigil-irs/core/auth"
	"vigil-irs/core/imports"
	"vigil-irs/core/rbac"
	"vigil-irs/core/store"
	"vigil-irs/core/utils"
	"vigil-irs/tasks"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	flag.Parse()

	logger := utils.NewLogger()
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("config: %v", err)
		os.Exit(1)
	}

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		logger.Errorf("db: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		logger.Errorf("migrations: %v", err)
		os.Exit(1)
	}

	users := store.NewUsersStore(db)
	sessions := store.NewSessionsStore(db)
	audits := store.NewAuditStore(db)
	reports := store.NewReportsStore(db)

	if err := ensureAdminUser(ctx, users, cfg, logger); err != nil {
		logger.Errorf("bootstrap admin: %v", err)
		os.Exit(1)
	}

	policy, err := rbac.NewPolicy()
	if err != nil {
		logger.Errorf("rbac: %v", err)
		os.Exit(1)
	}
	sessionManager := auth.NewSessionManager(sessions, cfg, logger)

	deps := api.ServerDeps{
		Users:     users,
		Sessions:  sessions,
		Reports:   reports,
		Audits:    audits,
		Analyzer:  imports.NewAnalyzer(reports, cfg.Imports.DateFormat, logger),
		Committer: imports.NewCommitter(reports),
	}
	server := api.NewServer(cfg, deps, policy, sessionManager, logger)

	retention := tasks.NewRetentionJob(cfg.Retention, sessions, audits, logger)
	if err := retention.Start(); err != nil {
		logger.Errorf("retention job: %v", err)
		os.Exit(1)
	}
	defer retention.Stop()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Printf("listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("http server: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

// ensureAdminUser creates the initial admin account on an empty install.
// The password comes from VIGIL_ADMIN_PASSWORD; without it a fresh install
// has no way to log in, so startup fails loudly.
func ensureAdminUser(ctx context.Context, users store.UsersStore, cfg *config.AppConfig, logger *utils.Logger) error {
	existing, err := users.GetByUsername(ctx, "admin")
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	password := os.Getenv("VIGIL_ADMIN_PASSWORD")
	if password == "" {
		return errors.New("VIGIL_ADMIN_PASSWORD is required on first start")
	}
	ph, err := auth.HashPassword(password, cfg.Pepper)
	if err != nil {
		return err
	}
	admin := &store.User{Username: "admin", PasswordHash: ph.Hash, Salt: ph.Salt, Role: "admin", Active: true}
	if _, err := users.Create(ctx, admin); err != nil {
		return err
	}
	logger.Printf("created initial admin user")
	return nil
}
