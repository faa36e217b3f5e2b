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

	"taskapp/internal/config"
	"taskapp/internal/serverapp"

	"github.com/spf13/pflag"
)

const sessionPurgeInterval = 15 * time.Minute

type flags struct {
	configPath string
	addr       string
	dataDir    string
	usersFile  string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := pflag.NewFlagSet("taskapp", pflag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "taskapp_config.yml", "path to the YAML config file")
	fs.StringVar(&f.addr, "addr", "", "listen address (overrides config)")
	fs.StringVar(&f.dataDir, "data-dir", "", "data directory (overrides config)")
	fs.StringVar(&f.usersFile, "users-file", "", "credentials file (overrides config)")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	return f, nil
}

func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	config.ApplyEnv(cfg)
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.dataDir != "" {
		cfg.Storage.DataDir = f.dataDir
	}
	if f.usersFile != "" {
		cfg.Auth.UsersFile = f.usersFile
	}
	return cfg, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	cfg, err := loadConfig(f)
	if err != nil {
		log.Fatal(err)
	}

	logger := log.Default()
	app, err := serverapp.New(serverapp.Options{
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go app.RunSessionJanitor(ctx, sessionPurgeInterval)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Handler,
		ReadTimeout:       cfg.ReadTimeout(),
		ReadHeaderTimeout: cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s (tasks in %s)", cfg.Server.Addr, cfg.TasksDir())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	case <-ctx.Done():
		logger.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	}
}
