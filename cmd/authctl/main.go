package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/techauth/internal/auth/app"
	"github.com/aussiebroadwan/techauth/internal/auth/ctl"
	"github.com/aussiebroadwan/techauth/internal/auth/notify"
	"github.com/aussiebroadwan/techauth/internal/auth/service"
	"github.com/aussiebroadwan/techauth/pkg/cryptox"
	"github.com/aussiebroadwan/techauth/pkg/slogx"
	"github.com/caarlos0/env/v11"
)

// config is the subset of the server environment the operator commands need.
type config struct {
	DatabaseDriver string `env:"AUTH_DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseFile   string `env:"AUTH_DATABASE_FILE" envDefault:"auth.db"`
	DatabaseURL    string `env:"AUTH_DATABASE_URL"`
	PepperFile     string `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`
	AppName        string `env:"APP_NAME" envDefault:"TechAuth"`
	AppURL         string `env:"APP_URL" envDefault:"http://localhost:8080"`
	FrontendURL    string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"warn"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "authctl: %v\n", err)
		if errors.Is(err, ctl.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	// Logs go to stderr so stdout stays clean for credentials.
	logger := slogx.New(slogx.Config{
		Service: "authctl",
		Version: app.BuildVersion,
		Level:   cfg.LogLevel,
		Format:  "text",
		Output:  os.Stderr,
	})
	ctx = slogx.WithContext(ctx, logger)

	db, err := app.OpenStore(cfg.DatabaseDriver, cfg.DatabaseFile, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	hasher := cryptox.NewHasher(pepper)

	renderer, err := notify.NewRenderer(notify.RendererConfig{
		AppName:     cfg.AppName,
		AppURL:      cfg.AppURL,
		FrontendURL: cfg.FrontendURL,
	})
	if err != nil {
		return err
	}

	cmds := &ctl.Commands{
		Store:    db,
		Projects: &service.ProjectService{Store: db, Hasher: hasher},
		Invitations: &service.InvitationService{
			Store:    db,
			Notifier: notify.NewLogNotifier(renderer, logger),
			LinkFor:  renderer.InvitationLink,
		},
		Users: &service.UserAdminService{Store: db},
	}
	return cmds.Run(ctx, os.Args[1:], os.Stdout)
}
