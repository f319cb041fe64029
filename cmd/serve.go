package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/vibe/internal/auth"
	"github.com/desertthunder/vibe/internal/server"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/session"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/desertthunder/vibe/internal/tasks"
	"github.com/desertthunder/vibe/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve validates the config and runs the HTTP proxy until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := *r.config
	if port := int(cmd.Int("port")); port > 0 {
		config.Server.Port = port
	}

	if err := config.Validate(); err != nil {
		return err
	}

	app, cleanup, err := r.buildApp(&config)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("starting vibe",
		"addr", config.Server.Addr(),
		"session_store", config.Session.Store,
		"demo", config.Credentials.Spotify.DemoAvailable(),
	)
	return server.Run(ctx, server.NewHTTPServer(config.Server.Addr(), app.Routes()), r.logger)
}

// buildApp wires the web application for config. cleanup stops background workers and closes the database.
func (r *Runner) buildApp(config *shared.Config) (*web.App, func(), error) {
	secret := config.Session.Secret
	if secret == "" {
		generated, err := shared.GenerateSecret(32)
		if err != nil {
			return nil, nil, err
		}
		secret = generated
		r.logger.Warn("SESSION_SECRET is not set; using a random secret, pending logins will not survive a restart")
	}

	spotify, err := services.NewSpotifyService(config.Credentials.Spotify, config.Upstream)
	if err != nil {
		return nil, nil, err
	}

	var db *sql.DB
	if config.Session.Store == "sqlite" {
		if db, err = shared.OpenDatabase(config.Database); err != nil {
			return nil, nil, fmt.Errorf("failed to open session database: %w", err)
		}
	}

	mgr, stopSessions, err := session.NewManager(config.Session, db, r.logger)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, err
	}

	provider := auth.NewProvider(spotify, config.Credentials.Spotify, r.logger)
	cleanup := func() {
		provider.Close()
		stopSessions()
		if db != nil {
			db.Close()
		}
	}

	staticDir := config.Server.StaticDir
	if staticDir != "" {
		if info, err := os.Stat(staticDir); err != nil || !info.IsDir() {
			r.logger.Warn("static directory not found, not serving static files", "dir", staticDir)
			staticDir = ""
		}
	}

	app := web.NewApp(web.Options{
		Sessions:  mgr,
		Provider:  provider,
		Handshake: auth.NewHandshake(spotify, auth.NewStateSigner(secret), r.logger),
		Artists:   spotify,
		Generator: tasks.NewGenerator(spotify, config.Upstream.SearchConcurrency, r.logger),
		StaticDir: staticDir,
		Logger:    r.logger,
	})
	return app, cleanup, nil
}
