package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/vibe/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the example config file.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("%s %s\n", r.styles.OK("✓ Config written to"), path)
	r.writePlain("%s\n", r.styles.Help("Fill in client_id and client_secret, or set CLIENT_ID and CLIENT_SECRET in .env"))
	return nil
}

// ConfigCheck prints the resolved config with secrets redacted and validates it.
func (r *Runner) ConfigCheck(ctx context.Context, cmd *cli.Command) error {
	r.writePlain("%s", r.styles.Config(r.config.Redacted()))

	if err := r.config.Validate(); err != nil {
		r.writePlainln("%s", r.styles.Err("✗ "+err.Error()))
		return err
	}

	if !r.config.Credentials.Spotify.DemoAvailable() {
		r.writePlainln("%s", r.styles.Warn("⚠ SERVICE_REFRESH_TOKEN is not set; demo mode is disabled"))
	}
	r.writePlain("%s\n", r.styles.OK(fmt.Sprintf("✓ Configuration is valid (%s)", r.config.Server.Addr())))
	return nil
}
