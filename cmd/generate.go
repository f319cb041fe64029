package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/vibe/internal/auth"
	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/desertthunder/vibe/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Generate creates a playlist with the service account and streams progress to the terminal.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if !creds.DemoAvailable() {
		return fmt.Errorf("%w: SERVICE_REFRESH_TOKEN is required; run 'vibe auth demo' first", shared.ErrMissingConfig)
	}

	req := models.GenerationRequest{
		Name:    cmd.String("name"),
		Artists: append(cmd.StringSlice("artist"), cmd.Args().Slice()...),
	}
	if cmd.IsSet("count") {
		n := int(cmd.Int("count"))
		req.SongCount = &n
	}
	if cmd.IsSet("start-year") {
		y := int(cmd.Int("start-year"))
		req.StartYear = &y
	}
	if cmd.IsSet("end-year") {
		y := int(cmd.Int("end-year"))
		req.EndYear = &y
	}
	if err := req.Validate(); err != nil {
		return err
	}

	spotify, err := services.NewSpotifyService(creds, r.config.Upstream)
	if err != nil {
		return err
	}

	provider := auth.NewProvider(spotify, creds, r.logger)
	defer provider.Close()

	res, err := provider.Resolve(ctx, nil)
	if err != nil {
		return err
	}

	generator := tasks.NewGenerator(spotify, r.config.Upstream.SearchConcurrency, r.logger)
	useJSON := cmd.Bool("json")

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if !useJSON {
				r.writePlain("%s\n", r.styles.Progress(update))
			}
		}
	}()

	result, err := generator.Generate(ctx, req, res, progress)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(result, true)
	}
	r.writePlainln("%s", r.styles.Result(result))
	return nil
}
