package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/vibe/internal/server"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/urfave/cli/v3"
)

const authTimeout = 2 * time.Minute

// AuthDemo runs the authorization code flow for the service account through a local callback server and prints the
// refresh token to configure as SERVICE_REFRESH_TOKEN.
func (r *Runner) AuthDemo(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify, r.config.Upstream)
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, spotify, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	if token.RefreshToken == "" {
		return fmt.Errorf("%w: no refresh token received", shared.ErrUpstreamAuth)
	}

	r.writePlain("%s\n", r.styles.OK("✓ Service account authorized"))
	r.writePlainln("Add this to your .env:")
	r.writePlain("SERVICE_REFRESH_TOKEN=%s\n", token.RefreshToken)
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server on the redirect URI's host.
func (r *Runner) doOAuth(ctx context.Context, spotify *services.SpotifyService, timeout time.Duration) (*services.Token, error) {
	redirect, err := url.Parse(r.config.Credentials.Spotify.RedirectURI)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: REDIRECT_URI must be an absolute URL", shared.ErrInvalidConfig)
	}
	if redirect.Path != "/callback" {
		r.logger.Warn("redirect URI path is not /callback; the local server will not receive it", "redirect_uri", redirect.String())
	}

	state, err := shared.GenerateSecret(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := spotify.AuthCodeURL(state)
	oauthHandler := server.NewOAuthHandler(spotify, state)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(oauthHandler)

	serverCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting OAuth callback server", "addr", redirect.Host)
		serverErrors <- server.Run(serverCtx, server.NewHTTPServer(redirect.Host, router), r.logger)
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify login...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		if err == nil {
			err = context.Canceled
		}
		return nil, fmt.Errorf("callback server stopped: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	cancel()
	if err := <-serverErrors; err != nil {
		r.logger.Warn("error shutting down callback server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
