package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/karlseguin/ccache/v3"
	"golang.org/x/sync/singleflight"
)

const (
	// refreshTimeout bounds a shared token exchange once it no longer follows any caller's context.
	refreshTimeout = 30 * time.Second
	// reuseWindow is how long a completed user refresh answers requests still holding the old refresh token.
	reuseWindow = 30 * time.Second
)

// Mode records which credential authorized an upstream call.
type Mode string

const (
	ModeUser Mode = "user"
	ModeDemo Mode = "demo"
	ModeNone Mode = "none"
)

// TokenExchanger talks to the upstream token endpoint.
type TokenExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*services.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*services.Token, error)
}

// Resolution is the outcome of [Provider.Resolve].
//
// Reason is set whenever the user's own token could not be used.
type Resolution struct {
	Mode   Mode
	Token  string
	Reason string
}

// Provider resolves a usable bearer token for a request: the session's own token, then a refreshed one, then the
// demo service token.
type Provider struct {
	exchanger TokenExchanger
	logger    *log.Logger
	flights   singleflight.Group
	recent    *ccache.Cache[TokenState]
	now       func() time.Time

	mu             sync.Mutex
	serviceRefresh string
	demo           TokenState
}

// NewProvider creates a [Provider]. Demo mode is enabled when creds carries a service refresh token.
func NewProvider(exchanger TokenExchanger, creds shared.SpotifyConfig, logger *log.Logger) *Provider {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Provider{
		exchanger:      exchanger,
		logger:         shared.WithLogger(logger, "component", "auth"),
		recent:         ccache.New(ccache.Configure[TokenState]().MaxSize(10_000).ItemsToPrune(100)),
		now:            time.Now,
		serviceRefresh: creds.ServiceRefreshToken,
	}
}

// Close stops the background worker of the recent refresh cache.
func (p *Provider) Close() {
	p.recent.Stop()
}

// DemoAvailable reports whether a service refresh token is configured.
func (p *Provider) DemoAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.serviceRefresh != ""
}

// Resolve returns a bearer token for s, which may be nil.
//
// A failed user refresh is logged and falls through to demo mode. A failed demo refresh returns an error wrapping
// [shared.ErrUpstreamAuth]. With nothing left to try it returns a [ModeNone] resolution and [shared.ErrNoCredentials].
func (p *Provider) Resolve(ctx context.Context, s Session) (Resolution, error) {
	reason := "no session"
	if s != nil {
		tokens := s.Tokens()
		switch {
		case tokens.Valid(p.now()):
			return Resolution{Mode: ModeUser, Token: tokens.AccessToken}, nil
		case tokens.RefreshToken != "":
			access, err := p.refreshUser(ctx, s, tokens.RefreshToken)
			if err == nil {
				return Resolution{Mode: ModeUser, Token: access}, nil
			}
			if ctx.Err() != nil {
				return Resolution{Mode: ModeNone, Reason: "request cancelled"}, ctx.Err()
			}
			p.logger.Warn("user token refresh failed, falling back", "session", s.ID(), "err", err)
			reason = "user token refresh failed"
		case tokens.AccessToken != "":
			reason = "user token expired"
		default:
			reason = "not logged in"
		}
	}

	if !p.DemoAvailable() {
		return Resolution{Mode: ModeNone, Reason: reason}, fmt.Errorf("%w: %s", shared.ErrNoCredentials, reason)
	}

	token, err := p.demoToken(ctx)
	if err != nil {
		return Resolution{Mode: ModeNone, Reason: reason}, err
	}
	return Resolution{Mode: ModeDemo, Token: token, Reason: reason}, nil
}

// refreshUser exchanges the session's refresh token.
//
// Concurrent refreshes for the same session share one exchange. A request that still carries the old refresh token
// shortly after a refresh completed (the session is saved only when the earlier handler returns) reuses its result.
func (p *Provider) refreshUser(ctx context.Context, s Session, refreshToken string) (string, error) {
	key := "user:" + s.ID() + ":" + refreshToken
	if item := p.recent.Get(key); item != nil && !item.Expired() && item.Value().Valid(p.now()) {
		next := item.Value()
		s.SetTokens(next)
		p.logger.Debug("reused recent user token refresh", "session", s.ID())
		return next.AccessToken, nil
	}

	v, joined, err := p.share(ctx, "user:"+s.ID(), func(ctx context.Context) (any, error) {
		tok, err := p.exchanger.Refresh(ctx, refreshToken)
		if err != nil {
			return nil, err
		}

		next := TokenState{
			AccessToken:  tok.AccessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    p.now().Add(tok.ExpiresIn),
		}
		if tok.RefreshToken != "" {
			next.RefreshToken = tok.RefreshToken
		}
		p.recent.Set(key, next, reuseWindow)
		return next, nil
	})
	if err != nil {
		return "", err
	}

	next := v.(TokenState)
	s.SetTokens(next)

	p.logger.Debug("refreshed user token", "session", s.ID(), "joined", joined)
	return next.AccessToken, nil
}

// demoToken returns the cached demo access token, refreshing it once it has expired.
func (p *Provider) demoToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.demo.Valid(p.now()) {
		token := p.demo.AccessToken
		p.mu.Unlock()
		return token, nil
	}
	refreshToken := p.serviceRefresh
	p.mu.Unlock()

	v, _, err := p.share(ctx, "demo", func(ctx context.Context) (any, error) {
		tok, err := p.exchanger.Refresh(ctx, refreshToken)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		p.demo = TokenState{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, ExpiresAt: p.now().Add(tok.ExpiresIn)}
		if tok.RefreshToken != "" && tok.RefreshToken != p.serviceRefresh {
			p.serviceRefresh = tok.RefreshToken
			p.logger.Info("service refresh token was rotated; update SERVICE_REFRESH_TOKEN to persist it")
		}
		return tok.AccessToken, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		p.logger.Error("demo token refresh failed", "err", err)
		return "", fmt.Errorf("demo mode unavailable: %w", err)
	}
	return v.(string), nil
}

// share runs exchange once per key for all concurrent callers.
//
// The exchange runs on a context detached from the first caller's cancellation, bounded by [refreshTimeout]. Each
// caller stops waiting when its own ctx is done.
func (p *Provider) share(ctx context.Context, key string, exchange func(context.Context) (any, error)) (any, bool, error) {
	ch := p.flights.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return exchange(flightCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Status describes s for the auth-status endpoint without contacting the upstream.
func (p *Provider) Status(s Session) models.AuthStatus {
	status := models.AuthStatus{Mode: string(ModeNone), DemoAvailable: p.DemoAvailable()}
	if status.DemoAvailable {
		status.Mode = string(ModeDemo)
	}
	if s == nil {
		return status
	}

	tokens := s.Tokens()
	if tokens.Empty() {
		return status
	}

	status.Authenticated = true
	status.Mode = string(ModeUser)
	if !tokens.ExpiresAt.IsZero() {
		ms := tokens.ExpiresAt.UnixMilli()
		status.ExpiresAt = &ms
	}
	return status
}
