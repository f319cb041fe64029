package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibe/internal/shared"
)

// CallbackParams are the query parameters of the redirect back from the authorization endpoint.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Handshake drives the authorization code flow for one session at a time:
// Begin moves it to awaiting-callback, Complete ends it authenticated or failed.
type Handshake struct {
	exchanger TokenExchanger
	states    *StateSigner
	logger    *log.Logger
	now       func() time.Time
}

func NewHandshake(exchanger TokenExchanger, states *StateSigner, logger *log.Logger) *Handshake {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Handshake{
		exchanger: exchanger,
		states:    states,
		logger:    shared.WithLogger(logger, "component", "auth"),
		now:       time.Now,
	}
}

// Begin stores a fresh state token in s and returns the authorization URL to redirect to.
func (h *Handshake) Begin(s Session) (string, error) {
	state, err := h.states.Issue()
	if err != nil {
		return "", err
	}
	s.SetState(state)
	return h.exchanger.AuthCodeURL(state), nil
}

// Complete validates the callback and exchanges its code for tokens stored in s.
//
// The code is used once; a replayed code fails upstream and is reported, never retried. The stored state is kept on
// failure so a forged retry cannot skip the comparison.
func (h *Handshake) Complete(ctx context.Context, s Session, p CallbackParams) error {
	if p.Error != "" {
		h.logger.Warn("authorization denied", "error", p.Error, "description", p.ErrorDescription)
		if p.ErrorDescription != "" {
			return fmt.Errorf("%w: %s: %s", shared.ErrUpstreamDenied, p.Error, p.ErrorDescription)
		}
		return fmt.Errorf("%w: %s", shared.ErrUpstreamDenied, p.Error)
	}

	if p.Code == "" {
		return shared.ErrMissingCode
	}

	switch stored := s.State(); {
	case stored == "":
		h.logger.Warn("no stored state for callback, proceeding", "session", s.ID())
	case stored != p.State:
		h.logger.Warn("callback state mismatch", "session", s.ID())
		return shared.ErrStateMismatch
	default:
		if err := h.states.Verify(p.State); err != nil {
			h.logger.Warn("callback state rejected", "session", s.ID(), "err", err)
			return err
		}
	}

	tok, err := h.exchanger.Exchange(ctx, p.Code)
	if err != nil {
		h.logger.Error("authorization code exchange failed", "err", err)
		return err
	}

	s.SetTokens(TokenState{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    h.now().Add(tok.ExpiresIn),
	})
	s.ClearState()

	h.logger.Info("user authenticated", "session", s.ID())
	return nil
}
