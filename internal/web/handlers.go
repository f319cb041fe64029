package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/vibe/internal/auth"
	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
)

type callbackPage struct {
	Success     bool
	Error       string
	Description string
}

// handleLogin redirects to the authorization endpoint with a fresh state stored in the session.
func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	authURL, err := a.handshake.Begin(a.session(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback completes the handshake and renders a page that notifies the opener window.
func (a *App) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := auth.CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	s := a.session(r)
	if err := a.handshake.Complete(r.Context(), s, params); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, shared.ErrUpstreamDenied),
			errors.Is(err, shared.ErrMissingCode),
			errors.Is(err, shared.ErrStateMismatch):
			status = http.StatusBadRequest
		}

		page := callbackPage{Error: callbackMessage(err), Description: services.ErrorDescription(err)}
		if page.Description == "" {
			page.Description = params.ErrorDescription
		}
		a.logger.Warn("callback failed", "status", status, "err", err)
		a.renderCallback(w, status, page)
		return
	}

	if err := s.Renew(); err != nil {
		a.logger.Error("failed to renew session token", "err", err)
		a.renderCallback(w, http.StatusInternalServerError, callbackPage{Error: "Could not save your session."})
		return
	}

	a.logger.Info("user authenticated", "session", s.ID())
	a.renderCallback(w, http.StatusOK, callbackPage{Success: true})
}

func callbackMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrUpstreamDenied):
		return "Spotify authorization was denied."
	case errors.Is(err, shared.ErrMissingCode):
		return "The callback did not include an authorization code."
	case errors.Is(err, shared.ErrStateMismatch):
		return "The login request could not be verified. Please try again."
	default:
		return "Could not complete the Spotify login."
	}
}

func (a *App) renderCallback(w http.ResponseWriter, status int, page callbackPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := callbackTmpl.Execute(w, page); err != nil {
		a.logger.Error("failed to render callback page", "err", err)
	}
}

// handleLogout destroys the session.
func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.session(r).Destroy(); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *App) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.provider.Status(a.session(r)))
}

// handleSearchArtists returns artists matching the q parameter.
func (a *App) handleSearchArtists(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		a.writeError(w, r, fmt.Errorf("%w: query parameter q is required", shared.ErrValidation))
		return
	}

	res, err := a.provider.Resolve(r.Context(), a.session(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	found, err := a.artists.SearchArtists(r.Context(), res.Token, query, services.ArtistSearchLimit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	result := models.ArtistSearchResult{Artists: make([]models.Artist, 0, len(found)), Mode: string(res.Mode)}
	for _, artist := range found {
		result.Artists = append(result.Artists, toArtist(artist))
	}
	a.writeJSON(w, http.StatusOK, result)
}

func toArtist(artist services.SpotifyArtist) models.Artist {
	out := models.Artist{
		ID:         artist.ID,
		Name:       artist.Name,
		Genres:     artist.Genres,
		Popularity: artist.Popularity,
	}
	if out.Genres == nil {
		out.Genres = []string{}
	}
	if len(artist.Images) > 0 {
		out.Image = artist.Images[0].URL
	}
	return out
}

// handleGenerate validates the request before resolving a token, then generates the playlist.
func (a *App) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		a.writeError(w, r, err)
		return
	}

	res, err := a.provider.Resolve(r.Context(), a.session(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	result, err := a.generator.Generate(r.Context(), req, res, nil)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
