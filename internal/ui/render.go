package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/desertthunder/vibe/internal/tasks"
)

const keyWidth = 28

// Progress renders one generation progress update as a terminal line.
func (p *Palette) Progress(update tasks.ProgressUpdate) string {
	switch update.Phase {
	case tasks.Done:
		return p.OK(update.Message)
	case tasks.Rollback:
		return p.Warn(update.Message)
	case tasks.SearchTracks:
		if strings.Contains(update.Message, "✗") {
			return p.Warn(update.Message)
		}
		return update.Message
	default:
		return p.Help(update.Message)
	}
}

// Result renders a generated playlist summary.
func (p *Palette) Result(result *models.GenerationResult) string {
	var b strings.Builder
	b.WriteString(p.OK("✓ Playlist created") + "\n")
	fmt.Fprintf(&b, "%s%s\n", p.Key("Name"), result.Name)
	fmt.Fprintf(&b, "%s%d\n", p.Key("Tracks"), result.TrackCount)
	fmt.Fprintf(&b, "%s%s\n", p.Key("Mode"), result.Mode)
	fmt.Fprintf(&b, "%s%s\n", p.Key("URL"), result.URL)
	return b.String()
}

// Config renders the resolved configuration. Callers pass a redacted copy.
func (p *Palette) Config(c shared.Config) string {
	rows := [][2]string{
		{"credentials.client_id", c.Credentials.Spotify.ClientID},
		{"credentials.client_secret", c.Credentials.Spotify.ClientSecret},
		{"credentials.redirect_uri", c.Credentials.Spotify.RedirectURI},
		{"credentials.service_token", c.Credentials.Spotify.ServiceRefreshToken},
		{"server.addr", c.Server.Addr()},
		{"server.static_dir", c.Server.StaticDir},
		{"session.store", c.Session.Store},
		{"session.secret", c.Session.Secret},
		{"session.lifetime", c.Session.Lifetime().String()},
		{"session.cookie_secure", fmt.Sprint(c.Session.CookieSecure)},
		{"database.path", c.Database.Path},
		{"upstream.timeout", c.Upstream.Timeout().String()},
		{"upstream.requests_per_second", fmt.Sprint(c.Upstream.RequestsPerSecond)},
		{"upstream.search_concurrency", fmt.Sprint(c.Upstream.SearchConcurrency)},
		{"log.level", c.Log.Level},
	}

	var b strings.Builder
	b.WriteString(p.Title("Configuration") + "\n")
	for _, row := range rows {
		value := row[1]
		if value == "" {
			value = p.Help("(unset)")
		}
		fmt.Fprintf(&b, "%s%s\n", p.Key(row[0]), value)
	}
	return b.String()
}
