package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibe/internal/auth"
	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/server"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/session"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/desertthunder/vibe/internal/tasks"
)

//go:embed templates/*.html
var templateFS embed.FS

var callbackTmpl = template.Must(template.ParseFS(templateFS, "templates/callback.html"))

// ArtistSearcher looks up artists by name.
type ArtistSearcher interface {
	SearchArtists(ctx context.Context, token, query string, limit int) ([]services.SpotifyArtist, error)
}

// Generator creates a playlist for a resolved token.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest, res auth.Resolution, progress chan<- tasks.ProgressUpdate) (*models.GenerationResult, error)
}

// Options are the collaborators of an [App].
type Options struct {
	Sessions  *scs.SessionManager
	Provider  *auth.Provider
	Handshake *auth.Handshake
	Artists   ArtistSearcher
	Generator Generator
	StaticDir string
	Logger    *log.Logger
}

// App serves the proxy's HTTP surface.
type App struct {
	sessions  *scs.SessionManager
	provider  *auth.Provider
	handshake *auth.Handshake
	artists   ArtistSearcher
	generator Generator
	staticDir string
	logger    *log.Logger
}

// NewApp creates an [App] from opts.
func NewApp(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &App{
		sessions:  opts.Sessions,
		provider:  opts.Provider,
		handshake: opts.Handshake,
		artists:   opts.Artists,
		generator: opts.Generator,
		staticDir: opts.StaticDir,
		logger:    shared.WithLogger(logger, "component", "web"),
	}
}

// Routes registers every endpoint on a [server.BasicRouter] behind panic recovery, request logging and session
// loading.
func (a *App) Routes() http.Handler {
	router := server.NewBasicRouter()
	router.Use(server.Recover(a.logger), server.Logging(a.logger), a.sessions.LoadAndSave)

	router.Handle(http.MethodGet, "/login", http.HandlerFunc(a.handleLogin))
	router.Handle(http.MethodGet, "/callback", http.HandlerFunc(a.handleCallback))
	router.Handle(http.MethodGet, "/logout", http.HandlerFunc(a.handleLogout))
	router.Handle(http.MethodGet, "/api/auth-status", http.HandlerFunc(a.handleAuthStatus))
	router.Handle(http.MethodGet, "/api/search-artists", http.HandlerFunc(a.handleSearchArtists))
	router.Handle(http.MethodPost, "/api/generate", http.HandlerFunc(a.handleGenerate))
	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(a.handleHealth))

	if a.staticDir != "" {
		router.Static(a.staticDir)
	}
	return router
}

func (a *App) session(r *http.Request) *session.Handle {
	return session.Bind(a.sessions, r.Context())
}
