package session

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibe/internal/auth"
	"github.com/desertthunder/vibe/internal/repositories"
	"github.com/desertthunder/vibe/internal/shared"
)

// CookieName is the name of the session cookie.
const CookieName = "vibe_session"

const (
	keyID      = "sid"
	keyAccess  = "access_token"
	keyRefresh = "refresh_token"
	keyExpires = "expires_at"
	keyState   = "oauth_state"
)

var _ scs.Store = (*repositories.SessionRepository)(nil)

// NewManager creates the HTTP session manager for cfg.
//
// The "sqlite" store needs db; "memory" ignores it. The returned stop func ends the store's background cleanup.
func NewManager(cfg shared.SessionConfig, db *sql.DB, logger *log.Logger) (*scs.SessionManager, func(), error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "component", "session")

	mgr := scs.New()
	mgr.Lifetime = cfg.Lifetime()
	mgr.Cookie.Name = CookieName
	mgr.Cookie.HttpOnly = true
	mgr.Cookie.SameSite = http.SameSiteLaxMode
	mgr.Cookie.Secure = cfg.CookieSecure
	mgr.Cookie.Persist = true
	mgr.ErrorFunc = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("session error", "path", r.URL.Path, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}

	switch cfg.Store {
	case "", "memory":
		store := memstore.NewWithCleanupInterval(cfg.CleanupInterval())
		mgr.Store = store
		return mgr, store.StopCleanup, nil
	case "sqlite":
		if db == nil {
			return nil, nil, fmt.Errorf("%w: sqlite session store requires a database", shared.ErrInvalidConfig)
		}
		store := repositories.NewSessionRepository(db)
		store.StartCleanup(cfg.CleanupInterval(), logger)
		mgr.Store = store
		return mgr, store.StopCleanup, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown session store %q", shared.ErrInvalidConfig, cfg.Store)
	}
}

// Handle is the token state of the session loaded into one request context. It implements [auth.Session].
type Handle struct {
	mgr *scs.SessionManager
	ctx context.Context
}

var _ auth.Session = (*Handle)(nil)

// Bind returns the [Handle] for the session loaded into ctx by the manager's LoadAndSave middleware.
func Bind(mgr *scs.SessionManager, ctx context.Context) *Handle {
	return &Handle{mgr: mgr, ctx: ctx}
}

// ID returns the session's stable identifier, assigning one on first use.
//
// It is separate from the cookie token, which changes on login.
func (h *Handle) ID() string {
	id := h.mgr.GetString(h.ctx, keyID)
	if id == "" {
		id = shared.GenerateID()
		h.mgr.Put(h.ctx, keyID, id)
	}
	return id
}

func (h *Handle) Tokens() auth.TokenState {
	tokens := auth.TokenState{
		AccessToken:  h.mgr.GetString(h.ctx, keyAccess),
		RefreshToken: h.mgr.GetString(h.ctx, keyRefresh),
	}
	if ms := h.mgr.GetInt64(h.ctx, keyExpires); ms > 0 {
		tokens.ExpiresAt = time.UnixMilli(ms)
	}
	return tokens
}

func (h *Handle) SetTokens(t auth.TokenState) {
	h.put(keyAccess, t.AccessToken)
	h.put(keyRefresh, t.RefreshToken)
	if t.ExpiresAt.IsZero() {
		h.mgr.Remove(h.ctx, keyExpires)
	} else {
		h.mgr.Put(h.ctx, keyExpires, t.ExpiresAt.UnixMilli())
	}
}

func (h *Handle) State() string {
	return h.mgr.GetString(h.ctx, keyState)
}

func (h *Handle) SetState(state string) {
	h.put(keyState, state)
}

func (h *Handle) ClearState() {
	h.mgr.Remove(h.ctx, keyState)
}

// Renew issues a new session token, keeping the data. Call it after login.
func (h *Handle) Renew() error {
	return h.mgr.RenewToken(h.ctx)
}

// Destroy deletes the session and expires its cookie.
func (h *Handle) Destroy() error {
	return h.mgr.Destroy(h.ctx)
}

func (h *Handle) put(key, value string) {
	if value == "" {
		h.mgr.Remove(h.ctx, key)
		return
	}
	h.mgr.Put(h.ctx, key, value)
}
