package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/desertthunder/vibe/internal/auth"
	"github.com/desertthunder/vibe/internal/shared"
)

func loadSession(t *testing.T, mgr *scs.SessionManager, token string) context.Context {
	t.Helper()
	ctx, err := mgr.Load(context.Background(), token)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	return ctx
}

func roundTrip(t *testing.T, mgr *scs.SessionManager, ctx context.Context) context.Context {
	t.Helper()
	token, _, err := mgr.Commit(ctx)
	if err != nil {
		t.Fatalf("failed to commit session: %v", err)
	}
	return loadSession(t, mgr, token)
}

func testStores(t *testing.T) map[string]*scs.SessionManager {
	t.Helper()

	memory, stopMemory, err := NewManager(shared.SessionConfig{Store: "memory"}, nil, nil)
	if err != nil {
		t.Fatalf("failed to create memory manager: %v", err)
	}
	t.Cleanup(stopMemory)

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	sqlite, stopSQLite, err := NewManager(shared.SessionConfig{Store: "sqlite"}, db, nil)
	if err != nil {
		t.Fatalf("failed to create sqlite manager: %v", err)
	}
	t.Cleanup(stopSQLite)

	return map[string]*scs.SessionManager{"memory": memory, "sqlite": sqlite}
}

func TestNewManager(t *testing.T) {
	t.Run("Cookie Settings", func(t *testing.T) {
		mgr, stop, err := NewManager(shared.SessionConfig{CookieSecure: true, LifetimeHours: 2}, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer stop()

		if mgr.Cookie.Name != CookieName || !mgr.Cookie.HttpOnly || !mgr.Cookie.Secure {
			t.Errorf("unexpected cookie settings %+v", mgr.Cookie)
		}
		if mgr.Cookie.SameSite != http.SameSiteLaxMode {
			t.Errorf("expected SameSite=Lax, got %v", mgr.Cookie.SameSite)
		}
		if mgr.Lifetime != 2*time.Hour {
			t.Errorf("expected 2h lifetime, got %v", mgr.Lifetime)
		}
	})

	t.Run("SQLite Without Database", func(t *testing.T) {
		_, _, err := NewManager(shared.SessionConfig{Store: "sqlite"}, nil, nil)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Unknown Store", func(t *testing.T) {
		_, _, err := NewManager(shared.SessionConfig{Store: "redis"}, nil, nil)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestHandle(t *testing.T) {
	for name, mgr := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("Tokens Survive Commit", func(t *testing.T) {
				ctx := loadSession(t, mgr, "")
				expires := time.UnixMilli(time.Now().Add(time.Hour).UnixMilli())

				Bind(mgr, ctx).SetTokens(auth.TokenState{AccessToken: "at", RefreshToken: "rt", ExpiresAt: expires})

				h := Bind(mgr, roundTrip(t, mgr, ctx))
				tokens := h.Tokens()
				if tokens.AccessToken != "at" || tokens.RefreshToken != "rt" {
					t.Errorf("unexpected tokens %+v", tokens)
				}
				if !tokens.ExpiresAt.Equal(expires) {
					t.Errorf("expected expiry %v, got %v", expires, tokens.ExpiresAt)
				}
			})

			t.Run("Stable ID", func(t *testing.T) {
				ctx := loadSession(t, mgr, "")
				id := Bind(mgr, ctx).ID()
				if id == "" {
					t.Fatal("expected an id")
				}

				next := roundTrip(t, mgr, ctx)
				if got := Bind(mgr, next).ID(); got != id {
					t.Errorf("expected id %s to persist, got %s", id, got)
				}

				if err := Bind(mgr, next).Renew(); err != nil {
					t.Fatalf("renew failed: %v", err)
				}
				if got := Bind(mgr, next).ID(); got != id {
					t.Errorf("expected id to survive token renewal, got %s", got)
				}
			})

			t.Run("State", func(t *testing.T) {
				ctx := loadSession(t, mgr, "")
				h := Bind(mgr, ctx)

				h.SetState("abc")
				if h.State() != "abc" {
					t.Errorf("expected state abc, got %q", h.State())
				}

				h.ClearState()
				if h.State() != "" {
					t.Errorf("expected cleared state, got %q", h.State())
				}
			})

			t.Run("Destroy", func(t *testing.T) {
				ctx := loadSession(t, mgr, "")
				Bind(mgr, ctx).SetTokens(auth.TokenState{AccessToken: "at"})
				token, _, err := mgr.Commit(ctx)
				if err != nil {
					t.Fatalf("commit failed: %v", err)
				}

				loaded := loadSession(t, mgr, token)
				if err := Bind(mgr, loaded).Destroy(); err != nil {
					t.Fatalf("destroy failed: %v", err)
				}

				if !Bind(mgr, loadSession(t, mgr, token)).Tokens().Empty() {
					t.Error("expected destroyed session to have no tokens")
				}
			})
		})
	}
}

func TestLoadAndSave(t *testing.T) {
	mgr, stop, err := NewManager(shared.SessionConfig{}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stop()

	handler := mgr.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Bind(mgr, r.Context()).SetState("xyz")
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Error("expected an HttpOnly session cookie")
	}
}
