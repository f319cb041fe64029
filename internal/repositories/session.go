package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// SessionRepository persists encoded HTTP sessions in the sessions table. It implements scs.Store.
//
// Expiry is stored as unix milliseconds; rows past their expiry are never returned and are removed by [SessionRepository.Cleanup].
type SessionRepository struct {
	db     *sql.DB
	now    func() time.Time
	stopCh chan struct{}
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Find returns the data for a session token. found is false for unknown or expired tokens.
func (r *SessionRepository) Find(token string) ([]byte, bool, error) {
	var data []byte
	err := r.db.QueryRow(
		"SELECT data FROM sessions WHERE token = ? AND expiry > ?",
		token, r.now().UnixMilli(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query session: %w", err)
	}
	return data, true, nil
}

// Commit inserts or replaces the data for a session token.
func (r *SessionRepository) Commit(token string, data []byte, expiry time.Time) error {
	query := `
		INSERT INTO sessions (token, data, expiry) VALUES (?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET data = excluded.data, expiry = excluded.expiry
	`
	if _, err := r.db.Exec(query, token, data, expiry.UnixMilli()); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// Delete removes a session token.
func (r *SessionRepository) Delete(token string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Count returns the number of stored sessions, expired or not.
func (r *SessionRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// Cleanup removes expired sessions and returns how many were deleted.
func (r *SessionRepository) Cleanup() (int64, error) {
	result, err := r.db.Exec("DELETE FROM sessions WHERE expiry <= ?", r.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// StartCleanup runs [SessionRepository.Cleanup] every interval until [SessionRepository.StopCleanup] is called.
func (r *SessionRepository) StartCleanup(interval time.Duration, logger *log.Logger) {
	r.stopCh = make(chan struct{})
	ticker := time.NewTicker(interval)

	go func(stop <-chan struct{}) {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := r.Cleanup()
				if err != nil {
					logger.Error("session cleanup failed", "err", err)
					continue
				}
				if n > 0 {
					logger.Debug("removed expired sessions", "count", n)
				}
			case <-stop:
				return
			}
		}
	}(r.stopCh)
}

// StopCleanup stops the background cleanup started by [SessionRepository.StartCleanup].
func (r *SessionRepository) StopCleanup() {
	if r.stopCh != nil {
		close(r.stopCh)
		r.stopCh = nil
	}
}
