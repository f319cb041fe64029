// Package repositories implements SQLite persistence for browser sessions.
//
// [SessionRepository] satisfies the scs Store interface so the session manager can keep sessions in the
// sessions table created by the shared migrations. Expired rows are never returned by [SessionRepository.Find]
// and are removed periodically by the goroutine started with [SessionRepository.StartCleanup].
package repositories
