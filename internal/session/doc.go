// Package session ties per-user token state to an HTTP session cookie.
//
// Sessions are managed by scs with either an in-memory store or the sqlite-backed
// [repositories.SessionRepository]. Each request binds a [Handle] that the auth package uses as its session
// capability; nothing outside the handle reads or writes the token keys.
package session
