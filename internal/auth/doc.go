// Package auth owns the upstream token lifecycle.
//
// # Token Provider
//
// [Provider.Resolve] picks the credential for one request, in order:
//
//  1. the session's access token while it has not expired (no network call)
//  2. a refresh of the session's refresh token, stored back into the session
//  3. the demo account's token, refreshed from the configured service refresh token and kept in memory until expiry
//
// The result is a [Resolution] tagged [ModeUser], [ModeDemo] or [ModeNone]. Refreshes are deduplicated with
// singleflight, keyed by session id for users and by a single key for the demo account.
//
// # Handshake
//
// [Handshake.Begin] issues a signed state token (see [StateSigner]) and stores it in the session.
// [Handshake.Complete] rejects denials, missing codes and state mismatches before exchanging the code.
//
// # Sessions
//
// [Session] is implemented by the HTTP session handle in internal/session and by [MemorySession].
package auth
