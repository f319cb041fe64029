// Package services implements the upstream client for the Spotify accounts service and Web API.
//
// # Tokens
//
// [SpotifyService] never stores a token. Authorization code exchange and refresh go through [oauth2.Config] with
// HTTP Basic client authentication; every Web API call takes the bearer token resolved for the current request.
//
// # Limits
//
// Web API calls wait on a shared [rate.Limiter] and are bounded by the HTTP client timeout. Deadline and
// transport timeouts surface as [shared.ErrUpstreamTimeout].
//
// # Error Handling
//
//   - [*UpstreamError] : non-2xx Web API response, wraps [shared.ErrUpstreamAPI]
//   - [*AuthError] : token endpoint failure, wraps [shared.ErrUpstreamAuth] and keeps error_description
//   - [shared.ErrUpstreamTimeout] : the call did not complete in time
package services
