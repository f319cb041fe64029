// Package models defines the JSON shapes exchanged with the browser client.
//
//   - [GenerationRequest] : playlist generation input, validated before any upstream call
//   - [GenerationResult] : the created playlist's link, name, auth mode and track count
//   - [AuthStatus] : whether the session is logged in and whether demo mode is available
//   - [Artist] : a trimmed artist search result
package models
