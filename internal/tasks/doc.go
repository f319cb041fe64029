// Package tasks builds playlists from artist searches with real-time progress reporting.
//
// # Generation
//
// [Generator.Generate] runs one logical request against the upstream catalog:
//
//  1. search tracks for each artist (`artist:"<name>"`, optionally `year:<start>-<end>`), skipping failed searches
//  2. merge results in artist order into one pool without duplicate URIs
//  3. shuffle the pool (Fisher-Yates) and take up to the requested count
//  4. fetch the caller's profile, create a public playlist and add the tracks in one call
//
// Step 4 is not retried. When adding tracks fails the freshly created playlist is unfollowed so no empty playlist is
// left behind.
//
// # Concurrency
//
// Artist searches run through an errgroup bounded by the configured search concurrency; the default of 1 keeps them
// sequential. Results are merged in artist order either way.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
package tasks
