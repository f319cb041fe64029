package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("missing required configuration")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrUpstreamAuth   = fmt.Errorf("upstream token exchange failed")
	ErrNoCredentials  = fmt.Errorf("no credentials available")
	ErrUpstreamDenied = fmt.Errorf("authorization denied")
	ErrMissingCode    = fmt.Errorf("missing authorization code")
	ErrStateMismatch  = fmt.Errorf("state mismatch")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// API and service errors
	ErrUpstreamAPI     = fmt.Errorf("upstream API request failed")
	ErrUpstreamTimeout = fmt.Errorf("upstream request timed out")
	ErrNoTracksFound   = fmt.Errorf("no tracks found")
	ErrGenerateFailed  = fmt.Errorf("failed to generate playlist")

	// Input validation errors
	ErrValidation = fmt.Errorf("invalid request")
)
