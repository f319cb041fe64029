// package models defines the request and response shapes of the vibe proxy
package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/vibe/internal/shared"
)

const (
	DefaultPlaylistName = "New Vibe Playlist"
	DefaultSongCount    = 20
	MinSongCount        = 1
	MaxSongCount        = 100
)

// GenerationRequest is the body of POST /api/generate.
type GenerationRequest struct {
	Name      string   `json:"name"`
	Artists   []string `json:"artists"`
	SongCount *int     `json:"songCount,omitempty"`
	StartYear *int     `json:"startYear,omitempty"`
	EndYear   *int     `json:"endYear,omitempty"`
}

// Normalize trims artist names, drops blanks and fills in the default name and song count.
func (r *GenerationRequest) Normalize() {
	artists := make([]string, 0, len(r.Artists))
	for _, a := range r.Artists {
		if a = strings.TrimSpace(a); a != "" {
			artists = append(artists, a)
		}
	}
	r.Artists = artists

	if r.Name = strings.TrimSpace(r.Name); r.Name == "" {
		r.Name = DefaultPlaylistName
	}
	if r.SongCount == nil {
		n := DefaultSongCount
		r.SongCount = &n
	}
}

// Validate normalizes the request and checks its invariants. Errors wrap [shared.ErrValidation].
func (r *GenerationRequest) Validate() error {
	r.Normalize()

	if len(r.Artists) == 0 {
		return fmt.Errorf("%w: at least one artist is required", shared.ErrValidation)
	}
	if n := *r.SongCount; n < MinSongCount || n > MaxSongCount {
		return fmt.Errorf("%w: songCount must be between %d and %d, got %d", shared.ErrValidation, MinSongCount, MaxSongCount, n)
	}
	if r.StartYear != nil && r.EndYear != nil && *r.StartYear > *r.EndYear {
		return fmt.Errorf("%w: startYear %d is after endYear %d", shared.ErrValidation, *r.StartYear, *r.EndYear)
	}
	return nil
}

// Count returns the requested number of songs, or the default when unset.
func (r GenerationRequest) Count() int {
	if r.SongCount == nil {
		return DefaultSongCount
	}
	return *r.SongCount
}

// YearRange returns the upstream year filter, or "" unless both bounds are set.
func (r GenerationRequest) YearRange() string {
	if r.StartYear == nil || r.EndYear == nil {
		return ""
	}
	return fmt.Sprintf("%d-%d", *r.StartYear, *r.EndYear)
}

// GenerationResult is returned by a successful generation.
type GenerationResult struct {
	URL        string `json:"url"`
	Name       string `json:"name"`
	Mode       string `json:"mode"`
	TrackCount int    `json:"trackCount"`
}

// AuthStatus is the body of GET /api/auth-status.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Mode          string `json:"mode"`
	// ExpiresAt is the user access token expiry in epoch milliseconds.
	ExpiresAt     *int64 `json:"expiresAt,omitempty"`
	DemoAvailable bool   `json:"demoAvailable"`
}

// Artist is an artist search result.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	Image      string   `json:"image,omitempty"`
}

// ArtistSearchResult is the body of GET /api/search-artists.
type ArtistSearchResult struct {
	Artists []Artist `json:"artists"`
	Mode    string   `json:"mode"`
}
