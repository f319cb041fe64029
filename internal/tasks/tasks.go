// package tasks implements playlist generation against the upstream catalog.
//
// Operations emit progress updates via channels for non-blocking status reporting to the CLI.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibe/internal/auth"
	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
	"golang.org/x/sync/errgroup"
)

const rollbackTimeout = 5 * time.Second

// Catalog is the subset of the upstream API used to build a playlist.
type Catalog interface {
	SearchTracks(ctx context.Context, token, query string, limit int) ([]services.SpotifyTrack, error)
	CurrentUser(ctx context.Context, token string) (*services.SpotifyUser, error)
	CreatePlaylist(ctx context.Context, token, userID, name string) (*services.SpotifyPlaylist, error)
	AddTracks(ctx context.Context, token, playlistID string, uris []string) error
	UnfollowPlaylist(ctx context.Context, token, playlistID string) error
}

// Generator builds playlists from per-artist track searches.
type Generator struct {
	catalog     Catalog
	logger      *log.Logger
	concurrency int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a [Generator]. concurrency bounds parallel artist searches; values below 1 search sequentially.
func NewGenerator(catalog Catalog, concurrency int, logger *log.Logger) *Generator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Generator{
		catalog:     catalog,
		logger:      shared.WithLogger(logger, "component", "tasks"),
		concurrency: concurrency,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (g *Generator) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Generate searches each artist, picks a uniform random sample of the results and saves it as a new public playlist.
//
// The request is validated before any upstream call. Failed artist searches are skipped. An empty sample returns
// [shared.ErrNoTracksFound]. Failures after the search abort with [shared.ErrGenerateFailed]; if adding tracks fails
// the new playlist is unfollowed.
func (g *Generator) Generate(ctx context.Context, req models.GenerationRequest, res auth.Resolution, progress chan<- ProgressUpdate) (*models.GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pool, err := g.search(ctx, req, res.Token, progress)
	if err != nil {
		return nil, err
	}

	uris := g.sample(pool, req.Count())
	g.sendProgress(progress, selectTracksUpdate(len(uris), len(pool)))
	if len(uris) == 0 {
		return nil, fmt.Errorf("%w for %v", shared.ErrNoTracksFound, req.Artists)
	}

	g.sendProgress(progress, fetchUserUpdate())
	user, err := g.catalog.CurrentUser(ctx, res.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch current user: %w", shared.ErrGenerateFailed, err)
	}

	g.sendProgress(progress, createPlaylistUpdate(req.Name))
	playlist, err := g.catalog.CreatePlaylist(ctx, res.Token, user.ID, req.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: create playlist: %w", shared.ErrGenerateFailed, err)
	}

	g.sendProgress(progress, addTracksUpdate(len(uris)))
	if err := g.catalog.AddTracks(ctx, res.Token, playlist.ID, uris); err != nil {
		g.rollback(ctx, res.Token, playlist.ID, progress)
		return nil, fmt.Errorf("%w: add tracks: %w", shared.ErrGenerateFailed, err)
	}

	result := &models.GenerationResult{
		URL:        playlist.URL(),
		Name:       playlist.Name,
		Mode:       string(res.Mode),
		TrackCount: len(uris),
	}
	if result.Name == "" {
		result.Name = req.Name
	}

	g.logger.Info("playlist generated", "name", result.Name, "tracks", result.TrackCount, "mode", result.Mode)
	g.sendProgress(progress, doneUpdate(result, result.URL))
	return result, nil
}

// Query builds the track search query for one artist.
func Query(artist, years string) string {
	q := `artist:"` + artist + `"`
	if years != "" {
		q += " year:" + years
	}
	return q
}

// search runs one track search per artist and returns the results in artist order, without duplicate URIs.
func (g *Generator) search(ctx context.Context, req models.GenerationRequest, token string, progress chan<- ProgressUpdate) ([]services.SpotifyTrack, error) {
	total := len(req.Artists)
	results := make([][]services.SpotifyTrack, total)

	var eg errgroup.Group
	eg.SetLimit(g.concurrency)

	for i, artist := range req.Artists {
		eg.Go(func() error {
			tracks, err := g.catalog.SearchTracks(ctx, token, Query(artist, req.YearRange()), services.TrackSearchLimit)
			if err != nil {
				g.logger.Warn("artist search failed, skipping", "artist", artist, "err", err)
				g.sendProgress(progress, searchTracksUpdate(i+1, total, artist, 0, err))
				return nil
			}
			results[i] = tracks
			g.sendProgress(progress, searchTracksUpdate(i+1, total, artist, len(tracks), nil))
			return nil
		})
	}
	eg.Wait()

	if err := ctx.Err(); errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamTimeout, err)
	} else if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var pool []services.SpotifyTrack
	for _, tracks := range results {
		for _, t := range tracks {
			if t.URI == "" || seen[t.URI] {
				continue
			}
			seen[t.URI] = true
			pool = append(pool, t)
		}
	}
	return pool, nil
}

// sample shuffles pool in place (Fisher-Yates) and returns the URIs of the first n tracks.
func (g *Generator) sample(pool []services.SpotifyTrack, n int) []string {
	g.mu.Lock()
	g.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	g.mu.Unlock()

	n = min(n, len(pool))
	uris := make([]string, n)
	for i := range n {
		uris[i] = pool[i].URI
	}
	return uris
}

// rollback unfollows a playlist left empty by a failed insert. It outlives request cancellation briefly.
func (g *Generator) rollback(ctx context.Context, token, playlistID string, progress chan<- ProgressUpdate) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	err := g.catalog.UnfollowPlaylist(ctx, token, playlistID)
	if err != nil {
		g.logger.Error("failed to remove incomplete playlist", "playlist", playlistID, "err", err)
	} else {
		g.logger.Warn("removed incomplete playlist", "playlist", playlistID)
	}
	g.sendProgress(progress, rollbackUpdate(playlistID, err))
}
