package tasks

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"testing"

	"github.com/desertthunder/vibe/internal/auth"
	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
	tu "github.com/desertthunder/vibe/internal/testing"
)

var demo = auth.Resolution{Mode: auth.ModeDemo, Token: "token"}

func intPtr(n int) *int { return &n }

func newTestGenerator(t *testing.T, concurrency int) (*Generator, *tu.FakeSpotify) {
	t.Helper()
	fake := tu.NewFakeSpotify(t)
	srv, err := services.NewSpotifyService(fake.Credentials(), shared.UpstreamConfig{})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return NewGenerator(srv, concurrency, nil), fake
}

func TestGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("Road Trip", func(t *testing.T) {
		g, fake := newTestGenerator(t, 1)
		fake.SetTracks("Queen", 10)

		req := models.GenerationRequest{Name: "Road Trip", Artists: []string{"Queen"}, SongCount: intPtr(5)}
		result, err := g.Generate(ctx, req, demo, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.URL == "" {
			t.Error("expected playlist url")
		}
		if result.Name != "Road Trip" || result.Mode != "demo" || result.TrackCount != 5 {
			t.Errorf("unexpected result %+v", result)
		}

		added := fake.AddedURIs()
		if len(added) != 1 {
			t.Fatalf("expected one insertion call, got %d", len(added))
		}
		uris := added[0]
		if len(uris) != 5 {
			t.Fatalf("expected 5 uris, got %d", len(uris))
		}
		unique := slices.Compact(slices.Sorted(slices.Values(uris)))
		if len(unique) != 5 {
			t.Errorf("expected 5 unique uris, got %v", uris)
		}
	})

	t.Run("Selection Size", func(t *testing.T) {
		tc := []struct {
			name    string
			artists map[string]int
			count   int
			want    int
		}{
			{name: "small pool", artists: map[string]int{"A": 3}, count: 20, want: 3},
			{name: "count below pool", artists: map[string]int{"A": 10, "B": 10}, count: 7, want: 7},
			{name: "search limit caps pool", artists: map[string]int{"A": 40}, count: 100, want: services.TrackSearchLimit},
			{name: "two artists", artists: map[string]int{"A": 15, "B": 15}, count: 20, want: 20},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				g, fake := newTestGenerator(t, 1)
				var artists []string
				for artist, n := range tt.artists {
					fake.SetTracks(artist, n)
					artists = append(artists, artist)
				}

				req := models.GenerationRequest{Artists: artists, SongCount: intPtr(tt.count)}
				result, err := g.Generate(ctx, req, demo, nil)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if result.TrackCount != tt.want {
					t.Errorf("expected %d tracks, got %d", tt.want, result.TrackCount)
				}
				if added := fake.AddedURIs(); len(added) != 1 || len(added[0]) != tt.want {
					t.Errorf("expected %d uris inserted, got %v", tt.want, added)
				}
			})
		}
	})

	t.Run("Default Name", func(t *testing.T) {
		g, fake := newTestGenerator(t, 1)
		fake.SetTracks("Queen", 3)

		result, err := g.Generate(ctx, models.GenerationRequest{Artists: []string{"Queen"}}, demo, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Name != models.DefaultPlaylistName {
			t.Errorf("expected default name, got %q", result.Name)
		}
	})

	t.Run("Year Filter", func(t *testing.T) {
		g, fake := newTestGenerator(t, 1)
		fake.SetTracks("Queen", 3)

		req := models.GenerationRequest{Artists: []string{"Queen"}, StartYear: intPtr(1970), EndYear: intPtr(1979)}
		if _, err := g.Generate(ctx, req, demo, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		queries := fake.Queries()
		if len(queries) != 1 || queries[0] != `artist:"Queen" year:1970-1979` {
			t.Errorf("unexpected queries %v", queries)
		}
	})

	t.Run("Failed Search Is Skipped", func(t *testing.T) {
		g, fake := newTestGenerator(t, 1)
		fake.SetTracks("Broken", 5)
		fake.FailArtist("Broken", http.StatusInternalServerError)
		fake.SetTracks("Queen", 4)

		req := models.GenerationRequest{Artists: []string{"Broken", "Queen"}, SongCount: intPtr(10)}
		result, err := g.Generate(ctx, req, demo, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TrackCount != 4 {
			t.Errorf("expected only the working artist's 4 tracks, got %d", result.TrackCount)
		}
	})

	t.Run("Duplicate Tracks Are Merged", func(t *testing.T) {
		g, fake := newTestGenerator(t, 1)
		fake.SetTracks("Queen", 4)

		req := models.GenerationRequest{Artists: []string{"Queen", "Queen"}, SongCount: intPtr(10)}
		result, err := g.Generate(ctx, req, demo, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TrackCount != 4 {
			t.Errorf("expected 4 unique tracks, got %d", result.TrackCount)
		}
	})

	t.Run("No Tracks Found", func(t *testing.T) {
		g, fake := newTestGenerator(t, 1)

		_, err := g.Generate(ctx, models.GenerationRequest{Artists: []string{"Nobody"}}, demo, nil)
		if !errors.Is(err, shared.ErrNoTracksFound) {
			t.Fatalf("expected ErrNoTracksFound, got %v", err)
		}
		if fake.Calls(tu.EndpointMe) != 0 || fake.Calls(tu.EndpointCreate) != 0 {
			t.Error("expected no calls after an empty selection")
		}
	})

	t.Run("Validation Before Upstream Calls", func(t *testing.T) {
		tc := []struct {
			name string
			req  models.GenerationRequest
		}{
			{name: "empty artists", req: models.GenerationRequest{Artists: []string{}}},
			{name: "song count 150", req: models.GenerationRequest{Artists: []string{"Queen"}, SongCount: intPtr(150)}},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				g, fake := newTestGenerator(t, 1)

				_, err := g.Generate(ctx, tt.req, demo, nil)
				if !errors.Is(err, shared.ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				if fake.TotalCalls() != 0 {
					t.Errorf("expected no upstream calls, got %d", fake.TotalCalls())
				}
			})
		}
	})

	t.Run("Profile Failure Aborts", func(t *testing.T) {
		g, fake := newTestGenerator(t, 1)
		fake.SetTracks("Queen", 5)
		fake.Fail(tu.EndpointMe, http.StatusBadGateway)

		_, err := g.Generate(ctx, models.GenerationRequest{Artists: []string{"Queen"}}, demo, nil)
		if !errors.Is(err, shared.ErrGenerateFailed) || !errors.Is(err, shared.ErrUpstreamAPI) {
			t.Fatalf("expected ErrGenerateFailed wrapping ErrUpstreamAPI, got %v", err)
		}
		if fake.Calls(tu.EndpointCreate) != 0 {
			t.Error("expected no playlist to be created")
		}
	})

	t.Run("Insert Failure Rolls Back", func(t *testing.T) {
		g, fake := newTestGenerator(t, 1)
		fake.SetTracks("Queen", 5)
		fake.Fail(tu.EndpointAdd, http.StatusInternalServerError)

		progress := make(chan ProgressUpdate, 32)
		_, err := g.Generate(ctx, models.GenerationRequest{Artists: []string{"Queen"}}, demo, progress)
		if !errors.Is(err, shared.ErrGenerateFailed) {
			t.Fatalf("expected ErrGenerateFailed, got %v", err)
		}
		if fake.Calls(tu.EndpointAdd) != 1 {
			t.Errorf("expected exactly one insertion attempt, got %d", fake.Calls(tu.EndpointAdd))
		}
		if unfollowed := fake.Unfollowed(); len(unfollowed) != 1 {
			t.Errorf("expected the playlist to be unfollowed, got %v", unfollowed)
		}

		close(progress)
		var sawRollback bool
		for update := range progress {
			if update.Phase == Rollback {
				sawRollback = true
			}
		}
		if !sawRollback {
			t.Error("expected a rollback progress update")
		}
	})

	t.Run("Parallel Searches Keep Every Artist", func(t *testing.T) {
		g, fake := newTestGenerator(t, 4)
		artists := []string{"A", "B", "C", "D"}
		for _, a := range artists {
			fake.SetTracks(a, 2)
		}

		result, err := g.Generate(ctx, models.GenerationRequest{Artists: artists, SongCount: intPtr(100)}, demo, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TrackCount != 8 {
			t.Errorf("expected 8 tracks, got %d", result.TrackCount)
		}
		if n := fake.Calls(tu.EndpointSearch); n != 4 {
			t.Errorf("expected 4 searches, got %d", n)
		}
	})

	t.Run("Progress", func(t *testing.T) {
		g, fake := newTestGenerator(t, 1)
		fake.SetTracks("Queen", 5)

		progress := make(chan ProgressUpdate, 32)
		result, err := g.Generate(ctx, models.GenerationRequest{Artists: []string{"Queen"}}, demo, progress)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(progress)

		var phases []Phase
		var last ProgressUpdate
		for update := range progress {
			phases = append(phases, update.Phase)
			last = update
		}

		want := []Phase{SearchTracks, SelectTracks, FetchUser, CreatePlaylist, AddTracks, Done}
		if !slices.Equal(phases, want) {
			t.Errorf("expected phases %v, got %v", want, phases)
		}
		if last.Data != result {
			t.Error("expected the final update to carry the result")
		}
	})

	t.Run("Full Progress Channel Does Not Block", func(t *testing.T) {
		g, fake := newTestGenerator(t, 1)
		fake.SetTracks("Queen", 5)

		progress := make(chan ProgressUpdate)
		if _, err := g.Generate(ctx, models.GenerationRequest{Artists: []string{"Queen"}}, demo, progress); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestQuery(t *testing.T) {
	if got := Query("Queen", ""); got != `artist:"Queen"` {
		t.Errorf("unexpected query %s", got)
	}
	if got := Query("The Beatles", "1960-1969"); got != `artist:"The Beatles" year:1960-1969` {
		t.Errorf("unexpected query %s", got)
	}
}

func TestSampleIsUniform(t *testing.T) {
	g := NewGenerator(nil, 1, nil)
	counts := make(map[string]int)

	const rounds = 3000
	for range rounds {
		pool := []services.SpotifyTrack{{URI: "a"}, {URI: "b"}, {URI: "c"}}
		counts[g.sample(pool, 1)[0]]++
	}

	for uri, n := range counts {
		if n < rounds/3-300 || n > rounds/3+300 {
			t.Errorf("uri %s picked %d times out of %d, expected about %d", uri, n, rounds, rounds/3)
		}
	}
	if len(counts) != 3 {
		t.Errorf("expected every track to be picked at least once, got %v", counts)
	}
}
