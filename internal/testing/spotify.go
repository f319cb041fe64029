package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/vibe/internal/shared"
)

// Endpoint keys for [FakeSpotify.Calls] and [FakeSpotify.Fail].
const (
	EndpointToken    = "token"
	EndpointSearch   = "search"
	EndpointMe       = "me"
	EndpointCreate   = "create_playlist"
	EndpointAdd      = "add_tracks"
	EndpointUnfollow = "unfollow"
)

const (
	FakeClientID     = "fake-client-id"
	FakeClientSecret = "fake-client-secret"
	FakeUserID       = "fake-user"
)

// FakeTrack is a track served by [FakeSpotify] search.
type FakeTrack struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// FakeArtist is an artist served by [FakeSpotify] search.
type FakeArtist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
}

// FakeSpotify is an in-process stand-in for the Spotify accounts service and Web API.
//
// Accounts endpoints live at the server root and the Web API under /v1.
type FakeSpotify struct {
	Server *httptest.Server

	mu            sync.Mutex
	tracks        map[string][]FakeTrack
	artists       []FakeArtist
	codes         map[string]bool
	refreshTokens map[string]bool
	rotate        bool
	expiresIn     int
	issued        int
	calls         map[string]int
	fail          map[string]int
	failArtist    map[string]int
	delay         time.Duration
	queries       []string
	added         [][]string
	unfollowed    []string
	grants        []string
}

// NewFakeSpotify starts a fake upstream that is closed when the test ends.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()

	f := &FakeSpotify{
		tracks:        make(map[string][]FakeTrack),
		codes:         make(map[string]bool),
		refreshTokens: make(map[string]bool),
		expiresIn:     3600,
		calls:         make(map[string]int),
		fail:          make(map[string]int),
		failArtist:    make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", f.handleToken)
	mux.HandleFunc("GET /v1/search", f.handleSearch)
	mux.HandleFunc("GET /v1/me", f.handleMe)
	mux.HandleFunc("POST /v1/users/{user}/playlists", f.handleCreatePlaylist)
	mux.HandleFunc("POST /v1/playlists/{id}/tracks", f.handleAddTracks)
	mux.HandleFunc("DELETE /v1/playlists/{id}/followers", f.handleUnfollow)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// Credentials returns a credential set pointing at the fake.
func (f *FakeSpotify) Credentials() shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:     FakeClientID,
		ClientSecret: FakeClientSecret,
		RedirectURI:  "http://127.0.0.1:3000/callback",
		AccountsURL:  f.Server.URL,
		APIURL:       f.Server.URL + "/v1",
	}
}

// IssueCode registers a single-use authorization code.
func (f *FakeSpotify) IssueCode(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[code] = true
}

// AddRefreshToken registers a refresh token accepted by the token endpoint.
func (f *FakeSpotify) AddRefreshToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshTokens[token] = true
}

// RotateRefreshTokens makes refresh grants return a new refresh token.
func (f *FakeSpotify) RotateRefreshTokens(rotate bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotate = rotate
}

// SetExpiresIn sets the expires_in seconds reported for new access tokens.
func (f *FakeSpotify) SetExpiresIn(seconds int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiresIn = seconds
}

// SetTracks makes a track search for artist return n distinct tracks.
func (f *FakeSpotify) SetTracks(artist string, n int) {
	slug := strings.ToLower(strings.ReplaceAll(artist, " ", "-"))
	tracks := make([]FakeTrack, n)
	for i := range tracks {
		id := fmt.Sprintf("%s-%d", slug, i)
		tracks[i] = FakeTrack{ID: id, Name: fmt.Sprintf("%s song %d", artist, i), URI: "spotify:track:" + id}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks[artist] = tracks
}

// SetArtists sets the result of every artist search.
func (f *FakeSpotify) SetArtists(artists ...FakeArtist) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artists = artists
}

// Fail makes the endpoint answer with status until reset with status 0.
func (f *FakeSpotify) Fail(endpoint string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.fail, endpoint)
		return
	}
	f.fail[endpoint] = status
}

// FailArtist makes track searches for one artist answer with status.
func (f *FakeSpotify) FailArtist(artist string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failArtist[artist] = status
}

// SetDelay delays every response.
func (f *FakeSpotify) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// Calls returns how many requests reached endpoint.
func (f *FakeSpotify) Calls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

// TotalCalls returns the number of requests across all endpoints.
func (f *FakeSpotify) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// Queries returns the search queries received, in order.
func (f *FakeSpotify) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// Grants returns the grant_type of every token request, in order.
func (f *FakeSpotify) Grants() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.grants...)
}

// AddedURIs returns the URIs sent in every add-tracks call.
func (f *FakeSpotify) AddedURIs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.added...)
}

// Unfollowed returns the IDs of playlists that were unfollowed.
func (f *FakeSpotify) Unfollowed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unfollowed...)
}

// begin records the call and reports a configured failure status.
func (f *FakeSpotify) begin(endpoint string) int {
	f.mu.Lock()
	f.calls[endpoint]++
	status := f.fail[endpoint]
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return status
}

func (f *FakeSpotify) handleToken(w http.ResponseWriter, r *http.Request) {
	if status := f.begin(EndpointToken); status != 0 {
		writeFakeJSON(w, status, map[string]string{"error": "server_error", "error_description": "token endpoint unavailable"})
		return
	}

	id, secret, ok := r.BasicAuth()
	if !ok || id != FakeClientID || secret != FakeClientSecret {
		writeFakeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client", "error_description": "Invalid client"})
		return
	}

	if err := r.ParseForm(); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	grant := r.PostForm.Get("grant_type")
	f.grants = append(f.grants, grant)
	f.issued++

	resp := map[string]any{
		"access_token": fmt.Sprintf("access-%d", f.issued),
		"token_type":   "Bearer",
		"expires_in":   f.expiresIn,
		"scope":        "playlist-modify-public playlist-modify-private",
	}

	switch grant {
	case "authorization_code":
		code := r.PostForm.Get("code")
		if !f.codes[code] {
			writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid authorization code"})
			return
		}
		delete(f.codes, code)
		rt := fmt.Sprintf("refresh-%d", f.issued)
		f.refreshTokens[rt] = true
		resp["refresh_token"] = rt
	case "refresh_token":
		rt := r.PostForm.Get("refresh_token")
		if !f.refreshTokens[rt] {
			writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Invalid refresh token"})
			return
		}
		if f.rotate {
			next := fmt.Sprintf("refresh-%d", f.issued)
			f.refreshTokens[next] = true
			resp["refresh_token"] = next
		}
	default:
		writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	writeFakeJSON(w, http.StatusOK, resp)
}

func (f *FakeSpotify) handleSearch(w http.ResponseWriter, r *http.Request) {
	if status := f.begin(EndpointSearch); status != 0 {
		writeAPIError(w, status, "search unavailable")
		return
	}
	if !hasBearer(r) {
		writeAPIError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	q := r.URL.Query()
	query := q.Get("q")
	limit, _ := strconv.Atoi(q.Get("limit"))

	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	switch q.Get("type") {
	case "track":
		artist := artistFromQuery(query)

		f.mu.Lock()
		status := f.failArtist[artist]
		items := append([]FakeTrack(nil), f.tracks[artist]...)
		f.mu.Unlock()

		if status != 0 {
			writeAPIError(w, status, "search failed")
			return
		}
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		writeFakeJSON(w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": items}})
	case "artist":
		f.mu.Lock()
		items := append([]FakeArtist(nil), f.artists...)
		f.mu.Unlock()

		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		writeFakeJSON(w, http.StatusOK, map[string]any{"artists": map[string]any{"items": items}})
	default:
		writeAPIError(w, http.StatusBadRequest, "unsupported search type")
	}
}

func (f *FakeSpotify) handleMe(w http.ResponseWriter, r *http.Request) {
	if status := f.begin(EndpointMe); status != 0 {
		writeAPIError(w, status, "profile unavailable")
		return
	}
	if !hasBearer(r) {
		writeAPIError(w, http.StatusUnauthorized, "No token provided")
		return
	}
	writeFakeJSON(w, http.StatusOK, map[string]string{"id": FakeUserID, "display_name": "Fake User"})
}

func (f *FakeSpotify) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	if status := f.begin(EndpointCreate); status != 0 {
		writeAPIError(w, status, "playlist creation failed")
		return
	}

	var body struct {
		Name   string `json:"name"`
		Public bool   `json:"public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid body")
		return
	}

	id := "playlist-" + r.PathValue("user")
	writeFakeJSON(w, http.StatusCreated, map[string]any{
		"id":            id,
		"name":          body.Name,
		"public":        body.Public,
		"uri":           "spotify:playlist:" + id,
		"external_urls": map[string]string{"spotify": "https://open.spotify.com/playlist/" + id},
	})
}

func (f *FakeSpotify) handleAddTracks(w http.ResponseWriter, r *http.Request) {
	if status := f.begin(EndpointAdd); status != 0 {
		writeAPIError(w, status, "adding tracks failed")
		return
	}

	var body struct {
		URIs []string `json:"uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	f.added = append(f.added, body.URIs)
	f.mu.Unlock()

	writeFakeJSON(w, http.StatusCreated, map[string]string{"snapshot_id": "snapshot"})
}

func (f *FakeSpotify) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	if status := f.begin(EndpointUnfollow); status != 0 {
		writeAPIError(w, status, "unfollow failed")
		return
	}

	f.mu.Lock()
	f.unfollowed = append(f.unfollowed, r.PathValue("id"))
	f.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

func hasBearer(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") && len(r.Header.Get("Authorization")) > len("Bearer ")
}

// artistFromQuery extracts X from `artist:"X"`.
func artistFromQuery(q string) string {
	_, rest, ok := strings.Cut(q, `artist:"`)
	if !ok {
		return q
	}
	artist, _, _ := strings.Cut(rest, `"`)
	return artist
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	writeFakeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": msg}})
}

func writeFakeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
