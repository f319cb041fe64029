// Spotify Web API client used by the proxy.
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/vibe/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/spotify"
	"golang.org/x/time/rate"
)

// Scopes requested during the authorization code flow.
var Scopes = []string{"playlist-modify-public", "playlist-modify-private"}

const (
	TrackSearchLimit  = 15
	ArtistSearchLimit = 10
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Genres     []string       `json:"genres"`
	Popularity int            `json:"popularity"`
	Images     []SpotifyImage `json:"images"`
	URI        string         `json:"uri"`
}

// SpotifyTrack represents a Spotify track. Only the URI is needed to add it to a playlist.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyPlaylist represents a newly created playlist.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Public       bool         `json:"public"`
	URI          string       `json:"uri"`
	ExternalURLs externalURLs `json:"external_urls"`
}

// URL returns the web player link for the playlist.
func (p SpotifyPlaylist) URL() string {
	return p.ExternalURLs.Spotify
}

// Token is the result of an authorization code exchange or refresh.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// SpotifyService talks to the Spotify accounts service and Web API on behalf of a bearer token supplied per call.
//
// The service holds no token state of its own; callers resolve a token first and pass it in.
type SpotifyService struct {
	config     *oauth2.Config
	apiURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyService creates a new Spotify service from the process-wide credential set and upstream limits.
func NewSpotifyService(creds shared.SpotifyConfig, upstream shared.UpstreamConfig) (*SpotifyService, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingConfig)
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingConfig)
	}

	endpoint := spotify.Endpoint
	if accountsURL := strings.TrimRight(creds.AccountsURL, "/"); accountsURL != "" {
		endpoint.AuthURL = accountsURL + "/authorize"
		endpoint.TokenURL = accountsURL + "/api/token"
	}
	endpoint.AuthStyle = oauth2.AuthStyleInHeader

	apiURL := strings.TrimRight(creds.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.spotify.com/v1"
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       Scopes,
		Endpoint:     endpoint,
	}

	limit := rate.Inf
	if upstream.RequestsPerSecond > 0 {
		limit = rate.Limit(upstream.RequestsPerSecond)
	}
	burst := upstream.Burst
	if burst <= 0 {
		burst = 1
	}

	return &SpotifyService{
		config:     config,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: upstream.Timeout()},
		limiter:    rate.NewLimiter(limit, burst),
	}, nil
}

// SetHTTPClient replaces the client used for both the accounts service and the Web API.
func (s *SpotifyService) SetHTTPClient(c *http.Client) {
	s.httpClient = c
}

// AuthCodeURL returns the authorization URL for user login. The consent dialog is always shown.
func (s *SpotifyService) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// Exchange trades an authorization code for tokens.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*Token, error) {
	tok, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, tokenError("exchange authorization code", err)
	}
	return newToken(tok), nil
}

// Refresh obtains a new access token from a refresh token.
//
// The returned refresh token is the rotated one when the accounts service issued a new token, otherwise the one passed in.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	src := s.config.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, tokenError("refresh access token", err)
	}

	out := newToken(tok)
	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	return out, nil
}

// SearchTracks runs a track search and returns at most limit results.
func (s *SpotifyService) SearchTracks(ctx context.Context, token, query string, limit int) ([]SpotifyTrack, error) {
	var response struct {
		Tracks struct {
			Items []SpotifyTrack `json:"items"`
		} `json:"tracks"`
	}

	if err := s.doRequest(ctx, token, http.MethodGet, searchEndpoint(query, "track", limit), nil, &response); err != nil {
		return nil, err
	}
	return response.Tracks.Items, nil
}

// SearchArtists runs an artist search and returns at most limit results.
func (s *SpotifyService) SearchArtists(ctx context.Context, token, query string, limit int) ([]SpotifyArtist, error) {
	var response struct {
		Artists struct {
			Items []SpotifyArtist `json:"items"`
		} `json:"artists"`
	}

	if err := s.doRequest(ctx, token, http.MethodGet, searchEndpoint(query, "artist", limit), nil, &response); err != nil {
		return nil, err
	}
	return response.Artists.Items, nil
}

// CurrentUser retrieves the profile of the token owner.
func (s *SpotifyService) CurrentUser(ctx context.Context, token string) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, token, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreatePlaylist creates a public playlist owned by userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, token, userID, name string) (*SpotifyPlaylist, error) {
	body := map[string]any{"name": name, "public": true}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, token, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// AddTracks appends uris to a playlist in a single call.
func (s *SpotifyService) AddTracks(ctx context.Context, token, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return fmt.Errorf("%w: no track URIs provided", shared.ErrValidation)
	}
	if len(uris) > 100 {
		return fmt.Errorf("%w: maximum 100 track URIs allowed", shared.ErrValidation)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, token, http.MethodPost, endpoint, map[string]any{"uris": uris}, nil)
}

// UnfollowPlaylist removes the playlist from the token owner's library, which is how Spotify deletes playlists.
func (s *SpotifyService) UnfollowPlaylist(ctx context.Context, token, playlistID string) error {
	endpoint := fmt.Sprintf("/playlists/%s/followers", url.PathEscape(playlistID))
	return s.doRequest(ctx, token, http.MethodDelete, endpoint, nil, nil)
}

// doRequest performs an authenticated HTTP request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, token, method, endpoint string, body, result any) error {
	if token == "" {
		return fmt.Errorf("%w: missing bearer token", shared.ErrNoCredentials)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return classify(err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.apiURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newUpstreamError(resp.StatusCode, data)
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrUpstreamAPI, err)
		}
	}

	return nil
}

// oauthContext makes the oauth2 package use the service's HTTP client.
func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

func searchEndpoint(query, kind string, limit int) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("type", kind)
	v.Set("limit", strconv.Itoa(limit))
	return "/search?" + v.Encode()
}

func newToken(tok *oauth2.Token) *Token {
	out := &Token{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	switch {
	case tok.ExpiresIn > 0:
		out.ExpiresIn = time.Duration(tok.ExpiresIn) * time.Second
	case !tok.Expiry.IsZero():
		out.ExpiresIn = time.Until(tok.Expiry).Round(time.Second)
	}
	return out
}

// tokenError wraps accounts service failures with [shared.ErrUpstreamAuth], keeping the upstream error_description.
func tokenError(action string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %s: %v", shared.ErrUpstreamTimeout, action, err)
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		desc := re.ErrorDescription
		if desc == "" {
			desc = re.ErrorCode
		}
		if desc == "" && re.Response != nil {
			desc = re.Response.Status
		}
		return &AuthError{Description: desc, err: fmt.Errorf("%w: %s: %s", shared.ErrUpstreamAuth, action, desc)}
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrUpstreamAuth, action, err)
}
