// Tidal API implementation of [Session]
//
// Tidal API response types based on the v1 desktop/web API.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"autotidal/internal/models"
	"autotidal/internal/shared"
)

const (
	tidalDeviceAuthURL = "https://auth.tidal.com/v1/oauth2/device_authorization"
	tidalTokenURL      = "https://auth.tidal.com/v1/oauth2/token"
	tidalAPIBaseURL    = "https://api.tidal.com/v1"

	searchLimit = 10
)

// tidalArtist represents an artist reference in the Tidal API.
type tidalArtist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// tidalAlbum represents an album reference in the Tidal API.
type tidalAlbum struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// tidalTrack represents a track in the Tidal API.
type tidalTrack struct {
	ID      int64         `json:"id"`
	Title   string        `json:"title"`
	ISRC    string        `json:"isrc"`
	Album   tidalAlbum    `json:"album"`
	Artists []tidalArtist `json:"artists"`
}

// tidalPlaylist represents a playlist in the Tidal API. Playlists are keyed
// by UUID, unlike tracks and albums.
type tidalPlaylist struct {
	UUID           string `json:"uuid"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	NumberOfTracks int    `json:"numberOfTracks"`
}

// tidalPage is the paginated envelope common to Tidal list responses.
type tidalPage[T any] struct {
	Items      []T `json:"items"`
	TotalItems int `json:"totalNumberOfItems"`
}

type tidalSessionInfo struct {
	UserID      int64  `json:"userId"`
	CountryCode string `json:"countryCode"`
}

// TidalSession implements [Session] for the Tidal API. All requests go
// through a rate limiter so resolution bursts stay inside Tidal's limits,
// and through a single token field so Reauthenticate can swap credentials
// without invalidating anything a caller holds.
type TidalSession struct {
	config      *oauth2.Config
	token       *oauth2.Token
	tokenPath   string
	countryCode string
	userID      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *log.Logger
	prompt      io.Writer

	// baseURL is swapped for an httptest server in tests.
	baseURL string
}

// NewTidalSession creates a Tidal session from config. A previously saved
// token is loaded from disk if present; otherwise the session starts
// unauthenticated and LoginDevice must be called.
func NewTidalSession(cfg shared.TidalConfig, logger *log.Logger) (*TidalSession, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: tidal client_id", shared.ErrMissingCredentials)
	}

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{"r_usr", "w_usr"},
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: tidalDeviceAuthURL,
			TokenURL:      tidalTokenURL,
		},
	}

	s := &TidalSession{
		config:      oauthCfg,
		tokenPath:   cfg.TokenPath,
		countryCode: cfg.CountryCode,
		httpClient:  http.DefaultClient,
		limiter:     rate.NewLimiter(rate.Limit(4), 8),
		logger:      logger,
		prompt:      os.Stderr,
		baseURL:     tidalAPIBaseURL,
	}

	if token, err := loadToken(cfg.TokenPath); err == nil {
		s.token = token
	}

	return s, nil
}

// SetPromptWriter redirects the device-login instructions, which default to stderr.
func (s *TidalSession) SetPromptWriter(w io.Writer) {
	s.prompt = w
}

// LoginDevice runs the OAuth2 device-code flow: it prints a verification URL
// and user code, then blocks polling the token endpoint until the user
// approves or ctx expires. The token is persisted for future sessions.
func (s *TidalSession) LoginDevice(ctx context.Context) error {
	resp, err := s.config.DeviceAuth(ctx)
	if err != nil {
		return fmt.Errorf("%w: device authorization: %v", shared.ErrAuthFailed, err)
	}

	uri := resp.VerificationURIComplete
	if uri == "" {
		uri = resp.VerificationURI
	}
	fmt.Fprintf(s.prompt, "Visit %s and enter code %s to link this device.\n", uri, resp.UserCode)

	token, err := s.config.DeviceAccessToken(ctx, resp)
	if err != nil {
		return fmt.Errorf("%w: device token: %v", shared.ErrAuthFailed, err)
	}

	s.token = token
	if err := saveToken(s.tokenPath, token); err != nil {
		s.logger.Warn("failed to persist token", "path", s.tokenPath, "error", err)
	}

	return s.loadSessionInfo(ctx)
}

// Reauthenticate runs the device flow again and swaps the session token in
// place. Callers holding this session see the new credentials immediately.
func (s *TidalSession) Reauthenticate(ctx context.Context) error {
	s.token = nil
	return s.LoginDevice(ctx)
}

// CheckLogin reports whether the stored token is accepted by the API.
func (s *TidalSession) CheckLogin(ctx context.Context) bool {
	if s.token == nil {
		return false
	}
	return s.loadSessionInfo(ctx) == nil
}

// loadSessionInfo resolves the authenticated user id and country code.
func (s *TidalSession) loadSessionInfo(ctx context.Context) error {
	var info tidalSessionInfo
	if err := s.doRequest(ctx, "GET", "/sessions", nil, nil, &info); err != nil {
		return err
	}

	s.userID = strconv.FormatInt(info.UserID, 10)
	if s.countryCode == "" {
		s.countryCode = info.CountryCode
	}
	return nil
}

// SearchTracks returns ranked track candidates for a free-text query.
func (s *TidalSession) SearchTracks(ctx context.Context, query string) ([]models.Candidate, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(searchLimit))
	params.Set("countryCode", s.countryCode)

	var page tidalPage[tidalTrack]
	if err := s.doRequest(ctx, "GET", "/search/tracks", params, nil, &page); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrSearchFailed, err)
	}

	return tracksToCandidates(page.Items), nil
}

// SearchAlbums returns ranked album candidates for a free-text query.
func (s *TidalSession) SearchAlbums(ctx context.Context, query string) ([]models.AlbumRef, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(searchLimit))
	params.Set("countryCode", s.countryCode)

	var page tidalPage[tidalAlbum]
	if err := s.doRequest(ctx, "GET", "/search/albums", params, nil, &page); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrSearchFailed, err)
	}

	refs := make([]models.AlbumRef, 0, len(page.Items))
	for _, a := range page.Items {
		refs = append(refs, models.AlbumRef{ID: strconv.FormatInt(a.ID, 10), Name: a.Title})
	}
	return refs, nil
}

// AlbumTracks returns the tracks of an album in album order.
func (s *TidalSession) AlbumTracks(ctx context.Context, albumID string) ([]models.Candidate, error) {
	params := url.Values{}
	params.Set("countryCode", s.countryCode)

	var page tidalPage[tidalTrack]
	endpoint := fmt.Sprintf("/albums/%s/tracks", albumID)
	if err := s.doRequest(ctx, "GET", endpoint, params, nil, &page); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrSearchFailed, err)
	}

	return tracksToCandidates(page.Items), nil
}

// UserPlaylists lists the authenticated user's playlists.
func (s *TidalSession) UserPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if err := s.requireUser(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("limit", "50")
	params.Set("countryCode", s.countryCode)

	var page tidalPage[tidalPlaylist]
	endpoint := fmt.Sprintf("/users/%s/playlists", s.userID)
	if err := s.doRequest(ctx, "GET", endpoint, params, nil, &page); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(page.Items))
	for _, p := range page.Items {
		playlists = append(playlists, models.Playlist{
			ID:          p.UUID,
			Name:        p.Title,
			Description: p.Description,
			TrackCount:  p.NumberOfTracks,
		})
	}
	return playlists, nil
}

// CreatePlaylist creates a new playlist for the authenticated user.
func (s *TidalSession) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if err := s.requireUser(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("title", name)
	form.Set("description", description)

	var created tidalPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", s.userID)
	if err := s.doRequest(ctx, "POST", endpoint, nil, form, &created); err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:          created.UUID,
		Name:        created.Title,
		Description: created.Description,
	}, nil
}

// AddTracks appends track ids to a playlist. Tidal guards playlist writes
// with an ETag precondition, so each add first reads the playlist's current
// ETag. A 412 response is Tidal's authorization-expired signature and is
// reported wrapping [shared.ErrAuthExpired] for the engine's retry protocol.
func (s *TidalSession) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	etag, err := s.playlistETag(ctx, playlistID)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("trackIds", strings.Join(trackIDs, ","))
	form.Set("onDupes", "SKIP")

	endpoint := fmt.Sprintf("/playlists/%s/items", playlistID)
	req, err := s.newRequest(ctx, "POST", endpoint, url.Values{"countryCode": {s.countryCode}}, form)
	if err != nil {
		return err
	}
	req.Header.Set("If-None-Match", etag)

	return s.send(req, nil)
}

// playlistETag reads a playlist's current ETag header.
func (s *TidalSession) playlistETag(ctx context.Context, playlistID string) (string, error) {
	endpoint := fmt.Sprintf("/playlists/%s", playlistID)
	req, err := s.newRequest(ctx, "GET", endpoint, url.Values{"countryCode": {s.countryCode}}, nil)
	if err != nil {
		return "", err
	}

	var etag string
	err = s.sendFunc(req, nil, func(resp *http.Response) {
		etag = resp.Header.Get("ETag")
	})
	if err != nil {
		return "", err
	}
	return etag, nil
}

func (s *TidalSession) requireUser(ctx context.Context) error {
	if s.userID != "" {
		return nil
	}
	return s.loadSessionInfo(ctx)
}

// doRequest performs an authenticated request against the Tidal API and
// decodes the JSON response into result.
func (s *TidalSession) doRequest(ctx context.Context, method, endpoint string, params, form url.Values, result interface{}) error {
	req, err := s.newRequest(ctx, method, endpoint, params, form)
	if err != nil {
		return err
	}
	return s.send(req, result)
}

func (s *TidalSession) newRequest(ctx context.Context, method, endpoint string, params, form url.Values) (*http.Request, error) {
	if s.token == nil {
		return nil, shared.ErrNotAuthenticated
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	apiURL := s.baseURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	return req, nil
}

func (s *TidalSession) send(req *http.Request, result interface{}) error {
	return s.sendFunc(req, result, nil)
}

func (s *TidalSession) sendFunc(req *http.Request, result interface{}, inspect func(*http.Response)) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPreconditionFailed:
		return fmt.Errorf("%w: tidal returned status 412", shared.ErrAuthExpired)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: tidal returned status 401", shared.ErrNotAuthenticated)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: tidal API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if inspect != nil {
		inspect(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func tracksToCandidates(tracks []tidalTrack) []models.Candidate {
	candidates := make([]models.Candidate, 0, len(tracks))
	for _, t := range tracks {
		candidates = append(candidates, models.Candidate{
			ID:   strconv.FormatInt(t.ID, 10),
			Name: t.Title,
			ISRC: t.ISRC,
			Album: models.AlbumRef{
				ID:   strconv.FormatInt(t.Album.ID, 10),
				Name: t.Album.Title,
			},
		})
	}
	return candidates
}

// loadToken reads a persisted oauth2 token from disk.
func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &token, nil
}

// saveToken persists an oauth2 token to disk, readable by the owner only.
func saveToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
