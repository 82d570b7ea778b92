// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"autotidal/internal/models"
	"autotidal/internal/shared"
)

// MockSession is a configurable test double for [services.Session]. Zero
// value behaves as an authenticated session over an empty catalog; tests
// override the fields they care about and inspect the recorded calls.
type MockSession struct {
	Tracks    map[string][]models.Candidate // keyed by search query
	Albums    map[string][]models.AlbumRef  // keyed by search query
	ByAlbum   map[string][]models.Candidate // keyed by album id
	Playlists []models.Playlist

	SearchErr error
	CreateErr error
	// AddErrs is consumed one error per AddTracks call; nil entries succeed.
	AddErrs []error

	ReauthErr error
	LoggedIn  bool

	SearchQueries []string
	AddedTracks   map[string][]string // playlist id -> track ids, in call order
	ReauthCalls   int
	CreatedNames  []string
}

func (m *MockSession) SearchTracks(_ context.Context, query string) ([]models.Candidate, error) {
	m.SearchQueries = append(m.SearchQueries, query)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return m.Tracks[query], nil
}

func (m *MockSession) SearchAlbums(_ context.Context, query string) ([]models.AlbumRef, error) {
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return m.Albums[query], nil
}

func (m *MockSession) AlbumTracks(_ context.Context, albumID string) ([]models.Candidate, error) {
	return m.ByAlbum[albumID], nil
}

func (m *MockSession) CheckLogin(context.Context) bool { return m.LoggedIn }

func (m *MockSession) Reauthenticate(context.Context) error {
	m.ReauthCalls++
	return m.ReauthErr
}

func (m *MockSession) UserPlaylists(context.Context) ([]models.Playlist, error) {
	return m.Playlists, nil
}

func (m *MockSession) CreatePlaylist(_ context.Context, name, description string) (*models.Playlist, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.CreatedNames = append(m.CreatedNames, name)
	pl := models.Playlist{ID: shared.GenerateID(), Name: name, Description: description}
	m.Playlists = append(m.Playlists, pl)
	return &pl, nil
}

func (m *MockSession) AddTracks(_ context.Context, playlistID string, trackIDs []string) error {
	var err error
	if len(m.AddErrs) > 0 {
		err = m.AddErrs[0]
		m.AddErrs = m.AddErrs[1:]
	}
	if err != nil {
		return err
	}

	if m.AddedTracks == nil {
		m.AddedTracks = make(map[string][]string)
	}
	m.AddedTracks[playlistID] = append(m.AddedTracks[playlistID], trackIDs...)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
