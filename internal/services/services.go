// package services defines the destination-catalog interfaces and the Tidal
// HTTP implementation behind them.
package services

import (
	"context"

	"autotidal/internal/models"
)

// Searcher is the slice of the catalog the match resolver needs: ranked
// track search, ranked album search, and album track enumeration.
type Searcher interface {
	// SearchTracks returns ranked track candidates for a free-text query.
	SearchTracks(ctx context.Context, query string) ([]models.Candidate, error)

	// SearchAlbums returns ranked album candidates for a free-text query.
	SearchAlbums(ctx context.Context, query string) ([]models.AlbumRef, error)

	// AlbumTracks returns the tracks of an album in album order.
	AlbumTracks(ctx context.Context, albumID string) ([]models.Candidate, error)
}

// Session is an authenticated destination-catalog session. A Session is the
// single indirection point for credentials: Reauthenticate swaps the token
// in place, so holders of the Session never deal with stale handles.
type Session interface {
	Searcher

	// CheckLogin reports whether the session token is currently usable.
	CheckLogin(ctx context.Context) bool

	// Reauthenticate runs the login flow again and swaps the session token.
	Reauthenticate(ctx context.Context) error

	// UserPlaylists lists the authenticated user's playlists.
	UserPlaylists(ctx context.Context) ([]models.Playlist, error)

	// CreatePlaylist creates a new playlist for the authenticated user.
	CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error)

	// AddTracks appends track ids to a playlist. An authorization-expired
	// failure is reported as an error wrapping [shared.ErrAuthExpired].
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error
}
