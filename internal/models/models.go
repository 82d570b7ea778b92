package models

import "fmt"

// SourceTrack is one (playlist, track) row from the Spotify export file.
// Immutable once loaded; ISRC may be blank.
type SourceTrack struct {
	PlaylistID   string
	PlaylistName string
	TrackName    string
	ArtistNames  string // raw joined string, e.g. "Artist A, Artist B"
	AlbumName    string
	ISRC         string
}

// Key returns the composite key used to deduplicate add attempts within a run.
func (t SourceTrack) Key() string {
	return t.TrackName + "|" + t.ArtistNames
}

// AlbumRef identifies the album a candidate track belongs to.
type AlbumRef struct {
	ID   string
	Name string
}

// Candidate is a track returned by a Tidal search. It lives only for the
// duration of the resolver call that fetched it.
type Candidate struct {
	ID    string
	Name  string
	ISRC  string
	Album AlbumRef
}

// Playlist is a Tidal playlist handle.
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
}

// Reason codes for unresolved tracks. The strings are written verbatim to
// the ledger, so they are part of the output contract.
const (
	ReasonNoISRC   = "isrc blank in input"
	ReasonNotFound = "track not found on Tidal"
)

// SearchErrorReason formats the ledger reason for a failed resolution.
func SearchErrorReason(err error) string {
	return fmt.Sprintf("search error: %v", err)
}

// AddErrorReason formats the ledger reason for an add that failed after retries.
func AddErrorReason(err error) string {
	return fmt.Sprintf("error after retries: %v", err)
}

// MatchResult is the outcome of resolving one source track: either a matched
// candidate or an unresolved reason code.
type MatchResult struct {
	Track  *Candidate
	Reason string
}

// Matched reports whether the result carries a destination track.
func (r MatchResult) Matched() bool { return r.Track != nil }

// Matched wraps a candidate in a successful MatchResult.
func Matched(c *Candidate) MatchResult {
	return MatchResult{Track: c}
}

// Unresolved builds a MatchResult carrying only a reason code.
func Unresolved(reason string) MatchResult {
	return MatchResult{Reason: reason}
}

// UnresolvedEntry is one row of the durable unresolved-track ledger.
type UnresolvedEntry struct {
	PlaylistName string
	TrackName    string
	ArtistNames  string
	AlbumName    string
	ISRC         string
	Reason       string
}

// NewUnresolvedEntry builds a ledger row for the given source track and reason.
func NewUnresolvedEntry(track SourceTrack, reason string) UnresolvedEntry {
	return UnresolvedEntry{
		PlaylistName: track.PlaylistName,
		TrackName:    track.TrackName,
		ArtistNames:  track.ArtistNames,
		AlbumName:    track.AlbumName,
		ISRC:         track.ISRC,
		Reason:       reason,
	}
}
