// Package models defines the domain entities shared across the playlist
// generation pipeline.
//
//   - [SourceTrack] : one row of the Spotify export, read-only input
//   - [Candidate] : a track returned by a Tidal search, not yet confirmed
//   - [AlbumRef] : the album a candidate belongs to
//   - [MatchResult] : outcome of resolving one source track
//   - [Playlist] : a Tidal playlist handle
//   - [UnresolvedEntry] : a ledger row for a track that could not be migrated
package models
