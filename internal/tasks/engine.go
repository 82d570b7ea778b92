// package tasks implements the playlist reconciliation engine.
//
// The core abstraction is Engine, which recreates one source playlist on the
// destination catalog, track by track, absorbing per-track failures into the
// unresolved ledger. Operations emit progress updates via channels for
// non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"autotidal/internal/ledger"
	"autotidal/internal/matching"
	"autotidal/internal/models"
	"autotidal/internal/repositories"
	"autotidal/internal/services"
	"autotidal/internal/shared"
)

// Prompter asks the user whether to re-authenticate and retry after the
// destination API reports expired authorization mid-run.
type Prompter interface {
	ConfirmReauth(track models.SourceTrack) bool
}

// Result summarizes one playlist's reconciliation.
type Result struct {
	PlaylistName string                   // Source playlist name
	DestPlaylist *models.Playlist         // Destination playlist (created or resumed)
	Total        int                      // Tracks processed
	Added        int                      // Tracks confirmed added
	Skipped      int                      // Tracks skipped as already added
	Unresolved   []models.UnresolvedEntry // Tracks written to the ledger
}

// Engine reconciles source playlists against the destination catalog.
//
// All work is single-threaded and strictly ordered: tracks are processed in
// source order, and every catalog call blocks. Per-track failures become
// ledger entries; only user abort propagates out of a run.
type Engine struct {
	session  services.Session
	resolver *matching.Resolver
	ledger   *ledger.Ledger
	store    *repositories.StateStore
	prompt   Prompter
	logger   *log.Logger
}

// NewEngine creates an Engine. store may be nil, which disables cross-run
// resume. prompt may be nil, in which case expired authorization is treated
// as declined.
func NewEngine(session services.Session, resolver *matching.Resolver, unresolved *ledger.Ledger, store *repositories.StateStore, prompt Prompter, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "component", "engine")
	return &Engine{
		session:  session,
		resolver: resolver,
		ledger:   unresolved,
		store:    store,
		prompt:   prompt,
		logger:   logger,
	}
}

// Reconcile recreates one source playlist on the destination catalog.
//
// The destination playlist is created under a collision-free name (or reused
// from an interrupted earlier run when a resume store is configured). Tracks
// are then resolved and added in source order; anything unresolvable is
// appended to the ledger the moment it fails. The returned error is non-nil
// only for playlist setup failures and explicit user abort.
func (e *Engine) Reconcile(ctx context.Context, progress chan<- ProgressUpdate, playlistName string, tracks []models.SourceTrack) (*Result, error) {
	result := &Result{PlaylistName: playlistName, Total: len(tracks)}
	if len(tracks) == 0 {
		return result, nil
	}

	sourceID := tracks[0].PlaylistID
	dest, added, err := e.ensureDestination(ctx, sourceID, playlistName)
	if err != nil {
		return nil, err
	}
	result.DestPlaylist = dest
	e.sendProgress(progress, createPlaylistUpdate(dest, len(tracks)))

	for i, track := range tracks {
		step := i + 1
		e.sendProgress(progress, resolveTrackUpdate(step, len(tracks), track))

		if track.ISRC == "" {
			e.logUnresolved(result, track, models.ReasonNoISRC)
			e.sendProgress(progress, trackUnresolvedUpdate(step, len(tracks), track, models.ReasonNoISRC))
			continue
		}

		if _, ok := added[track.Key()]; ok {
			result.Skipped++
			e.sendProgress(progress, trackSkippedUpdate(step, len(tracks), track))
			continue
		}

		match, err := e.resolver.Resolve(ctx, track)
		if err != nil {
			reason := models.SearchErrorReason(err)
			e.logUnresolved(result, track, reason)
			e.sendProgress(progress, trackUnresolvedUpdate(step, len(tracks), track, reason))
			continue
		}

		if !match.Matched() {
			e.logUnresolved(result, track, match.Reason)
			e.sendProgress(progress, trackUnresolvedUpdate(step, len(tracks), track, match.Reason))
			continue
		}

		dest, err = e.addWithRetry(ctx, dest, track, match.Track.ID)
		if err != nil {
			if errors.Is(err, shared.ErrUserAbort) {
				return result, err
			}
			reason := models.AddErrorReason(err)
			e.logUnresolved(result, track, reason)
			e.sendProgress(progress, trackUnresolvedUpdate(step, len(tracks), track, reason))
			continue
		}

		added[track.Key()] = struct{}{}
		if err := e.store.MarkAdded(sourceID, track.Key()); err != nil {
			e.logger.Warn("failed to persist added track", "track", track.TrackName, "error", err)
		}
		result.Added++
		e.sendProgress(progress, trackAddedUpdate(step, len(tracks), track))
	}

	if err := e.store.Clear(sourceID); err != nil {
		e.logger.Warn("failed to clear run state", "playlist", playlistName, "error", err)
	}

	return result, nil
}

// ensureDestination returns the destination playlist for a source playlist,
// either resumed from an interrupted run or freshly created, together with
// the set of composite keys already confirmed added.
func (e *Engine) ensureDestination(ctx context.Context, sourceID, playlistName string) (*models.Playlist, map[string]struct{}, error) {
	state, err := e.store.Lookup(sourceID)
	if err != nil {
		e.logger.Warn("failed to read run state", "playlist", playlistName, "error", err)
	}

	if state != nil {
		if pl := e.findPlaylist(ctx, state.DestPlaylistID, state.DestPlaylistName); pl != nil {
			keys, err := e.store.AddedKeys(sourceID)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to load resume state: %w", err)
			}
			if keys == nil {
				keys = make(map[string]struct{})
			}
			e.logger.Info("resuming interrupted run", "playlist", pl.Name, "already_added", len(keys))
			return pl, keys, nil
		}
		// The recorded destination playlist is gone; start over.
		if err := e.store.Clear(sourceID); err != nil {
			e.logger.Warn("failed to clear stale run state", "playlist", playlistName, "error", err)
		}
	}

	name, err := e.uniquePlaylistName(ctx, playlistName)
	if err != nil {
		return nil, nil, err
	}

	pl, err := e.session.CreatePlaylist(ctx, name, "Migrated from Spotify")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create playlist %q: %w", name, err)
	}

	if err := e.store.Begin(sourceID, shared.GenerateID(), pl.ID, pl.Name); err != nil {
		e.logger.Warn("failed to record run state", "playlist", pl.Name, "error", err)
	}

	return pl, make(map[string]struct{}), nil
}

// uniquePlaylistName appends " version N" (N starting at 2) until the name
// collides with no existing destination playlist.
func (e *Engine) uniquePlaylistName(ctx context.Context, name string) (string, error) {
	playlists, err := e.session.UserPlaylists(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list playlists: %w", err)
	}

	taken := make(map[string]bool, len(playlists))
	for _, pl := range playlists {
		taken[pl.Name] = true
	}

	if !taken[name] {
		return name, nil
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s version %d", name, n)
		if !taken[candidate] {
			return candidate, nil
		}
	}
}

// addWithRetry adds one track to the destination playlist. When the add
// fails with the authorization-expired signature, the user is offered one
// re-authentication per track: accept re-runs the login flow, re-acquires
// the playlist handle and retries once; decline aborts the whole run with
// [shared.ErrUserAbort]. The returned playlist is the handle to use for
// subsequent adds.
func (e *Engine) addWithRetry(ctx context.Context, dest *models.Playlist, track models.SourceTrack, trackID string) (*models.Playlist, error) {
	err := e.session.AddTracks(ctx, dest.ID, []string{trackID})
	if err == nil {
		return dest, nil
	}
	if !errors.Is(err, shared.ErrAuthExpired) {
		return dest, err
	}

	if e.prompt == nil || !e.prompt.ConfirmReauth(track) {
		return dest, fmt.Errorf("%w: re-authentication declined", shared.ErrUserAbort)
	}

	if err := e.session.Reauthenticate(ctx); err != nil {
		return dest, fmt.Errorf("re-authentication failed: %w", err)
	}

	if pl := e.findPlaylist(ctx, dest.ID, dest.Name); pl != nil {
		dest = pl
	}

	if err := e.session.AddTracks(ctx, dest.ID, []string{trackID}); err != nil {
		return dest, err
	}
	return dest, nil
}

// findPlaylist re-acquires a playlist handle after re-authentication, by id
// first and name second. Returns nil when the playlist no longer exists.
func (e *Engine) findPlaylist(ctx context.Context, id, name string) *models.Playlist {
	playlists, err := e.session.UserPlaylists(ctx)
	if err != nil {
		e.logger.Warn("failed to list playlists", "error", err)
		return nil
	}

	for i := range playlists {
		if playlists[i].ID == id {
			return &playlists[i]
		}
	}
	for i := range playlists {
		if playlists[i].Name == name {
			return &playlists[i]
		}
	}
	return nil
}

// logUnresolved appends a ledger row for the track and records it on the
// result. Ledger write failures are logged, never fatal.
func (e *Engine) logUnresolved(result *Result, track models.SourceTrack, reason string) {
	entry := models.NewUnresolvedEntry(track, reason)
	result.Unresolved = append(result.Unresolved, entry)

	if e.ledger == nil {
		return
	}
	if err := e.ledger.Append(entry); err != nil {
		e.logger.Error("failed to write ledger entry", "track", track.TrackName, "error", err)
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
