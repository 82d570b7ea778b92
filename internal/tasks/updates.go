package tasks

import (
	"fmt"

	"autotidal/internal/models"
)

// ProgressUpdate represents a progress event during a reconciliation run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	CreatePlaylist Phase = iota
	ResolveTrack
	AddTrack
)

func (p Phase) String() string {
	switch p {
	case CreatePlaylist:
		return "create_playlist"
	case ResolveTrack:
		return "resolve_track"
	case AddTrack:
		return "add_track"
	default:
		return ""
	}
}

func createPlaylistUpdate(pl *models.Playlist, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Total:   total,
		Message: fmt.Sprintf("Playlist ready: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func resolveTrackUpdate(step, total int, track models.SourceTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, track.ArtistNames, track.TrackName),
	}
}

func trackAddedUpdate(step, total int, track models.SourceTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, track.TrackName),
	}
}

func trackUnresolvedUpdate(step, total int, track models.SourceTrack, reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, track.TrackName, reason),
	}
}

func trackSkippedUpdate(step, total int, track models.SourceTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] already added: %s", step, total, track.TrackName),
	}
}
