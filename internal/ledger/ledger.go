// package ledger persists unresolved tracks to an append-only CSV file.
package ledger

import (
	"encoding/csv"
	"fmt"
	"os"

	"autotidal/internal/models"
)

var header = []string{
	"playlist_name",
	"track_name",
	"artist_names",
	"album_name",
	"isrc",
	"reason",
}

// Ledger appends unresolved-track rows to a CSV file at a fixed path. Every
// append opens, writes, flushes and closes the file, so a crash mid-run
// loses no rows already written. The header row is emitted only when the
// file does not yet exist.
type Ledger struct {
	path string
}

// New creates a Ledger writing to path. The file itself is created lazily
// on the first append.
func New(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Append writes one unresolved entry to the ledger.
func (l *Ledger) Append(entry models.UnresolvedEntry) error {
	_, statErr := os.Stat(l.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening ledger %s: %w", l.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("writing ledger header: %w", err)
		}
	}

	row := []string{
		entry.PlaylistName,
		entry.TrackName,
		entry.ArtistNames,
		entry.AlbumName,
		entry.ISRC,
		entry.Reason,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing ledger row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing ledger: %w", err)
	}
	return f.Close()
}
