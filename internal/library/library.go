// package library loads the source-catalog export file and parses
// playlist selections.
package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"autotidal/internal/models"
	"autotidal/internal/shared"
)

// requiredColumns must all be present in the export header. The export tool
// writes a wide union schema, so extra columns are ignored.
var requiredColumns = []string{
	"playlist_id",
	"playlist_name",
	"track_name",
	"artist_names",
	"album_name",
	"isrc",
}

// Export is a loaded source-catalog export: every (playlist, track) row of
// the input file, read-only after loading.
type Export struct {
	tracks []models.SourceTrack
}

// LoadExport reads the export CSV at path. A missing or unparsable file is
// reported as an error wrapping [shared.ErrInputMissing].
func LoadExport(path string) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInputMissing, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header of %s: %v", shared.ErrInputMissing, path, err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}

	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s is missing column %q", shared.ErrInputMissing, path, col)
		}
	}

	export := &Export{}
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: parsing %s: %v", shared.ErrInputMissing, path, err)
		}

		export.tracks = append(export.tracks, models.SourceTrack{
			PlaylistID:   record[index["playlist_id"]],
			PlaylistName: record[index["playlist_name"]],
			TrackName:    record[index["track_name"]],
			ArtistNames:  record[index["artist_names"]],
			AlbumName:    record[index["album_name"]],
			ISRC:         record[index["isrc"]],
		})
	}

	return export, nil
}

// PlaylistRef is one distinct playlist found in the export.
type PlaylistRef struct {
	ID   string
	Name string
}

// Playlists returns the distinct playlists in the export, sorted by name.
func (e *Export) Playlists() []PlaylistRef {
	seen := make(map[string]bool)
	var refs []PlaylistRef
	for _, t := range e.tracks {
		if seen[t.PlaylistID] {
			continue
		}
		seen[t.PlaylistID] = true
		refs = append(refs, PlaylistRef{ID: t.PlaylistID, Name: t.PlaylistName})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs
}

// PlaylistTracks returns the tracks of one playlist in file order.
func (e *Export) PlaylistTracks(playlistID string) []models.SourceTrack {
	var tracks []models.SourceTrack
	for _, t := range e.tracks {
		if t.PlaylistID == playlistID {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// Len returns the total number of rows in the export.
func (e *Export) Len() int {
	return len(e.tracks)
}

// ParseSelection parses a playlist selection like "1,3-5" into sorted,
// deduplicated 1-based indices. Tokens that are not numbers, not valid
// ranges, or out of [1, max] are returned as warnings and skipped.
func ParseSelection(input string, max int) ([]int, []string) {
	var warnings []string
	picked := make(map[int]bool)

	for _, token := range strings.Split(input, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(token, "-"); ok {
			start, err1 := strconv.Atoi(strings.TrimSpace(lo))
			end, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil || start > end || start < 1 || end > max {
				warnings = append(warnings, fmt.Sprintf("invalid range %q", token))
				continue
			}
			for i := start; i <= end; i++ {
				picked[i] = true
			}
			continue
		}

		i, err := strconv.Atoi(token)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("invalid selection %q", token))
			continue
		}
		if i < 1 || i > max {
			warnings = append(warnings, fmt.Sprintf("index %d out of range", i))
			continue
		}
		picked[i] = true
	}

	indices := make([]int, 0, len(picked))
	for i := range picked {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices, warnings
}
