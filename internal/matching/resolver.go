package matching

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"autotidal/internal/models"
	"autotidal/internal/services"
	"autotidal/internal/shared"
)

const (
	// trackResultLimit bounds how many search results each tier inspects.
	trackResultLimit = 5
	// albumResultLimit bounds how many albums the album tier enumerates.
	albumResultLimit = 3
)

// Resolver finds the best destination-catalog match for a source track.
//
// Resolution runs through six ordered tiers, highest precision first:
//
//  1. ISRC equality among the top results for "name artists"
//  2. exact name equality (case-insensitive, trimmed) among the same results
//  3. cleaned-title re-search plus word-overlap match
//  4. cleaned-title + primary-artist re-search plus word-overlap match
//  5. album search, enumerating tracks of the top albums
//  6. unresolved
//
// The first tier that produces a candidate wins; later tiers are never
// consulted once an earlier one succeeds. The worst case costs three search
// queries plus three album listings.
type Resolver struct {
	catalog   services.Searcher
	logger    *log.Logger
	threshold float64
}

// NewResolver creates a Resolver over the given catalog searcher.
func NewResolver(catalog services.Searcher, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "component", "resolver")
	return &Resolver{catalog: catalog, logger: logger, threshold: DefaultOverlapThreshold}
}

// SetThreshold overrides the word-overlap threshold used by tiers 3-5.
func (r *Resolver) SetThreshold(threshold float64) {
	r.threshold = threshold
}

// Resolve returns at most one destination track for the given source track.
// A returned error means the catalog search itself failed; an unresolved
// track is not an error.
func (r *Resolver) Resolve(ctx context.Context, track models.SourceTrack) (models.MatchResult, error) {
	results, err := r.catalog.SearchTracks(ctx, track.TrackName+" "+track.ArtistNames)
	if err != nil {
		return models.MatchResult{}, err
	}
	results = capCandidates(results, trackResultLimit)

	// Tier 1: ISRC equality. A candidate without an ISRC is a non-match,
	// not an error.
	if track.ISRC != "" {
		for _, c := range results {
			if c.ISRC != "" && c.ISRC == track.ISRC {
				c := c
				return models.Matched(&c), nil
			}
		}
	}

	// Tier 2: exact name.
	for _, c := range results {
		if strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(track.TrackName)) {
			c := c
			return models.Matched(&c), nil
		}
	}

	// Tier 3: re-search with the cleaned title when it differs, then fuzzy
	// match. When the title was already clean the tier-1 results are reused.
	cleaned := CleanTitle(track.TrackName)
	if cleaned != track.TrackName {
		requeried, err := r.catalog.SearchTracks(ctx, cleaned+" "+track.ArtistNames)
		if err != nil {
			return models.MatchResult{}, err
		}
		results = capCandidates(requeried, trackResultLimit)
	}

	for _, c := range results {
		if WordOverlapMatch(c.Name, cleaned, r.threshold) {
			c := c
			return models.Matched(&c), nil
		}
	}

	// Tier 4: drop secondary artists and try again.
	primary := PrimaryArtist(track.ArtistNames)
	if primary != track.ArtistNames {
		simplified, err := r.catalog.SearchTracks(ctx, cleaned+" "+primary)
		if err != nil {
			return models.MatchResult{}, err
		}

		for _, c := range capCandidates(simplified, trackResultLimit) {
			if WordOverlapMatch(c.Name, cleaned, r.threshold) {
				c := c
				return models.Matched(&c), nil
			}
		}
	}

	// Tier 5: album-scoped scan.
	if track.AlbumName != "" {
		if c := r.searchTrackInAlbum(ctx, track, cleaned); c != nil {
			return models.Matched(c), nil
		}
	}

	return models.Unresolved(models.ReasonNotFound), nil
}

// searchTrackInAlbum scans the tracks of the top album results for a fuzzy
// title match. Per-album listing failures are logged and skipped so one bad
// album does not hide a match in the next.
func (r *Resolver) searchTrackInAlbum(ctx context.Context, track models.SourceTrack, cleaned string) *models.Candidate {
	albums, err := r.catalog.SearchAlbums(ctx, track.AlbumName+" "+track.ArtistNames)
	if err != nil {
		r.logger.Warn("album search failed", "album", track.AlbumName, "error", err)
		return nil
	}

	if len(albums) > albumResultLimit {
		albums = albums[:albumResultLimit]
	}

	for _, album := range albums {
		tracks, err := r.catalog.AlbumTracks(ctx, album.ID)
		if err != nil {
			r.logger.Warn("album track listing failed", "album_id", album.ID, "error", err)
			continue
		}

		for _, c := range tracks {
			if WordOverlapMatch(c.Name, cleaned, r.threshold) {
				c := c
				return &c
			}
		}
	}

	return nil
}

func capCandidates(candidates []models.Candidate, limit int) []models.Candidate {
	if len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}
