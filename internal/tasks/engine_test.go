package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"autotidal/internal/models"
	"autotidal/internal/repositories"
	"autotidal/internal/shared"
	mocks "autotidal/internal/testing"

	"autotidal/internal/matching"
)

type stubPrompter struct {
	confirm bool
	calls   int
}

func (p *stubPrompter) ConfirmReauth(models.SourceTrack) bool {
	p.calls++
	return p.confirm
}

func matchedTrack() (models.SourceTrack, *mocks.MockSession) {
	track := models.SourceTrack{
		PlaylistID:   "pl1",
		PlaylistName: "Favorites",
		TrackName:    "Song",
		ArtistNames:  "Artist",
		AlbumName:    "Album",
		ISRC:         "USRC17607839",
	}
	session := &mocks.MockSession{
		Tracks: map[string][]models.Candidate{
			"Song Artist": {{ID: "42", Name: "Song", ISRC: "USRC17607839"}},
		},
	}
	return track, session
}

func newTestEngine(session *mocks.MockSession, store *repositories.StateStore, prompt Prompter) *Engine {
	resolver := matching.NewResolver(session, shared.NewLogger(nil))
	return NewEngine(session, resolver, nil, store, prompt, shared.NewLogger(nil))
}

func testStore(t *testing.T) *repositories.StateStore {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return repositories.NewStateStore(db)
}

func TestReconcileAddsMatchedTrack(t *testing.T) {
	track, session := matchedTrack()
	e := newTestEngine(session, nil, nil)

	result, err := e.Reconcile(context.Background(), nil, "Favorites", []models.SourceTrack{track})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if result.Added != 1 || result.Skipped != 0 || len(result.Unresolved) != 0 {
		t.Errorf("result = %+v, want one added track", result)
	}
	if result.DestPlaylist == nil || result.DestPlaylist.Name != "Favorites" {
		t.Errorf("DestPlaylist = %+v", result.DestPlaylist)
	}

	added := session.AddedTracks[result.DestPlaylist.ID]
	if len(added) != 1 || added[0] != "42" {
		t.Errorf("added tracks = %v, want [42]", added)
	}
}

func TestReconcileEmptyPlaylist(t *testing.T) {
	session := &mocks.MockSession{}
	e := newTestEngine(session, nil, nil)

	result, err := e.Reconcile(context.Background(), nil, "Empty", nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if result.Total != 0 || result.DestPlaylist != nil {
		t.Errorf("result = %+v, want nothing done", result)
	}
	if len(session.CreatedNames) != 0 {
		t.Errorf("created playlists = %v, want none", session.CreatedNames)
	}
}

func TestReconcileUniquePlaylistName(t *testing.T) {
	track, session := matchedTrack()
	session.Playlists = []models.Playlist{
		{ID: "p1", Name: "Favorites"},
		{ID: "p2", Name: "Favorites version 2"},
	}
	e := newTestEngine(session, nil, nil)

	result, err := e.Reconcile(context.Background(), nil, "Favorites", []models.SourceTrack{track})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if result.DestPlaylist.Name != "Favorites version 3" {
		t.Errorf("DestPlaylist.Name = %q, want %q", result.DestPlaylist.Name, "Favorites version 3")
	}
}

func TestReconcileBlankISRC(t *testing.T) {
	session := &mocks.MockSession{}
	e := newTestEngine(session, nil, nil)

	track := models.SourceTrack{
		PlaylistID:   "pl1",
		PlaylistName: "Favorites",
		TrackName:    "Song",
		ArtistNames:  "Artist",
	}
	result, err := e.Reconcile(context.Background(), nil, "Favorites", []models.SourceTrack{track})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(result.Unresolved) != 1 {
		t.Fatalf("Unresolved = %v, want one entry", result.Unresolved)
	}
	if result.Unresolved[0].Reason != models.ReasonNoISRC {
		t.Errorf("Reason = %q, want %q", result.Unresolved[0].Reason, models.ReasonNoISRC)
	}
	// A blank ISRC never reaches the catalog.
	if len(session.SearchQueries) != 0 {
		t.Errorf("search queries = %v, want none", session.SearchQueries)
	}
}

func TestReconcileUnresolvedTrack(t *testing.T) {
	session := &mocks.MockSession{}
	e := newTestEngine(session, nil, nil)

	track := models.SourceTrack{
		PlaylistID:  "pl1",
		TrackName:   "Obscure B-Side",
		ArtistNames: "Nobody",
		ISRC:        "USRC17600001",
	}
	result, err := e.Reconcile(context.Background(), nil, "Favorites", []models.SourceTrack{track})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(result.Unresolved) != 1 || result.Unresolved[0].Reason != models.ReasonNotFound {
		t.Fatalf("Unresolved = %+v, want one not-found entry", result.Unresolved)
	}
}

func TestReconcileSearchError(t *testing.T) {
	session := &mocks.MockSession{SearchErr: errors.New("rate limited")}
	e := newTestEngine(session, nil, nil)

	track := models.SourceTrack{
		PlaylistID:  "pl1",
		TrackName:   "Song",
		ArtistNames: "Artist",
		ISRC:        "USRC17600001",
	}
	result, err := e.Reconcile(context.Background(), nil, "Favorites", []models.SourceTrack{track})
	if err != nil {
		t.Fatalf("Reconcile() error = %v, search errors are absorbed per track", err)
	}

	if len(result.Unresolved) != 1 {
		t.Fatalf("Unresolved = %+v, want one entry", result.Unresolved)
	}
	if !strings.HasPrefix(result.Unresolved[0].Reason, "search error:") {
		t.Errorf("Reason = %q, want search error prefix", result.Unresolved[0].Reason)
	}
}

func TestReconcileAuthExpiredDeclined(t *testing.T) {
	track, session := matchedTrack()
	session.AddErrs = []error{fmt.Errorf("%w: tidal returned status 412", shared.ErrAuthExpired)}
	prompt := &stubPrompter{confirm: false}
	e := newTestEngine(session, nil, prompt)

	second := track
	second.TrackName = "Later Song"

	result, err := e.Reconcile(context.Background(), nil, "Favorites", []models.SourceTrack{track, second})
	if !errors.Is(err, shared.ErrUserAbort) {
		t.Fatalf("Reconcile() error = %v, want ErrUserAbort", err)
	}
	if prompt.calls != 1 {
		t.Errorf("prompt calls = %d, want 1", prompt.calls)
	}
	// Abort is immediate: no ledger entry for the aborted track and no
	// processing of the tracks after it.
	if len(result.Unresolved) != 0 {
		t.Errorf("Unresolved = %+v, want none after abort", result.Unresolved)
	}
	if len(session.SearchQueries) != 1 {
		t.Errorf("search queries = %v, want only the first track's", session.SearchQueries)
	}
	if session.ReauthCalls != 0 {
		t.Errorf("ReauthCalls = %d, want 0", session.ReauthCalls)
	}
}

func TestReconcileAuthExpiredRetrySucceeds(t *testing.T) {
	track, session := matchedTrack()
	session.AddErrs = []error{fmt.Errorf("%w", shared.ErrAuthExpired), nil}
	prompt := &stubPrompter{confirm: true}
	e := newTestEngine(session, nil, prompt)

	result, err := e.Reconcile(context.Background(), nil, "Favorites", []models.SourceTrack{track})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if session.ReauthCalls != 1 {
		t.Errorf("ReauthCalls = %d, want 1", session.ReauthCalls)
	}
	if result.Added != 1 || len(result.Unresolved) != 0 {
		t.Errorf("result = %+v, want one added track after retry", result)
	}
}

func TestReconcileAuthExpiredRetryExhausted(t *testing.T) {
	track, session := matchedTrack()
	addErr := errors.New("still broken")
	session.AddErrs = []error{fmt.Errorf("%w", shared.ErrAuthExpired), addErr}
	prompt := &stubPrompter{confirm: true}
	e := newTestEngine(session, nil, prompt)

	result, err := e.Reconcile(context.Background(), nil, "Favorites", []models.SourceTrack{track})
	if err != nil {
		t.Fatalf("Reconcile() error = %v, exhausted retries are absorbed", err)
	}
	// One reauth cycle per track, never more.
	if prompt.calls != 1 || session.ReauthCalls != 1 {
		t.Errorf("prompt calls = %d, reauth calls = %d, want 1 each", prompt.calls, session.ReauthCalls)
	}
	if len(result.Unresolved) != 1 {
		t.Fatalf("Unresolved = %+v, want one entry", result.Unresolved)
	}
	if !strings.HasPrefix(result.Unresolved[0].Reason, "error after retries:") {
		t.Errorf("Reason = %q, want retry-exhausted prefix", result.Unresolved[0].Reason)
	}
}

func TestReconcileNilPrompterDeclines(t *testing.T) {
	track, session := matchedTrack()
	session.AddErrs = []error{fmt.Errorf("%w", shared.ErrAuthExpired)}
	e := newTestEngine(session, nil, nil)

	_, err := e.Reconcile(context.Background(), nil, "Favorites", []models.SourceTrack{track})
	if !errors.Is(err, shared.ErrUserAbort) {
		t.Fatalf("Reconcile() error = %v, want ErrUserAbort", err)
	}
}

func TestReconcileDuplicateKeySkipped(t *testing.T) {
	track, session := matchedTrack()
	dup := track

	e := newTestEngine(session, nil, nil)
	result, err := e.Reconcile(context.Background(), nil, "Favorites", []models.SourceTrack{track, dup})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if result.Added != 1 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 1 added and 1 skipped", result)
	}
	// The duplicate is skipped silently, without a second search.
	if len(session.SearchQueries) != 1 {
		t.Errorf("search queries = %v, want 1", session.SearchQueries)
	}
}

func TestReconcileResumesFromStore(t *testing.T) {
	track, session := matchedTrack()
	session.Playlists = []models.Playlist{{ID: "dest-1", Name: "Favorites"}}

	store := testStore(t)
	if err := store.Begin("pl1", "run-1", "dest-1", "Favorites"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := store.MarkAdded("pl1", track.Key()); err != nil {
		t.Fatalf("MarkAdded() error = %v", err)
	}

	e := newTestEngine(session, store, nil)
	result, err := e.Reconcile(context.Background(), nil, "Favorites", []models.SourceTrack{track})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	// The existing destination playlist is reused, not recreated.
	if len(session.CreatedNames) != 0 {
		t.Errorf("created playlists = %v, want none on resume", session.CreatedNames)
	}
	if result.DestPlaylist.ID != "dest-1" {
		t.Errorf("DestPlaylist.ID = %q, want dest-1", result.DestPlaylist.ID)
	}
	// The already-added track is skipped without a search.
	if result.Skipped != 1 || result.Added != 0 {
		t.Errorf("result = %+v, want the seeded track skipped", result)
	}
	if len(session.SearchQueries) != 0 {
		t.Errorf("search queries = %v, want none", session.SearchQueries)
	}

	// A clean finish clears the resume state.
	state, err := store.Lookup("pl1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if state != nil {
		t.Errorf("run state = %+v after clean finish, want nil", state)
	}
}

func TestReconcileStaleStoreStateStartsOver(t *testing.T) {
	track, session := matchedTrack()

	store := testStore(t)
	// Recorded destination playlist no longer exists on Tidal.
	if err := store.Begin("pl1", "run-1", "gone", "Favorites"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := store.MarkAdded("pl1", track.Key()); err != nil {
		t.Fatalf("MarkAdded() error = %v", err)
	}

	e := newTestEngine(session, store, nil)
	result, err := e.Reconcile(context.Background(), nil, "Favorites", []models.SourceTrack{track})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(session.CreatedNames) != 1 {
		t.Fatalf("created playlists = %v, want a fresh one", session.CreatedNames)
	}
	if result.Added != 1 || result.Skipped != 0 {
		t.Errorf("result = %+v, want the track re-added", result)
	}
}

func TestReconcileProgressUpdates(t *testing.T) {
	track, session := matchedTrack()
	e := newTestEngine(session, nil, nil)

	progress := make(chan ProgressUpdate, 16)
	if _, err := e.Reconcile(context.Background(), progress, "Favorites", []models.SourceTrack{track}); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	close(progress)

	var phases []Phase
	for update := range progress {
		phases = append(phases, update.Phase)
	}
	if len(phases) < 3 {
		t.Fatalf("received %d updates, want create + resolve + add", len(phases))
	}
	if phases[0] != CreatePlaylist {
		t.Errorf("first phase = %v, want CreatePlaylist", phases[0])
	}
	if phases[len(phases)-1] != AddTrack {
		t.Errorf("last phase = %v, want AddTrack", phases[len(phases)-1])
	}
}

func TestSendProgressNeverBlocks(t *testing.T) {
	track, session := matchedTrack()
	e := newTestEngine(session, nil, nil)

	// Unbuffered channel with no reader: every send must fall through.
	progress := make(chan ProgressUpdate)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := e.Reconcile(context.Background(), progress, "Favorites", []models.SourceTrack{track}); err != nil {
			t.Errorf("Reconcile() error = %v", err)
		}
	}()
	<-done
}
