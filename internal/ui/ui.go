// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for playlist migration:
//  1. [PlaylistListView] : Browse the export and toggle playlists for migration
//  2. [ConfirmView] : Confirm the selection
//  3. [MigrateView] : Monitor real-time progress updates
//  4. [ResultView] : Display per-playlist summaries
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the reconciliation engine,
// providing non-blocking status reporting during migration.
//
// Keyboard navigation uses vim-style bindings (j/k, space, enter, esc, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"autotidal/internal/library"
	"autotidal/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	ConfirmView
	MigrateView
	ResultView
)

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	toggle key.Binding
	all    key.Binding
	enter  key.Binding
	back   key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		all:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all")),
		enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "migrate")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.enter, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.toggle},
		{k.all, k.enter, k.back},
		{k.quit},
	}
}

var _ list.Item = playlistItem{}

// playlistItem wraps [library.PlaylistRef] to implement [list.Item].
type playlistItem struct {
	ref      library.PlaylistRef
	tracks   int
	selected bool
}

func (i playlistItem) FilterValue() string { return i.ref.Name }
func (i playlistItem) Title() string {
	if i.selected {
		return "[x] " + i.ref.Name
	}
	return "[ ] " + i.ref.Name
}
func (i playlistItem) Description() string {
	return fmt.Sprintf("%d tracks", i.tracks)
}

type progressUpdateMsg tasks.ProgressUpdate

type migrationCompleteMsg struct {
	results []*tasks.Result
	err     error
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	export       *library.Export
	engine       *tasks.Engine
	width        int
	height       int
	playlistList list.Model
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	results      []*tasks.Result
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model over a loaded export and a ready engine.
func NewModel(ctx context.Context, export *library.Export, engine *tasks.Engine) *Model {
	refs := export.Playlists()
	items := make([]list.Item, len(refs))
	for i, ref := range refs {
		items[i] = playlistItem{ref: ref, tracks: len(export.PlaylistTracks(ref.ID))}
	}

	playlistList := list.New(items, list.NewDefaultDelegate(), 0, 0)
	playlistList.Title = "Spotify Playlists"

	return &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		export:       export,
		engine:       engine,
		playlistList: playlistList,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case migrationCompleteMsg:
		m.results = msg.results
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	var cmd tea.Cmd
	if m.view == PlaylistListView {
		m.playlistList, cmd = m.playlistList.Update(msg)
	}
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" + styles.help.Render("Press q to quit")
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case ConfirmView:
		return m.renderConfirm()
	case MigrateView:
		return m.renderMigrate()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		if i, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			i.selected = !i.selected
			return m, m.playlistList.SetItem(m.playlistList.Index(), i)
		}
	case key.Matches(msg, m.keys.all):
		var cmds []tea.Cmd
		for idx, item := range m.playlistList.Items() {
			if i, ok := item.(playlistItem); ok {
				i.selected = true
				cmds = append(cmds, m.playlistList.SetItem(idx, i))
			}
		}
		return m, tea.Batch(cmds...)
	case key.Matches(msg, m.keys.enter):
		if len(m.selectedPlaylists()) > 0 {
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}
	switch msg.String() {
	case "n", "esc":
		m.view = PlaylistListView
		return m, nil
	case "y", "enter":
		m.view = MigrateView
		return m, m.startMigration()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "enter":
		return m, tea.Quit
	}
	return m, nil
}

// selectedPlaylists returns the toggled playlists in list order.
func (m *Model) selectedPlaylists() []library.PlaylistRef {
	var refs []library.PlaylistRef
	for _, item := range m.playlistList.Items() {
		if i, ok := item.(playlistItem); ok && i.selected {
			refs = append(refs, i.ref)
		}
	}
	return refs
}

// startMigration reconciles the selected playlists one at a time in a
// background goroutine, streaming progress back through the channel.
func (m *Model) startMigration() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	selected := m.selectedPlaylists()
	progress := m.progressChan

	go func() {
		var results []*tasks.Result
		var runErr error
		for _, ref := range selected {
			result, err := m.engine.Reconcile(m.ctx, progress, ref.Name, m.export.PlaylistTracks(ref.ID))
			if result != nil {
				results = append(results, result)
			}
			if err != nil {
				runErr = err
				break
			}
		}
		m.results = results
		m.err = runErr
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return migrationCompleteMsg{results: m.results, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return migrationCompleteMsg{results: m.results, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	selected := m.selectedPlaylists()
	title := styles.title.Render(fmt.Sprintf("Migrate %d playlist(s) to Tidal?", len(selected)))

	var info string
	for _, ref := range selected {
		info += fmt.Sprintf("  %s (%d tracks)\n", ref.Name, len(m.export.PlaylistTracks(ref.ID)))
	}

	yes := key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes"))
	no := key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no"))
	helpView := m.help.ShortHelpView([]key.Binding{yes, no, m.keys.quit})

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderMigrate() string {
	title := styles.title.Render("Migrating Playlists")

	var phase string
	switch m.progress.Phase {
	case tasks.CreatePlaylist:
		phase = "Creating playlist on Tidal..."
	case tasks.ResolveTrack:
		phase = fmt.Sprintf("Resolving tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.AddTrack:
		phase = fmt.Sprintf("Adding tracks (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil && len(m.results) == 0 {
		return styles.err.Render(fmt.Sprintf("Migration failed: %v", m.err)) + "\n\n" + styles.help.Render("Press q to quit")
	}

	title := styles.ok.Render("✓ Migration Complete")
	if m.err != nil {
		title = styles.warn.Render(fmt.Sprintf("Migration stopped: %v", m.err))
	}

	var info string
	for _, r := range m.results {
		name := r.PlaylistName
		if r.DestPlaylist != nil {
			name = r.DestPlaylist.Name
		}
		info += fmt.Sprintf(
			"\n%s: %d added, %d skipped, %d unresolved of %d",
			name, r.Added, r.Skipped, len(r.Unresolved), r.Total,
		)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
