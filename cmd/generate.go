package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"autotidal/internal/ledger"
	"autotidal/internal/library"
	"autotidal/internal/matching"
	"autotidal/internal/models"
	"autotidal/internal/shared"
	"autotidal/internal/tasks"
	"autotidal/internal/ui"
)

// stdinPrompter asks for re-authentication consent on the terminal.
type stdinPrompter struct {
	runner *Runner
	reader *bufio.Reader
}

func (p *stdinPrompter) ConfirmReauth(track models.SourceTrack) bool {
	p.runner.writePlain("\nAuthorization expired while adding %q. Re-authenticate and retry? [y/N] ", track.TrackName)

	line, err := p.reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// GenerateRun migrates selected playlists from the export to Tidal.
func (r *Runner) GenerateRun(ctx context.Context, cmd *cli.Command) error {
	export, err := r.loadExport(cmd)
	if err != nil {
		return err
	}

	session, err := r.tidalSession()
	if err != nil {
		return err
	}

	playlists := export.Playlists()
	reader := bufio.NewReader(r.input)

	indices, err := r.selectPlaylists(cmd, reader, playlists)
	if err != nil {
		return err
	}

	ledgerPath := cmd.String("ledger")
	if ledgerPath == "" {
		ledgerPath = r.config.Library.LedgerPath
	}

	resolver := matching.NewResolver(session, r.logger)
	if threshold := cmd.Float("threshold"); threshold > 0 {
		resolver.SetThreshold(threshold)
	}

	engine := tasks.NewEngine(session, resolver, ledger.New(ledgerPath), r.store, &stdinPrompter{runner: r, reader: reader}, r.logger)

	var unresolved int
	for _, idx := range indices {
		pl := playlists[idx-1]
		tracks := export.PlaylistTracks(pl.ID)

		r.writePlainln("Migrating %q (%d tracks)...", pl.Name, len(tracks))

		result, err := engine.Reconcile(ctx, nil, pl.Name, tracks)
		if result != nil {
			r.writeSummary(result)
			unresolved += len(result.Unresolved)
		}
		if err != nil {
			return err
		}
	}

	if unresolved > 0 {
		r.writePlainln("%d unresolved tracks logged to %s", unresolved, ledgerPath)
	}
	return nil
}

// selectPlaylists resolves the playlist selection from the --select flag, or
// prompts until at least one valid index is given. Invalid tokens are warned
// and skipped, never fatal.
func (r *Runner) selectPlaylists(cmd *cli.Command, reader *bufio.Reader, playlists []library.PlaylistRef) ([]int, error) {
	if sel := cmd.String("select"); sel != "" {
		indices, warnings := library.ParseSelection(sel, len(playlists))
		for _, w := range warnings {
			r.logger.Warn(w)
		}
		if len(indices) == 0 {
			return nil, fmt.Errorf("no valid playlists in selection %q", sel)
		}
		return indices, nil
	}

	r.writePlainHeader("Spotify playlists")
	for i, pl := range playlists {
		r.writePlain("%3d. %s\n", i+1, pl.Name)
	}

	for {
		r.writePlain("\nPlaylists to migrate (e.g. 1,3-5): ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read selection: %w", err)
		}

		indices, warnings := library.ParseSelection(strings.TrimSpace(line), len(playlists))
		for _, w := range warnings {
			r.logger.Warn(w)
		}
		if len(indices) > 0 {
			return indices, nil
		}
		r.writePlain("No valid playlists selected, try again.\n")
	}
}

func (r *Runner) writeSummary(result *tasks.Result) {
	name := result.PlaylistName
	if result.DestPlaylist != nil {
		name = result.DestPlaylist.Name
	}
	r.writePlain("  %s: %d added, %d skipped, %d unresolved of %d\n",
		name, result.Added, result.Skipped, len(result.Unresolved), result.Total)
}

// TUI launches the interactive playlist picker over the export file.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	export, err := r.loadExport(cmd)
	if err != nil {
		return err
	}

	session, err := r.tidalSession()
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/autotidal-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, log.DebugLevel)
	r.SetLogger(fileLogger)

	ledgerPath := r.config.Library.LedgerPath
	resolver := matching.NewResolver(session, r.logger)
	engine := tasks.NewEngine(session, resolver, ledger.New(ledgerPath), r.store, nil, r.logger)

	model := ui.NewModel(ctx, export, engine)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
