package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"autotidal/internal/library"
)

// LibraryPlaylists lists the distinct playlists found in the export file.
func (r *Runner) LibraryPlaylists(ctx context.Context, cmd *cli.Command) error {
	export, err := r.loadExport(cmd)
	if err != nil {
		return err
	}

	playlists := export.Playlists()
	r.writePlainHeader("Spotify playlists")
	for i, pl := range playlists {
		r.writePlain("%3d. %s (%d tracks)\n", i+1, pl.Name, len(export.PlaylistTracks(pl.ID)))
	}
	r.writePlain("\n%d playlists, %d tracks total\n", len(playlists), export.Len())

	return nil
}

// loadExport reads the export CSV from the --file flag, falling back to the
// configured path.
func (r *Runner) loadExport(cmd *cli.Command) (*library.Export, error) {
	path := cmd.String("file")
	if path == "" {
		path = r.config.Library.ExportPath
	}

	r.logger.Debug("loading export", "path", path)
	return library.LoadExport(path)
}
