// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func fileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "file",
		Aliases: []string{"f"},
		Usage:   "Path to the Spotify export CSV",
	}
}

// setupCommand handles first-run setup
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and local database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the resume database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles Tidal authentication
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Tidal authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Link this device to a Tidal account",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check whether the saved Tidal session is usable",
				Action: r.AuthStatus,
			},
		},
	}
}

// libraryCommand inspects the Spotify export
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Inspect the Spotify library export",
		Commands: []*cli.Command{
			{
				Name:   "playlists",
				Usage:  "List playlists found in the export",
				Flags:  []cli.Flag{fileFlag()},
				Action: r.LibraryPlaylists,
			},
		},
	}
}

// generateCommand recreates playlists on Tidal
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Recreate Spotify playlists on Tidal",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Migrate selected playlists from the export to Tidal",
				Flags: []cli.Flag{
					fileFlag(),
					&cli.StringFlag{
						Name:    "select",
						Aliases: []string{"s"},
						Usage:   "Playlist selection, e.g. \"1,3-5\" (prompts when omitted)",
					},
					&cli.StringFlag{
						Name:  "ledger",
						Usage: "Path for the unresolved-track CSV",
					},
					&cli.FloatFlag{
						Name:  "threshold",
						Usage: "Word-overlap match threshold",
						Value: 0.7,
					},
				},
				Action: r.GenerateRun,
			},
			{
				Name:   "ui",
				Usage:  "Pick playlists interactively and migrate them",
				Flags:  []cli.Flag{fileFlag()},
				Action: r.TUI,
			},
		},
	}
}

// tuiCommand is a top-level alias for generate ui
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive playlist picker",
		Flags:  []cli.Flag{fileFlag()},
		Action: r.TUI,
	}
}
