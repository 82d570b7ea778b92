package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"autotidal/internal/services"
	"autotidal/internal/shared"
)

// AuthLogin runs the Tidal device-code flow and saves the session token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	session, err := r.tidalSession()
	if err != nil {
		return err
	}

	r.logger.Info("starting device login")
	if err := session.Reauthenticate(ctx); err != nil {
		return err
	}

	r.writePlain("✓ Tidal account linked\n")
	r.writePlain("Token saved to: %s\n", r.config.Credentials.Tidal.TokenPath)
	return nil
}

// AuthStatus reports whether the saved Tidal session is usable.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	session, err := r.tidalSession()
	if err != nil {
		return err
	}

	if session.CheckLogin(ctx) {
		r.writePlain("✓ Tidal session is valid\n")
		return nil
	}

	r.writePlain("✗ No usable Tidal session, run 'autotidal auth login'\n")
	return shared.ErrNotAuthenticated
}

// tidalSession returns the configured session, constructing a Tidal client
// from config when the runner was not wired with one.
func (r *Runner) tidalSession() (services.Session, error) {
	if r.session != nil {
		return r.session, nil
	}

	session, err := services.NewTidalSession(r.config.Credentials.Tidal, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tidal session: %w", err)
	}
	r.session = session
	return session, nil
}
