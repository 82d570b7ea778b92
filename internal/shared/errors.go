package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Input errors. ErrInputMissing is fatal: the export file either does
	// not exist or cannot be parsed, and nothing useful can happen without it.
	ErrInputMissing = fmt.Errorf("input file missing or unreadable")
	ErrInvalidInput = fmt.Errorf("invalid input")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrAuthExpired      = fmt.Errorf("authorization expired")
	ErrUserAbort        = fmt.Errorf("aborted by user")

	// API and reconciliation errors
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrSearchFailed     = fmt.Errorf("search failed")
	ErrAddFailed        = fmt.Errorf("add to playlist failed")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrTrackNotFound    = fmt.Errorf("track not found")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
