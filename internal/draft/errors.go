package draft

import "errors"

// Validation errors. Returned before any state is touched.
var (
	ErrInvalidTeamCount   = errors.New("invalid team count")
	ErrInvalidDraftSpot   = errors.New("invalid draft spot")
	ErrInvalidScoringMode = errors.New("invalid scoring mode")
	ErrUnknownTeam        = errors.New("unknown team")
	ErrEmptyCatalog       = errors.New("player catalog is empty")
)

// Consistency errors. A failed pick leaves the draft exactly as it was.
var (
	ErrDraftComplete     = errors.New("draft is complete")
	ErrPlayerUnavailable = errors.New("player is not available")
	ErrUnknownPlayer     = errors.New("unknown player")
)
