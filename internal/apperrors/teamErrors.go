package apperrors

import "errors"

var (
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamNameRequired = errors.New("team name is required")
	ErrMembersRequired  = errors.New("team must have at least one member")
	ErrNoTeamAssigned   = errors.New("user has no team assigned")
)
