package apperrors

import "errors"

var (
	// ErrChallengesExhausted is the terminal "no more challenges" condition.
	// It must reach the presentation layer as a distinct error, not as a
	// generic failure.
	ErrChallengesExhausted = errors.New("no eligible challenges remain")

	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrNoActiveChallenge  = errors.New("no active challenge")
	ErrWinnableOutOfRange = errors.New("winnable coins outside challenge range")
	ErrVetoActive         = errors.New("veto cooldown is active")
	ErrTransitActive      = errors.New("transit count is running")
	ErrNotInTransit       = errors.New("transit count is not running")
	ErrNoCoins            = errors.New("no coins left for transit")
)
