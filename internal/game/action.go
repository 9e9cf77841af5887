package game

import (
	"time"

	"tag-server/internal/domain/models"
)

// Action is the tagged union of gameplay intents consumed by Apply.
// One variant exists per dashboard control.
type Action interface {
	isAction()
}

// NewChallenge records a drawn (or resumed) challenge as the active one.
type NewChallenge struct {
	Challenge models.Challenge
}

// Done completes the active challenge for the chosen reward.
type Done struct {
	Winnable int
}

// Pass gives the active challenge back without completing it. The
// challenge stays eligible for future draws.
type Pass struct{}

// Veto starts (Until set) or clears (Until nil) the veto cooldown.
type Veto struct {
	Until *time.Time
}

// Transit toggles the transit coin count. Start carries the wall-clock
// moment the count began.
type Transit struct {
	On    bool
	Start time.Time
}

// TransitEnd settles the transit count with the burned-down balance.
type TransitEnd struct {
	Coins float64
}

func (NewChallenge) isAction() {}
func (Done) isAction()         {}
func (Pass) isAction()         {}
func (Veto) isAction()         {}
func (Transit) isAction()      {}
func (TransitEnd) isAction()   {}
