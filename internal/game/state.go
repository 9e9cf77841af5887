package game

import (
	"time"

	"github.com/lib/pq"

	"tag-server/internal/domain/models"
)

// Phase is the explicit gameplay state. The four values are mutually
// exclusive; Transit and Vetoed take precedence over ChallengeActive in
// the same order the dashboard renders them.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseChallengeActive Phase = "challenge_active"
	PhaseVetoed          Phase = "vetoed"
	PhaseTransit         Phase = "transit"
)

// Model is the working snapshot of a team's turn: the persisted team row
// merged with the ephemeral pieces (active challenge, veto deadline,
// transit flag) that are reconstructed on load.
type Model struct {
	Team         models.Team
	Challenge    *models.Challenge
	Veto         *time.Time
	Transit      bool
	TransitStart time.Time
}

// NewModel reconstructs the snapshot from a persisted team row. The active
// challenge body is rehydrated by the next Draw; the veto deadline carries
// over directly.
func NewModel(team models.Team) Model {
	m := Model{Team: team}
	if team.VetoUntil != nil {
		until := *team.VetoUntil
		m.Veto = &until
	}
	return m
}

func (m Model) Phase() Phase {
	switch {
	case m.Transit:
		return PhaseTransit
	case m.Veto != nil:
		return PhaseVetoed
	case m.Challenge != nil:
		return PhaseChallengeActive
	default:
		return PhaseIdle
	}
}

// Coins returns the team balance, treating the nullable column as zero.
func (m Model) Coins() float64 {
	if m.Team.Coins == nil {
		return 0
	}
	return *m.Team.Coins
}

// Apply is the pure transition function. It returns a new snapshot and
// never touches the persistence gateway; the session decides what to
// write after each transition.
func Apply(m Model, action Action) Model {
	switch a := action.(type) {
	case NewChallenge:
		next := m
		ch := a.Challenge
		next.Challenge = &ch
		next.Team.CurrentChallenge = &ch.ID
		return next

	case Done:
		if m.Challenge == nil {
			return m
		}
		next := m
		coins := m.Coins() + float64(a.Winnable)
		next.Team.Coins = &coins
		next.Team.ChallengesCompleted = appendCompleted(m.Team.ChallengesCompleted, m.Challenge.ID)
		next.Team.CurrentChallenge = nil
		next.Challenge = nil
		return next

	case Pass:
		next := m
		next.Team.CurrentChallenge = nil
		next.Team.VetoUntil = nil
		next.Challenge = nil
		next.Veto = nil
		return next

	case Veto:
		next := m
		next.Team.VetoUntil = a.Until
		next.Veto = a.Until
		if a.Until != nil {
			next.Team.CurrentChallenge = nil
			next.Challenge = nil
		}
		return next

	case Transit:
		next := m
		next.Transit = a.On
		if a.On {
			next.TransitStart = a.Start
		} else {
			next.TransitStart = time.Time{}
		}
		return next

	case TransitEnd:
		next := m
		coins := a.Coins
		next.Team.Coins = &coins
		next.Transit = false
		next.TransitStart = time.Time{}
		return next

	default:
		return m
	}
}

func appendCompleted(completed pq.Int64Array, id int64) pq.Int64Array {
	out := make(pq.Int64Array, 0, len(completed)+1)
	out = append(out, completed...)
	return append(out, id)
}
