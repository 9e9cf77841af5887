package models

import (
	"time"

	"github.com/lib/pq"
)

type TeamRole string

const (
	RoleRunner TeamRole = "runner"
	RoleChaser TeamRole = "chaser"
)

type Team struct {
	ID                  int64         `db:"id" json:"id"`
	Name                string        `db:"name" json:"name"`
	Coins               *float64      `db:"coins" json:"coins"`
	CurrentChallenge    *int64        `db:"current_challenge" json:"current_challenge"`
	ChallengesCompleted pq.Int64Array `db:"challenges_completed" json:"challenges_completed"`
	Role                *TeamRole     `db:"role" json:"role"`
	VetoUntil           *time.Time    `db:"veto_until" json:"veto_until"`
}

// TeamUpdate is a partial team write. Nil fields are left untouched;
// the Clear* flags write NULL to the matching nullable column.
type TeamUpdate struct {
	Name                  *string
	Coins                 *float64
	Role                  *TeamRole
	ClearRole             bool
	CurrentChallenge      *int64
	ClearCurrentChallenge bool
	VetoUntil             *time.Time
	ClearVetoUntil        bool
	ChallengesCompleted   *pq.Int64Array
}
