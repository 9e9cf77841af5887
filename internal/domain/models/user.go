package models

import "time"

// User is keyed by the auth provider's subject id. A session implies the
// row exists; registration upserts it.
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      *string   `db:"name" json:"name"`
	Admin     bool      `db:"admin" json:"admin"`
	Team      *int64    `db:"team" json:"team"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UserUpdate is a partial user write, same conventions as TeamUpdate.
type UserUpdate struct {
	Name      *string
	Team      *int64
	ClearTeam bool
	Admin     *bool
}
