package models

type Challenge struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	MinCoins    int    `db:"min_coins" json:"min_coins"`
	MaxCoins    int    `db:"max_coins" json:"max_coins"`
	IsCurse     bool   `db:"is_curse" json:"is_curse"`
}
