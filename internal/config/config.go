package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `env:"ENV" env-default:"dev"`
	Server   HTTPServer     `env-prefix:"SERVER_"`
	Postgres PostgresConfig `env-prefix:"PG_"`
	Game     GameConfig     `env-prefix:"GAME_"`
}

type HTTPServer struct {
	Port    string        `env:"PORT" env-default:"8080"`
	Timeout time.Duration `env:"TIMEOUT" env-default:"5s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST" env-default:"localhost"`
	Port     string `env:"PORT" env-default:"5432"`
	User     string `env:"USER" env-default:"postgres"`
	Password string `env:"PASSWORD" env-default:"postgres"`
	DbName   string `env:"DBNAME" env-default:"tag_db"`
	SslMode  string `env:"SSLMODE" env-default:"disable"`
}

type GameConfig struct {
	// StrictPersistence makes every gameplay write synchronous: the
	// action fails and state is rolled back when the database write
	// fails. Off by default, matching the latency-first behavior the
	// mobile client expects.
	StrictPersistence bool          `env:"STRICT_PERSISTENCE" env-default:"false"`
	ValidateWinnable  bool          `env:"VALIDATE_WINNABLE" env-default:"true"`
	VetoCooldown      time.Duration `env:"VETO_COOLDOWN" env-default:"10m"`
}

func MustLoad() *Config {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("failed to read config from environment: " + err.Error())
	}

	return &cfg
}
