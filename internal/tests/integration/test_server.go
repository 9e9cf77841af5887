package integration

import (
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"

	"tag-server/internal/game"
	"tag-server/internal/http/v1/middleware"
	"tag-server/internal/http/v1/router"
	"tag-server/internal/repo"
	"tag-server/internal/service"
)

type TestServer struct {
	DB     *sqlx.DB
	Server *httptest.Server
}

// NewTestServer spins up the full HTTP stack against a real database.
// Set TAG_TEST_DB to a Postgres connection string with the schema
// migrated; the tests are skipped otherwise.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	dbURL := os.Getenv("TAG_TEST_DB")
	if dbURL == "" {
		t.Skip("TAG_TEST_DB not set, skipping integration tests")
	}

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	teamRepo := repo.NewTeamRepo(db)
	userRepo := repo.NewUserRepo(db)
	challengeRepo := repo.NewChallengeRepo(db)

	userService := service.NewUserService(log, userRepo)
	teamService := service.NewTeamService(log, teamRepo, userRepo)
	overviewService := service.NewOverviewService(log, teamRepo, userRepo)

	// strict persistence so assertions can read the database right
	// after an action returns
	gameService := service.NewGameService(
		log,
		teamRepo,
		challengeRepo,
		clockwork.NewRealClock(),
		game.WithStrictPersistence(true),
	)

	r := chi.NewRouter()
	r.Use(middleware.Authenticate(userService, log))

	router.NewGameRouter(gameService, log).SetupRoutes(r)
	router.NewTeamRouter(teamService, log).SetupRoutes(r)
	router.NewUserRouter(userService, log).SetupRoutes(r)
	router.NewAdminRouter(teamService, userService, overviewService, gameService, log).SetupRoutes(r)

	ts := httptest.NewServer(r)

	return &TestServer{
		DB:     db,
		Server: ts,
	}
}

func (s *TestServer) LoadFixtures() error {
	tables := []string{"users", "team", "challenges"}
	for _, table := range tables {
		_, err := s.DB.Exec(fmt.Sprintf("TRUNCATE %s RESTART IDENTITY CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}

	fixtures := `
		INSERT INTO challenges(id, name, description, min_coins, max_coins, is_curse) VALUES
			(1, 'Ride a tram', 'Take any tram for at least one stop', 1, 5, false),
			(2, 'Photograph a fountain', 'Find a public fountain and snap it', 1, 5, false),
			(3, 'Frozen feet', 'Stand still for five minutes', 1, 5, true);

		INSERT INTO team(id, name, coins) VALUES
			(1, 'Roadrunners', 20),
			(2, 'Chasers', 20);

		INSERT INTO users(id, name, admin, team) VALUES
			('admin-1', 'Ada', true, NULL),
			('runner-1', 'Ray', false, 1),
			('lobby-1', 'Lou', false, NULL);

		SELECT setval(pg_get_serial_sequence('challenges', 'id'), 100);
		SELECT setval(pg_get_serial_sequence('team', 'id'), 100);
	`

	if _, err := s.DB.Exec(fixtures); err != nil {
		return fmt.Errorf("failed to load fixtures: %w", err)
	}

	return nil
}

func (s *TestServer) Close() {
	s.Server.Close()
	s.DB.Close()
}
