package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"

	"tag-server/internal/app/rest"
	"tag-server/internal/config"
	"tag-server/internal/game"
	v1 "tag-server/internal/http/v1"
	"tag-server/internal/lib/migrator"
	"tag-server/internal/lib/logger/sl"
	"tag-server/internal/repo"
	"tag-server/internal/service"
	"tag-server/internal/storage/postgresql"
)

type App struct {
	log         *slog.Logger
	storage     *postgresql.Storage
	gameService *service.GameService
	restApp     *rest.App
}

func MustNew(log *slog.Logger) *App {
	cfg := config.MustLoad()

	if err := migrator.RunMigrations(cfg.Postgres, log); err != nil {
		log.Error("failed to run migrations", sl.Err(err))
		panic(err)
	}

	storage := postgresql.Init(cfg.Postgres)

	userRepo := repo.NewUserRepo(storage.GetDB())
	teamRepo := repo.NewTeamRepo(storage.GetDB())
	challengeRepo := repo.NewChallengeRepo(storage.GetDB())

	userService := service.NewUserService(log, userRepo)
	teamService := service.NewTeamService(log, teamRepo, userRepo)
	overviewService := service.NewOverviewService(log, teamRepo, userRepo)
	gameService := service.NewGameService(
		log,
		teamRepo,
		challengeRepo,
		clockwork.NewRealClock(),
		game.WithStrictPersistence(cfg.Game.StrictPersistence),
		game.WithWinnableValidation(cfg.Game.ValidateWinnable),
		game.WithVetoCooldown(cfg.Game.VetoCooldown),
	)

	routerDependencies := v1.RouterDependencies{
		GameService:     gameService,
		TeamService:     teamService,
		UserService:     userService,
		OverviewService: overviewService,
	}

	restApp := rest.New(
		log,
		&routerDependencies,
		cfg.Server.Port,
	)

	return &App{
		log:         log,
		storage:     storage,
		gameService: gameService,
		restApp:     restApp,
	}
}

func (a *App) MustRun() {
	const op = "app.MustRun"
	a.log.With(slog.String("op", op)).Info("starting application")

	if err := a.restApp.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func (a *App) GracefulShutdown() {
	const op = "app.GracefulShutdown"
	a.log.With(slog.String("op", op)).Info("shutting down application")

	var errs *multierror.Error

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.restApp.Stop(ctx); err != nil {
		errs = multierror.Append(errs, err)
	}

	// closes every live session and waits for pending writes
	a.gameService.Shutdown()

	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		a.log.Error("shutdown finished with errors", sl.Err(err))
		return
	}

	a.log.Info("shutdown complete")
}
