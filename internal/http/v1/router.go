package v1

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"tag-server/internal/http/v1/router"
	"tag-server/internal/service"
)

type Router interface {
	SetupRoutes(r chi.Router)
}

type RouterDependencies struct {
	GameService     *service.GameService
	TeamService     *service.TeamService
	UserService     *service.UserService
	OverviewService *service.OverviewService
}

func SetupRoutes(r chi.Router, deps *RouterDependencies, log *slog.Logger) {
	routers := []Router{
		router.NewGameRouter(deps.GameService, log),
		router.NewTeamRouter(deps.TeamService, log),
		router.NewUserRouter(deps.UserService, log),
		router.NewAdminRouter(deps.TeamService, deps.UserService, deps.OverviewService, deps.GameService, log),
	}

	for _, serviceRouter := range routers {
		serviceRouter.SetupRoutes(r)
	}
}
