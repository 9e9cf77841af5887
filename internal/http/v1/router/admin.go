package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"tag-server/internal/http/v1/handler"
	"tag-server/internal/service"
)

type AdminRouter struct {
	handler *handler.AdminHandler
}

func NewAdminRouter(
	teamService *service.TeamService,
	userService *service.UserService,
	overviewService *service.OverviewService,
	gameService *service.GameService,
	log *slog.Logger,
) *AdminRouter {
	return &AdminRouter{
		handler: handler.NewAdminHandler(teamService, userService, overviewService, gameService, log),
	}
}

func (ar *AdminRouter) SetupRoutes(r chi.Router) {

	r.Route("/admin", func(r chi.Router) {
		r.Post("/team/create", ar.handler.CreateTeam)
		r.Post("/team/update", ar.handler.UpdateTeam)
		r.Post("/user/update", ar.handler.UpdateUser)

		r.Get("/overview", ar.handler.Overview)
	})
}
