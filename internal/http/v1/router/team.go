package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"tag-server/internal/http/v1/handler"
	"tag-server/internal/service"
)

type TeamRouter struct {
	handler *handler.TeamHandler
}

func NewTeamRouter(teamService *service.TeamService, log *slog.Logger) *TeamRouter {
	return &TeamRouter{
		handler: handler.NewTeamHandler(teamService, log),
	}
}

func (tr *TeamRouter) SetupRoutes(r chi.Router) {

	r.Route("/team", func(r chi.Router) {
		r.Get("/get", tr.handler.GetTeam)
	})
}
