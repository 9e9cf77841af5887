package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"tag-server/internal/http/v1/handler"
	"tag-server/internal/http/v1/middleware"
	"tag-server/internal/service"
)

type GameRouter struct {
	handler *handler.GameHandler
}

func NewGameRouter(gameService *service.GameService, log *slog.Logger) *GameRouter {
	return &GameRouter{
		handler: handler.NewGameHandler(gameService, log),
	}
}

func (gr *GameRouter) SetupRoutes(r chi.Router) {

	r.Route("/game", func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Post("/draw", gr.handler.Draw)
		r.Post("/complete", gr.handler.Complete)
		r.Post("/pass", gr.handler.Pass)
		r.Post("/veto", gr.handler.Veto)
		r.Post("/transit/start", gr.handler.TransitStart)
		r.Post("/transit/stop", gr.handler.TransitStop)

		r.Get("/state", gr.handler.State)
	})
}
