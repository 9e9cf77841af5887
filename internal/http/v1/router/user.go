package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"tag-server/internal/http/v1/handler"
	"tag-server/internal/http/v1/middleware"
	"tag-server/internal/service"
)

type UserRouter struct {
	handler *handler.UserHandler
}

func NewUserRouter(userService *service.UserService, log *slog.Logger) *UserRouter {
	return &UserRouter{
		handler: handler.NewUserHandler(userService, log),
	}
}

func (ur *UserRouter) SetupRoutes(r chi.Router) {

	r.Route("/user", func(r chi.Router) {
		r.With(middleware.RequireUser).Get("/me", ur.handler.Me)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", ur.handler.Register)
	})
}
