// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"authgate/internal/delivery/http/middleware"
	"authgate/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthenHandler  *handler.AuthenHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authenHandler  *handler.AuthenHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authenHandler:  params.AuthenHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)

	authGroup := e.Group("/auth")
	{
		// Token-exempt: the caller has no session yet, or only holds a refresh token.
		authGroup.POST("/login", r.authenHandler.Login, r.authMiddleware.Public)
		authGroup.POST("/refresh", r.authenHandler.Refresh, r.authMiddleware.Public)
		authGroup.POST("/register", r.authenHandler.Register, r.authMiddleware.Public)

		authGroup.POST("/logout", r.authenHandler.Logout, r.authMiddleware.Authenticate)
		authGroup.POST("/user", r.authenHandler.CurrentUser, r.authMiddleware.Authenticate)
		authGroup.POST("/password/modify", r.authenHandler.ModifyPassword, r.authMiddleware.Authenticate)
		authGroup.POST("/password/force", r.authenHandler.ForceModifyPassword, r.authMiddleware.Authenticate)
		authGroup.POST("/password/reset", r.authenHandler.ResetPassword, r.authMiddleware.Authenticate)
	}
}
