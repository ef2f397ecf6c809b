package app

import (
	"github.com/gin-gonic/gin"
	"github.com/mx-space/wsgateway/internal/middleware"
	"github.com/mx-space/wsgateway/internal/modules/gateway/gateway"
	"github.com/mx-space/wsgateway/internal/modules/health"
	"github.com/mx-space/wsgateway/internal/modules/user"
	"github.com/mx-space/wsgateway/internal/pkg/response"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(users *user.Service) {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	gateway.RegisterRoutes(r, a.hub)

	api := r.Group(apiPrefix)
	api.GET("/ping", func(c *gin.Context) {
		response.OK(c, gin.H{"message": "pong"})
	})
	gateway.RegisterStats(api, a.hub)

	issueMW := middleware.RateLimit(a.rc, "token", a.logger)
	adminMW := middleware.AdminAuth(a.cfg.AdminToken)
	health.RegisterRoutes(api, health.Deps{
		Hub:     a.hub,
		Redis:   a.rc,
		Sched:   a.sched,
		LogDir:  a.cfg.LogDir(),
		Started: a.started,
	}, adminMW)
	user.NewHandler(users, a.hub, gateway.IsReservedEvent, a.logger).RegisterRoutes(api, issueMW, adminMW)
}
