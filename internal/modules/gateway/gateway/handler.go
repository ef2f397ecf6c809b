package gateway

import (
	"github.com/gin-gonic/gin"
	"github.com/mx-space/wsgateway/internal/pkg/response"
)

// RegisterRoutes mounts the socket.io engine on r.
func RegisterRoutes(r gin.IRoutes, hub *Hub) {
	handler := gin.WrapH(hub.Handler())
	r.Any("/socket.io", handler)
	r.Any("/socket.io/*any", handler)
}

// RegisterStats mounts GET /gateway/stats on rg.
func RegisterStats(rg *gin.RouterGroup, hub *Hub) {
	rg.GET("/gateway/stats", func(c *gin.Context) {
		response.OK(c, hub.Stats())
	})
}
