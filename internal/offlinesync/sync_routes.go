package offlinesync

import (
	"time"

	"github.com/Project-Zedd/rotc-system-final/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, rdb *redis.Client) {
	grp := r.Group("/sync")
	grp.Use(middleware.AuthMiddleware())
	{
		grp.POST("/queue", middleware.RateLimitByDevice(rate.Every(time.Second), 5), middleware.Idempotency(rdb), h.Enqueue)
		grp.GET("/items/:id", h.GetItem)
		grp.POST("/items/:id/process", middleware.RoleMiddleware("admin", "super_admin"), h.ProcessItem)
		grp.POST("/process", middleware.RoleMiddleware("admin", "super_admin"), h.ProcessPending)
		grp.POST("/retry", middleware.RoleMiddleware("admin", "super_admin"), h.RetryFailed)
		grp.GET("/statistics", h.Statistics)
		grp.GET("/devices/:deviceId", h.DeviceStatus)
		grp.GET("/devices/:deviceId/history", h.History)
		grp.POST("/devices/:deviceId/process", middleware.RoleMiddleware("admin", "super_admin"), h.ProcessDevice)
		grp.POST("/devices/:deviceId/retry", middleware.RoleMiddleware("admin", "super_admin"), h.RetryDevice)
	}
}
