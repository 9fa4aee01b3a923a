package attendance

import (
	"github.com/Project-Zedd/rotc-system-final/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	grp := r.Group("/attendance")
	grp.Use(middleware.AuthMiddleware())
	{
		grp.POST("/scan", middleware.RoleMiddleware("admin", "super_admin"), h.Scan)
		grp.POST("/manual", middleware.RoleMiddleware("admin", "super_admin"), h.ManualEntry)
		grp.GET("/logs", h.GetLogs)
		grp.GET("/cadets/:id/stats", h.GetCadetStats)
	}
}
