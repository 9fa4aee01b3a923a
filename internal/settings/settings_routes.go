package settings

import (
	"github.com/Project-Zedd/rotc-system-final/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	grp := r.Group("/settings")
	grp.Use(middleware.AuthMiddleware())
	{
		grp.GET("/config", h.GetConfig)
		grp.PUT("/scanner-state", middleware.RoleMiddleware("admin", "super_admin"), h.SetScannerState)
		grp.PUT("/evening", middleware.RoleMiddleware("admin", "super_admin"), h.SetEveningEnabled)
		grp.PUT("/cutoff-time", middleware.RoleMiddleware("admin", "super_admin"), h.SetPresentCutoffTime)
		grp.PUT("/duplicate-window", middleware.RoleMiddleware("admin", "super_admin"), h.SetDuplicateWindow)
	}
}
