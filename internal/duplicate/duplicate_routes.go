package duplicate

import (
	"github.com/Project-Zedd/rotc-system-final/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	grp := r.Group("/duplicates")
	grp.Use(middleware.AuthMiddleware())
	{
		grp.GET("/pending", h.ListPending)
		grp.GET("/statistics", h.Statistics)
		grp.PUT("/:id/review", middleware.RoleMiddleware("admin", "super_admin"), h.Review)
		grp.POST("/bulk-review", middleware.RoleMiddleware("admin", "super_admin"), h.BulkReview)
	}
}
