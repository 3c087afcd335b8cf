package routes

import (
	"cityfix-be/controllers"
	"cityfix-be/middlewares"
	"cityfix-be/models"

	"github.com/gin-gonic/gin"
)

// UserRoutes sets up the high_admin user-management routes
func UserRoutes(r *gin.Engine) {
	user := r.Group("/api/users",
		middlewares.AuthMiddleware(),
		middlewares.RequireRole(models.RoleHighAdmin))
	{
		user.GET("/admins", controllers.ListAdmins)
		user.PATCH("/:id/zones", controllers.UpdateUserZones)
		user.PATCH("/:id/role", controllers.UpdateUserRole)
		user.PATCH("/:id/deactivate", controllers.DeactivateUser)
	}
}
