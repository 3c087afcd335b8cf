package routes

import (
	"cityfix-be/controllers"
	"cityfix-be/middlewares"

	"github.com/gin-gonic/gin"
)

// NotificationRoutes sets up the per-user notification feed routes
func NotificationRoutes(r *gin.Engine) {
	notification := r.Group("/api/notifications", middlewares.AuthMiddleware())
	{
		notification.GET("", controllers.GetMyNotifications)
		notification.PATCH("/read-all", controllers.MarkAllNotificationsRead)
		notification.PATCH("/:id/read", controllers.MarkNotificationRead)
		notification.DELETE("/:id", controllers.DeleteNotification)
	}
}
