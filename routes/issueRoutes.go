package routes

import (
	"cityfix-be/controllers"
	"cityfix-be/middlewares"
	"cityfix-be/models"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue routes
func IssueRoutes(r *gin.Engine) {
	issue := r.Group("/api/issues", middlewares.AuthMiddleware())
	{
		issue.POST("", middlewares.IssueRateLimiter(5), controllers.CreateIssue)
		issue.GET("", controllers.GetAllIssues)
		issue.GET("/recent", controllers.RecentIssues)
		issue.GET("/mine", controllers.GetIssuesByUser)
		issue.GET("/analytics",
			middlewares.RequireRole(models.RoleLowAdmin, models.RoleHighAdmin),
			controllers.GetIssueAnalytics)
		issue.GET("/:id", controllers.GetIssue)
		issue.PATCH("/:id/status", controllers.UpdateIssueStatus)
		issue.PATCH("/:id/assign", controllers.AssignIssue)
		issue.POST("/:id/comments", controllers.AddComment)
		issue.POST("/:id/proof", controllers.AddWorkProof)
		issue.PATCH("/:id/archive", controllers.ArchiveIssue)
	}

	uploads := r.Group("/api/uploads", middlewares.AuthMiddleware())
	{
		uploads.POST("/photo", controllers.UploadPhoto)
	}
}
