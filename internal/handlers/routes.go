package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/middleware"
)

// RegisterRoutes mounts every REST endpoint on api (normally /api/v1). requireAuth guards
// everything except registration, login and password recovery.
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	authLimiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig()).Middleware()
	uploadLimiter := middleware.NewRateLimiter(middleware.UploadRateLimitConfig()).Middleware()

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authLimiter, h.Register)
		authGroup.POST("/login", authLimiter, h.Login)
		authGroup.POST("/forgot-password", authLimiter, h.ForgotPassword)
		authGroup.POST("/reset-password", authLimiter, h.ResetPassword)

		authGroup.POST("/logout", requireAuth, h.Logout)
		authGroup.GET("/me", requireAuth, h.Me)
		authGroup.POST("/verify-email", requireAuth, h.VerifyEmail)
		authGroup.POST("/resend-verification", requireAuth, authLimiter, h.ResendVerification)
		authGroup.PUT("/password", requireAuth, h.ChangePassword)
	}

	protected := api.Group("")
	protected.Use(requireAuth)

	users := protected.Group("/users")
	{
		users.PUT("/me", h.UpdateProfile)
		users.DELETE("/me", h.DeleteAccount)
		users.POST("/me/avatar", uploadLimiter, h.UploadAvatar)
		users.POST("/me/cover", uploadLimiter, h.UploadCover)
		users.POST("/me/resume", uploadLimiter, h.UploadResume)
		users.GET("/me/profile-views", h.GetProfileViews)
		users.GET("/:id", h.GetUserProfile)
		users.GET("/:id/posts", h.GetUserPosts)
		users.GET("/:id/connections", h.GetUserConnections)
	}

	posts := protected.Group("/posts")
	{
		posts.POST("", h.CreatePost)
		posts.GET("/feed", h.GetFeed)
		posts.GET("/:id", h.GetPost)
		posts.PUT("/:id", h.UpdatePost)
		posts.DELETE("/:id", h.DeletePost)
		posts.POST("/:id/like", h.ToggleLike)
		posts.GET("/:id/comments", h.GetComments)
		posts.POST("/:id/comments", h.CreateComment)
		posts.POST("/:id/share", h.SharePost)
	}
	protected.DELETE("/comments/:id", h.DeleteComment)

	connections := protected.Group("/connections")
	{
		connections.GET("", h.GetConnections)
		connections.GET("/requests", h.GetConnectionRequests)
		connections.GET("/sent", h.GetSentRequests)
		connections.GET("/status/:userId", h.GetConnectionStatus)
		connections.POST("/requests/:id/accept", h.AcceptConnection)
		connections.POST("/requests/:id/reject", h.RejectConnection)
		connections.POST("/:userId", h.RequestConnection)
		connections.DELETE("/:userId", h.RemoveConnection)
	}

	messages := protected.Group("/messages")
	{
		messages.POST("", uploadLimiter, h.SendMessage)
		messages.GET("/conversations", h.GetConversations)
		messages.GET("/unread-count", h.GetUnreadMessageCount)
		messages.GET("/:userId", h.GetThread)
		messages.PUT("/:userId/read", h.MarkThreadRead)
		messages.DELETE("/:id", h.DeleteMessage)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.GetNotifications)
		notifications.GET("/unread-count", h.GetUnreadNotificationCount)
		notifications.PUT("/read-all", h.MarkAllNotificationsRead)
		notifications.PUT("/:id/read", h.MarkNotificationRead)
		notifications.DELETE("/:id", h.DeleteNotification)
	}

	jobs := protected.Group("/jobs")
	{
		jobs.POST("", h.CreateJob)
		jobs.GET("", h.ListJobs)
		jobs.GET("/mine", h.GetMyJobs)
		jobs.GET("/:id", h.GetJob)
		jobs.PUT("/:id", h.UpdateJob)
		jobs.DELETE("/:id", h.DeleteJob)
		jobs.POST("/:id/apply", h.ApplyToJob)
		jobs.GET("/:id/applications", h.GetJobApplications)
	}

	applications := protected.Group("/applications")
	{
		applications.GET("/mine", h.GetMyApplications)
		applications.PUT("/:id/status", h.UpdateApplicationStatus)
		applications.DELETE("/:id", h.WithdrawApplication)
	}

	protected.GET("/search", h.Search)
}
