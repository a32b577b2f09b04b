package api

import (
	"net/http"

	"mailboard-backend/internal/auth/delivery"
	authUsecase "mailboard-backend/internal/auth/usecase"
	emailDelivery "mailboard-backend/internal/email/delivery"
	"mailboard-backend/pkg/realtime"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, emailHandler *emailDelivery.EmailHandler, hub *realtime.Hub) {
	authHandler := delivery.NewAuthHandler(authUsecase)
	requireAuth := delivery.AuthMiddleware(authUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Realtime endpoints, token may come from the query string
		api.GET("/events", requireAuth, func(c *gin.Context) {
			realtime.ServeSSE(c, hub, c.GetString("userID"))
		})
		api.GET("/ws", requireAuth, func(c *gin.Context) {
			realtime.ServeWebSocket(hub, c.GetString("userID"), c.Writer, c.Request)
		})

		api.GET("/auth/me", requireAuth, authHandler.Me)

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(requireAuth)
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		// Email routes (protected)
		emails := api.Group("/emails")
		emails.Use(requireAuth)
		{
			emails.GET("/snoozed", emailHandler.GetSnoozedEmails)
			emails.POST("/watch", emailHandler.WatchMailbox)
			emails.GET("/:id/column", emailHandler.GetEmailColumn)
			emails.POST("/:id/move", emailHandler.MoveEmail)
			emails.POST("/:id/snooze", emailHandler.SnoozeEmail)
			emails.POST("/:id/unsnooze", emailHandler.UnsnoozeEmail)
		}

		// Kanban routes (protected)
		kanban := api.Group("/kanban")
		kanban.Use(requireAuth)
		{
			kanban.GET("/columns", emailHandler.GetKanbanColumns)
			kanban.POST("/columns", emailHandler.CreateKanbanColumn)
			kanban.PUT("/columns/orders", emailHandler.UpdateKanbanColumnOrders)
			kanban.GET("/columns/:column_id", emailHandler.GetKanbanColumn)
			kanban.PATCH("/columns/:column_id", emailHandler.RenameKanbanColumn)
			kanban.DELETE("/columns/:column_id", emailHandler.DeleteKanbanColumn)
			kanban.GET("/labels", emailHandler.GetLabels)
			kanban.POST("/reorder", emailHandler.ReorderEmails)
		}
	}
}
