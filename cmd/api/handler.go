package api

import (
	authUsecase "mailboard-backend/internal/auth/usecase"
	emailDelivery "mailboard-backend/internal/email/delivery"
	"mailboard-backend/pkg/realtime"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase  authUsecase.AuthUsecase
	emailHandler *emailDelivery.EmailHandler
	hub          *realtime.Hub
}

func NewHandler(authUc authUsecase.AuthUsecase, emailHandler *emailDelivery.EmailHandler, hub *realtime.Hub) *Handler {
	return &Handler{
		authUsecase:  authUc,
		emailHandler: emailHandler,
		hub:          hub,
	}
}

// Engine builds the gin engine with middleware and routes
func (h *Handler) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.emailHandler, h.hub)
	return r
}
