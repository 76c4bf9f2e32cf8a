package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/api/handlers"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/api/middleware"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/config"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/imapsync"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/services"
)

// Services bundles what the HTTP surface needs
type Services struct {
	Manager    *imapsync.Manager
	Store      *services.StoreService
	Replies    *services.ReplyService
	Notify     *services.NotifyService
	LogService *services.LogService
}

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	router := gin.Default()

	allowOrigins := splitOrigins(cfg.CORSOrigins)
	router.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	router.Use(middleware.RequestLogger(svc.LogService))

	accountHandler := handlers.NewAccountHandler(svc.Manager)
	emailHandler := handlers.NewEmailHandler(svc.Store, svc.Replies, svc.LogService)
	webhookHandler := handlers.NewWebhookHandler(svc.Notify)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := router.Group("/api")
	{
		accounts := api.Group("/accounts")
		{
			accounts.GET("/status", accountHandler.ListStatuses)
			accounts.POST("/connect", accountHandler.ConnectAll)
			accounts.POST("/disconnect", accountHandler.DisconnectAll)
			accounts.GET("/:id/status", accountHandler.GetStatus)
			accounts.POST("/:id/reconnect", accountHandler.Reconnect)
		}

		emails := api.Group("/emails")
		{
			emails.GET("", emailHandler.ListEmails)
			emails.GET("/search", emailHandler.SearchEmails)
			emails.GET("/stats", emailHandler.GetStats)
			emails.GET("/:id", emailHandler.GetEmail)
			emails.POST("/:id/category", emailHandler.UpdateCategory)
			emails.POST("/:id/suggest-reply", emailHandler.SuggestReply)
		}

		webhooks := api.Group("/webhooks")
		{
			webhooks.GET("/status", webhookHandler.Status)
			webhooks.POST("/test", webhookHandler.Test)
		}
	}

	return router
}

// splitOrigins parses the comma separated CORS origin list
func splitOrigins(origins string) []string {
	if origins == "" {
		return []string{"*"}
	}
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
