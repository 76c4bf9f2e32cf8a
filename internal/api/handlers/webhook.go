package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/services"
)

// WebhookHandler exercises the configured notification targets
type WebhookHandler struct {
	notify *services.NotifyService
}

// NewWebhookHandler creates a new WebhookHandler instance
func NewWebhookHandler(notify *services.NotifyService) *WebhookHandler {
	return &WebhookHandler{
		notify: notify,
	}
}

// TestWebhookRequest selects which target to test
type TestWebhookRequest struct {
	Target string `json:"target" binding:"required"`
}

// Test fires a test notification at one target
// POST /api/webhooks/test
func (h *WebhookHandler) Test(c *gin.Context) {
	var req TestWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Field target is required (slack or webhook)",
			},
		})
		return
	}

	var err error
	switch req.Target {
	case "slack":
		err = h.notify.TestSlack()
	case "webhook":
		err = h.notify.TestWebhook()
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Unknown target: " + req.Target,
			},
		})
		return
	}

	if err != nil {
		if errors.Is(err, services.ErrNotifyNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_CONFIGURED",
					"message": "Target " + req.Target + " is not configured",
				},
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DELIVERY_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"target":  req.Target,
	})
}

// Status reports which notification targets are configured
// GET /api/webhooks/status
func (h *WebhookHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"targets": h.notify.Status(),
	})
}
