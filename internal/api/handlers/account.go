package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/imapsync"
)

// AccountHandler serves sync state and lifecycle controls for the
// configured accounts
type AccountHandler struct {
	manager *imapsync.Manager
}

// NewAccountHandler creates a new AccountHandler instance
func NewAccountHandler(manager *imapsync.Manager) *AccountHandler {
	return &AccountHandler{
		manager: manager,
	}
}

// ListStatuses returns the sync status of every account
// GET /api/accounts/status
func (h *AccountHandler) ListStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"accounts": h.manager.Statuses(),
	})
}

// GetStatus returns the sync status of one account
// GET /api/accounts/:id/status
func (h *AccountHandler) GetStatus(c *gin.Context) {
	status, err := h.manager.Status(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Account not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"account": status,
	})
}

// Reconnect tears down and rebuilds one account's session
// POST /api/accounts/:id/reconnect
func (h *AccountHandler) Reconnect(c *gin.Context) {
	accountID := c.Param("id")

	err := h.manager.Reconnect(accountID)
	if err != nil {
		if errors.Is(err, imapsync.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Account not found",
				},
			})
			return
		}
		// The account exists but the connect attempt failed; the status
		// endpoint carries the same error
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CONNECT_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	status, _ := h.manager.Status(accountID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"account": status,
	})
}

// ConnectAll starts syncing every configured account
// POST /api/accounts/connect
func (h *AccountHandler) ConnectAll(c *gin.Context) {
	results := h.manager.ConnectAll()

	failed := make(map[string]string)
	for id, err := range results {
		if err != nil {
			failed[id] = err.Error()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  len(failed) == 0,
		"accounts": h.manager.Statuses(),
		"failed":   failed,
	})
}

// DisconnectAll tears down every session without removing the accounts
// POST /api/accounts/disconnect
func (h *AccountHandler) DisconnectAll(c *gin.Context) {
	h.manager.DisconnectAll()

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"accounts": h.manager.Statuses(),
	})
}
