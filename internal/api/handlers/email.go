package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/database/models"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/services"
)

// EmailHandler handles email query and categorization requests
type EmailHandler struct {
	store      *services.StoreService
	replies    *services.ReplyService
	logService *services.LogService
}

// NewEmailHandler creates a new EmailHandler instance
func NewEmailHandler(store *services.StoreService, replies *services.ReplyService, logService *services.LogService) *EmailHandler {
	return &EmailHandler{
		store:      store,
		replies:    replies,
		logService: logService,
	}
}

// EmailResponse represents the response for an email
type EmailResponse struct {
	ID              string   `json:"id"`
	AccountID       string   `json:"account_id"`
	Folder          string   `json:"folder"`
	MessageID       string   `json:"message_id"`
	Subject         string   `json:"subject"`
	From            string   `json:"from"`
	To              []string `json:"to"`
	Date            int64    `json:"date"`
	Body            string   `json:"body"`
	InReplyTo       string   `json:"in_reply_to,omitempty"`
	HasAttachments  bool     `json:"has_attachments"`
	AttachmentCount int      `json:"attachment_count"`
	Category        string   `json:"category"`
	IndexedAt       int64    `json:"indexed_at"`
}

// toEmailResponse converts an Email model to EmailResponse
func toEmailResponse(email *models.Email) EmailResponse {
	var toAddrs []string
	if email.ToAddrs != "" {
		json.Unmarshal([]byte(email.ToAddrs), &toAddrs)
	}

	return EmailResponse{
		ID:              email.UID,
		AccountID:       email.AccountID,
		Folder:          email.Folder,
		MessageID:       email.MessageID,
		Subject:         email.Subject,
		From:            email.FromAddr,
		To:              toAddrs,
		Date:            email.Date.Unix(),
		Body:            email.Body,
		InReplyTo:       email.InReplyTo,
		HasAttachments:  email.HasAttachments,
		AttachmentCount: email.AttachmentCount,
		Category:        email.Category,
		IndexedAt:       email.IndexedAt.Unix(),
	}
}

// queryFromContext builds an EmailQuery from shared list parameters
func queryFromContext(c *gin.Context) services.EmailQuery {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	return services.EmailQuery{
		AccountID: c.Query("account_id"),
		Folder:    c.Query("folder"),
		Category:  c.Query("category"),
		Page:      page,
		PageSize:  limit,
	}
}

// listResponse renders one page of emails in the standard envelope
func (h *EmailHandler) listResponse(c *gin.Context, query services.EmailQuery) {
	emails, total, err := h.store.List(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve emails",
			},
		})
		return
	}

	response := make([]EmailResponse, 0, len(emails))
	for i := range emails {
		response = append(response, toEmailResponse(&emails[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"emails":  response,
		"pagination": gin.H{
			"page":  query.Page,
			"limit": query.PageSize,
			"total": total,
		},
	})
}

// ListEmails returns a filtered page of emails
// GET /api/emails
func (h *EmailHandler) ListEmails(c *gin.Context) {
	query := queryFromContext(c)
	query.Search = c.Query("search")

	if query.Category != "" && !models.IsValidCategory(query.Category) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_CATEGORY",
				"message": "Unknown category: " + query.Category,
			},
		})
		return
	}

	h.listResponse(c, query)
}

// SearchEmails returns emails matching a free-text query
// GET /api/emails/search
func (h *EmailHandler) SearchEmails(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Query parameter q is required",
			},
		})
		return
	}

	query := queryFromContext(c)
	query.Search = q
	h.listResponse(c, query)
}

// GetEmail returns one email by id
// GET /api/emails/:id
func (h *EmailHandler) GetEmail(c *gin.Context) {
	email, err := h.store.GetByUID(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrEmailNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Email not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve email",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"email":   toEmailResponse(email),
	})
}

// GetStats returns aggregate counts over the email store
// GET /api/emails/stats
func (h *EmailHandler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to compute stats",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

// UpdateCategoryRequest represents a manual category override
type UpdateCategoryRequest struct {
	Category string `json:"category" binding:"required"`
}

// UpdateCategory overrides one email's category
// POST /api/emails/:id/category
func (h *EmailHandler) UpdateCategory(c *gin.Context) {
	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Field category is required",
			},
		})
		return
	}

	email, err := h.store.UpdateCategory(c.Param("id"), req.Category)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCategory):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_CATEGORY",
					"message": "Unknown category: " + req.Category,
				},
			})
		case errors.Is(err, services.ErrEmailNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Email not found",
				},
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "Failed to update category",
				},
			})
		}
		return
	}

	h.logService.LogCategorized(email.AccountID, email.UID, email.Category, "manual", nil)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"email":   toEmailResponse(email),
	})
}

// SuggestReply drafts a reply for one email
// POST /api/emails/:id/suggest-reply
func (h *EmailHandler) SuggestReply(c *gin.Context) {
	suggestion, err := h.replies.SuggestReply(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Email not found",
				},
			})
		case errors.Is(err, services.ErrReplyUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_CONFIGURED",
					"message": "No AI provider configured for reply drafting",
				},
			})
		default:
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "REPLY_FAILED",
					"message": err.Error(),
				},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"suggestion": suggestion,
	})
}
