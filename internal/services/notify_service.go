package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/config"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/database/models"
)

var (
	// ErrNotifyNotConfigured indicates no notification target is set
	ErrNotifyNotConfigured = errors.New("notification target not configured")
	// ErrNotifyFailed indicates the notification delivery failed
	ErrNotifyFailed = errors.New("notification delivery failed")
)

const (
	notifyTimeout      = 10 * time.Second
	bodyPreviewLength  = 500
	webhookEventName   = "InterestedLead"
	webhookSourceName  = "reachinbox-onebox"
	webhookToolVersion = "1.0.0"
)

// NotifyService pushes lead alerts to Slack and an external webhook.
// Delivery failures are logged and swallowed; a dead webhook must never
// stall email processing.
type NotifyService struct {
	cfg        config.NotifyConfig
	httpClient *http.Client
	logService *LogService
}

// NewNotifyService creates a new NotifyService instance
func NewNotifyService(cfg config.NotifyConfig, logService *LogService) *NotifyService {
	return &NotifyService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: notifyTimeout,
		},
		logService: logService,
	}
}

// slackBlock is one element of a Slack Block Kit message
type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks,omitempty"`
}

// NotifyCategorized routes one categorized email to the configured
// targets. Only Interested leads notify unconditionally; Meeting Booked
// alerts are gated by configuration.
func (n *NotifyService) NotifyCategorized(email *models.Email) {
	switch email.Category {
	case models.CategoryInterested:
		n.notifyInterested(email)
	case models.CategoryMeetingBooked:
		if n.cfg.NotifyMeetingBooked {
			n.notifyMeetingBooked(email)
		}
	}
}

// notifyInterested sends the Slack alert and webhook event for a lead
func (n *NotifyService) notifyInterested(email *models.Email) {
	if n.cfg.SlackWebhookURL != "" {
		err := n.sendSlack(n.buildLeadPayload("🎯 New Interested Lead", email))
		n.logService.LogNotify(email.AccountID, email.UID, "slack", err)
		if err != nil {
			log.Printf("[Notify] slack delivery failed: %v", err)
		}
	}

	if n.cfg.WebhookURL != "" {
		err := n.sendWebhookEvent(webhookEventName, email)
		n.logService.LogNotify(email.AccountID, email.UID, "webhook", err)
		if err != nil {
			log.Printf("[Notify] webhook delivery failed: %v", err)
		}
	}
}

// notifyMeetingBooked sends a Slack alert for a booked meeting
func (n *NotifyService) notifyMeetingBooked(email *models.Email) {
	if n.cfg.SlackWebhookURL == "" {
		return
	}
	err := n.sendSlack(n.buildLeadPayload("📅 Meeting Booked", email))
	n.logService.LogNotify(email.AccountID, email.UID, "slack", err)
	if err != nil {
		log.Printf("[Notify] slack delivery failed: %v", err)
	}
}

// buildLeadPayload assembles the Block Kit message for one email
func (n *NotifyService) buildLeadPayload(headline string, email *models.Email) slackPayload {
	preview := email.Body
	if len(preview) > bodyPreviewLength {
		preview = preview[:bodyPreviewLength] + "..."
	}

	return slackPayload{
		Text: fmt.Sprintf("%s: %s", headline, email.Subject),
		Blocks: []slackBlock{
			{
				Type: "header",
				Text: &slackText{Type: "plain_text", Text: headline},
			},
			{
				Type: "section",
				Fields: []slackText{
					{Type: "mrkdwn", Text: "*Subject:*\n" + email.Subject},
					{Type: "mrkdwn", Text: "*From:*\n" + email.FromAddr},
					{Type: "mrkdwn", Text: "*Account:*\n" + email.AccountID},
					{Type: "mrkdwn", Text: "*Date:*\n" + email.Date.Format(time.RFC1123)},
				},
			},
			{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: "*Preview:*\n" + preview},
			},
		},
	}
}

// sendSlack posts a Block Kit payload to the incoming webhook
func (n *NotifyService) sendSlack(payload slackPayload) error {
	if n.cfg.SlackWebhookURL == "" {
		return ErrNotifyNotConfigured
	}
	return n.post(n.cfg.SlackWebhookURL, payload)
}

// webhookEvent is the envelope sent to the external webhook target
type webhookEvent struct {
	Event     string          `json:"event"`
	Timestamp string          `json:"timestamp"`
	Email     *models.Email   `json:"email"`
	Metadata  webhookMetadata `json:"metadata"`
}

type webhookMetadata struct {
	Source  string `json:"source"`
	Version string `json:"version"`
}

// sendWebhookEvent posts the typed event envelope to the external target
func (n *NotifyService) sendWebhookEvent(event string, email *models.Email) error {
	if n.cfg.WebhookURL == "" {
		return ErrNotifyNotConfigured
	}
	return n.post(n.cfg.WebhookURL, webhookEvent{
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Email:     email,
		Metadata: webhookMetadata{
			Source:  webhookSourceName,
			Version: webhookToolVersion,
		},
	})
}

// post JSON-encodes v and delivers it to url
func (n *NotifyService) post(url string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrNotifyFailed, resp.StatusCode, string(respBody))
	}

	return nil
}

// TestSlack sends a test message to verify the Slack webhook
func (n *NotifyService) TestSlack() error {
	if n.cfg.SlackWebhookURL == "" {
		return ErrNotifyNotConfigured
	}
	return n.sendSlack(slackPayload{
		Text: "✅ OneBox test notification: Slack webhook is working",
	})
}

// TestWebhook sends a test event to verify the external webhook
func (n *NotifyService) TestWebhook() error {
	if n.cfg.WebhookURL == "" {
		return ErrNotifyNotConfigured
	}
	return n.post(n.cfg.WebhookURL, map[string]interface{}{
		"event":     "Test",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"metadata": webhookMetadata{
			Source:  webhookSourceName,
			Version: webhookToolVersion,
		},
	})
}

// Status reports which notification targets are configured
func (n *NotifyService) Status() map[string]bool {
	return map[string]bool{
		"slack":   n.cfg.SlackWebhookURL != "",
		"webhook": n.cfg.WebhookURL != "",
	}
}
