package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotConfigured indicates the AI client is not configured
	ErrNotConfigured = errors.New("AI client not configured")
	// ErrAPICallFailed indicates the AI API call failed
	ErrAPICallFailed = errors.New("AI API call failed")
	// ErrInvalidResponse indicates an invalid response from the AI API
	ErrInvalidResponse = errors.New("invalid AI API response")
)

// Provider represents an AI provider
type Provider string

const (
	// ProviderOpenAI represents OpenAI API
	ProviderOpenAI Provider = "openai"
	// ProviderAzure represents Azure OpenAI API
	ProviderAzure Provider = "azure"
	// ProviderClaude represents Anthropic Claude API
	ProviderClaude Provider = "claude"
	// ProviderCustom represents a custom API endpoint
	ProviderCustom Provider = "custom"
)

// Client handles AI API communication for email categorization, reply
// drafting, and embeddings
type Client struct {
	provider   Provider
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	configured bool
}

// NewClient creates a new AI Client instance
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Configure configures the AI client with provider settings
func (c *Client) Configure(provider, apiKey, model string) {
	c.ConfigureWithBaseURL(provider, apiKey, model, "")
}

// ConfigureWithBaseURL configures the AI client with provider settings and custom base URL
func (c *Client) ConfigureWithBaseURL(provider, apiKey, model, baseURL string) {
	c.provider = Provider(strings.ToLower(provider))
	c.apiKey = apiKey
	c.model = model
	c.configured = apiKey != ""

	// Use custom base URL if provided
	if baseURL != "" {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	} else {
		// Set default base URLs based on provider
		switch c.provider {
		case ProviderOpenAI:
			c.baseURL = "https://api.openai.com/v1"
			if c.model == "" {
				c.model = "gpt-3.5-turbo"
			}
		case ProviderClaude:
			c.baseURL = "https://api.anthropic.com/v1"
			if c.model == "" {
				c.model = "claude-3-haiku-20240307"
			}
		case ProviderAzure:
			// Azure requires custom endpoint
			if c.model == "" {
				c.model = "gpt-35-turbo"
			}
		default:
			c.provider = ProviderOpenAI
			c.baseURL = "https://api.openai.com/v1"
		}
	}
}

// IsConfigured returns whether the client is configured
func (c *Client) IsConfigured() bool {
	return c.configured && c.apiKey != ""
}

// ChatMessage represents a message in a chat conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a chat completion request
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// ChatResponse represents a chat completion response
type ChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// sendChatRequest sends a chat completion request to the AI API
func (c *Client) sendChatRequest(messages []ChatMessage, maxTokens int, temperature float64) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	request := ChatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")

	// Set authorization header based on provider
	switch c.provider {
	case ProviderClaude:
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")
	default:
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrAPICallFailed, resp.StatusCode, string(respBody))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrAPICallFailed, chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", ErrInvalidResponse
	}

	return chatResp.Choices[0].Message.Content, nil
}

const categorizePrompt = `You are an expert email classifier for a business outreach platform. Your task is to analyze the provided email text and categorize it into one of the following labels: Interested, Meeting Booked, Not Interested, Spam, or Out of Office.

Category Definitions:
- Interested: Shows genuine interest, asks questions, requests more information, or expresses positive engagement
- Meeting Booked: Agreed to a meeting, scheduled a call, or confirmed an appointment
- Not Interested: Explicitly declines, says no, or shows clear disinterest
- Spam: Automated responses, promotional content, or irrelevant messages
- Out of Office: Auto-replies, vacation messages, or out-of-office notifications

IMPORTANT: Respond with ONLY a JSON object in this exact format: {"category": "CategoryName"}`

// categoryResponse is the required shape of the classifier's answer
type categoryResponse struct {
	Category string `json:"category"`
}

// Categorize asks the model for a sales-intent label. The raw label is
// returned; validating it against the known set is the caller's job.
func (c *Client) Categorize(subject, from, body string) (string, error) {
	if len(body) > 2000 {
		body = body[:2000] + "..."
	}

	messages := []ChatMessage{
		{
			Role:    "system",
			Content: categorizePrompt,
		},
		{
			Role:    "user",
			Content: fmt.Sprintf("Subject: %s\nFrom: %s\nBody: %s", subject, from, body),
		},
	}

	response, err := c.sendChatRequest(messages, 100, 0.1)
	if err != nil {
		return "", err
	}

	// Some models wrap JSON in a code fence
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var parsed categoryResponse
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if parsed.Category == "" {
		return "", ErrInvalidResponse
	}

	return parsed.Category, nil
}

const replyPrompt = `You are an email assistant for a business outreach platform. Draft a short, professional reply to the incoming email.
Rules:
- Use the provided context snippets about our product and outreach process when relevant
- Keep the reply under 150 words
- Match the sender's tone and language
- Do not invent facts not present in the context
- Return ONLY the reply text, no subject line and no explanation`

// SuggestReply drafts a reply using retrieved context snippets
func (c *Client) SuggestReply(subject, from, body string, contexts []string) (string, error) {
	if len(body) > 2000 {
		body = body[:2000] + "..."
	}

	var sb strings.Builder
	sb.WriteString("Context snippets:\n")
	for i, ctx := range contexts {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, ctx)
	}
	fmt.Fprintf(&sb, "\nIncoming email:\nSubject: %s\nFrom: %s\n\n%s", subject, from, body)

	messages := []ChatMessage{
		{
			Role:    "system",
			Content: replyPrompt,
		},
		{
			Role:    "user",
			Content: sb.String(),
		},
	}

	response, err := c.sendChatRequest(messages, 500, 0.3)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(response), nil
}

// EmbeddingRequest represents an embeddings request
type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingResponse represents an embeddings response
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed returns the embedding vector for one text
func (c *Client) Embed(model, text string) ([]float32, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	request := EmbeddingRequest{
		Model: model,
		Input: []string{text},
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	url := c.baseURL + "/embeddings"
	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPICallFailed, resp.StatusCode, string(respBody))
	}

	var embResp EmbeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if embResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrAPICallFailed, embResp.Error.Message)
	}

	if len(embResp.Data) == 0 || len(embResp.Data[0].Embedding) == 0 {
		return nil, ErrInvalidResponse
	}

	return embResp.Data[0].Embedding, nil
}
