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

	"github.com/google/uuid"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/config"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/functions/ai"
)

var (
	// ErrVectorDisabled indicates the vector store is not enabled
	ErrVectorDisabled = errors.New("vector store disabled")
	// ErrVectorStoreFailed indicates a vector store request failed
	ErrVectorStoreFailed = errors.New("vector store request failed")
)

const (
	vectorTimeout = 15 * time.Second
	// defaultTopK is how many context snippets a search returns
	defaultTopK = 3
)

// VectorService stores outreach context snippets in Qdrant and retrieves
// the ones most similar to an incoming email. Embeddings come from the
// AI client's embeddings endpoint.
type VectorService struct {
	cfg        config.VectorConfig
	aiClient   *ai.Client
	httpClient *http.Client
	logService *LogService
}

// NewVectorService creates a new VectorService instance
func NewVectorService(cfg config.VectorConfig, aiClient *ai.Client, logService *LogService) *VectorService {
	return &VectorService{
		cfg:      cfg,
		aiClient: aiClient,
		httpClient: &http.Client{
			Timeout: vectorTimeout,
		},
		logService: logService,
	}
}

// Enabled reports whether the vector store is usable
func (v *VectorService) Enabled() bool {
	return v.cfg.Enabled && v.aiClient.IsConfigured()
}

// DefaultSnippets seeds the collection with product and outreach context
// used to ground suggested replies
var DefaultSnippets = []string{
	"Our product OneBox aggregates multiple email inboxes in real time, categorizes replies by sales intent, and surfaces interested leads instantly.",
	"For interested leads, offer a 30-minute demo call and share the booking link https://cal.com/onebox/demo.",
	"Pricing starts at $49 per month for up to 5 synced mailboxes, with a 14-day free trial and no credit card required.",
	"If the prospect asks about data security, mention that credentials are encrypted at rest and all IMAP connections use TLS.",
	"When a prospect is out of office, wait until their stated return date before following up.",
}

// qdrant request and response shapes, trimmed to the fields used here

type qdrantCreateCollection struct {
	Vectors qdrantVectorParams `json:"vectors"`
}

type qdrantVectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type qdrantPoint struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload"`
}

type qdrantUpsert struct {
	Points []qdrantPoint `json:"points"`
}

type qdrantSearch struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      json.RawMessage        `json:"id"`
		Score   float32                `json:"score"`
		Payload map[string]interface{} `json:"payload"`
	} `json:"result"`
	Status interface{} `json:"status"`
}

// EnsureCollection creates the collection when it does not exist yet.
// Qdrant answers 409 for an existing collection; that is not an error.
func (v *VectorService) EnsureCollection(vectorSize int) error {
	if !v.Enabled() {
		return ErrVectorDisabled
	}

	body := qdrantCreateCollection{
		Vectors: qdrantVectorParams{
			Size:     vectorSize,
			Distance: "Cosine",
		},
	}

	status, respBody, err := v.request("PUT", "/collections/"+v.cfg.Collection, body)
	if err != nil {
		return err
	}
	if status == http.StatusConflict {
		return nil
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrVectorStoreFailed, status, respBody)
	}
	return nil
}

// Seed embeds and upserts the given snippets, creating the collection
// from the first embedding's dimensionality
func (v *VectorService) Seed(snippets []string) (int, error) {
	if !v.Enabled() {
		return 0, ErrVectorDisabled
	}
	if len(snippets) == 0 {
		snippets = DefaultSnippets
	}

	points := make([]qdrantPoint, 0, len(snippets))
	for _, text := range snippets {
		vec, err := v.aiClient.Embed(v.cfg.EmbeddingModel, text)
		if err != nil {
			return len(points), fmt.Errorf("embedding failed: %w", err)
		}
		points = append(points, qdrantPoint{
			ID:     uuid.NewString(),
			Vector: vec,
			Payload: map[string]interface{}{
				"text": text,
			},
		})
	}

	if err := v.EnsureCollection(len(points[0].Vector)); err != nil {
		return 0, err
	}

	status, respBody, err := v.request("PUT", "/collections/"+v.cfg.Collection+"/points?wait=true",
		qdrantUpsert{Points: points})
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d: %s", ErrVectorStoreFailed, status, respBody)
	}

	log.Printf("[Vector] seeded %d snippets into %s", len(points), v.cfg.Collection)
	return len(points), nil
}

// Search returns the texts of the snippets closest to the query
func (v *VectorService) Search(query string, topK int) ([]string, error) {
	if !v.Enabled() {
		return nil, ErrVectorDisabled
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	vec, err := v.aiClient.Embed(v.cfg.EmbeddingModel, query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	status, respBody, err := v.request("POST", "/collections/"+v.cfg.Collection+"/points/search",
		qdrantSearch{Vector: vec, Limit: topK, WithPayload: true})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrVectorStoreFailed, status, respBody)
	}

	var parsed qdrantSearchResponse
	if err := json.Unmarshal([]byte(respBody), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVectorStoreFailed, err)
	}

	texts := make([]string, 0, len(parsed.Result))
	for _, hit := range parsed.Result {
		if text, ok := hit.Payload["text"].(string); ok {
			texts = append(texts, text)
		}
	}
	return texts, nil
}

// Reset drops the collection so it can be reseeded from scratch
func (v *VectorService) Reset() error {
	if !v.cfg.Enabled {
		return ErrVectorDisabled
	}

	status, respBody, err := v.request("DELETE", "/collections/"+v.cfg.Collection, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNotFound {
		return fmt.Errorf("%w: status %d: %s", ErrVectorStoreFailed, status, respBody)
	}
	return nil
}

// request performs one JSON request against the Qdrant REST API
func (v *VectorService) request(method, path string, body interface{}) (int, string, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, "", fmt.Errorf("%w: %v", ErrVectorStoreFailed, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, v.cfg.QdrantURL+path, reader)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrVectorStoreFailed, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrVectorStoreFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrVectorStoreFailed, err)
	}

	return resp.StatusCode, string(respBody), nil
}
