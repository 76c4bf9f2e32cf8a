package functions

import (
	"log"
	"time"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/config"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/database/models"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/functions/ai"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/functions/local"
)

// ProcessorMode represents the categorization mode (AI or local)
type ProcessorMode string

const (
	// ProcessorModeAI uses an AI provider with local fallback
	ProcessorModeAI ProcessorMode = "ai"
	// ProcessorModeLocal uses keyword rules only
	ProcessorModeLocal ProcessorMode = "local"
)

const (
	maxRetries = 3
	baseDelay  = time.Second
)

// Processor assigns sales-intent categories to emails
type Processor struct {
	mode     ProcessorMode
	aiClient *ai.Client
}

// NewProcessor builds a Processor from the AI configuration. Without a
// configured provider it runs in local mode.
func NewProcessor(cfg config.AIConfig) *Processor {
	p := &Processor{
		mode:     ProcessorModeLocal,
		aiClient: ai.NewClient(),
	}

	if cfg.Enabled && cfg.APIKey != "" {
		p.aiClient.ConfigureWithBaseURL(cfg.Provider, cfg.APIKey, cfg.Model, cfg.BaseURL)
		p.mode = ProcessorModeAI
	}

	return p
}

// Mode returns the active categorization mode
func (p *Processor) Mode() ProcessorMode {
	return p.mode
}

// Categorize labels one email. Returns the category and which processor
// produced it. AI failures degrade to the keyword ruleset, so a label is
// always produced.
func (p *Processor) Categorize(subject, body, from string) (string, string) {
	if p.mode == ProcessorModeAI {
		label, err := p.categorizeWithRetry(subject, body, from)
		if err == nil {
			if !models.IsValidCategory(label) {
				log.Printf("[Process] invalid category %q, defaulting to %s", label, models.CategoryUncategorized)
				return models.CategoryUncategorized, string(ProcessorModeAI)
			}
			return label, string(ProcessorModeAI)
		}
		log.Printf("[Process] AI categorization failed, using keyword rules: %v", err)
	}

	return local.Categorize(subject, body, from), string(ProcessorModeLocal)
}

// categorizeWithRetry calls the AI provider with exponential backoff
func (p *Processor) categorizeWithRetry(subject, body, from string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		label, err := p.aiClient.Categorize(subject, from, body)
		if err == nil {
			return label, nil
		}
		lastErr = err

		if attempt < maxRetries-1 {
			time.Sleep(baseDelay << attempt)
		}
	}

	return "", lastErr
}

// AIClient exposes the underlying client for reply drafting and embeddings
func (p *Processor) AIClient() *ai.Client {
	return p.aiClient
}
