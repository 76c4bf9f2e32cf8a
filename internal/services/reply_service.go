package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/functions/ai"
)

// ErrReplyUnavailable indicates reply drafting is not configured
var ErrReplyUnavailable = errors.New("reply drafting unavailable")

// ReplyService drafts suggested replies for stored emails, grounding the
// draft on context snippets retrieved from the vector store. Retrieval
// failures degrade to an ungrounded draft rather than failing the request.
type ReplyService struct {
	store    *StoreService
	vectors  *VectorService
	aiClient *ai.Client
}

// NewReplyService creates a new ReplyService instance
func NewReplyService(store *StoreService, vectors *VectorService, aiClient *ai.Client) *ReplyService {
	return &ReplyService{
		store:    store,
		vectors:  vectors,
		aiClient: aiClient,
	}
}

// SuggestedReply is a drafted reply plus the context it was grounded on
type SuggestedReply struct {
	EmailID  string   `json:"email_id"`
	Reply    string   `json:"reply"`
	Contexts []string `json:"contexts,omitempty"`
}

// SuggestReply drafts a reply for the email with the given id
func (r *ReplyService) SuggestReply(uid string) (*SuggestedReply, error) {
	if !r.aiClient.IsConfigured() {
		return nil, ErrReplyUnavailable
	}

	email, err := r.store.GetByUID(uid)
	if err != nil {
		return nil, err
	}

	var contexts []string
	if r.vectors.Enabled() {
		query := email.Subject + "\n" + email.Body
		contexts, err = r.vectors.Search(query, defaultTopK)
		if err != nil {
			log.Printf("[Vector] context retrieval failed, drafting without context: %v", err)
			contexts = nil
		}
	}

	reply, err := r.aiClient.SuggestReply(email.Subject, email.FromAddr, email.Body, contexts)
	if err != nil {
		return nil, fmt.Errorf("reply drafting failed: %w", err)
	}

	return &SuggestedReply{
		EmailID:  email.UID,
		Reply:    reply,
		Contexts: contexts,
	}, nil
}
