package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/config"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/functions/ai"
)

// replyAIServer answers both the chat and the embeddings endpoint
func replyAIServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/completions":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id": "chatcmpl-1",
				"choices": []map[string]interface{}{
					{"message": map[string]string{"role": "assistant", "content": reply}},
				},
			})
		case "/embeddings":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{"embedding": []float32{0.1, 0.2, 0.3, 0.4}},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newReplyTestService(t *testing.T, aiURL string, vectorCfg config.VectorConfig) (*ReplyService, func()) {
	t.Helper()
	db, cleanup := setupStoreTestDB(t)

	client := ai.NewClient()
	if aiURL != "" {
		client.ConfigureWithBaseURL("custom", "test-key", "test-model", aiURL)
	}

	logService := NewLogService(db)
	store := NewStoreService(db, logService)
	vectors := NewVectorService(vectorCfg, client, logService)
	return NewReplyService(store, vectors, client), cleanup
}

func TestReply_NotConfigured(t *testing.T) {
	svc, cleanup := newReplyTestService(t, "", config.VectorConfig{})
	defer cleanup()

	if _, err := svc.SuggestReply("uid-1"); !errors.Is(err, ErrReplyUnavailable) {
		t.Errorf("expected ErrReplyUnavailable, got %v", err)
	}
}

func TestReply_UnknownEmail(t *testing.T) {
	srv := replyAIServer(t, "draft")
	defer srv.Close()

	svc, cleanup := newReplyTestService(t, srv.URL, config.VectorConfig{})
	defer cleanup()

	if _, err := svc.SuggestReply("missing"); !errors.Is(err, ErrEmailNotFound) {
		t.Errorf("expected ErrEmailNotFound, got %v", err)
	}
}

func TestReply_DraftsWithoutVectorStore(t *testing.T) {
	srv := replyAIServer(t, "Thanks for reaching out, you can book a slot here.")
	defer srv.Close()

	svc, cleanup := newReplyTestService(t, srv.URL, config.VectorConfig{})
	defer cleanup()

	if _, _, err := svc.store.Index(sampleMessage("uid-1", "acc-1", "<m1@x>")); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	got, err := svc.SuggestReply("uid-1")
	if err != nil {
		t.Fatalf("SuggestReply failed: %v", err)
	}
	if got.EmailID != "uid-1" || got.Reply == "" {
		t.Errorf("unexpected reply %+v", got)
	}
	if len(got.Contexts) != 0 {
		t.Errorf("expected no contexts, got %v", got.Contexts)
	}
}

func TestReply_GroundsDraftOnRetrievedContext(t *testing.T) {
	srv := replyAIServer(t, "Happy to help, here is the booking link.")
	defer srv.Close()

	qdrant := &fakeQdrant{}
	qdrantSrv := qdrant.server(t)
	defer qdrantSrv.Close()

	svc, cleanup := newReplyTestService(t, srv.URL, config.VectorConfig{
		Enabled:        true,
		QdrantURL:      qdrantSrv.URL,
		Collection:     "outreach",
		EmbeddingModel: "embed-model",
	})
	defer cleanup()

	if _, _, err := svc.store.Index(sampleMessage("uid-1", "acc-1", "<m1@x>")); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	got, err := svc.SuggestReply("uid-1")
	if err != nil {
		t.Fatalf("SuggestReply failed: %v", err)
	}
	if len(got.Contexts) != 2 || got.Contexts[0] != "demo booking link" {
		t.Errorf("unexpected contexts %v", got.Contexts)
	}
	if len(qdrant.searched) != 1 {
		t.Errorf("expected 1 vector search, got %d", len(qdrant.searched))
	}
}

func TestReply_VectorFailureDegradesToUngrounded(t *testing.T) {
	srv := replyAIServer(t, "Thanks for the note.")
	defer srv.Close()

	qdrantSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer qdrantSrv.Close()

	svc, cleanup := newReplyTestService(t, srv.URL, config.VectorConfig{
		Enabled:        true,
		QdrantURL:      qdrantSrv.URL,
		Collection:     "outreach",
		EmbeddingModel: "embed-model",
	})
	defer cleanup()

	if _, _, err := svc.store.Index(sampleMessage("uid-1", "acc-1", "<m1@x>")); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	got, err := svc.SuggestReply("uid-1")
	if err != nil {
		t.Fatalf("SuggestReply failed: %v", err)
	}
	if got.Reply != "Thanks for the note." {
		t.Errorf("unexpected reply %q", got.Reply)
	}
	if len(got.Contexts) != 0 {
		t.Errorf("expected degraded draft without contexts, got %v", got.Contexts)
	}
}
