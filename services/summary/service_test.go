package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"tubebrief/errors"
	"tubebrief/fetch"
	"tubebrief/repository"
)

type fakeRepo struct {
	keys   []string
	prompt string
}

func (r *fakeRepo) APIKeys(ctx context.Context) ([]string, error)        { return r.keys, nil }
func (r *fakeRepo) SaveAPIKeys(ctx context.Context, keys []string) error { return nil }
func (r *fakeRepo) CustomPrompt(ctx context.Context) (string, error)     { return r.prompt, nil }
func (r *fakeRepo) SaveCustomPrompt(ctx context.Context, t string) error { return nil }

// modelServer answers generateContent calls, failing the models listed in
// quotaModels with a 429 and succeeding for everything else.
type modelServer struct {
	mu          sync.Mutex
	calls       []string
	prompts     []string
	quotaModels map[string]bool
}

func (m *modelServer) handler(w http.ResponseWriter, r *http.Request) {
	model := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ":generateContent")

	var req generateRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	prompt := ""
	if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
		prompt = req.Contents[0].Parts[0].Text
	}

	m.mu.Lock()
	m.calls = append(m.calls, model)
	m.prompts = append(m.prompts, prompt)
	quota := m.quotaModels[model]
	m.mu.Unlock()

	if quota {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"code": 429, "status": "RESOURCE_EXHAUSTED"}}`)
		return
	}
	fmt.Fprintf(w, `{"candidates": [{"content": {"parts": [{"text": "summary from %s"}]}}]}`, model)
}

func (m *modelServer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *modelServer) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

const longTranscript = "[0:01] This transcript is comfortably long enough to summarize."

func newTestService(t *testing.T, repo repository.CredentialRepository, ms *modelServer, models []string) Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(ms.handler))
	t.Cleanup(srv.Close)
	return NewService(repo, fetch.NewClient(fetch.Config{}), Config{
		Endpoint: srv.URL,
		Models:   models,
	})
}

func TestSummarizeNoKeysConfigured(t *testing.T) {
	ms := &modelServer{}
	svc := newTestService(t, &fakeRepo{}, ms, nil)

	_, err := svc.Summarize(context.Background(), longTranscript, "Title")
	if errors.KindOf(err) != errors.KindNoAPIKey {
		t.Fatalf("kind = %q, want %q", errors.KindOf(err), errors.KindNoAPIKey)
	}
	if ms.callCount() != 0 {
		t.Error("no model call should be made without a key")
	}
}

func TestSummarizeJunkKeysRejected(t *testing.T) {
	ms := &modelServer{}
	svc := newTestService(t, &fakeRepo{keys: []string{"short", "  "}}, ms, nil)

	_, err := svc.Summarize(context.Background(), longTranscript, "Title")
	if errors.KindOf(err) != errors.KindNoAPIKey {
		t.Fatalf("kind = %q, want %q", errors.KindOf(err), errors.KindNoAPIKey)
	}
}

func TestSummarizeShortTranscript(t *testing.T) {
	ms := &modelServer{}
	svc := newTestService(t, &fakeRepo{keys: []string{"test-key-0123456789"}}, ms, nil)

	_, err := svc.Summarize(context.Background(), "too short", "Title")
	if errors.KindOf(err) != errors.KindTranscriptShort {
		t.Fatalf("kind = %q, want %q", errors.KindOf(err), errors.KindTranscriptShort)
	}
	if ms.callCount() != 0 {
		t.Error("no model call should be made for a too-short transcript")
	}
}

func TestSummarizeSuccessPromotesModel(t *testing.T) {
	ms := &modelServer{quotaModels: map[string]bool{"model-a": true}}
	svc := newTestService(t, &fakeRepo{keys: []string{"test-key-0123456789"}}, ms,
		[]string{"model-a", "model-b", "model-c"})

	result, err := svc.Summarize(context.Background(), longTranscript, "Title")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Model != "model-b" {
		t.Fatalf("model = %q, want %q", result.Model, "model-b")
	}
	if !strings.Contains(result.Text, "model-b") {
		t.Errorf("summary text = %q", result.Text)
	}

	order := svc.(*service).modelOrder()
	if order[0] != "model-b" {
		t.Errorf("trial order = %v, the last successful model must lead", order)
	}
	if len(order) != 3 {
		t.Errorf("trial order = %v, promotion must not drop models", order)
	}
}

func TestSummarizeDefaultPromptSubstitution(t *testing.T) {
	ms := &modelServer{}
	svc := newTestService(t, &fakeRepo{keys: []string{"test-key-0123456789"}}, ms, []string{"model-a"})

	if _, err := svc.Summarize(context.Background(), longTranscript, "My Video"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := ms.lastPrompt()
	if !strings.Contains(prompt, `"My Video"`) {
		t.Errorf("prompt missing the title: %q", prompt)
	}
	if !strings.Contains(prompt, longTranscript) {
		t.Errorf("prompt missing the transcript: %q", prompt)
	}
	if strings.Contains(prompt, "{title}") || strings.Contains(prompt, "{transcript}") {
		t.Errorf("unsubstituted placeholder left in prompt: %q", prompt)
	}
}

func TestSummarizeCustomPromptTemplate(t *testing.T) {
	ms := &modelServer{}
	repo := &fakeRepo{
		keys:   []string{"test-key-0123456789"},
		prompt: "Be terse about {title}.\n\n{transcript}",
	}
	svc := newTestService(t, repo, ms, []string{"model-a"})

	if _, err := svc.Summarize(context.Background(), longTranscript, "My Video"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := ms.lastPrompt()
	if !strings.HasPrefix(prompt, "Be terse about My Video.") {
		t.Errorf("custom template not applied: %q", prompt)
	}
}

func TestSummarizeTruncatesHugeTranscript(t *testing.T) {
	ms := &modelServer{}
	svc := newTestService(t, &fakeRepo{keys: []string{"test-key-0123456789"}}, ms, []string{"model-a"})

	huge := strings.Repeat("a", maxTranscriptChars+5000)
	if _, err := svc.Summarize(context.Background(), huge, "Title"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := ms.lastPrompt()
	if !strings.Contains(prompt, truncationMarker) {
		t.Error("truncated transcript must carry the truncation marker")
	}
	if strings.Count(prompt, "a") > maxTranscriptChars {
		t.Errorf("transcript not truncated, %d chars survived", strings.Count(prompt, "a"))
	}
}

func TestSummarizeExhaustsKeysAndModels(t *testing.T) {
	ms := &modelServer{quotaModels: map[string]bool{"model-a": true, "model-b": true}}
	repo := &fakeRepo{keys: []string{"test-key-0123456789", "other-key-123456789"}}
	svc := newTestService(t, repo, ms, []string{"model-a", "model-b"})

	_, err := svc.Summarize(context.Background(), longTranscript, "Title")
	if err == nil {
		t.Fatal("expected terminal failure")
	}
	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("error type %T", err)
	}
	if appErr.Kind != errors.KindAllMethodsFailed {
		t.Errorf("kind = %q, want %q", appErr.Kind, errors.KindAllMethodsFailed)
	}
	if appErr.Code != 429 {
		t.Errorf("code = %d, want 429", appErr.Code)
	}
	// Both models tried under both keys.
	if ms.callCount() != 4 {
		t.Errorf("model calls = %d, want 4", ms.callCount())
	}
}

func TestModelTimeoutBounds(t *testing.T) {
	tests := []struct {
		promptLen int
		want      string
	}{
		{promptLen: 100, want: "floor"},
		{promptLen: 300_000, want: "scaled"},
		{promptLen: 10_000_000, want: "ceiling"},
	}
	for _, tt := range tests {
		got := modelTimeout(tt.promptLen)
		switch tt.want {
		case "floor":
			if got != minModelTimeout {
				t.Errorf("modelTimeout(%d) = %v, want floor %v", tt.promptLen, got, minModelTimeout)
			}
		case "ceiling":
			if got != maxModelTimeout {
				t.Errorf("modelTimeout(%d) = %v, want ceiling %v", tt.promptLen, got, maxModelTimeout)
			}
		case "scaled":
			if got <= minModelTimeout || got >= maxModelTimeout {
				t.Errorf("modelTimeout(%d) = %v, want strictly between bounds", tt.promptLen, got)
			}
		}
	}
}
