package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"pregnancyai/app/service/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Authorization string
	Body          struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
}

type fakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []capturedRequest
}

func newFakeServer(t *testing.T, handler func(w http.ResponseWriter)) *fakeServer {
	t.Helper()

	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var captured capturedRequest
		captured.Authorization = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&captured.Body)

		fs.mu.Lock()
		fs.requests = append(fs.requests, captured)
		fs.mu.Unlock()

		handler(w)
	}))
	t.Cleanup(fs.Close)

	return fs
}

func (fs *fakeServer) last(t *testing.T) capturedRequest {
	t.Helper()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	require.NotEmpty(t, fs.requests)
	return fs.requests[len(fs.requests)-1]
}

func replyWith(content string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			}},
		})
	}
}

func newTestService(t *testing.T, url string, opts Options) *Service {
	t.Helper()

	opts.BaseURL = url
	opts.Token = "test-token"
	opts.Model = "test-model"
	opts.SystemPrompt = "Pregnancy assistant AI"
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}

	svc, err := NewService(opts)
	require.NoError(t, err)

	return svc
}

func TestCompleteSuccess(t *testing.T) {
	server := newFakeServer(t, replyWith("Eat leafy greens."))
	svc := newTestService(t, server.URL, Options{})

	result := svc.Complete(context.Background(), nil, "What foods should I eat?")
	require.True(t, result.OK())
	assert.Equal(t, "Eat leafy greens.", result.Text)
	assert.Equal(t, "Eat leafy greens.", result.Display())

	req := server.last(t)
	assert.Equal(t, "Bearer test-token", req.Authorization)
	assert.Equal(t, "test-model", req.Body.Model)
	require.Len(t, req.Body.Messages, 2)
	assert.Equal(t, "system", req.Body.Messages[0].Role)
	assert.Equal(t, "Pregnancy assistant AI", req.Body.Messages[0].Content)
	assert.Equal(t, "user", req.Body.Messages[1].Role)
	assert.Equal(t, "What foods should I eat?", req.Body.Messages[1].Content)
}

func TestCompleteEmptyContent(t *testing.T) {
	server := newFakeServer(t, replyWith("   "))
	svc := newTestService(t, server.URL, Options{})

	result := svc.Complete(context.Background(), nil, "hello")
	require.True(t, result.OK())
	assert.Equal(t, NoResponse, result.Text)
}

func TestCompleteNoChoices(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})
	svc := newTestService(t, server.URL, Options{})

	result := svc.Complete(context.Background(), nil, "hello")
	require.True(t, result.OK())
	assert.Equal(t, NoResponse, result.Text)
}

func TestCompleteStatusError(t *testing.T) {
	server := newFakeServer(t, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	})
	svc := newTestService(t, server.URL, Options{})

	result := svc.Complete(context.Background(), nil, "hello")
	require.False(t, result.OK())
	assert.Equal(t, KindStatus, result.Err.Kind)
	assert.True(t, strings.HasPrefix(result.Display(), "Error connecting to AI:"))
}

func TestCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	server := newFakeServer(t, func(w http.ResponseWriter) {
		<-release
	})
	defer close(release)

	svc := newTestService(t, server.URL, Options{Timeout: 50 * time.Millisecond})

	result := svc.Complete(context.Background(), nil, "hello")
	require.False(t, result.OK())
	assert.Equal(t, KindTimeout, result.Err.Kind)
	assert.True(t, strings.HasPrefix(result.Display(), ErrorPrefix))
}

func TestCompleteTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	svc := newTestService(t, url, Options{})

	result := svc.Complete(context.Background(), nil, "hello")
	require.False(t, result.OK())
	assert.Equal(t, KindTransport, result.Err.Kind)
	assert.True(t, strings.HasPrefix(result.Display(), ErrorPrefix))
}

func TestCompleteHistoryPolicy(t *testing.T) {
	server := newFakeServer(t, replyWith("ok"))
	svc := newTestService(t, server.URL, Options{Policy: PolicyHistory, HistoryTurns: 2})

	history := []session.ChatTurn{
		{Speaker: session.SpeakerUser, Text: "first", Status: session.TurnOK},
		{Speaker: session.SpeakerAI, Text: "first reply", Status: session.TurnOK},
		{Speaker: session.SpeakerUser, Text: "broken", Status: session.TurnOK},
		{Speaker: session.SpeakerAI, Text: ErrorPrefix + "boom", Status: session.TurnError},
		{Speaker: session.SpeakerUser, Text: "second", Status: session.TurnOK},
		{Speaker: session.SpeakerAI, Text: "second reply", Status: session.TurnOK},
	}

	result := svc.Complete(context.Background(), history, "third")
	require.True(t, result.OK())

	req := server.last(t)
	require.Len(t, req.Body.Messages, 4)
	assert.Equal(t, "second", req.Body.Messages[1].Content)
	assert.Equal(t, "assistant", req.Body.Messages[2].Role)
	assert.Equal(t, "second reply", req.Body.Messages[2].Content)
	assert.Equal(t, "third", req.Body.Messages[3].Content)
}

func TestCompleteLatestPolicyIgnoresHistory(t *testing.T) {
	server := newFakeServer(t, replyWith("ok"))
	svc := newTestService(t, server.URL, Options{Policy: PolicyLatest, HistoryTurns: 10})

	history := []session.ChatTurn{
		{Speaker: session.SpeakerUser, Text: "first", Status: session.TurnOK},
		{Speaker: session.SpeakerAI, Text: "first reply", Status: session.TurnOK},
	}

	svc.Complete(context.Background(), history, "second")

	assert.Len(t, server.last(t).Body.Messages, 2)
}

func TestLangchainBackend(t *testing.T) {
	server := newFakeServer(t, replyWith("Drink plenty of water."))
	svc := newTestService(t, server.URL, Options{Backend: "langchain"})

	result := svc.Complete(context.Background(), nil, "How much water should I drink daily?")
	require.True(t, result.OK())
	assert.Equal(t, "Drink plenty of water.", result.Text)
	assert.Equal(t, "Bearer test-token", server.last(t).Authorization)
}

func TestUnknownBackend(t *testing.T) {
	_, err := NewService(Options{Backend: "smoke-signals"})
	assert.Error(t, err)
}
