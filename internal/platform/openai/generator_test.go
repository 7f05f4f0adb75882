package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/lexi-api/internal/config"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers chat completions with a fixed status and reply.
func fakeServer(t *testing.T, status int, reply string) (*httptest.Server, *atomic.Int32, *[]map[string]any) {
	t.Helper()

	var calls atomic.Int32
	var requests []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		requests = append(requests, body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = io.WriteString(w, `{"error": {"message": "upstream said no", "type": "test_error"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &requests
}

func newTestGenerator(t *testing.T, baseURL string) *Generator {
	t.Helper()
	g, err := NewGenerator(slog.New(slog.NewTextHandler(io.Discard, nil)), config.LLMConfig{
		Provider:          "openai",
		OpenAIAPIKey:      "sk-test",
		OpenAIBaseURL:     baseURL + "/",
		MaxRetries:        0,
		RetryDelaySeconds: 1,
	})
	require.NoError(t, err)
	return g
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	_, err := NewGenerator(slog.Default(), config.LLMConfig{Provider: "openai"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(nil, config.LLMConfig{OpenAIAPIKey: "sk-test"})
	assert.Error(t, err)
}

func TestGenerateDefinition(t *testing.T) {
	reply := `{"word": "apple", "definition": "A round fruit", "shortDefinition": "fruit", "translation": "manzana", "example": "I ate an apple.", "phonetics": "/ˈæp.əl/"}`
	srv, calls, requests := fakeServer(t, http.StatusOK, reply)
	g := newTestGenerator(t, srv.URL)

	def, err := g.GenerateDefinition(context.Background(), "apple", "English", "Spanish")
	require.NoError(t, err)
	assert.Equal(t, "manzana", def.Translation)
	assert.Equal(t, "I ate an apple.", def.Example)
	assert.Equal(t, int32(1), calls.Load())

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, DefaultModel, req["model"])
	format, ok := req["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestGenerateQuestion(t *testing.T) {
	reply := `{"question": "What is the meaning of 'apple'?", "options": ["A fruit", "A car", "A city", "A song"], "correctAnswerIndex": 0, "tip": "Orchards grow them."}`
	srv, _, _ := fakeServer(t, http.StatusOK, reply)
	g := newTestGenerator(t, srv.URL)

	card, err := domain.NewFlashcard(domain.FlashcardParams{
		Word: "apple", SourceLanguage: "English", TargetLanguage: "Spanish", Definition: "A fruit",
	}, time.Now())
	require.NoError(t, err)

	draft, err := g.GenerateQuestion(context.Background(), card, generation.KindDefinition, nil)
	require.NoError(t, err)
	assert.Equal(t, generation.KindDefinition, draft.Kind)
	assert.Equal(t, "Orchards grow them.", draft.Hint)
}

func TestClassifyLevel(t *testing.T) {
	srv, _, requests := fakeServer(t, http.StatusOK, "B1")
	g := newTestGenerator(t, srv.URL)

	level, err := g.ClassifyLevel(context.Background(), "achieve", "English")
	require.NoError(t, err)
	assert.Equal(t, domain.CEFRB1, level)
	_, hasFormat := (*requests)[0]["response_format"]
	assert.False(t, hasFormat, "level replies are plain text")
}

func TestErrorTaxonomy(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, generation.ErrAuthRequired},
		{"rate limited", http.StatusTooManyRequests, generation.ErrRateLimited},
		{"server error", http.StatusInternalServerError, generation.ErrServer},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _, _ := fakeServer(t, tc.status, "")
			g := newTestGenerator(t, srv.URL)

			_, err := g.GenerateDefinition(context.Background(), "apple", "English", "Spanish")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestMalformedReplyIsDecodeError(t *testing.T) {
	srv, _, _ := fakeServer(t, http.StatusOK, "Sorry, I can't do that.")
	g := newTestGenerator(t, srv.URL)

	_, err := g.GenerateDefinition(context.Background(), "apple", "English", "Spanish")
	assert.ErrorIs(t, err, generation.ErrDecode)
}
