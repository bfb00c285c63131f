package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smallbiznis/detailflow/internal/vision/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, reply string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteSendsDataURLs(t *testing.T) {
	var body map[string]any
	srv := newTestServer(t, `{"confidence":70}`, &body)

	client, err := New("test-key", srv.URL)
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), domain.Request{
		Model:     "gpt-4o",
		System:    "rubric",
		Prompt:    "Vehicle: 2020 Tesla Model 3 in White",
		Images:    []domain.Image{{MediaType: "image/png", Data: []byte("abc")}},
		MaxTokens: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"confidence":70}`, text)

	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	parts := messages[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	imageURL := parts[1].(map[string]any)["image_url"].(map[string]any)["url"]
	assert.Equal(t, "data:image/png;base64,YWJj", imageURL)
	assert.EqualValues(t, 500, body["max_completion_tokens"])
}

func TestCompleteEmptyReply(t *testing.T) {
	srv := newTestServer(t, "  ", nil)

	client, err := New("test-key", srv.URL)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), domain.Request{Model: "gpt-4o", Prompt: "p", MaxTokens: 10})
	assert.ErrorIs(t, err, domain.ErrNoTextContent)
}
