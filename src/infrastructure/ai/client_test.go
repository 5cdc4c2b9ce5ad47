package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"video-linker/src/infrastructure/retry"
)

func newTestClient(url string) *AIClient {
	return NewAIClient(Config{
		BaseURL:            url + "/",
		APIKey:             "test-key",
		ChatModel:          "chat-model",
		EmbeddingModel:     "embed-model",
		TranscriptionModel: "whisper-1",
		Timeout:            5 * time.Second,
		MaxTokens:          100,
		Temperature:        0.1,
		Retry:              retry.Config{MaxRetries: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1},
	})
}

// TestComplete проверяет запрос к /chat/completions
func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "chat-model", payload["model"])
		assert.EqualValues(t, 100, payload["max_tokens"])

		w.Write([]byte(`{"choices":[{"message":{"content":"ответ"}}]}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Complete(context.Background(), "вопрос")
	require.NoError(t, err)
	assert.Equal(t, "ответ", got)
}

// TestCompleteEmptyChoices проверяет обработку пустого ответа
func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), "вопрос")
	assert.Error(t, err)
}

// TestCompleteRetries429 проверяет повтор после HTTP 429
func TestCompleteRetries429(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"Rate limit exceeded"}}`))
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"success"}}]}`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL).Complete(context.Background(), "вопрос")
	require.NoError(t, err)
	assert.Equal(t, "success", got)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

// TestCompleteClientError проверяет, что ошибки 4xx не повторяются
func TestCompleteClientError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), "вопрос")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

// TestEmbed проверяет запрос к /embeddings
func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "embed-model", payload["model"])
		assert.Equal(t, "hello", payload["input"])
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	vec, err := newTestClient(server.URL).Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

// TestEmbedNoData проверяет ответ без вектора
func TestEmbedNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Embed(context.Background(), "hello")
	assert.Error(t, err)
}

// TestEmbedRateLimitHonorsContext проверяет, что ожидание лимита прерывается контекстом
func TestEmbedRateLimitHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"embedding":[1]}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.limiter = rate.NewLimiter(0.001, 1)

	_, err := client.Embed(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Embed(ctx, "second")
	assert.Error(t, err)
}
