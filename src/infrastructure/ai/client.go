package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"video-linker/src/domain"
	"video-linker/src/infrastructure/retry"
)

// Config параметры OpenAI-совместимого API
type Config struct {
	BaseURL            string
	APIKey             string
	ChatModel          string
	EmbeddingModel     string
	TranscriptionModel string
	Timeout            time.Duration
	MaxTokens          int
	Temperature        float64
	// EmbedRPS ограничение запросов к /embeddings в секунду; 0 - без ограничения
	EmbedRPS float64
	Retry    retry.Config
}

// AIClient клиент для взаимодействия с AI API
type AIClient struct {
	config  Config
	// client для чата и векторов, ограничен config.Timeout
	client  *http.Client
	// upload для загрузки аудио, срок задает только контекст
	upload  *http.Client
	limiter *rate.Limiter
}

// NewAIClient создает новый экземпляр AI клиента
func NewAIClient(config Config) *AIClient {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.Retry.Multiplier == 0 {
		config.Retry = retry.Default
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.EmbedRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.EmbedRPS), 1)
	}

	return &AIClient{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		upload:  &http.Client{},
		limiter: limiter,
	}
}

var _ domain.Embedder = (*AIClient)(nil)

// Complete отправляет промпт в /chat/completions и возвращает текст ответа
func (c *AIClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model":       c.config.ChatModel,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": c.config.Temperature,
	}
	if c.config.MaxTokens > 0 {
		payload["max_tokens"] = c.config.MaxTokens
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.postJSON(ctx, "/chat/completions", payload, &response); err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("API вернул пустой ответ")
	}
	return response.Choices[0].Message.Content, nil
}

// Embed возвращает вектор текста через /embeddings
func (c *AIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("ожидание лимита запросов: %w", err)
	}

	payload := map[string]interface{}{
		"model": c.config.EmbeddingModel,
		"input": text,
	}

	var response struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/embeddings", payload, &response); err != nil {
		return nil, err
	}

	if len(response.Data) == 0 || len(response.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("API не вернул вектор")
	}
	return response.Data[0].Embedding, nil
}

func (c *AIClient) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка маршалинга JSON: %w", err)
	}

	return c.do(ctx, c.client, c.config.Retry, path, "application/json", func() io.Reader { return bytes.NewReader(jsonData) }, out)
}

// do выполняет POST с повторами. body вызывается на каждую попытку.
func (c *AIClient) do(ctx context.Context, client *http.Client, rc retry.Config, path, contentType string, body func() io.Reader, out interface{}) error {
	resp, err := retry.HTTP(ctx, rc, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, body())
		if err != nil {
			return nil, fmt.Errorf("ошибка создания запроса: %w", err)
		}
		req.Header.Set("Content-Type", contentType)
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}
		return client.Do(req)
	})
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ошибка API: статус %d, тело: %s", resp.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}
	return nil
}
