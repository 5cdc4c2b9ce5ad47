package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completerFunc func(ctx context.Context, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// TestRefineSummarizer проверяет последовательное уточнение изложения
func TestRefineSummarizer(t *testing.T) {
	var prompts []string
	llm := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "summary " + string(rune('A'+len(prompts)-1)), nil
	})

	got, err := NewRefineSummarizer(llm).Summarize(context.Background(), []string{"first chunk", " ", "second chunk"})
	require.NoError(t, err)
	assert.Equal(t, "summary B", got)

	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0], "first chunk")
	assert.NotContains(t, prompts[0], "so far")
	assert.Contains(t, prompts[1], "summary A")
	assert.Contains(t, prompts[1], "second chunk")
}

// TestRefineSummarizerError проверяет передачу ошибки модели
func TestRefineSummarizerError(t *testing.T) {
	boom := errors.New("model offline")
	llm := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", boom
	})

	_, err := NewRefineSummarizer(llm).Summarize(context.Background(), []string{"text"})
	assert.ErrorIs(t, err, boom)
}

// TestRefineSummarizerEmpty проверяет пустой ввод
func TestRefineSummarizerEmpty(t *testing.T) {
	llm := completerFunc(func(ctx context.Context, prompt string) (string, error) {
		t.Fatal("модель не должна вызываться")
		return "", nil
	})

	_, err := NewRefineSummarizer(llm).Summarize(context.Background(), nil)
	assert.Error(t, err)
}
