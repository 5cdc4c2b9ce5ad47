package ai

import (
	"context"
	"fmt"
	"strings"

	"video-linker/src/domain"
)

const mapPrompt = `You are an assistant specialized in understanding and concisely describing video content.

Please describe the main ideas in the following content:
%s

Provide a brief description of the key points.`

const refinePrompt = `You are an assistant specialized in creating concise descriptions of video content.

Here's what we know about a video so far:
%s

We have some new information to add:
%s

Incorporate this new information and write a single concise paragraph that captures the main ideas of the entire video. Follow these guidelines:

1. Focus on the most important information and key takeaways.
2. Keep the paragraph brief, ideally 3-4 sentences.
3. Present the information directly without mentioning that it comes from a video or a description.
4. Write in a clear, straightforward style.
5. Avoid meta-language and do not refer to the writing process.`

// Completer выполняет запрос к языковой модели
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RefineSummarizer строит изложение последовательно: первый фрагмент
// описывается отдельно, каждый следующий дополняет текущее изложение.
type RefineSummarizer struct {
	llm Completer
}

// NewRefineSummarizer создает новый экземпляр суммаризатора
func NewRefineSummarizer(llm Completer) *RefineSummarizer {
	return &RefineSummarizer{llm: llm}
}

var _ domain.Summarizer = (*RefineSummarizer)(nil)

// Summarize возвращает изложение всех фрагментов
func (s *RefineSummarizer) Summarize(ctx context.Context, chunks []string) (string, error) {
	var summary string
	for i, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}

		prompt := BuildRefinePrompt(summary, chunk)
		answer, err := s.llm.Complete(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("ошибка обработки фрагмента %d из %d: %w", i+1, len(chunks), err)
		}
		summary = strings.TrimSpace(answer)
	}

	if summary == "" {
		return "", fmt.Errorf("модель вернула пустое изложение")
	}
	return summary, nil
}

// BuildRefinePrompt создает промпт: без текущего изложения - первичный,
// иначе уточняющий
func BuildRefinePrompt(existing, text string) string {
	if existing == "" {
		return fmt.Sprintf(mapPrompt, text)
	}
	return fmt.Sprintf(refinePrompt, existing, text)
}
