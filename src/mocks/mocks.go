// Package mocks содержит имитации зависимостей для тестов.
package mocks

import (
	"context"
	"strings"
	"sync"

	"video-linker/src/application"
	"video-linker/src/domain"
)

// KeywordEmbedder строит векторы "мешка слов": каждое новое слово получает
// следующий индекс измерения. Тексты с общими словами близки, без общих - ортогональны.
type KeywordEmbedder struct {
	Dims    int
	EmbedFn func(ctx context.Context, text string) ([]float32, error)

	mu    sync.Mutex
	words map[string]int
	calls int
}

func NewKeywordEmbedder(dims int) *KeywordEmbedder {
	return &KeywordEmbedder{Dims: dims, words: make(map[string]int)}
}

func (e *KeywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.EmbedFn != nil {
		return e.EmbedFn(ctx, text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.Dims)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if word == "" {
			continue
		}
		idx, ok := e.words[word]
		if !ok {
			idx = len(e.words)
			e.words[word] = idx
		}
		vec[idx%e.Dims]++
	}
	return vec, nil
}

// Calls возвращает число вызовов Embed
func (e *KeywordEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// MockSegmentStore имитация векторного индекса
type MockSegmentStore struct {
	PopulateFn func(ctx context.Context, segments []domain.Segment) error
	QueryFn    func(ctx context.Context, text string, k int) ([]domain.ScoredSegment, error)

	mu        sync.Mutex
	Populated [][]domain.Segment
}

func (m *MockSegmentStore) Populate(ctx context.Context, segments []domain.Segment) error {
	m.mu.Lock()
	m.Populated = append(m.Populated, segments)
	m.mu.Unlock()
	if m.PopulateFn != nil {
		return m.PopulateFn(ctx, segments)
	}
	return nil
}

func (m *MockSegmentStore) Query(ctx context.Context, text string, k int) ([]domain.ScoredSegment, error) {
	if m.QueryFn != nil {
		return m.QueryFn(ctx, text, k)
	}
	return nil, domain.ErrNotInitialized
}

// PopulateCalls возвращает число вызовов Populate
func (m *MockSegmentStore) PopulateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Populated)
}

// MockSummarizer имитация суммаризатора
type MockSummarizer struct {
	SummarizeFn func(ctx context.Context, chunks []string) (string, error)
	Calls       int
}

func (m *MockSummarizer) Summarize(ctx context.Context, chunks []string) (string, error) {
	m.Calls++
	if m.SummarizeFn != nil {
		return m.SummarizeFn(ctx, chunks)
	}
	return strings.Join(chunks, " "), nil
}

// MockSubtitleFetcher имитация получения субтитров
type MockSubtitleFetcher struct {
	FetchFn func(ctx context.Context, videoID string) ([]domain.TimedFragment, error)
	Calls   int
}

func (m *MockSubtitleFetcher) FetchSubtitles(ctx context.Context, videoID string) ([]domain.TimedFragment, error) {
	m.Calls++
	if m.FetchFn != nil {
		return m.FetchFn(ctx, videoID)
	}
	return nil, nil
}

// MockAudioDownloader имитация загрузчика аудио
type MockAudioDownloader struct {
	DownloadFn func(ctx context.Context, videoURL string) (string, func(), error)
	Calls      int
	Released   int
}

func (m *MockAudioDownloader) DownloadAudio(ctx context.Context, videoURL string) (string, func(), error) {
	m.Calls++
	if m.DownloadFn != nil {
		return m.DownloadFn(ctx, videoURL)
	}
	return "/tmp/audio.mp3", func() { m.Released++ }, nil
}

// MockTranscriber имитация распознавания речи
type MockTranscriber struct {
	TranscribeFn func(ctx context.Context, audioPath string) ([]domain.TimedFragment, error)
	Calls        int
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audioPath string) ([]domain.TimedFragment, error) {
	m.Calls++
	if m.TranscribeFn != nil {
		return m.TranscribeFn(ctx, audioPath)
	}
	return nil, nil
}

// MockProgressReporter запоминает события
type MockProgressReporter struct {
	mu     sync.Mutex
	Events []domain.ProgressEvent
}

func (m *MockProgressReporter) Report(event domain.ProgressEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

// Stages возвращает этапы в порядке поступления
func (m *MockProgressReporter) Stages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	stages := make([]string, len(m.Events))
	for i, e := range m.Events {
		stages[i] = e.Stage
	}
	return stages
}

// MockVideoService имитация сервиса обработки видео
type MockVideoService struct {
	TranscribeFn      func(ctx context.Context, req application.TranscribeRequest) (*domain.VideoTranscript, error)
	MatchSegmentFn    func(ctx context.Context, text string) (*domain.MatchResult, error)
	LinkSummaryFn     func(ctx context.Context, summary string) ([]domain.MatchResult, error)
	IndexTranscriptFn func(ctx context.Context, segments []domain.Segment) error
}

var _ application.VideoService = (*MockVideoService)(nil)

func (m *MockVideoService) Transcribe(ctx context.Context, req application.TranscribeRequest) (*domain.VideoTranscript, error) {
	if m.TranscribeFn != nil {
		return m.TranscribeFn(ctx, req)
	}
	return nil, domain.NewError(domain.KindInternal, "не реализовано", nil)
}

func (m *MockVideoService) MatchSegment(ctx context.Context, text string) (*domain.MatchResult, error) {
	if m.MatchSegmentFn != nil {
		return m.MatchSegmentFn(ctx, text)
	}
	return nil, domain.NewNotFoundError("подходящий сегмент не найден", nil)
}

func (m *MockVideoService) LinkSummary(ctx context.Context, summary string) ([]domain.MatchResult, error) {
	if m.LinkSummaryFn != nil {
		return m.LinkSummaryFn(ctx, summary)
	}
	return nil, nil
}

func (m *MockVideoService) IndexTranscript(ctx context.Context, segments []domain.Segment) error {
	if m.IndexTranscriptFn != nil {
		return m.IndexTranscriptFn(ctx, segments)
	}
	return nil
}

// MemoryCache кэш результатов в памяти
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]*domain.VideoTranscript
	Hits  int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]*domain.VideoTranscript)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*domain.VideoTranscript, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if ok {
		c.Hits++
	}
	return v, ok
}

func (c *MemoryCache) Set(ctx context.Context, key string, value *domain.VideoTranscript) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}
