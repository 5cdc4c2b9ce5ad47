package application

import (
	"context"

	"video-linker/src/domain"
)

// VideoService интерфейс сервиса обработки видео
type VideoService interface {
	// Transcribe получает текст видео, группирует его по окнам и строит краткое изложение
	Transcribe(ctx context.Context, req TranscribeRequest) (*domain.VideoTranscript, error)

	// MatchSegment возвращает лучший сегмент для фрагмента текста
	MatchSegment(ctx context.Context, text string) (*domain.MatchResult, error)

	// LinkSummary связывает каждое предложение изложения с сегментом видео
	LinkSummary(ctx context.Context, summary string) ([]domain.MatchResult, error)

	// IndexTranscript заменяет содержимое векторного индекса сегментами
	IndexTranscript(ctx context.Context, segments []domain.Segment) error
}

// TranscribeRequest запрос на обработку видео
type TranscribeRequest struct {
	URL string
	// IndexSegments переопределяет настройку индексации; nil - значение из конфигурации
	IndexSegments *bool
	RequestID     string
}
