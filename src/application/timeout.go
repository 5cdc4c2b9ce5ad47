package application

import (
	"context"
	"time"
)

// Timeouts ограничения времени для каждого внешнего вызова конвейера.
// Нулевое значение означает отсутствие собственного ограничения.
type Timeouts struct {
	Subtitles     time.Duration
	Download      time.Duration
	Transcription time.Duration
	Summary       time.Duration
	Store         time.Duration
}

// withTimeout возвращает контекст с ограничением d, если оно задано
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
