package domain

import "context"

// SegmentStore векторный индекс сегментов текущего видео
type SegmentStore interface {
	// Populate полностью заменяет коллекцию переданными сегментами
	Populate(ctx context.Context, segments []Segment) error

	// Query возвращает до k ближайших сегментов в порядке релевантности индекса
	Query(ctx context.Context, text string, k int) ([]ScoredSegment, error)
}

// Embedder строит вектор фиксированной длины для текста
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Summarizer сворачивает последовательность фрагментов текста в краткое изложение
type Summarizer interface {
	Summarize(ctx context.Context, chunks []string) (string, error)
}

// SubtitleFetcher получает субтитры видео. Отсутствие субтитров: (nil, nil).
type SubtitleFetcher interface {
	FetchSubtitles(ctx context.Context, videoID string) ([]TimedFragment, error)
}

// AudioDownloader скачивает аудиодорожку видео в локальный файл.
// release удаляет скачанные файлы.
type AudioDownloader interface {
	DownloadAudio(ctx context.Context, videoURL string) (path string, release func(), err error)
}

// Transcriber распознает речь в аудиофайле
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]TimedFragment, error)
}

// TranscriptCache кэш готовых результатов обработки видео
type TranscriptCache interface {
	Get(ctx context.Context, key string) (*VideoTranscript, bool)
	Set(ctx context.Context, key string, value *VideoTranscript)
}

// ProgressReporter получает события о ходе обработки
type ProgressReporter interface {
	Report(event ProgressEvent)
}
