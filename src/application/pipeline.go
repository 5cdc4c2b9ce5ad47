package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"video-linker/src/domain"
	"video-linker/src/infrastructure/youtube"
)

// PipelineOptions параметры конвейера
type PipelineOptions struct {
	Interval      float64
	Threshold     float64
	TopK          int
	IndexSegments bool
	ChunkSize     int
	ChunkOverlap  int
	Timeouts      Timeouts
}

// DefaultPipelineOptions значения по умолчанию
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		Interval:      DefaultInterval,
		Threshold:     DefaultThreshold,
		TopK:          DefaultTopK,
		IndexSegments: true,
		ChunkSize:     4000,
		ChunkOverlap:  200,
	}
}

// PipelineDeps внешние зависимости конвейера. Cache и Progress необязательны.
type PipelineDeps struct {
	Subtitles   domain.SubtitleFetcher
	Downloader  domain.AudioDownloader
	Transcriber domain.Transcriber
	Summarizer  domain.Summarizer
	Store       domain.SegmentStore
	Cache       domain.TranscriptCache
	Progress    domain.ProgressReporter
}

// Pipeline реализация VideoService
type Pipeline struct {
	deps    PipelineDeps
	opts    PipelineOptions
	matcher *SegmentMatcher
	logger  *slog.Logger
}

// NewPipeline создает новый экземпляр конвейера
func NewPipeline(deps PipelineDeps, opts PipelineOptions, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	return &Pipeline{
		deps:    deps,
		opts:    opts,
		matcher: NewSegmentMatcher(deps.Store),
		logger:  logger,
	}
}

var _ VideoService = (*Pipeline)(nil)

// Transcribe обрабатывает видео: субтитры или распознавание речи, группировка,
// краткое изложение, кэширование и (опционально) индексация сегментов.
func (p *Pipeline) Transcribe(ctx context.Context, req TranscribeRequest) (*domain.VideoTranscript, error) {
	start := time.Now()
	log := p.logger.With(slog.String("request_id", req.RequestID))

	transcript, err := p.transcribe(ctx, req, log)
	if err != nil {
		p.report(req.RequestID, domain.StageFailed, err.Error())
		log.Error("обработка видео завершилась ошибкой",
			slog.String("url", req.URL),
			slog.String("kind", string(domain.KindOf(err))),
			slog.Any("error", err))
		return nil, err
	}

	p.report(req.RequestID, domain.StageDone, "")
	log.Info("видео обработано",
		slog.String("video_id", transcript.VideoID),
		slog.String("source", string(transcript.Source)),
		slog.Int("segments", len(transcript.Segments)),
		slog.Duration("elapsed", time.Since(start)))
	return transcript, nil
}

func (p *Pipeline) transcribe(ctx context.Context, req TranscribeRequest, log *slog.Logger) (*domain.VideoTranscript, error) {
	videoID, err := youtube.ExtractVideoID(req.URL)
	if err != nil {
		return nil, err
	}
	p.report(req.RequestID, domain.StageValidated, videoID)
	log = log.With(slog.String("video_id", videoID))

	key := fmt.Sprintf("%s:%g", videoID, p.opts.Interval)
	transcript, cached := p.cacheGet(ctx, key)
	if cached {
		p.report(req.RequestID, domain.StageCacheHit, "")
		log.Debug("результат найден в кэше")
	} else {
		transcript, err = p.build(ctx, req, videoID, log)
		if err != nil {
			return nil, err
		}
		if p.deps.Cache != nil {
			p.deps.Cache.Set(ctx, key, transcript)
		}
	}

	if p.shouldIndex(req) {
		p.report(req.RequestID, domain.StageIndex, "")
		if err := p.IndexTranscript(ctx, transcript.Segments); err != nil {
			// Явный запрос индексации обязан завершиться успешно
			if req.IndexSegments != nil {
				return nil, err
			}
			log.Warn("не удалось проиндексировать сегменты", slog.Any("error", err))
		}
	}

	return transcript, nil
}

// build выполняет этапы получения текста, группировки и изложения
func (p *Pipeline) build(ctx context.Context, req TranscribeRequest, videoID string, log *slog.Logger) (*domain.VideoTranscript, error) {
	result, err := p.acquire(ctx, req, videoID, log)
	if err != nil {
		return nil, err
	}

	segments, err := GroupByInterval(result.Fragments(), p.opts.Interval)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, domain.NewNotFoundError("транскрипция пуста", nil)
	}
	p.report(req.RequestID, domain.StageGrouped, fmt.Sprintf("%d", len(segments)))

	p.report(req.RequestID, domain.StageSummarize, "")
	chunks := SplitIntoChunks(SegmentsText(segments), p.opts.ChunkSize, p.opts.ChunkOverlap)
	sctx, cancel := withTimeout(ctx, p.opts.Timeouts.Summary)
	summary, err := p.deps.Summarizer.Summarize(sctx, chunks)
	cancel()
	if err != nil {
		return nil, domain.Classify(err, domain.KindSummarization, "ошибка построения изложения")
	}

	return &domain.VideoTranscript{
		VideoID:  videoID,
		URL:      req.URL,
		Summary:  strings.TrimSpace(summary),
		Segments: segments,
		Source:   result.Source(),
	}, nil
}

// acquire получает текст видео: сначала субтитры, при их отсутствии
// скачивание аудио и распознавание речи
func (p *Pipeline) acquire(ctx context.Context, req TranscribeRequest, videoID string, log *slog.Logger) (domain.TranscriptionResult, error) {
	p.report(req.RequestID, domain.StageSubtitles, "")
	sctx, cancel := withTimeout(ctx, p.opts.Timeouts.Subtitles)
	cues, err := p.deps.Subtitles.FetchSubtitles(sctx, videoID)
	cancel()
	if ctx.Err() != nil {
		return nil, domain.Classify(ctx.Err(), domain.KindAcquisition, "запрос отменен")
	}
	if err != nil {
		log.Warn("субтитры недоступны, переходим к распознаванию речи", slog.Any("error", err))
	}
	if err == nil && len(cues) > 0 {
		return domain.Subtitles{Cues: cues}, nil
	}

	p.report(req.RequestID, domain.StageDownload, "")
	dctx, cancel := withTimeout(ctx, p.opts.Timeouts.Download)
	path, release, err := p.deps.Downloader.DownloadAudio(dctx, req.URL)
	cancel()
	if err != nil {
		return nil, domain.Classify(err, domain.KindAcquisition, "не удалось скачать аудио")
	}
	if release != nil {
		defer release()
	}

	p.report(req.RequestID, domain.StageTranscribe, "")
	tctx, cancel := withTimeout(ctx, p.opts.Timeouts.Transcription)
	fragments, err := p.deps.Transcriber.Transcribe(tctx, path)
	cancel()
	if err != nil {
		return nil, domain.Classify(err, domain.KindAcquisition, "ошибка распознавания речи")
	}

	return domain.SpeechToText{Segments: fragments}, nil
}

// MatchSegment возвращает лучший сегмент, прошедший порог
func (p *Pipeline) MatchSegment(ctx context.Context, text string) (*domain.MatchResult, error) {
	results, err := p.match(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, domain.NewNotFoundError("подходящий сегмент не найден", nil)
	}
	return &results[0], nil
}

// LinkSummary делит изложение на предложения и находит для каждого лучший сегмент.
// Предложения без совпадения пропускаются.
func (p *Pipeline) LinkSummary(ctx context.Context, summary string) ([]domain.MatchResult, error) {
	sentences := SplitSentences(summary)
	if len(sentences) == 0 {
		return nil, domain.NewValidationError("изложение не содержит предложений", nil)
	}

	linked := make([]domain.MatchResult, 0, len(sentences))
	for _, sentence := range sentences {
		results, err := p.match(ctx, sentence)
		if err != nil {
			return nil, err
		}
		if len(results) > 0 {
			linked = append(linked, results[0])
		}
	}
	return linked, nil
}

// IndexTranscript заменяет содержимое индекса переданными сегментами
func (p *Pipeline) IndexTranscript(ctx context.Context, segments []domain.Segment) error {
	if len(segments) == 0 {
		return domain.NewValidationError("нет сегментов для индексации", nil)
	}
	ictx, cancel := withTimeout(ctx, p.opts.Timeouts.Store)
	defer cancel()

	start := time.Now()
	if err := p.deps.Store.Populate(ictx, segments); err != nil {
		return domain.Classify(err, domain.KindStoreUnavailable, "ошибка индексации сегментов")
	}
	p.logger.Debug("сегменты проиндексированы",
		slog.Int("segments", len(segments)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (p *Pipeline) match(ctx context.Context, text string) ([]domain.MatchResult, error) {
	mctx, cancel := withTimeout(ctx, p.opts.Timeouts.Store)
	defer cancel()
	return p.matcher.Match(mctx, text, p.opts.Threshold, p.opts.TopK)
}

func (p *Pipeline) shouldIndex(req TranscribeRequest) bool {
	if req.IndexSegments != nil {
		return *req.IndexSegments
	}
	return p.opts.IndexSegments
}

func (p *Pipeline) cacheGet(ctx context.Context, key string) (*domain.VideoTranscript, bool) {
	if p.deps.Cache == nil {
		return nil, false
	}
	return p.deps.Cache.Get(ctx, key)
}

func (p *Pipeline) report(requestID, stage, message string) {
	if p.deps.Progress == nil {
		return
	}
	p.deps.Progress.Report(domain.ProgressEvent{
		RequestID: requestID,
		Stage:     stage,
		Message:   message,
		Time:      time.Now(),
	})
}
