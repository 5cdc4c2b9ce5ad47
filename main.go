package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-linker/src/api"
	"video-linker/src/application"
	"video-linker/src/config"
	"video-linker/src/infrastructure"
	"video-linker/src/infrastructure/ai"
	"video-linker/src/infrastructure/youtube"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run собирает зависимости, выполняет действие и возвращает код завершения
func run(args []string) int {
	// Определяем флаги командной строки
	flags := flag.NewFlagSet("video-linker", flag.ContinueOnError)
	configPath := flags.String("config", "config/config.yaml", "Путь к файлу конфигурации")
	dbPath := flags.String("db", "", "Путь к файлу базы данных (переопределяет store.path)")
	action := flags.String("action", "serve", "Действие: serve, transcribe, match, link")
	videoURL := flags.String("url", "", "Ссылка на видео YouTube (для действия transcribe)")
	text := flags.String("text", "", "Текст фрагмента или изложения (для действий match и link)")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Ошибка загрузки конфигурации: %v", err)
		return 1
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	logger := config.NewLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	aiClient := ai.NewAIClient(ai.Config{
		BaseURL:            cfg.AI.BaseURL,
		APIKey:             cfg.AI.APIKey,
		ChatModel:          cfg.AI.ChatModel,
		EmbeddingModel:     cfg.AI.EmbeddingModel,
		TranscriptionModel: cfg.AI.TranscriptionModel,
		Timeout:            config.Seconds(cfg.AI.TimeoutSecs),
		MaxTokens:          cfg.AI.MaxTokens,
		Temperature:        cfg.AI.Temperature,
		EmbedRPS:           cfg.AI.EmbedRPS,
	})

	// Хранилище открывается один раз и передается всем потребителям
	store, err := infrastructure.OpenSegmentStore(cfg.Store.Path, aiClient)
	if err != nil {
		logger.Error("ошибка инициализации хранилища", slog.Any("error", err))
		return 1
	}
	defer store.Close()

	cache := infrastructure.NewTranscriptCache(infrastructure.CacheConfig{
		RedisURL:   cfg.Cache.RedisURL,
		TTL:        config.Seconds(cfg.Cache.TTLSecs),
		MaxEntries: cfg.Cache.MaxEntries,
	}, logger)
	defer cache.Close()

	hub := api.NewProgressHub(logger)

	pipeline := application.NewPipeline(application.PipelineDeps{
		Subtitles: youtube.NewCaptionFetcher(youtube.CaptionConfig{
			Language:  cfg.YouTube.Language,
			UserAgent: cfg.YouTube.UserAgent,
		}, logger),
		Downloader: youtube.NewAudioDownloader(youtube.DownloaderConfig{
			YtDlpPath: cfg.YouTube.YtDlpPath,
			MediaDir:  cfg.YouTube.MediaDir,
			UserAgent: cfg.YouTube.UserAgent,
		}, logger),
		Transcriber: ai.NewWhisperTranscriber(aiClient, cfg.YouTube.Language),
		Summarizer:  ai.NewRefineSummarizer(aiClient),
		Store:       store,
		Cache:       cache,
		Progress:    hub,
	}, application.PipelineOptions{
		Interval:      cfg.Pipeline.IntervalSeconds,
		Threshold:     cfg.Pipeline.MatchThreshold,
		TopK:          cfg.Pipeline.TopK,
		IndexSegments: cfg.Pipeline.IndexSegments,
		ChunkSize:     cfg.Pipeline.ChunkSize,
		ChunkOverlap:  cfg.Pipeline.ChunkOverlap,
		Timeouts: application.Timeouts{
			Subtitles:     config.Seconds(cfg.Pipeline.Timeouts.Subtitles),
			Download:      config.Seconds(cfg.Pipeline.Timeouts.Download),
			Transcription: config.Seconds(cfg.Pipeline.Timeouts.Transcription),
			Summary:       config.Seconds(cfg.Pipeline.Timeouts.Summary),
			Store:         config.Seconds(cfg.Pipeline.Timeouts.Store),
		},
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *action {
	case "transcribe":
		if *videoURL == "" {
			log.Print("Для действия 'transcribe' требуется указать ссылку на видео (-url)")
			return 2
		}
		err = handleTranscribe(ctx, pipeline, *videoURL)
	case "match":
		if *text == "" {
			log.Print("Для действия 'match' требуется указать текст (-text)")
			return 2
		}
		err = handleMatch(ctx, pipeline, *text)
	case "link":
		if *text == "" {
			log.Print("Для действия 'link' требуется указать изложение (-text)")
			return 2
		}
		err = handleLink(ctx, pipeline, *text)
	case "serve":
		err = serve(ctx, cfg, api.RouterConfig{
			Service:     pipeline,
			Stats:       store,
			Hub:         hub,
			Logger:      logger,
			Mode:        cfg.Server.Mode,
			CORSOrigins: cfg.Server.CORSOrigins,
		}, logger)
	default:
		log.Printf("Неизвестное действие: %s", *action)
		return 2
	}
	if err != nil {
		logger.Error("действие завершилось ошибкой", slog.String("action", *action), slog.Any("error", err))
		return 1
	}
	return 0
}

// serve запускает HTTP API и останавливает его по сигналу
func serve(ctx context.Context, cfg config.Config, routes api.RouterConfig, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(routes),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("сервер запущен", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("остановка сервера")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// handleTranscribe обрабатывает видео и печатает результат
func handleTranscribe(ctx context.Context, service application.VideoService, videoURL string) error {
	fmt.Printf("Обрабатываем видео: %s...\n", videoURL)

	transcript, err := service.Transcribe(ctx, application.TranscribeRequest{URL: videoURL})
	if err != nil {
		return fmt.Errorf("ошибка обработки видео: %w", err)
	}

	fmt.Printf("Источник: %s, сегментов: %d\n", transcript.Source, len(transcript.Segments))
	fmt.Printf("Изложение: %s\n", transcript.Summary)
	for _, seg := range transcript.Segments {
		fmt.Printf("  [%s] %s\n", seg.TimeRange(), trimString(seg.Text, 100))
	}
	return nil
}

// handleMatch ищет сегмент для фрагмента текста
func handleMatch(ctx context.Context, service application.VideoService, text string) error {
	match, err := service.MatchSegment(ctx, text)
	if err != nil {
		return fmt.Errorf("ошибка поиска: %w", err)
	}
	return printJSON(match)
}

// handleLink связывает предложения изложения с сегментами
func handleLink(ctx context.Context, service application.VideoService, summary string) error {
	linked, err := service.LinkSummary(ctx, summary)
	if err != nil {
		return fmt.Errorf("ошибка связывания изложения: %w", err)
	}
	return printJSON(linked)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// trimString обрезает строку до заданной длины
func trimString(str string, maxLen int) string {
	runes := []rune(str)
	if len(runes) <= maxLen {
		return str
	}
	return string(runes[:maxLen]) + "..."
}
