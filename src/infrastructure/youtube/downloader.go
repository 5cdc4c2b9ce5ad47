package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DownloaderConfig параметры скачивания аудио
type DownloaderConfig struct {
	YtDlpPath string
	MediaDir  string // пусто - системный каталог временных файлов
	UserAgent string
}

// AudioDownloader скачивает аудиодорожку видео через yt-dlp
type AudioDownloader struct {
	cfg    DownloaderConfig
	logger *slog.Logger
}

// NewAudioDownloader создает новый экземпляр загрузчика
func NewAudioDownloader(cfg DownloaderConfig, logger *slog.Logger) *AudioDownloader {
	if cfg.YtDlpPath == "" {
		cfg.YtDlpPath = "yt-dlp"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioDownloader{cfg: cfg, logger: logger}
}

// DownloadAudio скачивает аудио в отдельный временный каталог запроса и
// возвращает путь к mp3. release удаляет каталог вместе с файлами.
func (d *AudioDownloader) DownloadAudio(ctx context.Context, videoURL string) (string, func(), error) {
	if d.cfg.MediaDir != "" {
		if err := os.MkdirAll(d.cfg.MediaDir, 0o755); err != nil {
			return "", nil, fmt.Errorf("не удалось создать каталог для медиафайлов: %w", err)
		}
	}
	dir, err := os.MkdirTemp(d.cfg.MediaDir, "audio-*")
	if err != nil {
		return "", nil, fmt.Errorf("не удалось создать временный каталог: %w", err)
	}
	release := func() {
		if err := os.RemoveAll(dir); err != nil {
			d.logger.Warn("не удалось удалить временные файлы", slog.String("dir", dir), slog.Any("error", err))
		}
	}

	// exec.CommandContext завершает yt-dlp при отмене контекста
	cmd := exec.CommandContext(ctx, d.cfg.YtDlpPath,
		"-f", "bestaudio/best",
		"-x", "--audio-format", "mp3",
		"--no-playlist",
		"--quiet", "--no-warnings",
		"--user-agent", d.cfg.UserAgent,
		"-o", filepath.Join(dir, "audio.%(ext)s"),
		videoURL,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		release()
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", nil, fmt.Errorf("yt-dlp завершился с ошибкой: %s", msg)
	}

	path, err := findAudio(dir)
	if err != nil {
		release()
		return "", nil, err
	}
	d.logger.Debug("аудио скачано", slog.String("path", path))
	return path, release, nil
}

// findAudio ищет результат yt-dlp: audio.mp3 или файл с другим расширением
func findAudio(dir string) (string, error) {
	path := filepath.Join(dir, "audio.mp3")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "audio.*"))
	if len(matches) == 0 {
		return "", errors.New("после скачивания не найден аудиофайл")
	}
	return matches[0], nil
}
