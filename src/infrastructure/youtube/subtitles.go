package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"video-linker/src/domain"
	"video-linker/src/infrastructure/retry"
)

const (
	defaultWatchBaseURL = "https://www.youtube.com"
	defaultUserAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	playerResponseMarker = "ytInitialPlayerResponse = "
	maxWatchPageSize     = 6 * 1024 * 1024
	maxCaptionSize       = 2 * 1024 * 1024
)

// CaptionConfig параметры получения субтитров
type CaptionConfig struct {
	BaseURL    string
	Language   string
	UserAgent  string
	HTTPClient *http.Client
	Retry      retry.Config
}

// CaptionFetcher получает субтитры со страницы видео: извлекает
// ytInitialPlayerResponse, выбирает дорожку и скачивает ее в формате WebVTT.
type CaptionFetcher struct {
	cfg    CaptionConfig
	logger *slog.Logger
}

// NewCaptionFetcher создает новый экземпляр получения субтитров
func NewCaptionFetcher(cfg CaptionConfig, logger *slog.Logger) *CaptionFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultWatchBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = retry.Default
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CaptionFetcher{cfg: cfg, logger: logger}
}

var _ domain.SubtitleFetcher = (*CaptionFetcher)(nil)

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" - автоматические
}

type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

// FetchSubtitles возвращает фрагменты субтитров или (nil, nil), если у видео их нет
func (f *CaptionFetcher) FetchSubtitles(ctx context.Context, videoID string) ([]domain.TimedFragment, error) {
	tracks, err := f.captionTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}

	track, ok := pickTrack(tracks, f.cfg.Language)
	if !ok {
		f.logger.Debug("у видео нет субтитров", slog.String("video_id", videoID))
		return nil, nil
	}

	body, err := f.get(ctx, vttURL(track.BaseURL), maxCaptionSize)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки субтитров: %w", err)
	}
	if !bytes.Contains(body, []byte("WEBVTT")) {
		return nil, errors.New("ответ не содержит субтитров WebVTT")
	}

	fragments := ParseVTT(string(body))
	f.logger.Debug("субтитры получены",
		slog.String("video_id", videoID),
		slog.String("language", track.LanguageCode),
		slog.Bool("auto", track.Kind == "asr"),
		slog.Int("cues", len(fragments)))
	return fragments, nil
}

func (f *CaptionFetcher) captionTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	watchURL := strings.TrimRight(f.cfg.BaseURL, "/") + "/watch?v=" + url.QueryEscape(videoID)
	body, err := f.get(ctx, watchURL, maxWatchPageSize)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки страницы видео: %w", err)
	}

	idx := bytes.Index(body, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse не найден на странице видео")
	}
	data := extractJSON(body[idx+len(playerResponseMarker):])
	if data == nil {
		return nil, errors.New("не удалось выделить JSON ytInitialPlayerResponse")
	}

	var resp playerResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("ошибка разбора ytInitialPlayerResponse: %w", err)
	}
	if resp.Captions == nil {
		return nil, nil
	}
	return resp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, nil
}

func (f *CaptionFetcher) get(ctx context.Context, target string, limit int64) ([]byte, error) {
	resp, err := retry.HTTP(ctx, f.cfg.Retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", f.cfg.UserAgent)
		req.Header.Set("Accept-Language", f.cfg.Language+";q=0.9,en;q=0.8")
		return f.cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("неожиданный статус %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// pickTrack выбирает ручную дорожку на нужном языке, затем автоматическую.
// Дорожки, требующие PoToken, пропускаются.
func pickTrack(tracks []captionTrack, lang string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL != "" && !strings.Contains(t.BaseURL, "&exp=xpe") {
			usable = append(usable, t)
		}
	}

	for _, t := range usable {
		if matchesLanguage(t.LanguageCode, lang) && t.Kind != "asr" {
			return t, true
		}
	}
	for _, t := range usable {
		if matchesLanguage(t.LanguageCode, lang) {
			return t, true
		}
	}
	return captionTrack{}, false
}

// matchesLanguage сравнивает коды языков без учета региона: "en-US" подходит для "en"
func matchesLanguage(code, lang string) bool {
	base := func(s string) string {
		return strings.ToLower(strings.SplitN(s, "-", 2)[0])
	}
	return base(code) == base(lang)
}

func vttURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + "&fmt=vtt"
	}
	q := u.Query()
	q.Set("fmt", "vtt")
	u.RawQuery = q.Encode()
	return u.String()
}

// extractJSON возвращает первый сбалансированный JSON-объект в начале b
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
