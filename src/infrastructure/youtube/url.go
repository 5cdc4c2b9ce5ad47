package youtube

import (
	"net/url"
	"regexp"
	"strings"

	"video-linker/src/domain"
)

var (
	videoURLRe = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/)[a-zA-Z0-9_-]+(\S*)?$`)
	videoIDRe  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// IsValidURL проверяет, что строка похожа на ссылку на видео YouTube
func IsValidURL(raw string) bool {
	return videoURLRe.MatchString(strings.TrimSpace(raw))
}

// ExtractVideoID извлекает идентификатор видео из ссылки вида
// youtube.com/watch?v=ID или youtu.be/ID
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.NewValidationError("ссылка на видео не указана", nil)
	}
	if !IsValidURL(raw) {
		return "", domain.NewValidationError("некорректная ссылка на YouTube: "+raw, nil)
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", domain.NewValidationError("некорректная ссылка на YouTube: "+raw, err)
	}

	var id string
	if strings.HasSuffix(u.Host, "youtu.be") {
		id = strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)[0]
	} else {
		id = u.Query().Get("v")
	}
	if !videoIDRe.MatchString(id) {
		return "", domain.NewValidationError("не удалось определить идентификатор видео", nil)
	}
	return id, nil
}

// WatchURL возвращает каноническую ссылку на страницу видео
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
