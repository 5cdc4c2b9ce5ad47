package youtube

import (
	"html"
	"regexp"
	"strings"

	"video-linker/src/domain"
)

var (
	// vttHeaderRe заголовок файла WEBVTT
	vttHeaderRe  = regexp.MustCompile(`^WEBVTT\b`)
	// timingLineRe строка тайминга "00:00:01.234 --> 00:00:03.456" с необязательными параметрами
	timingLineRe = regexp.MustCompile(`^((?:\d+:)?\d{2}:\d{2}[.,]\d{3})\s*-->\s*((?:\d+:)?\d{2}:\d{2}[.,]\d{3})`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	metadataRe   = regexp.MustCompile(`^(Kind|Language|NOTE)\b`)
)

// ParseVTT разбирает субтитры WebVTT во фрагменты с временем начала и конца.
// Строки реплики склеиваются через пробел, теги удаляются. Строка, совпадающая
// с предыдущей, пропускается: автоматические субтитры YouTube повторяют текст
// в соседних репликах.
func ParseVTT(raw string) []domain.TimedFragment {
	var fragments []domain.TimedFragment
	var current *domain.TimedFragment
	var lines []string
	prevLine := ""

	flush := func() {
		if current != nil && len(lines) > 0 {
			current.Text = strings.Join(lines, " ")
			fragments = append(fragments, *current)
		}
		current = nil
		lines = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flush()
			continue
		}
		if vttHeaderRe.MatchString(trimmed) || metadataRe.MatchString(trimmed) {
			continue
		}

		if m := timingLineRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			start, errStart := domain.ParseClock(m[1])
			end, errEnd := domain.ParseClock(m[2])
			if errStart != nil || errEnd != nil {
				continue
			}
			current = &domain.TimedFragment{Start: start, End: end}
			continue
		}

		// Текст вне реплики (идентификаторы, продолжение NOTE) не нужен
		if current == nil {
			continue
		}

		text := strings.TrimSpace(html.UnescapeString(htmlTagRe.ReplaceAllString(trimmed, "")))
		if text == "" || text == prevLine {
			continue
		}
		lines = append(lines, text)
		prevLine = text
	}
	flush()

	return fragments
}
