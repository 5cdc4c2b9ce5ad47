package application

import (
	"math"
	"sort"
	"strings"

	"video-linker/src/domain"
)

// DefaultInterval ширина окна группировки по умолчанию, секунды
const DefaultInterval = 30.0

// GroupByInterval раскладывает фрагменты по окнам фиксированной ширины.
// Окно фрагмента: floor(start / interval) * interval, так что фрагмент на границе
// относится к открываемому им окну. Внутри окна тексты идут по возрастанию start.
// Пустые окна не создаются.
func GroupByInterval(fragments []domain.TimedFragment, interval float64) ([]domain.Segment, error) {
	if interval <= 0 || math.IsNaN(interval) || math.IsInf(interval, 0) {
		return nil, domain.NewValidationError("интервал группировки должен быть положительным", nil)
	}

	sorted := make([]domain.TimedFragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Text != b.Text {
			return a.Text < b.Text
		}
		return a.End < b.End
	})

	var segments []domain.Segment
	var texts []string

	flush := func() {
		if len(segments) == 0 {
			return
		}
		segments[len(segments)-1].Text = strings.Join(texts, " ")
		texts = texts[:0]
	}

	for _, frag := range sorted {
		text := strings.TrimSpace(frag.Text)
		if text == "" {
			continue
		}

		start := frag.Start
		if start < 0 || math.IsNaN(start) {
			start = 0
		}
		windowStart := math.Floor(start/interval) * interval

		if len(segments) == 0 || segments[len(segments)-1].Start != windowStart {
			flush()
			segments = append(segments, domain.Segment{
				Start:       windowStart,
				End:         windowStart + interval,
				DisplayTime: domain.FormatClock(windowStart),
			})
		}
		texts = append(texts, text)
	}
	flush()

	return segments, nil
}

// SegmentsText склеивает тексты всех сегментов через пробел
func SegmentsText(segments []domain.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}

// SegmentsByRange индексирует сегменты по ключу окна "HH:MM:SS - HH:MM:SS"
func SegmentsByRange(segments []domain.Segment) map[string]domain.Segment {
	byRange := make(map[string]domain.Segment, len(segments))
	for _, seg := range segments {
		byRange[seg.TimeRange()] = seg
	}
	return byRange
}
