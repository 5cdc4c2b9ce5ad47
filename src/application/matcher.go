package application

import (
	"context"
	"math"
	"sort"
	"strings"

	"video-linker/src/domain"
)

const (
	// DefaultThreshold минимальная нормализованная оценка совпадения
	DefaultThreshold = 0.01
	// DefaultTopK число кандидатов, запрашиваемых у хранилища
	DefaultTopK = 5
)

// SegmentMatcher ищет сегменты, наиболее близкие по смыслу к запросу
type SegmentMatcher struct {
	store domain.SegmentStore
}

// NewSegmentMatcher создает новый экземпляр поиска по сегментам
func NewSegmentMatcher(store domain.SegmentStore) *SegmentMatcher {
	return &SegmentMatcher{store: store}
}

// Match запрашивает k кандидатов, нормализует их оценки и отбрасывает
// результаты ниже threshold. Результат упорядочен по убыванию оценки.
func (m *SegmentMatcher) Match(ctx context.Context, query string, threshold float64, k int) ([]domain.MatchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("текст запроса не может быть пустым", nil)
	}
	// Порог выше 1 допустим: ему не удовлетворяет ни одна оценка
	if threshold < 0 || math.IsNaN(threshold) {
		return nil, domain.NewValidationError("порог не может быть отрицательным", nil)
	}
	if k <= 0 {
		k = DefaultTopK
	}

	candidates, err := m.store.Query(ctx, query, k)
	if err != nil {
		return nil, domain.Classify(err, domain.KindMatchFailed, "ошибка поиска сегментов")
	}

	raw := make([]float64, len(candidates))
	for i, c := range candidates {
		raw[i] = c.Score
	}

	var results []domain.MatchResult
	for i, score := range NormalizeScores(raw) {
		if score < threshold {
			continue
		}
		seg := candidates[i]
		results = append(results, domain.MatchResult{
			QueryText:       query,
			SourceSegment:   seg.Text,
			Timestamp:       seg.Start,
			DisplayTime:     seg.DisplayTime,
			SimilarityScore: score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})
	return results, nil
}

// NormalizeScores переводит сырые оценки индекса (меньше - лучше) в оценки,
// где лучший кандидат получает 1:
//
//	range = max(max - min, 1)
//	score = 1 - (|raw| - |min|) / range
//
// Оценки относительны текущей выборке. Порядок результата совпадает с raw.
func NormalizeScores(raw []float64) []float64 {
	if len(raw) == 0 {
		return nil
	}

	lo, hi := raw[0], raw[0]
	for _, v := range raw[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := math.Max(hi-lo, 1)

	scores := make([]float64, len(raw))
	for i, v := range raw {
		scores[i] = 1 - (math.Abs(v)-math.Abs(lo))/span
	}
	return scores
}
