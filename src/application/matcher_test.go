package application_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-linker/src/application"
	"video-linker/src/domain"
	"video-linker/src/mocks"
)

func scoredStore(scores ...float64) *mocks.MockSegmentStore {
	return &mocks.MockSegmentStore{
		QueryFn: func(ctx context.Context, text string, k int) ([]domain.ScoredSegment, error) {
			out := make([]domain.ScoredSegment, 0, len(scores))
			for i, s := range scores {
				start := float64(i) * 30
				out = append(out, domain.ScoredSegment{
					Segment: domain.Segment{Start: start, End: start + 30, Text: string(rune('a' + i)), DisplayTime: domain.FormatClock(start)},
					Score:   s,
				})
			}
			return out, nil
		},
	}
}

func TestNormalizeScores(t *testing.T) {
	scores := application.NormalizeScores([]float64{0.1, 0.5, 0.3})
	require.Len(t, scores, 3)
	assert.InDelta(t, 1.0, scores[0], 1e-9)
	assert.InDelta(t, 0.6, scores[1], 1e-9)
	assert.InDelta(t, 0.8, scores[2], 1e-9)

	// Разброс больше 1 делит на фактический диапазон
	scores = application.NormalizeScores([]float64{0, 4})
	assert.InDelta(t, 1.0, scores[0], 1e-9)
	assert.InDelta(t, 0.0, scores[1], 1e-9)

	assert.Nil(t, application.NormalizeScores(nil))
	assert.Equal(t, []float64{1}, application.NormalizeScores([]float64{0.7}))
}

func TestMatchOrdersByScore(t *testing.T) {
	matcher := application.NewSegmentMatcher(scoredStore(0.1, 0.5, 0.3))

	results, err := matcher.Match(context.Background(), "  query  ", 0.01, 5)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].SourceSegment)
	assert.Equal(t, "c", results[1].SourceSegment)
	assert.Equal(t, "b", results[2].SourceSegment)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-9)
	assert.Equal(t, "query", results[0].QueryText)
	assert.Equal(t, 60.0, results[1].Timestamp)
	assert.Equal(t, "00:01:00", results[1].DisplayTime)
}

func TestMatchThreshold(t *testing.T) {
	matcher := application.NewSegmentMatcher(scoredStore(0.1, 0.5, 0.3))

	results, err := matcher.Match(context.Background(), "query", 0.7, 5)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = matcher.Match(context.Background(), "query", 1.01, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = matcher.Match(context.Background(), "query", -0.1, 5)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = matcher.Match(context.Background(), "query", math.NaN(), 5)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestMatchDefaultTopK(t *testing.T) {
	var gotK int
	store := &mocks.MockSegmentStore{
		QueryFn: func(ctx context.Context, text string, k int) ([]domain.ScoredSegment, error) {
			gotK = k
			return nil, nil
		},
	}

	results, err := application.NewSegmentMatcher(store).Match(context.Background(), "q", 0.01, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, application.DefaultTopK, gotK)
}

func TestMatchErrors(t *testing.T) {
	matcher := application.NewSegmentMatcher(&mocks.MockSegmentStore{})

	_, err := matcher.Match(context.Background(), "   ", 0.01, 5)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = matcher.Match(context.Background(), "query", 0.01, 5)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	failing := &mocks.MockSegmentStore{
		QueryFn: func(ctx context.Context, text string, k int) ([]domain.ScoredSegment, error) {
			return nil, errors.New("disk failure")
		},
	}
	_, err = application.NewSegmentMatcher(failing).Match(context.Background(), "query", 0.01, 5)
	assert.True(t, domain.IsKind(err, domain.KindMatchFailed))
}
