package application_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-linker/src/application"
	"video-linker/src/domain"
)

func TestGroupByIntervalTwoWindows(t *testing.T) {
	fragments := []domain.TimedFragment{
		{Start: 0, Text: "hello"},
		{Start: 35, Text: "world"},
	}

	segments, err := application.GroupByInterval(fragments, 30)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	byRange := application.SegmentsByRange(segments)
	assert.Equal(t, "hello", byRange["00:00:00 - 00:00:30"].Text)
	assert.Equal(t, "world", byRange["00:00:30 - 00:01:00"].Text)
	assert.Equal(t, "00:00:30", segments[1].DisplayTime)
	assert.Equal(t, 30.0, segments[1].Start)
}

// Фрагмент на границе относится к окну, которое он открывает
func TestGroupByIntervalBoundary(t *testing.T) {
	fragments := []domain.TimedFragment{
		{Start: 29.99, Text: "a"},
		{Start: 30, Text: "b"},
		{Start: 59.5, Text: "c"},
	}

	segments, err := application.GroupByInterval(fragments, 30)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "a", segments[0].Text)
	assert.Equal(t, "b c", segments[1].Text)
	assert.Equal(t, 30.0, segments[1].Start)
	assert.Equal(t, 60.0, segments[1].End)
}

func TestGroupByIntervalOrderAndSkips(t *testing.T) {
	fragments := []domain.TimedFragment{
		{Start: 95, Text: "later"},
		{Start: 5, Text: "  second  "},
		{Start: 1, Text: "first"},
		{Start: 10, Text: "   "},
		{Start: -3, Text: "clamped"},
	}

	segments, err := application.GroupByInterval(fragments, 30)
	require.NoError(t, err)
	require.Len(t, segments, 2, "пустые окна не создаются")

	assert.Equal(t, "clamped first second", segments[0].Text)
	assert.Equal(t, 0.0, segments[0].Start)
	assert.Equal(t, "later", segments[1].Text)
	assert.Equal(t, 90.0, segments[1].Start)
	assert.Equal(t, "00:01:30", segments[1].DisplayTime)
}

func TestGroupByIntervalDeterministic(t *testing.T) {
	a := []domain.TimedFragment{{Start: 1, Text: "y"}, {Start: 1, Text: "x"}, {Start: 40, Text: "z"}}
	b := []domain.TimedFragment{{Start: 40, Text: "z"}, {Start: 1, Text: "x"}, {Start: 1, Text: "y"}}

	first, err := application.GroupByInterval(a, 30)
	require.NoError(t, err)
	second, err := application.GroupByInterval(b, 30)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "x y", first[0].Text)
}

// Каждый непустой фрагмент попадает ровно в одно окно
func TestGroupByIntervalCoversAllText(t *testing.T) {
	var fragments []domain.TimedFragment
	for i := 0; i < 100; i++ {
		fragments = append(fragments, domain.TimedFragment{Start: float64(i) * 7.3, Text: "w"})
	}

	segments, err := application.GroupByInterval(fragments, 45)
	require.NoError(t, err)

	words := 0
	for i, seg := range segments {
		words += len(strings.Fields(seg.Text))
		assert.Equal(t, seg.Start+45, seg.End)
		if i > 0 {
			assert.Greater(t, seg.Start, segments[i-1].Start)
		}
	}
	assert.Equal(t, 100, words)
}

func TestGroupByIntervalEmpty(t *testing.T) {
	segments, err := application.GroupByInterval(nil, 30)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestGroupByIntervalInvalidInterval(t *testing.T) {
	for _, interval := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := application.GroupByInterval([]domain.TimedFragment{{Text: "x"}}, interval)
		assert.True(t, domain.IsKind(err, domain.KindValidation), "interval %v", interval)
	}
}

func TestSegmentsText(t *testing.T) {
	segments := []domain.Segment{{Text: "a b"}, {Text: ""}, {Text: "c"}}
	assert.Equal(t, "a b c", application.SegmentsText(segments))
}
