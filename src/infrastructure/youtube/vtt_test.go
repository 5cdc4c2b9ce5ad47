package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleVTT = `WEBVTT
Kind: captions
Language: en

NOTE generated automatically

1
00:00:01.000 --> 00:00:03.500 align:start position:0%
hello <c>there</c>

2
00:00:03.500 --> 00:00:06.000
hello there
general &amp; kenobi

00:00:31.000 --> 00:00:33.000
<i>second</i>
window
`

func TestParseVTT(t *testing.T) {
	frags := ParseVTT(sampleVTT)
	require.Len(t, frags, 3)

	assert.InDelta(t, 1.0, frags[0].Start, 1e-9)
	assert.InDelta(t, 3.5, frags[0].End, 1e-9)
	assert.Equal(t, "hello there", frags[0].Text)

	// повтор предыдущей строки отброшен, сущности раскрыты
	assert.Equal(t, "general & kenobi", frags[1].Text)

	assert.InDelta(t, 31.0, frags[2].Start, 1e-9)
	assert.Equal(t, "second window", frags[2].Text)
}

func TestParseVTTEmpty(t *testing.T) {
	assert.Empty(t, ParseVTT(""))
	assert.Empty(t, ParseVTT("WEBVTT\n\n"))
}

func TestParseVTTShortTimestamps(t *testing.T) {
	frags := ParseVTT("WEBVTT\n\n01:05.250 --> 01:07.000\nshort form\n")
	require.Len(t, frags, 1)
	assert.InDelta(t, 65.25, frags[0].Start, 1e-9)
}
