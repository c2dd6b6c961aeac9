package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ivlev/story2video/internal/timeline"
)

func TestFrameSelection(t *testing.T) {
	s := New(40, 4, nil, 0)
	assert.Equal(t, 10.0, s.FrameDuration())

	tests := []struct {
		t    float64
		want int
	}{
		{0, 0},
		{9.9, 0},
		{10, 1},
		{25, 2},
		{39.9, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Frame(tt.t), "t=%v", tt.t)
	}
}

func TestFrameSelectionMonotonic(t *testing.T) {
	s := New(40, 4, nil, 0)
	prev := s.Frame(0)
	for ts := 0.0; ts < 40; ts += 0.05 {
		cur := s.Frame(ts)
		assert.GreaterOrEqual(t, cur, prev, "t=%v", ts)
		prev = cur
	}
}

func TestLastFrameHold(t *testing.T) {
	s := New(40, 4, nil, 0)
	for _, ts := range []float64{40, 40.01, 55, 1e9} {
		assert.Equal(t, 3, s.Frame(ts), "t=%v", ts)
	}
	assert.Equal(t, 0, s.Frame(-1))
}

func TestMinimumFrameDuration(t *testing.T) {
	s := New(10, 100, nil, 0)
	assert.Equal(t, 0.75, s.FrameDuration())
	assert.Equal(t, 1, s.Frame(0.8))
	assert.Equal(t, 13, s.Frame(9.99))

	tuned := New(10, 100, nil, 0.5)
	assert.Equal(t, 0.5, tuned.FrameDuration())
}

func TestSubtitleFirstMatch(t *testing.T) {
	s := New(10, 1, []timeline.SubtitleCue{
		{Start: "0", End: "5", Text: "A"},
		{Start: "2", End: "8", Text: "B"},
	}, 0)

	text, ok := s.Subtitle(3)
	assert.True(t, ok)
	assert.Equal(t, "A", text)

	text, ok = s.Subtitle(6)
	assert.True(t, ok)
	assert.Equal(t, "B", text)
}

func TestSubtitleGap(t *testing.T) {
	s := New(20, 2, []timeline.SubtitleCue{
		{Start: "00:00:00,000", End: "00:00:05,000", Text: "first"},
		{Start: "00:00:10,000", End: "00:00:15,000", Text: "second"},
	}, 0)

	_, ok := s.Subtitle(7)
	assert.False(t, ok)

	// range is inclusive on both ends
	text, ok := s.Subtitle(5)
	assert.True(t, ok)
	assert.Equal(t, "first", text)
	text, ok = s.Subtitle(10)
	assert.True(t, ok)
	assert.Equal(t, "second", text)
}

func TestSubtitleMalformedCues(t *testing.T) {
	s := New(10, 1, []timeline.SubtitleCue{
		{Start: "00:00:06,000", End: "00:00:02,000", Text: "inverted"},
		{Start: "abc", End: "xyz", Text: "garbage"},
	}, 0)

	_, ok := s.Subtitle(4)
	assert.False(t, ok)

	// both garbage timestamps parse to 0, so the cue only covers t=0
	text, ok := s.Subtitle(0)
	assert.True(t, ok)
	assert.Equal(t, "garbage", text)
}
