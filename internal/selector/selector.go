// Package selector decides which storyboard frame and which subtitle line are
// on screen at a given playback position.
package selector

import (
	"math"

	"github.com/ivlev/story2video/internal/timeline"
)

// DefaultMinFrameDuration keeps short tracks with many frames from flickering.
const DefaultMinFrameDuration = 0.75

type span struct {
	start, end float64
	text       string
}

// Selector is immutable after New and safe for concurrent reads.
type Selector struct {
	frameCount    int
	frameDuration float64
	cues          []span
}

// New builds a selector for a track of the given duration. A non-positive
// minFrame falls back to DefaultMinFrameDuration.
func New(duration float64, frameCount int, cues []timeline.SubtitleCue, minFrame float64) *Selector {
	if minFrame <= 0 {
		minFrame = DefaultMinFrameDuration
	}
	if frameCount < 1 {
		frameCount = 1
	}
	if duration < 0 || math.IsNaN(duration) {
		duration = 0
	}

	spans := make([]span, len(cues))
	for i, c := range cues {
		start, end := c.Span()
		spans[i] = span{start: start, end: end, text: c.Text}
	}

	return &Selector{
		frameCount:    frameCount,
		frameDuration: math.Max(duration/float64(frameCount), minFrame),
		cues:          spans,
	}
}

// FrameDuration is the on-screen time of every storyboard frame.
func (s *Selector) FrameDuration() float64 {
	return s.frameDuration
}

// Frame returns the storyboard index for time t. The last frame is held for
// any tail past frameCount*frameDuration.
func (s *Selector) Frame(t float64) int {
	if t <= 0 || math.IsNaN(t) {
		return 0
	}
	idx := math.Floor(t / s.frameDuration)
	if idx >= float64(s.frameCount-1) {
		return s.frameCount - 1
	}
	return int(idx)
}

// Subtitle returns the text of the first cue, in list order, whose inclusive
// range contains t.
func (s *Selector) Subtitle(t float64) (string, bool) {
	for _, c := range s.cues {
		if t >= c.start && t <= c.end {
			return c.text, true
		}
	}
	return "", false
}
