package clock

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// MetadataProbe reads the duration of an audio file.
type MetadataProbe interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Element is an audio element a render can be locked to.
type Element interface {
	Source
	LoadMetadata(ctx context.Context) (float64, error)
	Duration() float64
	Play(ctx context.Context) error
	Ended() <-chan struct{}
	Close() error
}

var _ Element = (*Player)(nil)

// ErrNotLoaded is returned by Play before LoadMetadata succeeded.
var ErrNotLoaded = errors.New("audio metadata not loaded")

// Player is the voiceover audio element. Its position advances from the
// moment Play is called and Ended is closed when the track has played out.
type Player struct {
	path    string
	probe   MetadataProbe
	speaker Speaker
	now     func() time.Time

	mu       sync.Mutex
	duration float64
	started  time.Time
	playing  bool
	stopped  bool
	position float64
	timer    *time.Timer

	ended   chan struct{}
	endOnce sync.Once
}

// NewPlayer creates a player for the audio file at path. A nil speaker plays
// silently.
func NewPlayer(path string, probe MetadataProbe, speaker Speaker) *Player {
	if speaker == nil {
		speaker = SilentSpeaker{}
	}
	return &Player{
		path:    path,
		probe:   probe,
		speaker: speaker,
		now:     time.Now,
		ended:   make(chan struct{}),
	}
}

// LoadMetadata probes the track duration. A track without a positive finite
// duration cannot be played.
func (p *Player) LoadMetadata(ctx context.Context) (float64, error) {
	d, err := p.probe.Duration(ctx, p.path)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", p.path, err)
	}
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("probe %s: unusable duration %v", p.path, d)
	}

	p.mu.Lock()
	p.duration = d
	p.mu.Unlock()
	return d, nil
}

// Duration returns the loaded duration, or 0 before LoadMetadata.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// Play starts audible output and the playback position.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.duration <= 0 {
		return ErrNotLoaded
	}
	if p.playing || p.stopped {
		return nil
	}

	if err := p.speaker.Play(ctx, p.path); err != nil {
		return fmt.Errorf("start speaker: %w", err)
	}

	p.started = p.now()
	p.playing = true
	p.timer = time.AfterFunc(time.Duration(p.duration*float64(time.Second)), p.finish)
	return nil
}

// CurrentTime is the playback position in seconds, clamped to the duration.
func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		return p.position
	}
	elapsed := p.now().Sub(p.started).Seconds()
	return math.Min(math.Max(elapsed, 0), p.duration)
}

// Ended is closed when playback reaches the end of the track. It is never
// closed for a paused or closed player.
func (p *Player) Ended() <-chan struct{} {
	return p.ended
}

func (p *Player) finish() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = false
	p.position = p.duration
	p.mu.Unlock()

	p.endOnce.Do(func() { close(p.ended) })
}

// Pause freezes the position and silences the speaker. A paused player does
// not resume.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.halt()
}

// Close stops playback and releases the speaker.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.halt()
	return p.speaker.Stop()
}

func (p *Player) halt() {
	if p.timer != nil {
		p.timer.Stop()
	}
	if p.playing {
		elapsed := p.now().Sub(p.started).Seconds()
		p.position = math.Min(math.Max(elapsed, 0), p.duration)
		p.playing = false
		_ = p.speaker.Stop()
	}
	p.stopped = true
}
