// Package clock drives composition from the voiceover playback position.
//
// The audio element's current time is the only clock: every tick reads it
// afresh, so dropped or late ticks never drift the picture from the sound.
package clock

import (
	"context"
	"time"
)

// Source reports the playback position in seconds.
type Source interface {
	CurrentTime() float64
}

// Ticker delivers "draw the next frame" requests at the render cadence.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTicker returns a ticker firing fps times per second. A late receiver
// gets the most recent tick only, like an animation frame callback.
func NewTicker(fps int) Ticker {
	if fps <= 0 {
		fps = 30
	}
	return timeTicker{t: time.NewTicker(time.Second / time.Duration(fps))}
}

// DrawFunc renders the picture for playback position t.
type DrawFunc func(t float64) error

// Run draws once immediately and then once per tick until ended is closed,
// ctx is done or draw fails. The ticker is stopped before Run returns, so no
// draw happens after playback has ended.
func Run(ctx context.Context, ticker Ticker, src Source, ended <-chan struct{}, draw DrawFunc) error {
	defer ticker.Stop()

	if err := draw(src.CurrentTime()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ended:
			return nil
		case <-ticker.C():
			select {
			case <-ended:
				return nil
			default:
			}
			if err := draw(src.CurrentTime()); err != nil {
				return err
			}
		}
	}
}
