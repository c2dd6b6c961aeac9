package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTicker struct {
	c       chan time.Time
	stopped bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{c: make(chan time.Time)}
}

func (m *manualTicker) C() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()               { m.stopped = true }

type fixedSource struct {
	t float64
}

func (f *fixedSource) CurrentTime() float64 { return f.t }

func TestRunDrawsImmediatelyAndPerTick(t *testing.T) {
	ticker := newManualTicker()
	src := &fixedSource{}
	ended := make(chan struct{})

	var seen []float64
	drawn := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), ticker, src, ended, func(ts float64) error {
			seen = append(seen, ts)
			drawn <- struct{}{}
			return nil
		})
	}()

	<-drawn
	for _, ts := range []float64{0.5, 1.0, 1.5} {
		src.t = ts
		ticker.c <- time.Now()
		<-drawn
	}
	close(ended)

	require.NoError(t, <-done)
	assert.Equal(t, []float64{0, 0.5, 1.0, 1.5}, seen)
	assert.True(t, ticker.stopped)
}

func TestRunStopsOnDrawError(t *testing.T) {
	ticker := newManualTicker()
	boom := errors.New("boom")

	err := Run(context.Background(), ticker, &fixedSource{}, make(chan struct{}), func(float64) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.True(t, ticker.stopped)
}

func TestRunStopsOnCancel(t *testing.T) {
	ticker := newManualTicker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	draws := 0
	err := Run(ctx, ticker, &fixedSource{}, make(chan struct{}), func(float64) error {
		draws++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, draws)
}
