package system

import (
	"image"
	"sync"
)

// SurfacePool recycles RGBA drawing surfaces between renders. A 1080p surface
// is ~8MB, and re-renders of the same composition ask for the same size again.
type SurfacePool struct {
	mu    sync.RWMutex
	pools map[image.Point]*sync.Pool
}

// Surfaces is the process-wide pool used by the compositor.
var Surfaces = NewSurfacePool()

func NewSurfacePool() *SurfacePool {
	return &SurfacePool{pools: make(map[image.Point]*sync.Pool)}
}

// Get returns a surface of exactly width×height anchored at the origin. The
// pixel contents are undefined.
func (p *SurfacePool) Get(width, height int) *image.RGBA {
	size := image.Pt(width, height)

	p.mu.RLock()
	pool, ok := p.pools[size]
	p.mu.RUnlock()

	if !ok {
		p.mu.Lock()
		pool, ok = p.pools[size]
		if !ok {
			pool = &sync.Pool{
				New: func() any {
					return image.NewRGBA(image.Rectangle{Max: size})
				},
			}
			p.pools[size] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

// Put hands a surface back. Surfaces not anchored at the origin are dropped.
func (p *SurfacePool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Min != (image.Point{}) {
		return
	}

	p.mu.RLock()
	pool, ok := p.pools[img.Rect.Max]
	p.mu.RUnlock()

	if ok {
		pool.Put(img)
	}
}
