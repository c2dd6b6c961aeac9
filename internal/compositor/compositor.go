package compositor

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ivlev/story2video/internal/system"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	Background   = color.RGBA{R: 0x02, G: 0x06, B: 0x17, A: 0xff}
	SubtitleBand = color.NRGBA{A: 140}
	SubtitleText = color.RGBA{R: 0xf8, G: 0xfa, B: 0xfc, A: 0xff}
)

// Layout at a 1080px short side. Everything scales with the short side.
const (
	baseFontSize   = 42.0
	baseMarginX    = 60.0
	baseMarginBot  = 80.0
	baseBandHeight = 140.0
	basePaddingX   = 32.0
	basePaddingY   = 24.0
	baseRadius     = 24.0
)

// Compositor draws storyboard frames and the subtitle overlay onto a single
// RGBA surface of the output size. It is not safe for concurrent use.
type Compositor struct {
	width, height int
	scale         float64

	images []image.Image
	scaled map[int]*image.RGBA

	surface *image.RGBA
	pool    *system.SurfacePool
	face    font.Face
}

// New prepares a compositor for the given decoded images. A nil entry marks a
// frame that failed to decode; selecting it leaves the background only.
func New(width, height int, images []image.Image) (*Compositor, error) {
	return NewWithPool(width, height, images, system.Surfaces)
}

func NewWithPool(width, height int, images []image.Image, pool *system.SurfacePool) (*Compositor, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}

	scale := float64(min(width, height)) / 1080

	otf, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    baseFontSize * scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}

	return &Compositor{
		width:   width,
		height:  height,
		scale:   scale,
		images:  images,
		scaled:  make(map[int]*image.RGBA),
		surface: pool.Get(width, height),
		pool:    pool,
		face:    face,
	}, nil
}

// Surface returns the drawing surface. It is overwritten by every Draw.
func (c *Compositor) Surface() *image.RGBA {
	return c.surface
}

// Draw renders one tick: background, the frame at index, and the subtitle
// band when showSubtitle is set.
func (c *Compositor) Draw(index int, subtitle string, showSubtitle bool) {
	if c.surface == nil {
		return
	}

	draw.Draw(c.surface, c.surface.Rect, image.NewUniform(Background), image.Point{}, draw.Src)

	if img := c.frame(index); img != nil {
		x := (c.width - img.Rect.Dx()) / 2
		draw.Draw(c.surface, image.Rect(x, 0, x+img.Rect.Dx(), c.height), img, image.Point{}, draw.Over)
	}

	if showSubtitle {
		c.drawSubtitle(subtitle)
	}
}

// frame returns the full-height copy of image index, scaling it on first use.
func (c *Compositor) frame(index int) *image.RGBA {
	if scaled, ok := c.scaled[index]; ok {
		return scaled
	}
	if index < 0 || index >= len(c.images) || c.images[index] == nil {
		return nil
	}

	src := c.images[index]
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		c.scaled[index] = nil
		return nil
	}

	w := int(math.Round(float64(b.Dx()) * float64(c.height) / float64(b.Dy())))
	if w < 1 {
		w = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, c.height))
	draw.ApproxBiLinear.Scale(dst, dst.Rect, src, b, draw.Src, nil)

	c.scaled[index] = dst
	return dst
}

func (c *Compositor) drawSubtitle(text string) {
	padX := int(basePaddingX * c.scale)
	band := c.bandRect(0)
	lines := wrapLines(c.face, text, band.Dx()-2*padX)
	band = c.bandRect(len(lines))

	mask := &roundedRect{rect: band, radius: int(baseRadius * c.scale)}
	draw.DrawMask(c.surface, band, image.NewUniform(SubtitleBand), image.Point{}, mask, band.Min, draw.Over)

	if len(lines) == 0 {
		return
	}

	m := c.face.Metrics()
	lineHeight := m.Height.Ceil()
	block := lineHeight*(len(lines)-1) + m.Ascent.Ceil() + m.Descent.Ceil()
	top := band.Min.Y + (band.Dy()-block)/2

	d := &font.Drawer{
		Dst:  c.surface,
		Src:  image.NewUniform(SubtitleText),
		Face: c.face,
	}
	for i, line := range lines {
		w := d.MeasureString(line).Ceil()
		x := band.Min.X + (band.Dx()-w)/2
		y := top + m.Ascent.Ceil() + i*lineHeight
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
	}
}

// bandRect is the subtitle band for the given number of text lines. The band
// keeps its bottom edge and grows upward once the text needs more room.
func (c *Compositor) bandRect(lines int) image.Rectangle {
	marginX := int(baseMarginX * c.scale)
	bottom := c.height - int(baseMarginBot*c.scale)

	height := int(baseBandHeight * c.scale)
	if lines > 1 {
		m := c.face.Metrics()
		need := m.Height.Ceil()*(lines-1) + m.Ascent.Ceil() + m.Descent.Ceil() + 2*int(basePaddingY*c.scale)
		height = max(height, need)
	}

	top := max(bottom-height, 0)
	return image.Rect(marginX, top, c.width-marginX, bottom)
}

// Release returns the surface to the pool and drops cached copies. Draw is a
// no-op afterwards.
func (c *Compositor) Release() {
	if c.surface != nil {
		c.pool.Put(c.surface)
		c.surface = nil
	}
	c.scaled = make(map[int]*image.RGBA)
	if c.face != nil {
		c.face.Close()
		c.face = nil
	}
}
