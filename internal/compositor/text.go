package compositor

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// wrapLines breaks text on word boundaries so each line fits within maxWidth
// pixels. A single word wider than maxWidth gets a line of its own.
func wrapLines(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	limit := fixed.I(maxWidth)
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate) <= limit {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

// roundedRect is an alpha mask that is opaque inside rect with its corners
// rounded off by radius.
type roundedRect struct {
	rect   image.Rectangle
	radius int
}

func (r *roundedRect) ColorModel() color.Model { return color.AlphaModel }

func (r *roundedRect) Bounds() image.Rectangle { return r.rect }

func (r *roundedRect) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(r.rect) {
		return color.Transparent
	}

	rad := min(r.radius, r.rect.Dx()/2, r.rect.Dy()/2)
	if rad <= 0 {
		return color.Opaque
	}

	// distance to the nearest corner centre, only inside the corner boxes
	cx, cy := x, y
	switch {
	case x < r.rect.Min.X+rad:
		cx = r.rect.Min.X + rad
	case x >= r.rect.Max.X-rad:
		cx = r.rect.Max.X - rad - 1
	}
	switch {
	case y < r.rect.Min.Y+rad:
		cy = r.rect.Min.Y + rad
	case y >= r.rect.Max.Y-rad:
		cy = r.rect.Max.Y - rad - 1
	}

	dx, dy := x-cx, y-cy
	if dx*dx+dy*dy > rad*rad {
		return color.Transparent
	}
	return color.Opaque
}
