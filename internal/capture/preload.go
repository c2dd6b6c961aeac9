package capture

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"

	"github.com/ivlev/story2video/internal/timeline"
	"github.com/samber/lo"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// Preloaded holds the decoded storyboard. Images[i] is nil for every index in
// Failures.
type Preloaded struct {
	Images   []image.Image
	Failures []int
}

// Preload decodes all frames concurrently, at most workers at a time. Decode
// failures are recorded and do not fail the preload; only cancellation does.
func Preload(ctx context.Context, frames []timeline.StoryboardFrame, workers int) (Preloaded, error) {
	images := make([]image.Image, len(frames))
	errs := make([]error, len(frames))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, frame := range frames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := DecodeFrame(frame)
			if err != nil {
				errs[i] = err
				return nil
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Preloaded{}, err
	}

	failures := lo.FilterMap(errs, func(err error, i int) (int, bool) {
		if err == nil {
			return 0, false
		}
		log.Printf("[!] Frame %d (%s) will show background only: %v", i, frames[i].Title, err)
		return i, true
	})
	return Preloaded{Images: images, Failures: failures}, nil
}

// DecodeFrame decodes a storyboard image as PNG, JPEG, GIF or WebP.
func DecodeFrame(frame timeline.StoryboardFrame) (image.Image, error) {
	if len(frame.Image) == 0 {
		return nil, wrap(ErrDecode, nil, "empty image payload")
	}
	img, format, err := image.Decode(bytes.NewReader(frame.Image))
	if err != nil {
		return nil, wrap(ErrDecode, err, "decode image: %v", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, wrap(ErrDecode, nil, "%s image has no pixels", format)
	}
	return img, nil
}
