package source

import (
	"bytes"
	"fmt"
	"image/png"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/ivlev/story2video/internal/timeline"
	"golang.org/x/sync/errgroup"
)

// Source yields storyboard frames in display order.
type Source interface {
	PageCount() int
	Frame(index int) (timeline.StoryboardFrame, error)
	Close() error
}

// Open picks the source for path: a PDF is rasterised page by page, anything
// else is read as an image file or a directory of images.
func Open(path string, dpi int) (Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return NewFitzPDFSource(path, dpi)
	}
	return NewImageSource(path)
}

// Frames loads every frame of src, at most workers at a time.
func Frames(src Source, workers int) ([]timeline.StoryboardFrame, error) {
	frames := make([]timeline.StoryboardFrame, src.PageCount())

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := range frames {
		g.Go(func() error {
			frame, err := src.Frame(i)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			frames[i] = frame
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}

type FitzPDFSource struct {
	mu   sync.Mutex
	doc  *fitz.Document
	path string
	dpi  int
}

func NewFitzPDFSource(path string, dpi int) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &FitzPDFSource{doc: doc, path: path, dpi: dpi}, nil
}

func (f *FitzPDFSource) PageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc.NumPage()
}

// Frame renders page index as PNG. Each call opens its own document handle,
// mupdf documents are not safe for concurrent rendering.
func (f *FitzPDFSource) Frame(index int) (timeline.StoryboardFrame, error) {
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return timeline.StoryboardFrame{}, err
	}
	defer workerDoc.Close()

	img, err := workerDoc.ImageDPI(index, float64(f.dpi))
	if err != nil {
		return timeline.StoryboardFrame{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return timeline.StoryboardFrame{}, err
	}
	return timeline.StoryboardFrame{
		Title: fmt.Sprintf("%s p.%d", strings.TrimSuffix(filepath.Base(f.path), filepath.Ext(f.path)), index+1),
		Image: buf.Bytes(),
	}, nil
}

func (f *FitzPDFSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc.Close()
}
