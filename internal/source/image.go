package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ivlev/story2video/internal/system"
	"github.com/ivlev/story2video/internal/timeline"
)

// ImageSource reads frames from image files. A directory is read in file
// name order.
type ImageSource struct {
	paths []string
}

func NewImageSource(path string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && system.HasExtension(entry.Name(), imageExtensions...) {
				paths = append(paths, filepath.Join(path, entry.Name()))
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no images found in %s", path)
	}
	return &ImageSource{paths: paths}, nil
}

var imageExtensions = append([]string{".webp", ".gif"}, system.ImageExtensions...)

func (s *ImageSource) PageCount() int {
	return len(s.paths)
}

// Paths lists the image files in frame order.
func (s *ImageSource) Paths() []string {
	return s.paths
}

// Frame returns the raw file bytes. Decoding is left to the renderer, which
// tolerates broken images.
func (s *ImageSource) Frame(index int) (timeline.StoryboardFrame, error) {
	if index < 0 || index >= len(s.paths) {
		return timeline.StoryboardFrame{}, fmt.Errorf("frame %d out of range", index)
	}
	data, err := os.ReadFile(s.paths[index])
	if err != nil {
		return timeline.StoryboardFrame{}, err
	}
	name := filepath.Base(s.paths[index])
	return timeline.StoryboardFrame{Title: strings.TrimSuffix(name, filepath.Ext(name)), Image: data}, nil
}

func (s *ImageSource) Close() error {
	return nil
}
