package manifest

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivlev/story2video/internal/timeline"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Composition is a loaded manifest.
type Composition struct {
	Request timeline.CompositionRequest
	Script  timeline.ScriptContent
}

// Load reads the manifest at path and resolves all of its assets.
func Load(ctx context.Context, path string, f *Fetcher) (*Composition, error) {
	m, err := Read(path)
	if err != nil {
		return nil, err
	}
	return m.Resolve(ctx, filepath.Dir(path), f)
}

// Resolve reads local assets relative to baseDir and downloads remote ones
// concurrently. An unreadable frame image fails the load; only undecodable
// image bytes are tolerated later by the renderer.
func (m *Manifest) Resolve(ctx context.Context, baseDir string, f *Fetcher) (*Composition, error) {
	if m.Version != "" && m.Version != Version {
		return nil, fmt.Errorf("unsupported manifest version %q", m.Version)
	}

	res, err := timeline.ParseResolution(m.Resolution)
	if err != nil {
		return nil, err
	}

	req := timeline.CompositionRequest{
		ID:         m.ID,
		Resolution: res,
		Frames:     make([]timeline.StoryboardFrame, len(m.Frames)),
		Subtitles: lo.Map(m.Subtitles, func(c Cue, _ int) timeline.SubtitleCue {
			return timeline.SubtitleCue{Start: c.Start, End: c.End, Text: c.Text}
		}),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	g.Go(func() error {
		data, mediaType, err := m.asset(ctx, baseDir, m.Audio, f)
		if err != nil {
			return fmt.Errorf("audio: %w", err)
		}
		if m.AudioMIME != "" {
			mediaType = m.AudioMIME
		}
		req.Voiceover = timeline.VoiceoverTrack{Audio: data, MIME: mediaType}
		return nil
	})

	for i, frame := range m.Frames {
		g.Go(func() error {
			ref := lo.Ternary(frame.URL != "", frame.URL, frame.Image)
			data, _, err := m.asset(ctx, baseDir, ref, f)
			if err != nil {
				return fmt.Errorf("frame %d (%s): %w", i, frame.Title, err)
			}
			req.Frames[i] = timeline.StoryboardFrame{Title: frame.Title, Prompt: frame.Prompt, Image: data}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if m.SubtitlesSRT != "" {
		file, err := os.Open(resolvePath(baseDir, m.SubtitlesSRT))
		if err != nil {
			return nil, err
		}
		cues, err := timeline.ReadSRT(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("subtitles: %w", err)
		}
		req.Subtitles = append(req.Subtitles, cues...)
	}

	comp := &Composition{Request: req}
	if len(m.Script) > 0 {
		comp.Script, err = timeline.DecodeScriptContent(m.Script)
		if err != nil {
			return nil, err
		}
	}
	return comp, nil
}

func (m *Manifest) asset(ctx context.Context, baseDir, ref string, f *Fetcher) ([]byte, string, error) {
	if ref == "" {
		return nil, "", fmt.Errorf("no image or url given")
	}
	if isRemote(ref) {
		if f == nil {
			return nil, "", fmt.Errorf("remote asset %s needs a fetcher", ref)
		}
		return f.Fetch(ctx, ref)
	}

	path := resolvePath(baseDir, ref)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, mime.TypeByExtension(filepath.Ext(path)), nil
}

func resolvePath(baseDir, ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(baseDir, ref)
}

// Scaffold builds a manifest for local assets, one frame per image in the
// given order. Frame titles come from the file names.
func Scaffold(audio string, images []string, srt string) *Manifest {
	return &Manifest{
		Version:      Version,
		Resolution:   timeline.Landscape.String(),
		Audio:        audio,
		SubtitlesSRT: srt,
		Frames: lo.Map(images, func(path string, _ int) Frame {
			name := filepath.Base(path)
			return Frame{Title: strings.TrimSuffix(name, filepath.Ext(name)), Image: path}
		}),
	}
}
