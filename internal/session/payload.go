package session

import (
	"encoding/base64"
	"fmt"

	"github.com/ivlev/story2video/internal/timeline"
	"github.com/samber/lo"
)

// Payload is the last generated composition of a project, in the shape the
// generator hands it over: audio and images travel base64 encoded.
type Payload struct {
	VoiceoverScript string  `yaml:"voiceover_script,omitempty"`
	Caption         string  `yaml:"caption,omitempty"`
	Subtitles       []Cue   `yaml:"subtitles"`
	AudioBase64     string  `yaml:"audio_base64"`
	AudioMIME       string  `yaml:"audio_mime,omitempty"`
	Storyboard      []Frame `yaml:"storyboard"`
	ScriptText      string  `yaml:"script_text,omitempty"`
	QualityPreset   string  `yaml:"quality_preset,omitempty"`
	Resolution      string  `yaml:"resolution,omitempty"`
}

type Cue struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	Text  string `yaml:"text"`
}

type Frame struct {
	Title       string `yaml:"title"`
	Prompt      string `yaml:"prompt,omitempty"`
	ImageBase64 string `yaml:"image_base64"`
}

// FromRequest captures req so it can be rendered again later.
func FromRequest(req timeline.CompositionRequest, scriptText string) Payload {
	return Payload{
		Subtitles: lo.Map(req.Subtitles, func(c timeline.SubtitleCue, _ int) Cue {
			return Cue{Start: c.Start, End: c.End, Text: c.Text}
		}),
		AudioBase64: base64.StdEncoding.EncodeToString(req.Voiceover.Audio),
		AudioMIME:   req.Voiceover.MIME,
		Storyboard: lo.Map(req.Frames, func(f timeline.StoryboardFrame, _ int) Frame {
			return Frame{Title: f.Title, Prompt: f.Prompt, ImageBase64: base64.StdEncoding.EncodeToString(f.Image)}
		}),
		ScriptText: scriptText,
		Resolution: req.Resolution.String(),
	}
}

// Request rebuilds the composition. A payload without audio or storyboard is
// not a usable generation.
func (p Payload) Request(projectID string) (timeline.CompositionRequest, error) {
	if p.AudioBase64 == "" || len(p.Storyboard) == 0 {
		return timeline.CompositionRequest{}, ErrNotFound
	}

	audio, err := base64.StdEncoding.DecodeString(p.AudioBase64)
	if err != nil {
		return timeline.CompositionRequest{}, fmt.Errorf("decode audio: %w", err)
	}

	frames := make([]timeline.StoryboardFrame, len(p.Storyboard))
	for i, f := range p.Storyboard {
		img, err := base64.StdEncoding.DecodeString(f.ImageBase64)
		if err != nil {
			// an unreadable image still keeps its slot, it renders as background
			img = nil
		}
		frames[i] = timeline.StoryboardFrame{Title: f.Title, Prompt: f.Prompt, Image: img}
	}

	res, err := timeline.ParseResolution(p.Resolution)
	if err != nil {
		return timeline.CompositionRequest{}, err
	}

	return timeline.CompositionRequest{
		ID:         projectID,
		Voiceover:  timeline.VoiceoverTrack{Audio: audio, MIME: p.AudioMIME},
		Frames:     frames,
		Subtitles:  lo.Map(p.Subtitles, func(c Cue, _ int) timeline.SubtitleCue { return timeline.SubtitleCue(c) }),
		Resolution: res,
	}, nil
}
