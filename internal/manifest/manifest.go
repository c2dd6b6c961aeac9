package manifest

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest describes one composition on disk. Asset references are paths
// relative to the manifest file or http(s) URLs.
type Manifest struct {
	Version      string         `yaml:"version"`
	ID           string         `yaml:"id,omitempty"`
	Resolution   string         `yaml:"resolution,omitempty"`
	Audio        string         `yaml:"audio"`
	AudioMIME    string         `yaml:"audio_mime,omitempty"`
	SubtitlesSRT string         `yaml:"subtitles_srt,omitempty"`
	Frames       []Frame        `yaml:"frames"`
	Subtitles    []Cue          `yaml:"subtitles,omitempty"`
	Script       map[string]any `yaml:"script,omitempty"`
}

// Frame is one storyboard still. Exactly one of Image and URL is set.
type Frame struct {
	Title  string `yaml:"title,omitempty"`
	Prompt string `yaml:"prompt,omitempty"`
	Image  string `yaml:"image,omitempty"`
	URL    string `yaml:"url,omitempty"`
}

type Cue struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	Text  string `yaml:"text"`
}

const Version = "1.0"

// Write stores m as YAML at path.
func Write(m *Manifest, path string) error {
	if m.Version == "" {
		m.Version = Version
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Read parses the manifest at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	return &m, nil
}
