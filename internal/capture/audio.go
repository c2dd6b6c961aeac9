package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivlev/story2video/internal/clock"
	"github.com/ivlev/story2video/internal/timeline"
)

var audioExtensions = map[string]string{
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/wave":  ".wav",
	"audio/ogg":   ".ogg",
	"audio/webm":  ".webm",
	"audio/aac":   ".aac",
	"audio/mp4":   ".m4a",
	"audio/flac":  ".flac",
}

// AudioGraph routes the voiceover to two sinks: the capture destination read
// by the recorder and the speaker the user hears.
type AudioGraph struct {
	capturePath string
	speaker     clock.Speaker
}

// ConnectAudio writes the voiceover into workDir as the capture destination.
// A nil speaker makes the preview silent; the capture is unaffected.
func ConnectAudio(workDir string, track timeline.VoiceoverTrack, speaker clock.Speaker) (*AudioGraph, error) {
	if speaker == nil {
		speaker = clock.SilentSpeaker{}
	}

	path := filepath.Join(workDir, "voiceover"+audioExtension(track.MIME))
	if err := os.WriteFile(path, track.Audio, 0o600); err != nil {
		return nil, fmt.Errorf("write capture destination: %w", err)
	}
	return &AudioGraph{capturePath: path, speaker: speaker}, nil
}

func audioExtension(mime string) string {
	base, _, _ := strings.Cut(strings.ToLower(mime), ";")
	if ext, ok := audioExtensions[strings.TrimSpace(base)]; ok {
		return ext
	}
	return ".audio"
}

// CapturePath is the file the recorder muxes as the audio track.
func (g *AudioGraph) CapturePath() string {
	return g.capturePath
}

// Element returns the audio element for this graph. Its output goes to the
// speaker sink.
func (g *AudioGraph) Element(probe clock.MetadataProbe) *clock.Player {
	return clock.NewPlayer(g.capturePath, probe, g.speaker)
}

// Disconnect silences the speaker and removes the capture destination.
func (g *AudioGraph) Disconnect() error {
	stopErr := g.speaker.Stop()
	if err := os.Remove(g.capturePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return stopErr
}
