package timeline

import (
	"strings"

	"github.com/google/uuid"
	"github.com/orsinium-labs/enum"
)

// Resolution is one of the supported output presets.
type Resolution enum.Member[string]

var (
	Landscape = Resolution{Value: "landscape"}
	Portrait  = Resolution{Value: "portrait"}

	Resolutions = enum.New(Landscape, Portrait)
)

// aliases used by the editor UI and by the CLI presets
var resolutionAliases = map[string]Resolution{
	"desktop": Landscape,
	"16:9":    Landscape,
	"mobile":  Portrait,
	"9:16":    Portrait,
}

// ParseResolution resolves a preset name. An empty name means landscape.
func ParseResolution(name string) (Resolution, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Landscape, nil
	}
	if r := Resolutions.Parse(key); r != nil {
		return *r, nil
	}
	if r, ok := resolutionAliases[key]; ok {
		return r, nil
	}
	return Resolution{}, validationError("unknown resolution preset %q", name)
}

// Size returns the output width and height in pixels.
func (r Resolution) Size() (width, height int) {
	switch r {
	case Portrait:
		return 1080, 1920
	case Landscape:
		return 1920, 1080
	}
	return 0, 0
}

func (r Resolution) String() string {
	return r.Value
}

// VoiceoverTrack is the narration audio. Duration stays zero until the
// metadata has been loaded by the player.
type VoiceoverTrack struct {
	Audio    []byte
	MIME     string
	Duration float64
}

// StoryboardFrame is one still image. Its position in the frame list is its
// only timing information.
type StoryboardFrame struct {
	Title  string
	Prompt string
	Image  []byte
}

// SubtitleCue is a timed subtitle line. Start and End keep the source
// representation; use Span for seconds.
type SubtitleCue struct {
	Start string
	End   string
	Text  string
}

// Span returns the parsed start and end in seconds.
func (c SubtitleCue) Span() (start, end float64) {
	return ParseTimestamp(c.Start), ParseTimestamp(c.End)
}

// CompositionRequest is everything needed for one render.
type CompositionRequest struct {
	// ID identifies the composition across re-renders. Results of an earlier
	// render with the same ID are released before a new render starts.
	ID         string
	Voiceover  VoiceoverTrack
	Frames     []StoryboardFrame
	Subtitles  []SubtitleCue
	Resolution Resolution
}

// Validate checks the request before any work is done. A missing resolution
// defaults to landscape and a missing ID gets a fresh UUID.
func (r *CompositionRequest) Validate() error {
	if len(r.Voiceover.Audio) == 0 {
		return validationError("voiceover audio is missing")
	}
	if len(r.Frames) == 0 {
		return validationError("storyboard has no frames")
	}
	if r.Resolution == (Resolution{}) {
		r.Resolution = Landscape
	}
	if !Resolutions.Contains(r.Resolution) {
		return validationError("unknown resolution preset %q", r.Resolution.Value)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
