package timeline

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResolution(t *testing.T) {
	tests := []struct {
		name    string
		want    Resolution
		wantErr bool
	}{
		{"landscape", Landscape, false},
		{"PORTRAIT", Portrait, false},
		{"", Landscape, false},
		{"desktop", Landscape, false},
		{"9:16", Portrait, false},
		{"square", Resolution{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResolution(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolutionSize(t *testing.T) {
	w, h := Landscape.Size()
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	w, h = Portrait.Size()
	assert.Equal(t, 1080, w)
	assert.Equal(t, 1920, h)
}

func TestValidate(t *testing.T) {
	valid := func() CompositionRequest {
		return CompositionRequest{
			Voiceover: VoiceoverTrack{Audio: []byte{1, 2, 3}},
			Frames:    []StoryboardFrame{{Title: "one", Image: []byte{1}}},
		}
	}

	req := valid()
	require.NoError(t, req.Validate())
	assert.Equal(t, Landscape, req.Resolution)
	assert.NotEmpty(t, req.ID)

	noAudio := valid()
	noAudio.Voiceover.Audio = nil
	assert.ErrorIs(t, noAudio.Validate(), ErrValidation)

	noFrames := valid()
	noFrames.Frames = nil
	assert.ErrorIs(t, noFrames.Validate(), ErrValidation)

	badPreset := valid()
	badPreset.Resolution = Resolution{Value: "square"}
	assert.ErrorIs(t, badPreset.Validate(), ErrValidation)
}

func TestCueSpan(t *testing.T) {
	start, end := SubtitleCue{Start: "00:00:01,000", End: "00:00:03,500"}.Span()
	assert.Equal(t, 1.0, start)
	assert.Equal(t, 3.5, end)
}

func TestSRTWriteRead(t *testing.T) {
	cues := []SubtitleCue{
		{Start: "00:00:00,000", End: "00:00:02,000", Text: "Stop scrolling."},
		{Start: "00:00:02,000", End: "00:00:05,250", Text: "Here is why."},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSRT(&buf, cues))
	assert.Equal(t, "1\n00:00:00,000 --> 00:00:02,000\nStop scrolling.\n\n"+
		"2\n00:00:02,000 --> 00:00:05,250\nHere is why.\n", buf.String())

	got, err := ReadSRT(&buf)
	require.NoError(t, err)
	assert.Equal(t, cues, got)
}

func TestReadSRTTolerant(t *testing.T) {
	src := "\uFEFF1\r\n00:00:01,000 --> 00:00:03,000 X1:10\r\nfirst line\r\nsecond line\r\n\r\n\r\n" +
		"junk without timing\n\n" +
		"3\n00:00:04,000 --> 00:00:05,000\nlast"

	got, err := ReadSRT(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first line second line", got[0].Text)
	assert.Equal(t, "00:00:03,000", got[0].End)
	assert.Equal(t, "last", got[1].Text)
}

func TestDecodeScriptContent(t *testing.T) {
	free, err := DecodeScriptContent(map[string]any{"edited_text": "  my take  ", "hook": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, FreeformScript{EditedText: "  my take  "}, free)
	assert.Equal(t, "my take", free.Render())

	structured, err := DecodeScriptContent(map[string]any{"hook": "Hook", "body": "Body", "cta": "Follow"})
	require.NoError(t, err)
	assert.Equal(t, "Hook\n\nBody\n\nFollow", structured.Render())

	partial, err := DecodeScriptContent(map[string]any{"body": "Only body", "cta": nil})
	require.NoError(t, err)
	assert.Equal(t, "Only body", partial.Render())

	_, err = DecodeScriptContent(map[string]any{"title": "nothing useful"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = DecodeScriptContent(nil)
	assert.ErrorIs(t, err, ErrValidation)
}
