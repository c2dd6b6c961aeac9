package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/story2video/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPreloadRecordsDecodeFailures(t *testing.T) {
	frames := []timeline.StoryboardFrame{
		{Title: "one", Image: pngBytes(t, 8, 4)},
		{Title: "corrupt", Image: []byte("definitely not an image")},
		{Title: "three", Image: pngBytes(t, 4, 8)},
		{Title: "empty"},
	}

	pre, err := Preload(context.Background(), frames, 2)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3}, pre.Failures)
	require.Len(t, pre.Images, 4)
	assert.Equal(t, image.Rect(0, 0, 8, 4), pre.Images[0].Bounds())
	assert.Nil(t, pre.Images[1])
	assert.Equal(t, image.Rect(0, 0, 4, 8), pre.Images[2].Bounds())
	assert.Nil(t, pre.Images[3])
}

func TestPreloadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Preload(ctx, []timeline.StoryboardFrame{{Image: pngBytes(t, 1, 1)}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeFrameError(t *testing.T) {
	_, err := DecodeFrame(timeline.StoryboardFrame{Image: []byte{0x89, 'P', 'N', 'G'}})
	assert.ErrorIs(t, err, ErrDecode)
}

type countingSpeaker struct{ stops int }

func (s *countingSpeaker) Play(context.Context, string) error { return nil }
func (s *countingSpeaker) Stop() error                        { s.stops++; return nil }

func TestAudioGraph(t *testing.T) {
	dir := t.TempDir()
	speaker := &countingSpeaker{}

	g, err := ConnectAudio(dir, timeline.VoiceoverTrack{Audio: []byte("ID3"), MIME: "audio/mpeg"}, speaker)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "voiceover.mp3"), g.CapturePath())
	data, err := os.ReadFile(g.CapturePath())
	require.NoError(t, err)
	assert.Equal(t, "ID3", string(data))

	require.NoError(t, g.Disconnect())
	assert.Equal(t, 1, speaker.stops)
	assert.NoFileExists(t, g.CapturePath())
	assert.NoError(t, g.Disconnect(), "second disconnect is harmless")
}

func TestAudioExtension(t *testing.T) {
	assert.Equal(t, ".wav", audioExtension("audio/WAV"))
	assert.Equal(t, ".webm", audioExtension("audio/webm;codecs=opus"))
	assert.Equal(t, ".audio", audioExtension(""))
}
