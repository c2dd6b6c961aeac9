package system

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEncoders(t *testing.T) {
	out := []byte(`Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC
 V....D libvpx-vp9           libvpx VP9 (codec vp9)
 A....D libopus              libopus Opus
 A....D aac                  AAC (Advanced Audio Coding)
`)

	encoders := ParseEncoders(out)
	assert.True(t, encoders["libx264"])
	assert.True(t, encoders["libvpx-vp9"])
	assert.True(t, encoders["libopus"])
	assert.True(t, encoders["aac"])
	assert.False(t, encoders["Video"])
	assert.False(t, encoders["libvorbis"])
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("9.012000\n")
	require.NoError(t, err)
	assert.Equal(t, 9.012, d)

	_, err = ParseDuration("N/A")
	assert.Error(t, err)

	_, err = ParseDuration("")
	assert.Error(t, err)
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	files := []string{"a.mp3", "b.WAV", "c.txt"}
	for i, name := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		mod := time.Now().Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(path, mod, mod))
	}

	latest, err := FindLatest(dir, AudioExtensions...)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b.WAV"), latest)

	_, err = FindLatest(dir, ".flac")
	assert.Error(t, err)
}

func TestCheckMemory(t *testing.T) {
	assert.NoError(t, CheckMemory(1))
	assert.Error(t, CheckMemory(^uint64(0)))
}
