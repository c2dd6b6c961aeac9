package manifest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/story2video/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadResolvesLocalAndRemoteAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/remote.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png; charset=binary")
		w.Write([]byte("remote-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "voiceover.mp3"), "audio-bytes")
	writeFile(t, filepath.Join(dir, "frames", "01.png"), "local-bytes")
	writeFile(t, filepath.Join(dir, "subs.srt"), "1\n00:00:04,000 --> 00:00:05,000\nFrom SRT\n")
	writeFile(t, filepath.Join(dir, "story.yaml"), `version: "1.0"
id: project-123
resolution: portrait
audio: voiceover.mp3
audio_mime: audio/mpeg
subtitles_srt: subs.srt
frames:
  - {title: Hook, prompt: "a cat", image: frames/01.png}
  - {title: Remote, url: "`+srv.URL+`/remote.png"}
subtitles:
  - {start: "00:00:01,000", end: "00:00:03,000", text: Hello}
script: {hook: "Stop scrolling", body: "Cats", cta: "Follow"}
`)

	comp, err := Load(context.Background(), filepath.Join(dir, "story.yaml"), NewFetcher())
	require.NoError(t, err)

	req := comp.Request
	assert.Equal(t, "project-123", req.ID)
	assert.Equal(t, timeline.Portrait, req.Resolution)
	assert.Equal(t, "audio-bytes", string(req.Voiceover.Audio))
	assert.Equal(t, "audio/mpeg", req.Voiceover.MIME)
	require.Len(t, req.Frames, 2)
	assert.Equal(t, timeline.StoryboardFrame{Title: "Hook", Prompt: "a cat", Image: []byte("local-bytes")}, req.Frames[0])
	assert.Equal(t, "remote-bytes", string(req.Frames[1].Image))
	assert.Equal(t, []timeline.SubtitleCue{
		{Start: "00:00:01,000", End: "00:00:03,000", Text: "Hello"},
		{Start: "00:00:04,000", End: "00:00:05,000", Text: "From SRT"},
	}, req.Subtitles)
	require.NotNil(t, comp.Script)
	assert.Equal(t, "Stop scrolling\n\nCats\n\nFollow", comp.Script.Render())
	assert.NoError(t, req.Validate())
}

func TestLoadFailsOnMissingAssets(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp3"), "x")

	cases := map[string]*Manifest{
		"missing local frame": {Audio: "a.mp3", Frames: []Frame{{Image: "nope.png"}}},
		"remote 404":          {Audio: "a.mp3", Frames: []Frame{{URL: srv.URL + "/gone.png"}}},
		"frame without ref":   {Audio: "a.mp3", Frames: []Frame{{Title: "empty"}}},
		"missing audio":       {Audio: "none.mp3"},
		"bad resolution":      {Audio: "a.mp3", Resolution: "square"},
		"bad version":         {Version: "2.0", Audio: "a.mp3"},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.Resolve(context.Background(), dir, NewFetcher())
			assert.Error(t, err)
		})
	}
}

func TestFetchReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, _, err := NewFetcher().Fetch(context.Background(), srv.URL+"/expired")
	assert.ErrorIs(t, err, errNon200Status)
}

func TestScaffoldWriteRead(t *testing.T) {
	dir := t.TempDir()
	m := Scaffold("voice.mp3", []string{"frames/01-hook.png", "frames/02.jpg"}, "subs.srt")
	path := filepath.Join(dir, "story.yaml")
	require.NoError(t, Write(m, path))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.Equal(t, "01-hook", got.Frames[0].Title)
	assert.Equal(t, Version, got.Version)
	assert.Equal(t, "landscape", got.Resolution)
}
