package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ivlev/story2video/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() timeline.CompositionRequest {
	return timeline.CompositionRequest{
		ID:        "p1",
		Voiceover: timeline.VoiceoverTrack{Audio: []byte("audio"), MIME: "audio/mpeg"},
		Frames: []timeline.StoryboardFrame{
			{Title: "Hook", Prompt: "a cat", Image: []byte{1, 2, 3}},
			{Title: "CTA", Image: []byte{4}},
		},
		Subtitles:  []timeline.SubtitleCue{{Start: "00:00:01,000", End: "00:00:02,500", Text: "hi"}},
		Resolution: timeline.Portrait,
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	p := FromRequest(sampleRequest(), "my script")
	assert.Equal(t, "YXVkaW8=", p.AudioBase64)
	assert.Equal(t, "portrait", p.Resolution)

	req, err := p.Request("p1")
	require.NoError(t, err)
	assert.Equal(t, sampleRequest(), req)
}

func TestPayloadWithoutAssetsIsNotAGeneration(t *testing.T) {
	_, err := Payload{ScriptText: "only text"}.Request("p1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func testStore(t *testing.T, s Store) {
	_, err := s.Load("p1")
	assert.ErrorIs(t, err, ErrNotFound)

	p := FromRequest(sampleRequest(), "script")
	require.NoError(t, s.Save("p1", p))
	require.NoError(t, s.Save("p2", Payload{ScriptText: "other"}))

	got, err := s.Load("p1")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	require.NoError(t, s.Clear("p1"))
	_, err = s.Load("p1")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Clear("p1"), "clearing twice is fine")

	other, err := s.Load("p2")
	require.NoError(t, err)
	assert.Equal(t, "other", other.ScriptText)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	testStore(t, NewFileStore(dir))
}

func TestFileStoreEscapesIDs(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	require.NoError(t, s.Save("../escape", Payload{ScriptText: "x"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "..%2Fescape.yaml", entries[0].Name())

	_, err = s.Load("")
	assert.Error(t, err)
}

func TestDispatcherDeliversToSingleHandler(t *testing.T) {
	d := NewDispatcher(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan ResumeRequested, 2)
	done := make(chan error, 1)
	go func() {
		done <- d.Serve(ctx, func(_ context.Context, cmd ResumeRequested) error {
			got <- cmd
			if cmd.ProjectID == "bad" {
				return errors.New("boom")
			}
			return nil
		})
	}()

	require.NoError(t, d.Request(ctx, "bad"))
	require.NoError(t, d.Request(ctx, "p1"))

	assert.Equal(t, ResumeRequested{ProjectID: "bad"}, <-got)
	assert.Equal(t, ResumeRequested{ProjectID: "p1"}, <-got)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop")
	}
}

func TestDispatcherRequestHonoursContext(t *testing.T) {
	d := NewDispatcher(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Request(ctx, "p1"), context.DeadlineExceeded)
}

func TestResume(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save("p1", FromRequest(sampleRequest(), "")))

	req, _, err := Resume(store, ResumeRequested{ProjectID: "p1"})
	require.NoError(t, err)
	assert.Len(t, req.Frames, 2)

	_, _, err = Resume(store, ResumeRequested{ProjectID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}
