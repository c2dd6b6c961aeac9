package preview

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ivlev/story2video/internal/engine"
	"github.com/ivlev/story2video/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *Tracker, *engine.RenderResult, *session.Dispatcher) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "final-video.webm")
	require.NoError(t, os.WriteFile(path, []byte("webm-bytes"), 0o644))

	res := &engine.RenderResult{
		ID:        "p1",
		MIME:      "video/webm;codecs=vp9,opus",
		Extension: "webm",
		FileName:  "final-video.webm",
		Path:      path,
		URL:       "file://" + path,
		Frames:    270,
	}
	tracker := NewTracker()
	d := session.NewDispatcher(1)
	srv := NewServer(tracker, func(id string) (*engine.RenderResult, bool) {
		if id == "p1" {
			return res, true
		}
		return nil, false
	}, d, "p1")
	return srv, tracker, res, d
}

func get(srv *Server, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestStatus(t *testing.T) {
	srv, tracker, _, _ := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, get(srv, "/status").Code)

	tracker.Update(engine.Status{ID: "p1", Phase: engine.PhaseComposing, At: time.Now()})
	w := get(srv, "/status")
	require.Equal(t, http.StatusOK, w.Code)
	var body statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "composing", body.Phase)
	assert.Empty(t, body.URL)

	tracker.Update(engine.Status{ID: "p1", Phase: engine.PhaseComplete, At: time.Now()})
	w = get(srv, "/status?project=p1")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "complete", body.Phase)
	assert.Contains(t, body.URL, "file://")
	assert.Equal(t, 270, body.Frames)

	tracker.Update(engine.Status{ID: "p2", Phase: engine.PhaseFailed, Message: "recording failed"})
	w = get(srv, "/status?project=p2")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "failed", body.Phase)
	assert.Equal(t, "recording failed", body.Message)
}

func TestVideoAndDownload(t *testing.T) {
	srv, _, res, _ := newTestServer(t)

	w := get(srv, "/video")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "webm-bytes", w.Body.String())
	assert.Equal(t, "video/webm", w.Header().Get("Content-Type"))
	assert.Equal(t, "inline", w.Header().Get("Content-Disposition"))

	w = get(srv, "/download")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="final-video.webm"`)

	require.NoError(t, res.Release())
	assert.Equal(t, http.StatusNotFound, get(srv, "/video").Code)
	assert.Equal(t, http.StatusNotFound, get(srv, "/download?project=other").Code)
}

func TestResumeDispatches(t *testing.T) {
	srv, _, _, d := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/resume/p9", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan session.ResumeRequested, 1)
	go d.Serve(ctx, func(_ context.Context, cmd session.ResumeRequested) error {
		got <- cmd
		cancel()
		return nil
	})
	assert.Equal(t, session.ResumeRequested{ProjectID: "p9"}, <-got)
}
