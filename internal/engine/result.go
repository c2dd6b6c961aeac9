package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RenderResult is the finished recording. The artifact on disk stays until
// Release is called.
type RenderResult struct {
	ID        string
	Blob      []byte
	MIME      string
	Extension string
	FileName  string
	Path      string
	URL       string

	Width, Height int
	// Duration is the playback position of the last recorded frame.
	Duration float64
	// Frames is the number of composited frames sent to the recorder.
	Frames         int
	DecodeFailures []int
	Stats          Stats

	mu       sync.Mutex
	released bool
}

// Stats are the phase timings of one render.
type Stats struct {
	Prepare  time.Duration
	Compose  time.Duration
	Finalize time.Duration
	Total    time.Duration
}

// EffectiveFPS is the rate at which frames were actually composited.
func (r *RenderResult) EffectiveFPS() float64 {
	if r.Stats.Compose <= 0 {
		return 0
	}
	return float64(r.Frames) / r.Stats.Compose.Seconds()
}

// Report formats the render timings in the same layout as benchmark.log.
func (r *RenderResult) Report(build string) string {
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Preparing: %.2fs\n"+
			"Composing: %.2fs\n"+
			"Finalizing: %.2fs\n"+
			"Frames: %d (%.2f fps)\n"+
			"----------------------------\n",
		build, r.Stats.Total.Seconds(), r.Stats.Prepare.Seconds(), r.Stats.Compose.Seconds(),
		r.Stats.Finalize.Seconds(), r.Frames, r.EffectiveFPS(),
	)
}

// AppendBenchmark adds a one-line summary of the render to the log at path.
func (r *RenderResult) AppendBenchmark(path, build string) error {
	entry := fmt.Sprintf("[%s] Build: %s | ID: %s | %dx%d | Frames: %d | Total: %.2fs | Compose: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		build, r.ID, r.Width, r.Height, r.Frames,
		r.Stats.Total.Seconds(), r.Stats.Compose.Seconds(), r.EffectiveFPS(),
	)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(entry); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Release deletes the artifact and drops the in-memory blob. Calling it again
// is a no-op.
func (r *RenderResult) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return nil
	}
	r.released = true
	r.Blob = nil

	if r.Path == "" {
		return nil
	}
	if err := os.Remove(r.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("release %s: %w", r.Path, err)
	}
	// the per-composition directory goes too once it is empty
	_ = os.Remove(filepath.Dir(r.Path))
	return nil
}

func (r *RenderResult) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

// writeArtifact stores blob as dir/name and fills in Path and URL.
func (r *RenderResult) writeArtifact(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path, err := filepath.Abs(filepath.Join(dir, r.FileName))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, r.Blob, 0o644); err != nil {
		return err
	}
	r.Path = path
	r.URL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
	return nil
}
