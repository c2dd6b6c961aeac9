package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Stream describes what a recording session captures.
type Stream struct {
	Width, Height int
	FPS           int
	AudioPath     string
	Format        Format
}

// Recorder is a recording session. Start and Stop are called once; WriteFrame
// is called once per render tick in between.
type Recorder interface {
	Start(ctx context.Context, s Stream) error
	WriteFrame(img *image.RGBA) error
	// Stop ends the session and blocks until all buffered output has been
	// flushed. The returned chunks are in output order.
	Stop() ([][]byte, error)
	// Abort kills the session and discards its output. Safe to call at any time.
	Abort()
}

const DefaultChunkSize = 256 << 10

// FFmpegRecorder records raw RGBA frames plus an audio file through ffmpeg.
// Frames are timestamped on arrival so the output follows the real cadence of
// the render loop.
type FFmpegRecorder struct {
	Binary    string
	ChunkSize int

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  syncBuffer
	chunks  [][]byte
	readErr error
	drained chan struct{}
	exited  chan struct{}
	waitErr error
	frame   *image.RGBA
	closed  bool
}

func NewFFmpegRecorder(binary string, chunkSize int) *FFmpegRecorder {
	return &FFmpegRecorder{Binary: binary, ChunkSize: chunkSize}
}

func (r *FFmpegRecorder) Start(ctx context.Context, s Stream) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	binary := r.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	chunkSize := r.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	// Not bound to ctx: the caller tears the session down through Abort so it
	// controls the order in which the render resources go away.
	cmd := exec.Command(binary, buildArgs(s)...)
	cmd.Stderr = &r.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return wrap(ErrRecording, err, "ffmpeg start error")
	}

	r.mu.Lock()
	r.cmd = cmd
	r.stdin = stdin
	r.drained = make(chan struct{})
	r.exited = make(chan struct{})
	r.mu.Unlock()

	go r.drain(stdout, chunkSize)
	go func() {
		<-r.drained
		err := cmd.Wait()
		r.mu.Lock()
		r.waitErr = err
		r.mu.Unlock()
		close(r.exited)
	}()

	return nil
}

// drain buffers the container output as it is produced.
func (r *FFmpegRecorder) drain(stdout io.Reader, chunkSize int) {
	defer close(r.drained)
	buf := make([]byte, chunkSize)
	for {
		n, err := io.ReadAtLeast(stdout, buf, 1)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			r.mu.Lock()
			r.chunks = append(r.chunks, chunk)
			r.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.mu.Lock()
				r.readErr = err
				r.mu.Unlock()
			}
			return
		}
	}
}

func (r *FFmpegRecorder) WriteFrame(img *image.RGBA) error {
	r.mu.Lock()
	stdin, exited, closed := r.stdin, r.exited, r.closed
	r.mu.Unlock()

	if stdin == nil || closed {
		return wrap(ErrRecording, nil, "recorder is not running")
	}
	select {
	case <-exited:
		return wrap(ErrRecording, r.exitError(), "ffmpeg exited during capture: %s", r.stderrTail())
	default:
	}

	if err := writeRawRGBA(stdin, r.packed(img)); err != nil {
		return wrap(ErrRecording, err, "write frame: %s", r.stderrTail())
	}
	return nil
}

// packed returns img with a tight stride, copying into a reused buffer when
// the surface is a sub-image.
func (r *FFmpegRecorder) packed(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	if img.Stride == b.Dx()*4 && b.Min == (image.Point{}) {
		return img
	}
	if r.frame == nil || r.frame.Rect.Size() != b.Size() {
		r.frame = image.NewRGBA(image.Rectangle{Max: b.Size()})
	}
	draw.Draw(r.frame, r.frame.Rect, img, b.Min, draw.Src)
	return r.frame
}

func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	_, err := w.Write(img.Pix[:img.Rect.Dy()*img.Stride])
	return err
}

func (r *FFmpegRecorder) Stop() ([][]byte, error) {
	r.mu.Lock()
	if r.stdin == nil || r.closed {
		r.mu.Unlock()
		return nil, wrap(ErrRecording, nil, "recorder is not running")
	}
	r.closed = true
	stdin, exited := r.stdin, r.exited
	r.mu.Unlock()

	// EOF on stdin tells ffmpeg to flush and finish the container.
	stdin.Close()
	<-exited

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure(); err != nil {
		r.chunks = nil
		return nil, wrap(ErrRecording, err, "ffmpeg did not finish cleanly: %s", tail(r.stderr.String()))
	}
	chunks := r.chunks
	r.chunks = nil
	return chunks, nil
}

func (r *FFmpegRecorder) Abort() {
	r.mu.Lock()
	if r.cmd == nil || r.closed {
		r.chunks = nil
		r.mu.Unlock()
		return
	}
	r.closed = true
	cmd, stdin, exited := r.cmd, r.stdin, r.exited
	r.mu.Unlock()

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Printf("[!] Could not kill ffmpeg: %v", err)
	}
	stdin.Close()
	<-exited

	r.mu.Lock()
	r.chunks = nil
	r.mu.Unlock()
}

func (r *FFmpegRecorder) failure() error {
	if r.readErr != nil {
		return r.readErr
	}
	return r.waitErr
}

func (r *FFmpegRecorder) exitError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure(); err != nil {
		return err
	}
	return errors.New("unexpected exit")
}

func (r *FFmpegRecorder) stderrTail() string {
	return tail(r.stderr.String())
}

// syncBuffer collects ffmpeg's stderr, which exec copies from its own goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 512 {
		s = "..." + s[len(s)-512:]
	}
	return s
}

func buildArgs(s Stream) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"-framerate", fmt.Sprintf("%d", s.FPS),
		"-use_wallclock_as_timestamps", "1",
		"-i", "-",
	}
	if s.AudioPath != "" {
		args = append(args, "-i", s.AudioPath, "-map", "0:v", "-map", "1:a")
	}

	args = append(args,
		"-r", fmt.Sprintf("%d", s.FPS),
		"-pix_fmt", "yuv420p",
		"-c:v", s.Format.VideoCodec,
	)
	args = append(args, s.Format.VideoArgs...)
	if s.AudioPath != "" {
		args = append(args, "-c:a", s.Format.AudioCodec, "-shortest")
	}
	args = append(args, s.Format.MuxArgs...)
	args = append(args, "-f", s.Format.Muxer, "pipe:1")
	return args
}
