// Package engine renders a composition into a video by playing the voiceover
// and recording the composited storyboard in step with it.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/ansel1/merry/v2"
	"github.com/ivlev/story2video/internal/capture"
	"github.com/ivlev/story2video/internal/clock"
	"github.com/ivlev/story2video/internal/compositor"
	"github.com/ivlev/story2video/internal/config"
	"github.com/ivlev/story2video/internal/selector"
	"github.com/ivlev/story2video/internal/system"
	"github.com/ivlev/story2video/internal/timeline"
)

type Option func(*Renderer)

func WithRecorder(newRecorder func() capture.Recorder) Option {
	return func(r *Renderer) { r.newRecorder = newRecorder }
}

func WithProbe(probe clock.MetadataProbe) Option {
	return func(r *Renderer) { r.probe = probe }
}

func WithSpeaker(newSpeaker func() clock.Speaker) Option {
	return func(r *Renderer) { r.newSpeaker = newSpeaker }
}

func WithTicker(newTicker func(fps int) clock.Ticker) Option {
	return func(r *Renderer) { r.newTicker = newTicker }
}

// WithAudioElement replaces the ffprobe-backed player attached to the audio
// graph.
func WithAudioElement(newElement func(g *capture.AudioGraph) clock.Element) Option {
	return func(r *Renderer) { r.newElement = newElement }
}

func WithEncoders(list capture.EncoderLister) Option {
	return func(r *Renderer) { r.encoders = list }
}

func WithFormats(formats []capture.Format) Option {
	return func(r *Renderer) { r.formats = formats }
}

func WithStatus(fn StatusFunc) Option {
	return func(r *Renderer) { r.status = fn }
}

// Renderer runs one render at a time. Concurrent callers queue on it.
type Renderer struct {
	cfg config.Config

	newRecorder func() capture.Recorder
	newSpeaker  func() clock.Speaker
	newTicker   func(fps int) clock.Ticker
	newElement  func(g *capture.AudioGraph) clock.Element
	probe       clock.MetadataProbe
	encoders    capture.EncoderLister
	formats     []capture.Format
	status      StatusFunc

	mu sync.Mutex

	resultsMu sync.Mutex
	results   map[string]*RenderResult
}

func NewRenderer(cfg config.Config, opts ...Option) *Renderer {
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	r := &Renderer{
		cfg:     cfg,
		formats: capture.Candidates,
		results: make(map[string]*RenderResult),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.newRecorder == nil {
		r.newRecorder = func() capture.Recorder {
			return capture.NewFFmpegRecorder(cfg.FFmpegPath, cfg.ChunkSize)
		}
	}
	if r.probe == nil {
		r.probe = system.FFprobe{Binary: cfg.FFprobePath}
	}
	if r.newSpeaker == nil {
		r.newSpeaker = defaultSpeaker(cfg)
	}
	if r.newTicker == nil {
		r.newTicker = clock.NewTicker
	}
	if r.newElement == nil {
		r.newElement = func(g *capture.AudioGraph) clock.Element { return g.Element(r.probe) }
	}
	if r.encoders == nil {
		r.encoders = func(ctx context.Context) (map[string]bool, error) {
			return system.ListEncoders(ctx, cfg.FFmpegPath)
		}
	}
	if r.status == nil {
		r.status = func(Status) {}
	}
	return r
}

func defaultSpeaker(cfg config.Config) func() clock.Speaker {
	if cfg.Mute {
		return func() clock.Speaker { return clock.SilentSpeaker{} }
	}
	if _, err := exec.LookPath(cfg.FFplayPath); err != nil {
		log.Printf("[!] %s not found, preview will be silent: %v", cfg.FFplayPath, err)
		return func() clock.Speaker { return clock.SilentSpeaker{} }
	}
	return func() clock.Speaker { return clock.NewFFplaySpeaker(cfg.FFplayPath) }
}

// Result returns the live result of the last render for id.
func (r *Renderer) Result(id string) (*RenderResult, bool) {
	r.resultsMu.Lock()
	defer r.resultsMu.Unlock()
	res, ok := r.results[id]
	return res, ok
}

// Close releases every result still held by the renderer.
func (r *Renderer) Close() error {
	r.resultsMu.Lock()
	defer r.resultsMu.Unlock()

	var first error
	for id, res := range r.results {
		if err := res.Release(); err != nil && first == nil {
			first = err
		}
		delete(r.results, id)
	}
	return first
}

func (r *Renderer) releasePrevious(id string) {
	r.resultsMu.Lock()
	prev, ok := r.results[id]
	delete(r.results, id)
	r.resultsMu.Unlock()

	if ok {
		if err := prev.Release(); err != nil {
			log.Printf("[!] Could not release previous render of %s: %v", id, err)
		}
	}
}

func (r *Renderer) report(id string, phase Phase, msg string) {
	r.status(Status{ID: id, Phase: phase, Message: msg, At: time.Now()})
}

// RenderComposition plays the voiceover and records the composited storyboard
// until the track ends. It blocks until the artifact is written or the render
// fails. The previous result for the same composition ID is released first.
func (r *Renderer) RenderComposition(ctx context.Context, req timeline.CompositionRequest) (*RenderResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := req.Validate(); err != nil {
		r.report(req.ID, PhaseFailed, err.Error())
		return nil, err
	}

	format, err := capture.Negotiate(ctx, r.encoders, r.formats)
	if err != nil {
		r.report(req.ID, PhaseFailed, err.Error())
		return nil, err
	}

	r.releasePrevious(req.ID)

	res, err := r.render(ctx, req, format)
	if err != nil {
		log.Printf("[!] Render %s failed: %v", req.ID, err)
		r.report(req.ID, PhaseFailed, err.Error())
		return nil, err
	}

	r.resultsMu.Lock()
	r.results[req.ID] = res
	r.resultsMu.Unlock()

	r.report(req.ID, PhaseComplete, "")
	return res, nil
}

// session holds everything one render owns. Teardown order matters: the loop
// is already stopped when teardown runs, then recording, playback, and
// finally the decoded images and work dir.
type session struct {
	workDir  string
	graph    *capture.AudioGraph
	element  clock.Element
	comp     *compositor.Compositor
	recorder capture.Recorder
}

func (s *session) teardown(abort bool) {
	if abort && s.recorder != nil {
		s.recorder.Abort()
	}
	if s.element != nil {
		if err := s.element.Close(); err != nil {
			log.Printf("[!] Stop playback: %v", err)
		}
	}
	if s.graph != nil {
		if err := s.graph.Disconnect(); err != nil {
			log.Printf("[!] Disconnect audio: %v", err)
		}
	}
	if s.comp != nil {
		s.comp.Release()
	}
	if s.workDir != "" {
		os.RemoveAll(s.workDir)
	}
}

func (r *Renderer) render(ctx context.Context, req timeline.CompositionRequest, format capture.Format) (res *RenderResult, err error) {
	startTime := time.Now()
	width, height := req.Resolution.Size()

	machine := capture.NewMachine(func(from, to capture.State, ev capture.Event) {
		log.Printf("[>] %s: %s -> %s (%s)", req.ID, from, to, ev)
	})
	if _, err := machine.Fire(capture.EventPrepare); err != nil {
		return nil, err
	}
	r.report(req.ID, PhasePreparing, "")

	s := &session{}
	aborted := true
	defer func() {
		if err != nil && !machine.Terminal() {
			machine.Fire(capture.EventFail)
		}
		s.teardown(aborted)
	}()

	// Decoded frames plus their full-height copies and two surfaces.
	need := uint64(len(req.Frames)+2)*uint64(width*height*4) + uint64(r.cfg.MemoryHeadroomMB)<<20
	if err := system.CheckMemory(need); err != nil {
		return nil, err
	}

	s.workDir, err = os.MkdirTemp("", "story2video_")
	if err != nil {
		return nil, err
	}

	s.graph, err = capture.ConnectAudio(s.workDir, req.Voiceover, r.newSpeaker())
	if err != nil {
		return nil, err
	}
	s.element = r.newElement(s.graph)

	duration, err := s.element.LoadMetadata(ctx)
	if err != nil {
		return nil, merry.Wrap(capture.ErrMetadata, merry.WithCause(err), merry.WithMessagef("load voiceover metadata: %v", err))
	}

	pre, err := capture.Preload(ctx, req.Frames, r.cfg.Workers)
	if err != nil {
		return nil, err
	}

	s.comp, err = compositor.New(width, height, pre.Images)
	if err != nil {
		return nil, err
	}
	sel := selector.New(duration, len(req.Frames), req.Subtitles, r.cfg.MinFrameDuration)

	log.Printf("[*] %s: %d frames, %.2fs voiceover, %dx%d @ %d fps, %s (frame every %.2fs)",
		req.ID, len(req.Frames), duration, width, height, r.cfg.FPS, format.MIME, sel.FrameDuration())

	frames := 0
	lastT := 0.0
	draw := func(t float64) error {
		text, ok := sel.Subtitle(t)
		s.comp.Draw(sel.Frame(t), text, ok)
		if err := s.recorder.WriteFrame(s.comp.Surface()); err != nil {
			return err
		}
		frames++
		lastT = t
		return nil
	}

	// The surface shows t=0 before the first audio sample exists.
	text, ok := sel.Subtitle(0)
	s.comp.Draw(sel.Frame(0), text, ok)

	s.recorder = r.newRecorder()
	ticker := r.newTicker(r.cfg.FPS)
	stream := capture.Stream{
		Width:     width,
		Height:    height,
		FPS:       r.cfg.FPS,
		AudioPath: s.graph.CapturePath(),
		Format:    format,
	}

	prepared := time.Now()
	if _, err := machine.Fire(capture.EventRecord); err != nil {
		ticker.Stop()
		return nil, err
	}
	r.report(req.ID, PhaseComposing, "")

	if err := s.recorder.Start(ctx, stream); err != nil {
		ticker.Stop()
		return nil, err
	}
	if err := s.element.Play(ctx); err != nil {
		ticker.Stop()
		return nil, wrapRecording(err, "start playback")
	}

	if err := clock.Run(ctx, ticker, s.element, s.element.Ended(), draw); err != nil {
		return nil, err
	}
	composed := time.Now()

	if _, err := machine.Fire(capture.EventAudioEnded); err != nil {
		return nil, err
	}
	chunks, err := s.recorder.Stop()
	aborted = false
	if err != nil {
		return nil, err
	}
	blob := bytes.Join(chunks, nil)
	if len(blob) == 0 {
		return nil, wrapRecording(nil, "recorder produced no output")
	}
	if _, err := machine.Fire(capture.EventFlushed); err != nil {
		return nil, err
	}

	res = &RenderResult{
		ID:             req.ID,
		Blob:           blob,
		MIME:           format.MIME,
		Extension:      format.Extension,
		FileName:       format.FileName(),
		Width:          width,
		Height:         height,
		Duration:       lastT,
		Frames:         frames,
		DecodeFailures: pre.Failures,
	}
	if err := res.writeArtifact(filepath.Join(r.cfg.OutputDir, req.ID)); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	res.Stats = Stats{
		Prepare:  prepared.Sub(startTime),
		Compose:  composed.Sub(prepared),
		Finalize: time.Since(composed),
		Total:    time.Since(startTime),
	}
	log.Printf("[+++] %s: %s (%d frames, %.2fs)", req.ID, res.Path, frames, lastT)
	return res, nil
}

func wrapRecording(cause error, msg string) error {
	opts := []merry.Wrapper{merry.WithMessage(msg)}
	if cause != nil {
		opts = append(opts, merry.WithCause(cause))
	}
	return merry.Wrap(capture.ErrRecording, opts...)
}
