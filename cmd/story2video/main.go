package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ivlev/story2video/internal/config"
	"github.com/ivlev/story2video/internal/engine"
	"github.com/ivlev/story2video/internal/manifest"
	"github.com/ivlev/story2video/internal/preview"
	"github.com/ivlev/story2video/internal/session"
	"github.com/ivlev/story2video/internal/source"
	"github.com/ivlev/story2video/internal/system"
	"github.com/ivlev/story2video/internal/timeline"
	"github.com/skip2/go-qrcode"
)

var buildVersion = "dev"

type options struct {
	configPath   string
	manifestPath string
	inputPath    string
	audioPath    string
	srtPath      string
	preset       string
	project      string
	dpi          int
	resume       bool
	fresh        bool
	scaffold     string
	stats        bool
}

func main() {
	system.InitResourceLimits()

	for _, d := range []string{"input/audio", "input/images"} {
		os.MkdirAll(d, 0755)
	}

	var opts options
	flag.StringVar(&opts.configPath, "config", "story2video.yaml", "YAML config file (optional)")
	flag.StringVar(&opts.manifestPath, "manifest", "", "Composition manifest (YAML)")
	flag.StringVar(&opts.inputPath, "input", "", "Folder with storyboard images or a PDF (default: input/images/)")
	flag.StringVar(&opts.audioPath, "audio", "", "Voiceover (default: newest file in input/audio/)")
	flag.StringVar(&opts.srtPath, "srt", "", "Subtitles in SRT format")
	flag.StringVar(&opts.preset, "preset", "", "Output preset: landscape (16:9, desktop) or portrait (9:16, mobile)")
	flag.StringVar(&opts.project, "project", "", "Composition ID (default: manifest id or input name)")
	flag.IntVar(&opts.dpi, "dpi", 150, "DPI for PDF pages")
	flag.BoolVar(&opts.resume, "resume", false, "Render the last saved generation of -project")
	flag.BoolVar(&opts.fresh, "fresh", false, "Forget the saved generation of -project before starting")
	flag.StringVar(&opts.scaffold, "scaffold", "", "Write a manifest for -input/-audio/-srt to this path and exit")
	flag.BoolVar(&opts.stats, "stats", false, "Print timings and append them to benchmark.log")

	outputPtr := flag.String("output", "", "Output directory (default: output/)")
	fpsPtr := flag.Int("fps", 0, "Capture frame rate (default 30)")
	minFramePtr := flag.Float64("min-frame", 0, "Shortest time a storyboard frame stays on screen, seconds (default 0.75)")
	workersPtr := flag.Int("workers", 0, "Parallel image decoders")
	mutePtr := flag.Bool("mute", false, "Do not play the voiceover while recording")
	servePtr := flag.String("serve", "", "Serve status and the finished video on this address, e.g. :8080")
	sessionDirPtr := flag.String("session-dir", "", "Where generations are saved for -resume")

	flag.Parse()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatalf("[-] Config error: %v", err)
	}
	if err := cfg.LoadEnv(".env"); err != nil {
		log.Fatalf("[-] Environment error: %v", err)
	}
	cfg.BuildVersion = buildVersion

	// explicit flags win over file and environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			cfg.OutputDir = *outputPtr
		case "fps":
			cfg.FPS = *fpsPtr
		case "min-frame":
			cfg.MinFrameDuration = *minFramePtr
		case "workers":
			cfg.Workers = *workersPtr
		case "mute":
			cfg.Mute = *mutePtr
		case "serve":
			cfg.ServeAddr = *servePtr
		case "session-dir":
			cfg.SessionDir = *sessionDirPtr
		case "preset":
			cfg.Resolution = opts.preset
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Config error: %v", err)
	}

	if opts.scaffold != "" {
		if err := scaffold(opts); err != nil {
			log.Fatalf("[-] Scaffold error: %v", err)
		}
		fmt.Printf("[+++] Manifest written: %s\n", opts.scaffold)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := session.NewFileStore(cfg.SessionDir)
	if opts.fresh && opts.project != "" {
		if err := store.Clear(opts.project); err != nil {
			log.Printf("[!] Could not clear saved generation: %v", err)
		}
	}

	req, script, err := buildRequest(ctx, opts, cfg)
	if err != nil {
		log.Fatalf("[-] Input error: %v", err)
	}
	if script != "" {
		fmt.Printf("[*] Script:\n%s\n", script)
	}
	if !opts.resume {
		if err := store.Save(req.ID, session.FromRequest(req, script)); err != nil {
			log.Printf("[!] Could not save generation for resume: %v", err)
		}
	}

	tracker := preview.NewTracker()
	renderer := engine.NewRenderer(cfg, engine.WithStatus(func(s engine.Status) {
		tracker.Update(s)
		if s.Phase == engine.PhaseFailed {
			fmt.Printf("[!] %s: %s\n", s.Phase, s.Message)
			return
		}
		fmt.Printf("[*] %s\n", s.Phase)
	}))
	defer renderer.Close()

	fmt.Println("--- [STORY2VIDEO] ---")
	w, h := req.Resolution.Size()
	fmt.Printf("[*] Composition: %s | Frames: %d | Cues: %d\n", req.ID, len(req.Frames), len(req.Subtitles))
	fmt.Printf("[*] Resolution: %dx%d @ %d FPS\n", w, h, cfg.FPS)
	fmt.Println("---------------------")

	if cfg.ServeAddr != "" {
		dispatcher := session.NewDispatcher(4)
		srv := preview.NewServer(tracker, renderer.Result, dispatcher, req.ID)
		go func() {
			if err := srv.Run(ctx, cfg.ServeAddr); err != nil {
				log.Printf("[!] Preview server: %v", err)
			}
		}()
		go dispatcher.Serve(ctx, func(ctx context.Context, cmd session.ResumeRequested) error {
			resumed, _, err := session.Resume(store, cmd)
			if err != nil {
				return err
			}
			_, err = render(ctx, renderer, resumed, opts, cfg)
			return err
		})
		printQR(cfg.ServeAddr)
	}

	if _, err := render(ctx, renderer, req, opts, cfg); err != nil {
		log.Fatalf("[-] Render error: %v", err)
	}

	if cfg.ServeAddr != "" {
		fmt.Println("[*] Serving the preview, press Ctrl+C to stop")
		<-ctx.Done()
	}
}

func render(ctx context.Context, renderer *engine.Renderer, req timeline.CompositionRequest, opts options, cfg config.Config) (*engine.RenderResult, error) {
	res, err := renderer.RenderComposition(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(res.DecodeFailures) > 0 {
		fmt.Printf("[!] Frames without image: %v\n", res.DecodeFailures)
	}
	if len(req.Subtitles) > 0 {
		srtPath := filepath.Join(filepath.Dir(res.Path), "subtitles.srt")
		if err := writeSRT(srtPath, req.Subtitles); err != nil {
			log.Printf("[!] Could not write subtitles: %v", err)
		} else {
			fmt.Printf("[*] Subtitles: %s\n", srtPath)
		}
	}
	if opts.stats {
		fmt.Print(res.Report(cfg.BuildVersion))
		if err := res.AppendBenchmark("benchmark.log", cfg.BuildVersion); err != nil {
			fmt.Printf("[!] Could not write benchmark.log: %v\n", err)
		}
	}

	fmt.Printf("[+++] Success! Result: %s (%.2fs, %s)\n", res.Path, res.Duration, res.MIME)
	return res, nil
}

// buildRequest assembles the composition from a saved generation, a manifest
// or local files, in that order of preference.
func buildRequest(ctx context.Context, opts options, cfg config.Config) (req timeline.CompositionRequest, script string, err error) {
	switch {
	case opts.resume:
		if opts.project == "" {
			return req, "", errors.New("-resume needs -project")
		}
		resumed, payload, err := session.Resume(session.NewFileStore(cfg.SessionDir), session.ResumeRequested{ProjectID: opts.project})
		if err != nil {
			return req, "", err
		}
		req, script = resumed, payload.ScriptText

	case opts.manifestPath != "":
		comp, err := manifest.Load(ctx, opts.manifestPath, manifest.NewFetcher())
		if err != nil {
			return req, "", err
		}
		req = comp.Request
		if comp.Script != nil {
			script = comp.Script.Render()
		}
		if req.ID == "" {
			req.ID = baseName(opts.manifestPath)
		}

	default:
		inputPath, audioPath, err := localInputs(opts)
		if err != nil {
			return req, "", err
		}

		src, err := source.Open(inputPath, opts.dpi)
		if err != nil {
			return req, "", err
		}
		defer src.Close()

		frames, err := source.Frames(src, cfg.Workers)
		if err != nil {
			return req, "", err
		}
		audio, err := os.ReadFile(audioPath)
		if err != nil {
			return req, "", err
		}

		req = timeline.CompositionRequest{
			ID:        baseName(inputPath),
			Voiceover: timeline.VoiceoverTrack{Audio: audio, MIME: mime.TypeByExtension(filepath.Ext(audioPath))},
			Frames:    frames,
		}
		if opts.srtPath != "" {
			f, err := os.Open(opts.srtPath)
			if err != nil {
				return req, "", err
			}
			req.Subtitles, err = timeline.ReadSRT(f)
			f.Close()
			if err != nil {
				return req, "", err
			}
		}
	}

	if opts.project != "" {
		req.ID = opts.project
	}
	if cfg.Resolution != "" && (opts.preset != "" || req.Resolution == (timeline.Resolution{})) {
		res, err := timeline.ParseResolution(cfg.Resolution)
		if err != nil {
			return req, "", err
		}
		req.Resolution = res
	}
	return req, script, nil
}

// localInputs fills in the newest files from input/ for missing flags.
func localInputs(opts options) (input, audio string, err error) {
	input = opts.inputPath
	if input == "" {
		input = "input/images"
		fmt.Printf("[*] Using images from: %s\n", input)
	}

	audio = opts.audioPath
	if audio == "" {
		audio, err = system.FindLatest("input/audio", system.AudioExtensions...)
		if err != nil {
			return "", "", fmt.Errorf("%w. Put a voiceover into input/audio/", err)
		}
		fmt.Printf("[*] Using voiceover: %s\n", audio)
	}
	return input, audio, nil
}

func scaffold(opts options) error {
	input, audio, err := localInputs(opts)
	if err != nil {
		return err
	}
	src, err := source.NewImageSource(input)
	if err != nil {
		return err
	}

	m := manifest.Scaffold(audio, src.Paths(), opts.srtPath)
	m.ID = opts.project
	if opts.preset != "" {
		res, err := timeline.ParseResolution(opts.preset)
		if err != nil {
			return err
		}
		m.Resolution = res.String()
	}

	// asset paths are stored relative to the manifest
	base := filepath.Dir(opts.scaffold)
	rel := func(p string) string {
		if p == "" {
			return ""
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return p
		}
		absBase, err := filepath.Abs(base)
		if err != nil {
			return abs
		}
		if r, err := filepath.Rel(absBase, abs); err == nil {
			return r
		}
		return abs
	}
	m.Audio = rel(m.Audio)
	m.SubtitlesSRT = rel(m.SubtitlesSRT)
	for i := range m.Frames {
		m.Frames[i].Image = rel(m.Frames[i].Image)
	}

	return manifest.Write(m, opts.scaffold)
}

func writeSRT(path string, cues []timeline.SubtitleCue) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := timeline.WriteSRT(f, cues); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func baseName(path string) string {
	name := filepath.Base(strings.TrimSuffix(path, string(filepath.Separator)))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.ReplaceAll(name, " ", "_")
}

func printQR(addr string) {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	url := "http://" + host + "/download"

	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		log.Printf("[!] QR code: %v", err)
		return
	}
	fmt.Println(q.ToSmallString(false))
	fmt.Printf("[*] Download: %s\n", url)
}
