package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	FPS              int     `yaml:"fps"`
	MinFrameDuration float64 `yaml:"min_frame_duration"`
	Resolution       string  `yaml:"resolution"`
	OutputDir        string  `yaml:"output_dir"`
	FFmpegPath       string  `yaml:"ffmpeg"`
	FFprobePath      string  `yaml:"ffprobe"`
	FFplayPath       string  `yaml:"ffplay"`
	Mute             bool    `yaml:"mute"`
	ChunkSize        int     `yaml:"chunk_size"`
	SessionDir       string  `yaml:"session_dir"`
	ServeAddr        string  `yaml:"serve_addr"`
	Workers          int     `yaml:"workers"`
	MemoryHeadroomMB int     `yaml:"memory_headroom_mb"`
	BuildVersion     string  `yaml:"-"`
}

func Default() Config {
	return Config{
		FPS:              30,
		MinFrameDuration: 0.75,
		Resolution:       "landscape",
		OutputDir:        "output",
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		FFplayPath:       "ffplay",
		ChunkSize:        256 << 10,
		SessionDir:       ".story2video",
		Workers:          runtime.NumCPU(),
		MemoryHeadroomMB: 256,
	}
}

// Load overlays the YAML file at path on the defaults. A missing file is not
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// LoadEnv reads .env style files into the process environment and applies the
// STORY2VIDEO_* variables. Missing files are skipped.
func (c *Config) LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return c.ApplyEnv(os.Getenv)
}

// ApplyEnv overrides fields from STORY2VIDEO_* variables returned by getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv("STORY2VIDEO_" + key)); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(getenv("STORY2VIDEO_" + key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("STORY2VIDEO_%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("RESOLUTION", &c.Resolution)
	str("OUTPUT_DIR", &c.OutputDir)
	str("FFMPEG", &c.FFmpegPath)
	str("FFPROBE", &c.FFprobePath)
	str("FFPLAY", &c.FFplayPath)
	str("SESSION_DIR", &c.SessionDir)
	str("SERVE_ADDR", &c.ServeAddr)
	num("FPS", &c.FPS)
	num("WORKERS", &c.Workers)
	num("CHUNK_SIZE", &c.ChunkSize)
	num("MEMORY_HEADROOM_MB", &c.MemoryHeadroomMB)

	if v := strings.TrimSpace(getenv("STORY2VIDEO_MIN_FRAME_DURATION")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("STORY2VIDEO_MIN_FRAME_DURATION: %w", err))
		} else {
			c.MinFrameDuration = f
		}
	}
	if v := strings.TrimSpace(getenv("STORY2VIDEO_MUTE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("STORY2VIDEO_MUTE: %w", err))
		} else {
			c.Mute = b
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.FPS <= 0 || c.FPS > 120 {
		return fmt.Errorf("fps must be in 1..120, got %d", c.FPS)
	}
	if c.MinFrameDuration <= 0 {
		return fmt.Errorf("min frame duration must be positive, got %v", c.MinFrameDuration)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 256 << 10
	}
	return nil
}
