package system

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Could not read open file limit: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Printf("[!] Could not raise open file limit: %v", err)
	}
}

var (
	AudioExtensions = []string{".mp3", ".wav", ".m4a", ".ogg", ".aac", ".flac"}
	ImageExtensions = []string{".jpg", ".jpeg", ".png"}
)

// FindLatest returns the most recently modified file in dir with one of the
// given extensions.
func FindLatest(dir string, extensions ...string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !HasExtension(f.Name(), extensions...) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no %s files found in %s", strings.Join(extensions, "/"), dir)
	}
	return latestFile, nil
}

// HasExtension reports whether name ends with one of extensions, ignoring case.
func HasExtension(name string, extensions ...string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FFprobe reads media metadata through the ffprobe binary.
type FFprobe struct {
	Binary string
}

// Duration returns the container duration of the file in seconds.
func (p FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	binary := p.Binary
	if binary == "" {
		binary = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe error: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return ParseDuration(string(out))
}

// ParseDuration reads the single value ffprobe prints for format=duration.
func ParseDuration(out string) (float64, error) {
	value := strings.TrimSpace(out)
	if value == "" || value == "N/A" {
		return 0, fmt.Errorf("duration not reported")
	}
	d, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("bad duration %q: %w", value, err)
	}
	return d, nil
}

// ListEncoders returns the encoder names the ffmpeg binary was built with.
func ListEncoders(ctx context.Context, ffmpeg string) (map[string]bool, error) {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if _, err := exec.LookPath(ffmpeg); err != nil {
		return nil, fmt.Errorf("%s not found: %w", ffmpeg, err)
	}

	out, err := exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg -encoders: %w", err)
	}
	return ParseEncoders(out), nil
}

// ParseEncoders extracts encoder names from `ffmpeg -encoders` output. Lines
// look like " V....D libvpx-vp9           libvpx VP9".
func ParseEncoders(out []byte) map[string]bool {
	encoders := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	listing := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "------") {
			listing = true
			continue
		}
		if !listing {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && len(fields[0]) == 6 {
			encoders[fields[1]] = true
		}
	}
	return encoders
}

// CheckMemory fails when less than required bytes of memory are available.
// Hosts where the figure cannot be read pass.
func CheckMemory(required uint64) error {
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Printf("[!] Could not read available memory: %v", err)
		return nil
	}
	if vm.Available < required {
		return fmt.Errorf("need ~%d MB of memory, %d MB available", required>>20, vm.Available>>20)
	}
	return nil
}
