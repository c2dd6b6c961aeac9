package clock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
)

// Speaker is the audible output of the player.
type Speaker interface {
	Play(ctx context.Context, path string) error
	Stop() error
}

// SilentSpeaker discards output.
type SilentSpeaker struct{}

func (SilentSpeaker) Play(context.Context, string) error { return nil }
func (SilentSpeaker) Stop() error                        { return nil }

// FFplaySpeaker plays the track through ffplay without opening a window.
type FFplaySpeaker struct {
	Binary string

	mu  sync.Mutex
	cmd *exec.Cmd
}

func NewFFplaySpeaker(binary string) *FFplaySpeaker {
	if binary == "" {
		binary = "ffplay"
	}
	return &FFplaySpeaker{Binary: binary}
}

func (s *FFplaySpeaker) Play(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return fmt.Errorf("speaker already playing")
	}

	cmd := exec.CommandContext(ctx, s.Binary, "-nodisp", "-autoexit", "-loglevel", "quiet", path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffplay start error: %w", err)
	}
	s.cmd = cmd

	go func() {
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			log.Printf("[!] ffplay exited: %v", err)
		}
	}()
	return nil
}

func (s *FFplaySpeaker) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	err := s.cmd.Process.Kill()
	s.cmd = nil
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
