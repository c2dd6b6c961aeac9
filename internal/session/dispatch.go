package session

import (
	"context"
	"log"

	"github.com/ivlev/story2video/internal/timeline"
)

// ResumeRequested asks the generator to reload the last generation of a
// project.
type ResumeRequested struct {
	ProjectID string
}

// Dispatcher carries resume commands to exactly one handler.
type Dispatcher struct {
	ch chan ResumeRequested
}

func NewDispatcher(buffer int) *Dispatcher {
	return &Dispatcher{ch: make(chan ResumeRequested, buffer)}
}

// Request queues a command. It blocks while the buffer is full.
func (d *Dispatcher) Request(ctx context.Context, projectID string) error {
	select {
	case d.ch <- ResumeRequested{ProjectID: projectID}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve hands each command to handle until ctx is done. Handler errors are
// logged and do not stop the loop.
func (d *Dispatcher) Serve(ctx context.Context, handle func(context.Context, ResumeRequested) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-d.ch:
			if err := handle(ctx, cmd); err != nil {
				log.Printf("[!] Resume %s: %v", cmd.ProjectID, err)
			}
		}
	}
}

// Resume loads the saved generation for cmd and rebuilds its composition.
func Resume(store Store, cmd ResumeRequested) (timeline.CompositionRequest, Payload, error) {
	p, err := store.Load(cmd.ProjectID)
	if err != nil {
		return timeline.CompositionRequest{}, Payload{}, err
	}
	req, err := p.Request(cmd.ProjectID)
	if err != nil {
		return timeline.CompositionRequest{}, Payload{}, err
	}
	return req, p, nil
}
