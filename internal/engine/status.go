package engine

import (
	"time"

	"github.com/orsinium-labs/enum"
)

// Phase is the coarse progress of a render as shown to the user.
type Phase enum.Member[string]

var (
	PhasePreparing = Phase{Value: "preparing"}
	PhaseComposing = Phase{Value: "composing"}
	PhaseComplete  = Phase{Value: "complete"}
	PhaseFailed    = Phase{Value: "failed"}

	Phases = enum.New(PhasePreparing, PhaseComposing, PhaseComplete, PhaseFailed)
)

func (p Phase) String() string {
	return p.Value
}

// Status is one progress update. Message is set for PhaseFailed.
type Status struct {
	ID      string
	Phase   Phase
	Message string
	At      time.Time
}

type StatusFunc func(Status)
