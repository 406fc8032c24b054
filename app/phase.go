package app

import "fmt"

// Phase is the position of the bridge within a consensus height
type Phase uint32

const (
	PhaseIdle Phase = iota
	PhaseValidatingBlock
	PhaseExecutingBlock
	PhaseCommitting
	// PhaseHalted is terminal: a block could not be persisted
	PhaseHalted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseValidatingBlock:
		return "ValidatingBlock"
	case PhaseExecutingBlock:
		return "ExecutingBlock"
	case PhaseCommitting:
		return "Committing"
	case PhaseHalted:
		return "Halted"
	default:
		return fmt.Sprintf("Phase(%d)", uint32(p))
	}
}
