package types

import (
	"fmt"
	"sync"
	"time"
)

// State is an immutable snapshot of the node's committed position
type State struct {
	Height  int64     `json:"height"`
	AppHash []byte    `json:"app_hash"`
	Time    time.Time `json:"time"`
	// Version increases with every update of the snapshot
	Version uint64 `json:"version"`
	Halted  bool   `json:"halted"`
}

func (s State) String() string {
	return fmt.Sprintf("State{%d %X v%d halted=%v}", s.Height, s.AppHash, s.Version, s.Halted)
}

// StateHolder publishes State snapshots. Readers always get a private copy.
type StateHolder struct {
	mtx   sync.RWMutex
	state State
}

func NewStateHolder(height int64, appHash []byte, t time.Time) *StateHolder {
	return &StateHolder{state: State{Height: height, AppHash: copyBytes(appHash), Time: t}}
}

func (h *StateHolder) Load() State {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	s := h.state
	s.AppHash = copyBytes(s.AppHash)
	return s
}

// Advance publishes a newly committed height
func (h *StateHolder) Advance(height int64, appHash []byte, t time.Time) State {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.state = State{
		Height:  height,
		AppHash: copyBytes(appHash),
		Time:    t,
		Version: h.state.Version + 1,
		Halted:  h.state.Halted,
	}
	return h.state
}

// Halt marks the node as no longer serving consensus
func (h *StateHolder) Halt() State {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.state.Halted = true
	h.state.Version++
	return h.state
}

func copyBytes(bz []byte) []byte {
	if bz == nil {
		return nil
	}
	cp := make([]byte, len(bz))
	copy(cp, bz)
	return cp
}
