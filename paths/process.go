package paths

import (
	"fmt"
	"sync/atomic"
)

// ProcessKind is the closed set of process variants. The engine runs every diffusion on a
// block before any payoff reads it.
type ProcessKind int

const (
	KindDiffusion ProcessKind = iota
	KindPayoff
)

func (k ProcessKind) String() string {
	switch k {
	case KindDiffusion:
		return "diffusion"
	case KindPayoff:
		return "payoff"
	}
	return fmt.Sprintf("ProcessKind(%d)", int(k))
}

// PathProcess is the unit of pluggable simulation behaviour.
//
//   - SetupFeatures declares dates and factors; it may run more than once and must be idempotent.
//   - Finish runs once on the frozen registry and resolves names to indices.
//   - Process runs once per block, possibly concurrently across disjoint blocks.
type PathProcess interface {
	Name() string
	Kind() ProcessKind
	SetupFeatures(reg *FeatureRegistry) error
	Finish(reg *FeatureRegistry) error
	Process(block *PathBlock) error
	IsComplete() bool
}

// Aggregator is implemented by processes that accumulate one result per path.
type Aggregator interface {
	Mean() (float64, error)
	StdDev() (float64, error)
	StandardError() (float64, error)
	ResultsByPath() ([]float64, error)
}

// ProcessState tracks a process through Created → Registering → Resolved → Simulating → Done.
type ProcessState int32

const (
	StateCreated ProcessState = iota
	StateRegistering
	StateResolved
	StateSimulating
	StateDone
)

var stateNames = [...]string{"created", "registering", "resolved", "simulating", "done"}

func (s ProcessState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("ProcessState(%d)", int32(s))
}

// Lifecycle is embedded by processes to enforce the protocol ordering. The zero value is
// in StateCreated. Safe for concurrent use.
type Lifecycle struct {
	state atomic.Int32
}

func (l *Lifecycle) State() ProcessState { return ProcessState(l.state.Load()) }

// Register moves Created → Registering. Repeated calls are no-ops; calls after Finish fail.
func (l *Lifecycle) Register(name string) error {
	if l.state.CompareAndSwap(int32(StateCreated), int32(StateRegistering)) {
		return nil
	}
	if s := l.State(); s != StateRegistering {
		return fmt.Errorf("%w: %s setup called in state %s", ErrRegistryFrozen, name, s)
	}
	return nil
}

// Resolve moves Registering → Resolved after checking that reg is frozen.
func (l *Lifecycle) Resolve(name string, reg *FeatureRegistry) error {
	if !reg.IsResolved() {
		return fmt.Errorf("%w: %s finished before registry resolve", ErrNotResolved, name)
	}
	if !l.state.CompareAndSwap(int32(StateRegistering), int32(StateResolved)) {
		return fmt.Errorf("%s finish called in state %s", name, l.State())
	}
	return nil
}

// Begin guards Process: it fails unless Finish has completed and marks the process simulating.
func (l *Lifecycle) Begin(name string) error {
	switch s := l.State(); s {
	case StateResolved:
		l.state.CompareAndSwap(int32(StateResolved), int32(StateSimulating))
		return nil
	case StateSimulating:
		return nil
	default:
		return fmt.Errorf("%w: %s processed in state %s", ErrNotResolved, name, s)
	}
}

// Done marks every path as consumed.
func (l *Lifecycle) Done() {
	l.state.Store(int32(StateDone))
}

// IsResolved is true from Finish onwards.
func (l *Lifecycle) IsResolved() bool { return l.State() >= StateResolved }
