package docscan

import "sync"

// State is a pipeline position. Progression is strictly forward (skipping
// states is allowed, going back is not) except for a full Reset. It exists
// for progress reporting only; no business decision reads it.
type State int

const (
	StateIdle State = iota
	StateUploading
	StateConverting
	StateScanning
	StateExtracting
	StateReview
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUploading:
		return "uploading"
	case StateConverting:
		return "converting"
	case StateScanning:
		return "scanning"
	case StateExtracting:
		return "extracting"
	case StateReview:
		return "review"
	case StateComplete:
		return "complete"
	}
	return "unknown"
}

// Progress tracks the current state and a 0-100 percentage, pushing changes
// to an optional callback. Safe for use from the upload goroutine and the
// scan loop at once.
type Progress struct {
	mu       sync.Mutex
	state    State
	percent  float64
	onChange func(State, float64)
}

func NewProgress(onChange func(State, float64)) *Progress {
	return &Progress{onChange: onChange}
}

// Advance moves to next and reports it. Backward transitions are ignored
// and return false.
func (p *Progress) Advance(next State) bool {
	p.mu.Lock()
	if next < p.state {
		p.mu.Unlock()
		return false
	}
	p.state = next
	cb, pct := p.onChange, p.percent
	p.mu.Unlock()
	if cb != nil {
		cb(next, pct)
	}
	return true
}

// SetPercent updates the fractional progress within the current state.
func (p *Progress) SetPercent(pct float64) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	p.mu.Lock()
	p.percent = pct
	cb, st := p.onChange, p.state
	p.mu.Unlock()
	if cb != nil {
		cb(st, pct)
	}
}

// Reset returns to idle. The only permitted backward transition.
func (p *Progress) Reset() {
	p.mu.Lock()
	p.state = StateIdle
	p.percent = 0
	cb := p.onChange
	p.mu.Unlock()
	if cb != nil {
		cb(StateIdle, 0)
	}
}

// State returns the current pipeline position.
func (p *Progress) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
