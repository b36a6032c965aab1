package connect

import (
	"sync"
	"sync/atomic"
	"time"
)

// Attempt is one in-flight OAuth popup flow. Its state is changed only by
// the goroutine started in Coordinator.Begin.
type Attempt struct {
	id        string
	provider  string
	token     string
	authURL   string
	popup     Popup
	startedAt time.Time
	deadline  time.Time

	state            atomic.Int32
	cleanupPerformed atomic.Bool

	messages chan Message
	focus    chan struct{}
	cancel   chan CancelReason
	done     chan struct{}

	ticker *time.Ticker
	timer  *time.Timer

	mu      sync.Mutex
	outcome *Outcome
}

func newAttempt(id, provider, token, authURL string, startedAt time.Time, timeout time.Duration) *Attempt {
	a := &Attempt{
		id:        id,
		provider:  provider,
		token:     token,
		authURL:   authURL,
		startedAt: startedAt,
		deadline:  startedAt.Add(timeout),
		messages:  make(chan Message, 1),
		focus:     make(chan struct{}, 1),
		cancel:    make(chan CancelReason, 1),
		done:      make(chan struct{}),
	}
	a.state.Store(int32(StateIdle))
	return a
}

// ID returns the attempt id.
func (a *Attempt) ID() string { return a.id }

// AuthURL returns the provider URL the popup was opened at.
func (a *Attempt) AuthURL() string { return a.authURL }

// State returns the current lifecycle state.
func (a *Attempt) State() State { return State(a.state.Load()) }

// Done is closed once the attempt reached a terminal state and its side
// effects ran.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Outcome returns the terminal outcome once there is one.
func (a *Attempt) Outcome() (Outcome, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.outcome == nil {
		return Outcome{}, false
	}
	return *a.outcome, true
}

// Cancel asks the attempt to stop as cancelled by the user. It is a no-op
// after a terminal state.
func (a *Attempt) Cancel() {
	a.requestCancel(CancelledByUser)
}

func (a *Attempt) requestCancel(reason CancelReason) {
	select {
	case a.cancel <- reason:
	default:
	}
}

func (a *Attempt) signalFocus() {
	select {
	case a.focus <- struct{}{}:
	default:
	}
}

// Snapshot returns a read-only copy of the attempt.
func (a *Attempt) Snapshot() Snapshot {
	snap := Snapshot{
		ID:        a.id,
		Provider:  a.provider,
		State:     a.State(),
		AuthURL:   a.authURL,
		StartedAt: a.startedAt,
		Deadline:  a.deadline,
	}
	if outcome, ok := a.Outcome(); ok {
		snap.Outcome = &outcome
	}
	return snap
}

func (a *Attempt) transition(from, to State) bool {
	return a.state.CompareAndSwap(int32(from), int32(to))
}
