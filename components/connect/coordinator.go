package connect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPollInterval      = time.Second
	defaultTimeout           = 2 * time.Minute
	defaultSideEffectTimeout = 15 * time.Second
	finishedRetention        = 10 * time.Minute
)

// Options configures a Coordinator.
type Options struct {
	// Origin is the application origin result messages must carry.
	Origin       string
	Signer       *StateSigner
	PollInterval time.Duration
	Timeout      time.Duration
	// DisableFocusHeuristic ignores NotifyFocus. The heuristic is on by
	// default and can produce false cancellations when the user switches
	// windows without closing the popup.
	DisableFocusHeuristic bool
	Refetcher             Refetcher
	Notifier              Notifier
	Telemetry             Telemetry
	Logger                *zap.Logger
	SideEffectTimeout     time.Duration
}

// Coordinator starts attempts and routes external signals to them.
type Coordinator struct {
	opts Options
	now  func() time.Time

	mu       sync.Mutex
	live     map[string]*Attempt
	finished map[string]Snapshot
	closed   bool
	wg       sync.WaitGroup
}

// NewCoordinator validates opts and fills defaults.
func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.Origin == "" {
		return nil, errors.New("connect: origin is required")
	}
	if opts.Signer == nil {
		return nil, errors.New("connect: state signer is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.SideEffectTimeout <= 0 {
		opts.SideEffectTimeout = defaultSideEffectTimeout
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	if opts.Telemetry == nil {
		opts.Telemetry = noopTelemetry{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Coordinator{
		opts:     opts,
		now:      time.Now,
		live:     make(map[string]*Attempt),
		finished: make(map[string]Snapshot),
	}, nil
}

// Begin opens the provider popup and starts racing the detection channels.
// It returns as soon as the attempt is awaiting a result. A blocked popup
// yields *PopupBlockedError and registers nothing.
func (c *Coordinator) Begin(ctx context.Context, provider ProviderConfig, launcher Launcher) (*Attempt, error) {
	if provider.AuthURL == nil {
		return nil, fmt.Errorf("connect: provider %q has no authorization url", provider.Name)
	}
	if launcher == nil {
		return nil, errors.New("connect: launcher is required")
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	timeout := c.opts.Timeout
	if provider.Timeout > 0 {
		timeout = provider.Timeout
	}
	id := uuid.NewString()
	token, err := c.opts.Signer.Issue(id, provider.Name, timeout)
	if err != nil {
		return nil, err
	}
	authURL := provider.AuthURL(token)
	a := newAttempt(id, provider.Name, token, authURL, c.now(), timeout)

	a.transition(StateIdle, StateAwaitingPopup)
	popup, err := launcher.Open(ctx, id, authURL)
	if err != nil || popup == nil {
		a.transition(StateAwaitingPopup, StateIdle)
		if err != nil {
			return nil, fmt.Errorf("connect: open popup: %w", err)
		}
		c.opts.Telemetry.Record(ctx, "connect.popup.blocked", map[string]any{"provider": provider.Name})
		return nil, &PopupBlockedError{Provider: provider.Name}
	}
	a.popup = popup
	a.ticker = time.NewTicker(c.opts.PollInterval)
	a.timer = time.NewTimer(timeout)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		a.ticker.Stop()
		a.timer.Stop()
		_ = popup.Close()
		return nil, ErrClosed
	}
	c.live[id] = a
	c.wg.Add(1)
	c.mu.Unlock()

	a.transition(StateAwaitingPopup, StateAwaitingResult)
	go c.run(a)

	c.opts.Logger.Info("connect attempt started",
		zap.String("attempt_id", id),
		zap.String("provider", provider.Name),
		zap.Duration("timeout", timeout))
	c.opts.Telemetry.Record(ctx, "connect.attempt.begin", map[string]any{
		"attempt_id": id,
		"provider":   provider.Name,
	})
	return a, nil
}

// Deliver routes a callback result message to its attempt. Messages from
// another origin, with a token that matches no live attempt, or for an
// attempt that already has a pending or final result are rejected and leave
// the attempt untouched.
func (c *Coordinator) Deliver(ctx context.Context, msg Message) error {
	if msg.Origin != c.opts.Origin {
		c.opts.Telemetry.Record(ctx, "connect.message.rejected", map[string]any{"reason": "origin", "origin": msg.Origin})
		return ErrForeignOrigin
	}
	if msg.Type != MessageSuccess && msg.Type != MessageError {
		return ErrInvalidMessage
	}
	claims, err := c.opts.Signer.Verify(msg.State)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownAttempt, err)
	}
	a, err := c.awaiting(claims.AttemptID, msg.State)
	if err != nil {
		c.opts.Telemetry.Record(ctx, "connect.message.rejected", map[string]any{"reason": "stale", "attempt_id": claims.AttemptID})
		return err
	}
	select {
	case a.messages <- msg:
		return nil
	default:
		return ErrStaleMessage
	}
}

// NotifyFocus reports that the opener page regained focus or visibility
// while the attempt was pending.
func (c *Coordinator) NotifyFocus(id string) error {
	a := c.lookup(id)
	if a == nil {
		return ErrUnknownAttempt
	}
	if c.opts.DisableFocusHeuristic {
		return nil
	}
	a.signalFocus()
	return nil
}

// ReportPopupClosed marks a remotely tracked popup as closed. The polling
// channel picks it up within one interval.
func (c *Coordinator) ReportPopupClosed(id string) error {
	a := c.lookup(id)
	if a == nil {
		return ErrUnknownAttempt
	}
	if p, ok := a.popup.(interface{ MarkClosed() }); ok {
		p.MarkClosed()
	}
	return nil
}

// Cancel cancels a live attempt on behalf of the user.
func (c *Coordinator) Cancel(id string) error {
	a := c.lookup(id)
	if a == nil {
		return ErrUnknownAttempt
	}
	a.Cancel()
	return nil
}

// Attempt returns a snapshot of a live or recently finished attempt.
func (c *Coordinator) Attempt(id string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.live[id]; ok {
		return a.Snapshot(), true
	}
	snap, ok := c.finished[id]
	return snap, ok
}

// Live returns the number of attempts still awaiting a result.
func (c *Coordinator) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

// Close cancels every live attempt through the regular teardown and waits
// for them to finish or for ctx to end.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	live := make([]*Attempt, 0, len(c.live))
	for _, a := range c.live {
		live = append(live, a)
	}
	c.mu.Unlock()

	for _, a := range live {
		a.requestCancel(CancelledByShutdown)
	}
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// awaiting returns the live attempt issued with token while it still waits
// for a result.
func (c *Coordinator) awaiting(id, token string) (*Attempt, error) {
	a := c.lookup(id)
	if a == nil || a.token != token {
		return nil, ErrUnknownAttempt
	}
	if a.State() != StateAwaitingResult {
		return nil, ErrStaleMessage
	}
	return a, nil
}

func (c *Coordinator) lookup(id string) *Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live[id]
}

// run is the attempt's actor loop: the first channel to fire decides the
// outcome.
func (c *Coordinator) run(a *Attempt) {
	defer c.wg.Done()
	for {
		select {
		case msg := <-a.messages:
			if a.State() != StateAwaitingResult {
				continue
			}
			if msg.Type == MessageSuccess {
				accounts := 0
				if msg.Data != nil {
					accounts = len(msg.Data.Accounts)
				}
				c.finish(a, Outcome{State: StateSucceeded, Accounts: accounts})
				return
			}
			text := ""
			if msg.Error != nil {
				text = msg.Error.Message
			}
			err := &OAuthProviderError{Provider: a.provider, Message: text}
			c.finish(a, Outcome{State: StateFailed, Error: err.Error(), Message: text})
			return
		case <-a.ticker.C:
			if a.popup.Closed() {
				c.finish(a, Outcome{State: StateCancelled, Reason: CancelledByUser})
				return
			}
		case <-a.focus:
			c.finish(a, Outcome{State: StateCancelled, Reason: CancelledByFocusHeuristic})
			return
		case <-a.timer.C:
			c.finish(a, Outcome{State: StateCancelled, Reason: CancelledByTimeout})
			return
		case reason := <-a.cancel:
			c.finish(a, Outcome{State: StateCancelled, Reason: reason})
			return
		}
	}
}

func (c *Coordinator) finish(a *Attempt, outcome Outcome) {
	if !a.transition(StateAwaitingResult, outcome.State) {
		return
	}
	outcome.EndedAt = c.now()
	a.mu.Lock()
	a.outcome = &outcome
	a.mu.Unlock()

	c.teardown(a)

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.SideEffectTimeout)
	defer cancel()
	c.sideEffects(ctx, a, outcome)
	close(a.done)
}

// teardown stops the timers, unregisters the attempt and closes the popup
// unless the flow succeeded (the callback page closes itself). It runs at
// most once per attempt.
func (c *Coordinator) teardown(a *Attempt) {
	if !a.cleanupPerformed.CompareAndSwap(false, true) {
		return
	}
	if a.ticker != nil {
		a.ticker.Stop()
	}
	if a.timer != nil {
		a.timer.Stop()
	}

	c.mu.Lock()
	delete(c.live, a.id)
	now := c.now()
	for id, snap := range c.finished {
		if snap.Outcome != nil && now.Sub(snap.Outcome.EndedAt) > finishedRetention {
			delete(c.finished, id)
		}
	}
	c.finished[a.id] = a.Snapshot()
	c.mu.Unlock()

	if a.State() != StateSucceeded && a.popup != nil && !a.popup.Closed() {
		if err := a.popup.Close(); err != nil {
			c.opts.Logger.Warn("closing popup failed", zap.String("attempt_id", a.id), zap.Error(err))
		}
	}
	c.opts.Telemetry.Record(context.Background(), "connect.attempt.teardown", map[string]any{
		"attempt_id": a.id,
		"state":      a.State().String(),
	})
}

func (c *Coordinator) sideEffects(ctx context.Context, a *Attempt, outcome Outcome) {
	n := Notification{
		AttemptID: a.id,
		Kind:      "result",
		State:     outcome.State,
		Reason:    outcome.Reason,
		Accounts:  outcome.Accounts,
	}
	switch outcome.State {
	case StateSucceeded:
		n.Level = LevelSuccess
		n.Text = importedText(outcome.Accounts)
		if c.opts.Refetcher != nil {
			if err := c.opts.Refetcher.Refresh(ctx); err != nil {
				c.opts.Logger.Warn("refreshing integrations failed", zap.String("attempt_id", a.id), zap.Error(err))
			}
		}
	case StateFailed:
		n.Level = LevelError
		n.Text = "Connection failed"
		if outcome.Message != "" {
			n.Text = outcome.Message
		}
	default:
		n.Level = LevelInfo
		n.Text = cancelText(outcome.Reason)
	}
	c.opts.Notifier.Notify(ctx, n)

	c.opts.Logger.Info("connect attempt finished",
		zap.String("attempt_id", a.id),
		zap.String("provider", a.provider),
		zap.Stringer("state", outcome.State),
		zap.String("reason", string(outcome.Reason)),
		zap.Int("accounts", outcome.Accounts))
	c.opts.Telemetry.Record(ctx, "connect.attempt.finish", map[string]any{
		"attempt_id": a.id,
		"state":      outcome.State.String(),
		"reason":     string(outcome.Reason),
		"accounts":   outcome.Accounts,
	})
}

func importedText(n int) string {
	if n == 1 {
		return "Imported 1 account"
	}
	return fmt.Sprintf("Imported %d accounts", n)
}

func cancelText(reason CancelReason) string {
	switch reason {
	case CancelledByTimeout:
		return "Connection timed out"
	case CancelledByFocusHeuristic:
		return "Connection cancelled: the authorization window was left"
	case CancelledByShutdown:
		return "Connection interrupted"
	default:
		return "Connection cancelled"
	}
}
