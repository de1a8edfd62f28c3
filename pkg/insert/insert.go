// Package insert delivers finished text into whatever application currently
// has input focus.
//
// Delivery is layered: the text is always staged on the system clipboard
// first (so a manual paste works even if everything below fails), then a
// system automation paste is tried — at most once ever, recorded by a
// persisted flag, to avoid re-prompting for automation permission — and
// finally a synthetic keyboard paste gated on an accessibility permission
// check. Failures are not surfaced per call; a run of consecutive failures
// crosses a threshold and fires a single user-facing notification.
package insert

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gen2brain/beeep"
)

// FailureThreshold is the number of consecutive failed deliveries that
// triggers the "delivery broken" notification.
const FailureThreshold = 3

// ErrDeliveryFailed reports that every tier failed for one call. Callers
// log it; escalation to the user happens via the failure counter.
var ErrDeliveryFailed = errors.New("insert: delivery failed")

// Tier pastes the staged clipboard contents into the focused application.
type Tier interface {
	Name() string
	Paste() error
}

// Controller owns the delivery strategy and the consecutive-failure
// counter. It is mutated only from the session coordinator's execution
// context.
type Controller struct {
	tiers     []Tier
	statePath string

	stage  func(text string) error
	notify func(title, body string) error
	sleep  func(time.Duration)
	now    func() time.Time

	settle     time.Duration
	contWindow time.Duration

	failures      int
	lastDelivered time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithTiers replaces the default delivery tiers.
func WithTiers(tiers ...Tier) Option {
	return func(c *Controller) { c.tiers = tiers }
}

// WithStage replaces the clipboard staging function.
func WithStage(stage func(string) error) Option {
	return func(c *Controller) { c.stage = stage }
}

// WithNotify replaces the escalation notifier.
func WithNotify(notify func(title, body string) error) Option {
	return func(c *Controller) { c.notify = notify }
}

// WithClock replaces the clock and sleep functions.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(c *Controller) { c.now, c.sleep = now, sleep }
}

// WithSettleDelay sets the clipboard settle delay before a paste.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) { c.settle = d }
}

// WithContinuationWindow sets the window within which a delivery is treated
// as a continuation and prefixed with a space.
func WithContinuationWindow(d time.Duration) Option {
	return func(c *Controller) { c.contWindow = d }
}

// New creates a Controller. statePath persists the automation once-flag.
func New(statePath string, opts ...Option) *Controller {
	c := &Controller{
		tiers:     []Tier{&AutomationTier{}, NewKeyboardTier(nil)},
		statePath: statePath,
		stage:     clipboard.WriteAll,
		notify: func(title, body string) error {
			return beeep.Alert(title, body, "")
		},
		sleep:      time.Sleep,
		now:        time.Now,
		settle:     100 * time.Millisecond,
		contWindow: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deliver stages text on the clipboard and attempts the tiered paste. The
// clipboard write always happens, even when every paste tier fails.
func (c *Controller) Deliver(text string) error {
	now := c.now()
	if !c.lastDelivered.IsZero() && now.Sub(c.lastDelivered) < c.contWindow {
		text = " " + text
	}

	if err := c.stage(text); err != nil {
		return c.fail(fmt.Errorf("%w: stage clipboard: %v", ErrDeliveryFailed, err))
	}
	// Let the clipboard settle before pasting, or the paste lands on the
	// previous contents.
	c.sleep(c.settle)

	var lastErr error
	for _, tier := range c.tiers {
		if once, ok := tier.(interface{ Once() bool }); ok && once.Once() {
			if c.automationExercised() {
				continue
			}
			err := tier.Paste()
			c.markAutomationExercised()
			if err == nil {
				return c.succeed(now)
			}
			lastErr = err
			continue
		}
		if err := tier.Paste(); err != nil {
			lastErr = err
			continue
		}
		return c.succeed(now)
	}
	return c.fail(fmt.Errorf("%w: %v", ErrDeliveryFailed, lastErr))
}

// Failures returns the current consecutive-failure count.
func (c *Controller) Failures() int { return c.failures }

func (c *Controller) succeed(at time.Time) error {
	c.failures = 0
	c.lastDelivered = at
	return nil
}

func (c *Controller) fail(err error) error {
	c.failures++
	if c.failures >= FailureThreshold {
		c.notify("Text delivery is broken",
			"Automatic paste has failed repeatedly. The text is on your clipboard; paste it manually.")
		c.failures = 0
	}
	return err
}

// automationExercised reports whether the automation tier was ever tried.
func (c *Controller) automationExercised() bool {
	if c.statePath == "" {
		return false
	}
	_, err := os.Stat(c.statePath)
	return err == nil
}

// markAutomationExercised records the attempt regardless of its outcome.
func (c *Controller) markAutomationExercised() {
	if c.statePath == "" {
		return
	}
	os.WriteFile(c.statePath, []byte(time.Now().Format(time.RFC3339)), 0o644)
}
