package insert_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sonoscribe/sonoscribe/pkg/insert"
)

// fakeTier records paste attempts and fails until ok is set.
type fakeTier struct {
	name  string
	ok    bool
	calls int
	log   *[]string
}

func (f *fakeTier) Name() string { return f.name }

func (f *fakeTier) Paste() error {
	f.calls++
	if f.log != nil {
		*f.log = append(*f.log, "paste:"+f.name)
	}
	if !f.ok {
		return errors.New(f.name + " failed")
	}
	return nil
}

// onceTier is a fakeTier the controller treats as exercise-at-most-once.
type onceTier struct{ fakeTier }

func (o *onceTier) Once() bool { return true }

type harness struct {
	ctrl      *insert.Controller
	tier1     *onceTier
	tier2     *fakeTier
	notified  int
	log       []string
	statePath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{statePath: filepath.Join(t.TempDir(), "automation.flag")}
	h.tier1 = &onceTier{fakeTier{name: "automation", log: &h.log}}
	h.tier2 = &fakeTier{name: "keyboard", log: &h.log}

	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	h.ctrl = insert.New(h.statePath,
		insert.WithTiers(h.tier1, h.tier2),
		insert.WithStage(func(text string) error {
			h.log = append(h.log, "stage:"+text)
			return nil
		}),
		insert.WithNotify(func(title, body string) error {
			h.notified++
			return nil
		}),
		insert.WithClock(
			func() time.Time { clock = clock.Add(10 * time.Second); return clock },
			func(d time.Duration) { h.log = append(h.log, "settle") },
		),
	)
	return h
}

func TestDeliverStagesBeforePaste(t *testing.T) {
	h := newHarness(t)
	h.tier2.ok = true

	if err := h.ctrl.Deliver("hello"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	want := []string{"stage:hello", "settle", "paste:automation", "paste:keyboard"}
	if len(h.log) != len(want) {
		t.Fatalf("log = %v, want %v", h.log, want)
	}
	for i := range want {
		if h.log[i] != want[i] {
			t.Fatalf("log[%d] = %s, want %s", i, h.log[i], want[i])
		}
	}
}

func TestAutomationTierTriedAtMostOnce(t *testing.T) {
	h := newHarness(t)
	h.tier2.ok = true

	h.ctrl.Deliver("a")
	h.ctrl.Deliver("b")
	if h.tier1.calls != 1 {
		t.Fatalf("automation calls = %d, want 1", h.tier1.calls)
	}
	if h.tier2.calls != 2 {
		t.Fatalf("keyboard calls = %d, want 2", h.tier2.calls)
	}
}

func TestAutomationFlagPersists(t *testing.T) {
	h := newHarness(t)
	h.tier2.ok = true
	h.ctrl.Deliver("a")

	// A fresh controller sharing the state file must skip the tier.
	tier1 := &onceTier{fakeTier{name: "automation"}}
	tier2 := &fakeTier{name: "keyboard", ok: true}
	ctrl := insert.New(h.statePath,
		insert.WithTiers(tier1, tier2),
		insert.WithStage(func(string) error { return nil }),
		insert.WithClock(time.Now, func(time.Duration) {}),
	)
	if err := ctrl.Deliver("b"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if tier1.calls != 0 {
		t.Fatalf("automation calls after flag = %d, want 0", tier1.calls)
	}
}

func TestFailureThresholdNotifiesOnceAndResets(t *testing.T) {
	h := newHarness(t)
	// Both tiers fail.

	for i := 0; i < 3; i++ {
		if err := h.ctrl.Deliver("x"); !errors.Is(err, insert.ErrDeliveryFailed) {
			t.Fatalf("call %d: err = %v, want ErrDeliveryFailed", i+1, err)
		}
	}
	if h.notified != 1 {
		t.Fatalf("notifications = %d, want 1", h.notified)
	}
	if h.ctrl.Failures() != 0 {
		t.Fatalf("failures after escalation = %d, want 0", h.ctrl.Failures())
	}

	// Two more failures stay below the threshold.
	h.ctrl.Deliver("x")
	h.ctrl.Deliver("x")
	if h.notified != 1 {
		t.Fatalf("notifications = %d, want still 1", h.notified)
	}
}

func TestSuccessForgivesPriorFailures(t *testing.T) {
	h := newHarness(t)

	h.ctrl.Deliver("x")
	h.ctrl.Deliver("x")
	if h.ctrl.Failures() != 2 {
		t.Fatalf("failures = %d, want 2", h.ctrl.Failures())
	}

	h.tier2.ok = true
	if err := h.ctrl.Deliver("y"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if h.ctrl.Failures() != 0 {
		t.Fatalf("failures after success = %d, want 0", h.ctrl.Failures())
	}

	h.tier2.ok = false
	h.ctrl.Deliver("x")
	if h.notified != 0 {
		t.Fatalf("notified after forgiven failures, counter did not reset")
	}
}

func TestContinuationLeadingSpace(t *testing.T) {
	var staged []string
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	step := 1 * time.Second
	tier := &fakeTier{name: "kb", ok: true}
	ctrl := insert.New("",
		insert.WithTiers(tier),
		insert.WithStage(func(text string) error {
			staged = append(staged, text)
			return nil
		}),
		insert.WithClock(
			func() time.Time { clock = clock.Add(step); return clock },
			func(time.Duration) {},
		),
		insert.WithContinuationWindow(5*time.Second),
	)

	ctrl.Deliver("first")
	ctrl.Deliver("second") // 1s later: continuation
	step = time.Minute
	ctrl.Deliver("third") // 1min later: fresh

	want := []string{"first", " second", "third"}
	for i := range want {
		if staged[i] != want[i] {
			t.Fatalf("staged[%d] = %q, want %q", i, staged[i], want[i])
		}
	}
}

func TestKeyboardTierPermissionGate(t *testing.T) {
	tier := insert.NewKeyboardTier(func() bool { return false })
	if err := tier.Paste(); err == nil {
		t.Fatal("paste without permission succeeded")
	}
}
