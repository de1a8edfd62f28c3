// Package hotkey turns a configured key chord into press/release events for
// the session coordinator. The platform listener lives behind build tags;
// ChanSource provides a wiring point for tests and embedders.
package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode selects how the hotkey controls recording.
type Mode int

const (
	// ModePushToTalk records while the key is held; stop fires on release.
	ModePushToTalk Mode = iota

	// ModeToggle starts on one press and stops on the next.
	ModeToggle
)

func (m Mode) String() string {
	if m == ModeToggle {
		return "toggle"
	}
	return "push-to-talk"
}

// ParseMode parses "push-to-talk" or "toggle".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "push-to-talk", "ptt":
		return ModePushToTalk, nil
	case "toggle":
		return ModeToggle, nil
	}
	return ModePushToTalk, fmt.Errorf("hotkey: unknown mode %q", s)
}

// EventType distinguishes key press from key release.
type EventType int

const (
	Press EventType = iota
	Release
)

// Event is one hotkey activation edge.
type Event struct {
	Type EventType
}

// Source emits hotkey events until closed.
type Source interface {
	Events() <-chan Event
	Close() error
}

// Modifier mask bits, matching the platform hotkey registration masks.
const (
	ModAlt   uint32 = 0x0001
	ModCtrl  uint32 = 0x0002
	ModShift uint32 = 0x0004
	ModSuper uint32 = 0x0008
)

// Spec is a parsed key chord: a virtual keycode plus a modifier mask.
type Spec struct {
	Mod uint32
	Key uint32
}

// Parse accepts chords like "alt+q", "ctrl+shift+f1" or "f9" and returns
// the modifier mask and virtual keycode.
func Parse(s string) (Spec, error) {
	if strings.TrimSpace(s) == "" {
		return Spec{}, fmt.Errorf("hotkey: empty chord")
	}
	parts := strings.Split(s, "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(strings.ToLower(parts[i]))
	}
	var spec Spec
	keyToken := parts[len(parts)-1]
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "alt", "option":
			spec.Mod |= ModAlt
		case "ctrl", "control":
			spec.Mod |= ModCtrl
		case "shift":
			spec.Mod |= ModShift
		case "win", "super", "cmd", "meta":
			spec.Mod |= ModSuper
		default:
			return Spec{}, fmt.Errorf("hotkey: unknown modifier %q in %q", p, s)
		}
	}

	key, err := parseKey(keyToken)
	if err != nil {
		return Spec{}, err
	}
	spec.Key = key
	return spec, nil
}

func parseKey(token string) (uint32, error) {
	if len(token) == 1 {
		ch := token[0]
		switch {
		case ch >= 'a' && ch <= 'z':
			return uint32(ch - 'a' + 'A'), nil
		case ch >= '0' && ch <= '9':
			return uint32(ch), nil
		}
	}
	switch token {
	case "esc", "escape":
		return 0x1B, nil
	case "space":
		return 0x20, nil
	case "enter", "return":
		return 0x0D, nil
	case "tab":
		return 0x09, nil
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(token, "f")); err == nil &&
		strings.HasPrefix(token, "f") && n >= 1 && n <= 24 {
		return 0x70 + uint32(n-1), nil
	}
	return 0, fmt.Errorf("hotkey: unsupported key %q", token)
}

// ChanSource is a Source fed by the embedder. Useful for tests and for
// platforms where the hotkey hook lives outside this process.
type ChanSource struct {
	ch chan Event
}

// NewChanSource creates a ChanSource with a small buffer.
func NewChanSource() *ChanSource {
	return &ChanSource{ch: make(chan Event, 8)}
}

// Emit delivers an event. Drops when nobody is draining, matching the
// platform hooks (a missed hotkey beats a blocked input hook).
func (s *ChanSource) Emit(e Event) {
	select {
	case s.ch <- e:
	default:
	}
}

func (s *ChanSource) Events() <-chan Event { return s.ch }

func (s *ChanSource) Close() error {
	close(s.ch)
	return nil
}
