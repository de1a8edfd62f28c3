package insert

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/micmonay/keybd_event"
)

// AutomationTier pastes by asking the OS automation layer to press the
// platform paste shortcut. The first call may raise a system permission
// prompt, which is why the controller exercises this tier at most once.
type AutomationTier struct{}

func (t *AutomationTier) Name() string { return "automation" }

// Once marks this tier as exercise-at-most-once for the controller.
func (t *AutomationTier) Once() bool { return true }

func (t *AutomationTier) Paste() error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("osascript", "-e",
			`tell application "System Events" to keystroke "v" using command down`)
	case "windows":
		cmd = exec.Command("powershell", "-NoProfile", "-Command",
			`(New-Object -ComObject WScript.Shell).SendKeys('^v')`)
	default:
		cmd = exec.Command("xdotool", "key", "--clearmodifiers", "ctrl+v")
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("insert: automation paste: %v (%s)", err, out)
	}
	return nil
}

// KeyboardTier replays the paste shortcut as low-level synthetic keyboard
// events. It is gated on an accessibility-style permission check: without
// the permission it fails immediately and posts nothing.
type KeyboardTier struct {
	permitted func() bool
}

// NewKeyboardTier creates the tier. permitted nil means "assume granted"
// on platforms without an accessibility gate.
func NewKeyboardTier(permitted func() bool) *KeyboardTier {
	if permitted == nil {
		permitted = func() bool { return true }
	}
	return &KeyboardTier{permitted: permitted}
}

func (t *KeyboardTier) Name() string { return "keyboard" }

func (t *KeyboardTier) Paste() error {
	if !t.permitted() {
		return errors.New("insert: accessibility permission not granted")
	}
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("insert: keyboard init: %w", err)
	}
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	kb.SetKeys(keybd_event.VK_V)
	if err := kb.Launching(); err != nil {
		return fmt.Errorf("insert: keyboard paste: %w", err)
	}
	return nil
}
