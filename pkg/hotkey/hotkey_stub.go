//go:build !windows

package hotkey

import "fmt"

// Listen is unavailable on this platform; embedders feed events through a
// ChanSource instead (e.g., from a desktop shell's own hotkey layer).
func Listen(Spec) (Source, error) {
	return nil, fmt.Errorf("hotkey: global hotkey hook not supported on this platform")
}
