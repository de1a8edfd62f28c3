//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"syscall"
	"time"
	"unsafe"
)

// Listen installs a low-level keyboard hook for the chord and emits Press
// and Release edges. The hook is used instead of RegisterHotKey because
// push-to-talk needs the release edge, which RegisterHotKey never delivers.
func Listen(spec Spec) (Source, error) {
	src := NewChanSource()
	errCh := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		user32 := syscall.NewLazyDLL("user32.dll")
		procSetWindowsHookExW := user32.NewProc("SetWindowsHookExW")
		procUnhookWindowsHookEx := user32.NewProc("UnhookWindowsHookEx")
		procCallNextHookEx := user32.NewProc("CallNextHookEx")
		procGetMessageW := user32.NewProc("GetMessageW")
		procGetAsyncKeyState := user32.NewProc("GetAsyncKeyState")

		const (
			whKeyboardLL  = 13
			wmKeyDown     = 0x0100
			wmKeyUp       = 0x0101
			wmSysKeyDown  = 0x0104
			wmSysKeyUp    = 0x0105
			llkhfInjected = 0x10
			vkShift       = 0x10
			vkControl     = 0x11
			vkMenu        = 0x12
			vkLWin        = 0x5B
			vkRWin        = 0x5C
		)

		type kbdllHookStruct struct {
			vkCode      uint32
			scanCode    uint32
			flags       uint32
			time        uint32
			dwExtraInfo uintptr
		}

		keyDown := func(vk uintptr) bool {
			st, _, _ := procGetAsyncKeyState.Call(vk)
			return st&0x8000 != 0
		}
		modsSatisfied := func() bool {
			if spec.Mod&ModCtrl != 0 && !keyDown(vkControl) {
				return false
			}
			if spec.Mod&ModAlt != 0 && !keyDown(vkMenu) {
				return false
			}
			if spec.Mod&ModShift != 0 && !keyDown(vkShift) {
				return false
			}
			if spec.Mod&ModSuper != 0 && !keyDown(vkLWin) && !keyDown(vkRWin) {
				return false
			}
			return true
		}

		held := false
		callback := syscall.NewCallback(func(nCode, wParam, lParam uintptr) uintptr {
			if int32(nCode) < 0 {
				ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
				return ret
			}
			k := (*kbdllHookStruct)(unsafe.Pointer(lParam))
			if k.flags&llkhfInjected != 0 || k.vkCode != spec.Key {
				ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
				return ret
			}
			switch wParam {
			case wmKeyDown, wmSysKeyDown:
				if !held && modsSatisfied() {
					held = true
					src.Emit(Event{Type: Press})
					return 1 // swallow
				}
			case wmKeyUp, wmSysKeyUp:
				if held {
					held = false
					src.Emit(Event{Type: Release})
					return 1
				}
			}
			ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
			return ret
		})

		hook, _, _ := procSetWindowsHookExW.Call(whKeyboardLL, callback, 0, 0)
		if hook == 0 {
			errCh <- fmt.Errorf("hotkey: SetWindowsHookExW failed")
			return
		}
		errCh <- nil

		var msg struct {
			Hwnd    uintptr
			Message uint32
			WParam  uintptr
			LParam  uintptr
			Time    uint32
			PtX     int32
			PtY     int32
		}
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
		}
		procUnhookWindowsHookEx.Call(hook)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
		return src, nil
	case <-time.After(2 * time.Second):
		return nil, fmt.Errorf("hotkey: timeout installing keyboard hook")
	}
}
