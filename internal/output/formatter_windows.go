//go:build windows

package output

import "golang.org/x/sys/windows"

// enableANSI switches the console into virtual terminal mode so ANSI color
// sequences render instead of printing literally. Available on Windows 10+.
func enableANSI() bool {
	handle, err := windows.GetStdHandle(windows.STD_OUTPUT_HANDLE)
	if err != nil {
		return false
	}
	var mode uint32
	if err := windows.GetConsoleMode(handle, &mode); err != nil {
		return false
	}
	mode |= windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING
	return windows.SetConsoleMode(handle, mode) == nil
}
