//go:build !windows

package output

// enableANSI reports whether ANSI color sequences can be written as-is.
// Unix terminals handle them natively, so there is nothing to switch on.
func enableANSI() bool {
	return true
}
