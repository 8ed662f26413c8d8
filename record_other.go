//go:build !linux

package relaylog

// gettid is not meaningful off Linux; the tid header field is
// Linux-specific, and other platforms report 0.
func gettid() int32 {
	return 0
}
