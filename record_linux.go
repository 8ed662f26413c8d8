//go:build linux

package relaylog

import "golang.org/x/sys/unix"

// gettid returns the kernel thread id of the OS thread currently
// running this goroutine. Because the Go scheduler may migrate a
// goroutine between OS threads between calls, this value is a
// point-in-time sample, not a stable per-goroutine identity (that role
// is filled by ThreadRank, assigned once per Endpoint).
func gettid() int32 {
	return int32(unix.Gettid())
}
