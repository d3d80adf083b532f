//go:build !linux

package driver

// threadID is unavailable outside Linux; workers are still pinned, but the
// trace shows tid=0.
func threadID() int { return 0 }
