//go:build linux

package driver

import "golang.org/x/sys/unix"

// threadID returns the kernel id of the calling OS thread.
func threadID() int { return unix.Gettid() }
