//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package storage

import "os"

// Without flock there is no cross-process coordination; drops always proceed.

func lockShared(*os.File) error { return nil }

func lockExclusive(*os.File) error { return nil }

func unlock(*os.File) error { return nil }

func isWouldBlock(error) bool { return false }
