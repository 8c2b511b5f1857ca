//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package storage

func availableBytes(string) (int64, error) {
	return 0, ErrEstimateUnsupported
}
