package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

// ErrEstimateUnsupported means the platform cannot report usage.
var ErrEstimateUnsupported = errors.New("storage estimate not supported")

// DirEstimator estimates usage as the bytes stored under Dir. Quota is the
// configured limit, or the bytes the filesystem still allows when Quota is 0.
type DirEstimator struct {
	Dir   string
	Quota int64
}

// NewDirEstimator builds an estimator for dir.
func NewDirEstimator(dir string, quota int64) *DirEstimator {
	return &DirEstimator{Dir: dir, Quota: quota}
}

// Estimate walks the directory and reads the filesystem capacity.
func (e *DirEstimator) Estimate(ctx context.Context) (Estimate, error) {
	var used int64
	err := filepath.WalkDir(e.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// removed while walking
			return nil
		}
		used += info.Size()
		return nil
	})
	if err != nil {
		return Estimate{}, fmt.Errorf("walk %s: %w", e.Dir, err)
	}

	quota := e.Quota
	if quota <= 0 {
		available, err := availableBytes(e.Dir)
		if err != nil {
			return Estimate{}, err
		}
		quota = used + available
	}
	return Estimate{Usage: used, Quota: quota}, nil
}
