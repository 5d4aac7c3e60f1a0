package train

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
)

// ErrNoCheckpoint is returned by LoadBest when no checkpoint was ever saved,
// for example when training ran for zero epochs or the validation metric
// never improved on its initial +Inf.
var ErrNoCheckpoint = errors.New("train: no checkpoint saved")

// Checkpointer persists opaque predictor state blobs keyed on the best
// validation metric observed so far. A single file is overwritten whenever a
// strictly smaller metric arrives; there is no multi-checkpoint retention.
// Best-metric tracking is state of the instance, so independent training
// runs with separate Checkpointers never interfere.
type Checkpointer struct {
	path  string
	best  float64
	saved bool
}

// NewCheckpointer creates a checkpoint manager writing to path. The best
// metric starts at +Inf, so the first finite validation metric always saves.
func NewCheckpointer(path string) *Checkpointer {
	return &Checkpointer{path: path, best: math.Inf(1)}
}

// Best returns the smallest validation metric saved so far (+Inf if none).
func (c *Checkpointer) Best() float64 { return c.best }

// MaybeSave persists state if val is strictly smaller than the best metric
// seen so far, and reports whether a save happened. A NaN val never
// satisfies the comparison and is therefore never checkpointed.
//
// The write is atomic: state goes to a temporary file first and is renamed
// over the checkpoint path, so a crash mid-save never leaves a corrupted
// file readable by LoadBest.
func (c *Checkpointer) MaybeSave(val float64, state []byte) (bool, error) {
	if !(val < c.best) {
		return false, nil
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, state, 0o644); err != nil {
		return false, fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return false, fmt.Errorf("failed to commit checkpoint: %w", err)
	}

	c.best = val
	c.saved = true
	return true, nil
}

// LoadBest returns the most recently persisted state blob. It fails with
// ErrNoCheckpoint if nothing was ever saved.
func (c *Checkpointer) LoadBest() ([]byte, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w (path %s)", ErrNoCheckpoint, c.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return data, nil
}
