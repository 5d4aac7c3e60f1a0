package datasets

import (
	"fmt"
	"math/rand"
)

// Batch is one loader step: an ordered group of examples plus the label
// fields the training loops consume. Values are normalized targets;
// ScalerStdev is the dataset-wide standard deviation needed to undo the
// normalization when reporting accuracy in original units.
type Batch struct {
	Inputs      [][]float32
	Values      []float32
	Reactions   []string
	ScalerStdev float32
}

// Size returns the number of examples in the batch.
func (b *Batch) Size() int { return len(b.Values) }

// Loader serves a dataset as a finite, restartable sequence of batches. One
// pass covers every example exactly once; the final batch may be smaller
// than the configured batch size. With shuffling enabled the partition into
// batches is re-randomized on every pass, deterministically for a given
// seed. The loader never mutates the dataset.
//
// Iteration follows the scanner idiom:
//
//	for l.Next() {
//		b := l.Value()
//		...
//	}
//	if err := l.Err(); err != nil { ... }
//
// Reset begins a new pass after exhaustion (or mid-pass).
type Loader struct {
	ds        Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand

	order []int
	pos   int
	cur   *Batch
	err   error
}

// NewLoader creates a loader over ds. batchSize must be positive.
func NewLoader(ds Dataset, batchSize int, shuffle bool, seed int64) (*Loader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	l := &Loader{
		ds:        ds,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)),
		order:     make([]int, ds.Len()),
	}
	for i := range l.order {
		l.order[i] = i
	}
	if l.shuffle {
		l.reshuffle()
	}
	return l, nil
}

func (l *Loader) reshuffle() {
	l.rng.Shuffle(len(l.order), func(i, j int) {
		l.order[i], l.order[j] = l.order[j], l.order[i]
	})
}

// Next advances to the next batch of the current pass. It returns false when
// the pass is exhausted or a read error occurred; check Err afterwards.
func (l *Loader) Next() bool {
	if l.err != nil || l.pos >= len(l.order) {
		l.cur = nil
		return false
	}

	end := l.pos + l.batchSize
	if end > len(l.order) {
		end = len(l.order)
	}
	indices := l.order[l.pos:end]

	features, values, reactions, err := l.ds.Batch(indices)
	if err != nil {
		l.err = fmt.Errorf("failed to read batch at offset %d: %w", l.pos, err)
		l.cur = nil
		return false
	}

	l.cur = &Batch{
		Inputs:      features,
		Values:      values,
		Reactions:   reactions,
		ScalerStdev: l.ds.Stats().TargetStdev,
	}
	l.pos = end
	return true
}

// Value returns the batch produced by the last successful Next.
func (l *Loader) Value() *Batch { return l.cur }

// Err returns the first error encountered during the current pass, if any.
func (l *Loader) Err() error { return l.err }

// Reset begins a new pass. With shuffling enabled the example order is
// re-randomized from the loader's seeded random stream, so two loaders
// constructed with the same seed produce identical pass sequences.
func (l *Loader) Reset() {
	l.pos = 0
	l.cur = nil
	l.err = nil
	if l.shuffle {
		l.reshuffle()
	}
}
