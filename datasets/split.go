package datasets

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Subset is an index view over another Dataset. It shares the parent's
// normalization stats and performs no copying; reads are forwarded through
// the stored index list.
type Subset struct {
	parent  Dataset
	indices []int
}

// NewSubset builds a view over the given global indices of parent.
func NewSubset(parent Dataset, indices []int) (*Subset, error) {
	n := parent.Len()
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("subset index %d out of range [0, %d)", idx, n)
		}
	}
	own := make([]int, len(indices))
	copy(own, indices)
	return &Subset{parent: parent, indices: own}, nil
}

// Len returns the number of examples in the view.
func (s *Subset) Len() int { return len(s.indices) }

// FeatureSize returns the parent's feature vector width.
func (s *Subset) FeatureSize() int { return s.parent.FeatureSize() }

// Stats returns the parent's normalization scalars.
func (s *Subset) Stats() Stats { return s.parent.Stats() }

// Indices returns a copy of the global indices backing the view.
func (s *Subset) Indices() []int {
	out := make([]int, len(s.indices))
	copy(out, s.indices)
	return out
}

// Example reads the i-th example of the view from the parent.
func (s *Subset) Example(i int) ([]float32, float32, string, error) {
	if i < 0 || i >= len(s.indices) {
		return nil, 0, "", fmt.Errorf("index %d out of range [0, %d)", i, len(s.indices))
	}
	return s.parent.Example(s.indices[i])
}

// Batch reads multiple view-relative examples from the parent in one call.
func (s *Subset) Batch(indices []int) ([][]float32, []float32, []string, error) {
	globals := make([]int, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(s.indices) {
			return nil, nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(s.indices))
		}
		globals[i] = s.indices[idx]
	}
	return s.parent.Batch(globals)
}

// TrainValidationTestSplit partitions a dataset into three disjoint subsets.
// The validation and test views receive round(validation*n) and round(test*n)
// examples; everything left over goes to train. Assignment is randomized with
// the given seed, so repeated calls with equal arguments produce identical
// splits.
//
// validation+test must not exceed 1; that is reported as an error before any
// training can start.
func TrainValidationTestSplit(ds Dataset, validation, test float64, seed int64) (train, val, tst *Subset, err error) {
	if validation < 0 || test < 0 {
		return nil, nil, nil, fmt.Errorf("split fractions must be non-negative, got validation=%v test=%v", validation, test)
	}
	if validation+test > 1 {
		return nil, nil, nil, fmt.Errorf("split fractions sum to %v, must not exceed 1", validation+test)
	}

	n := ds.Len()
	numVal := int(math.Round(validation * float64(n)))
	numTest := int(math.Round(test * float64(n)))
	if numVal+numTest > n {
		// Rounding both fractions up can overshoot by one on tiny datasets.
		numTest = n - numVal
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	valIdx := append([]int(nil), perm[:numVal]...)
	testIdx := append([]int(nil), perm[numVal:numVal+numTest]...)
	trainIdx := append([]int(nil), perm[numVal+numTest:]...)
	sort.Ints(valIdx)
	sort.Ints(testIdx)
	sort.Ints(trainIdx)

	if train, err = NewSubset(ds, trainIdx); err != nil {
		return nil, nil, nil, err
	}
	if val, err = NewSubset(ds, valIdx); err != nil {
		return nil, nil, nil, err
	}
	if tst, err = NewSubset(ds, testIdx); err != nil {
		return nil, nil, nil, err
	}
	return train, val, tst, nil
}
