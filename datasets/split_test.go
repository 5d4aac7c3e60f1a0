package datasets

import (
	"fmt"
	"testing"
)

// memDataset is an in-memory Dataset used to test the split and loader
// logic without touching the filesystem.
type memDataset struct {
	features  [][]float32
	values    []float32
	reactions []string
	stats     Stats
}

// newMemDataset builds a dataset of n examples where example i has features
// {i, i*2} and normalized value i.
func newMemDataset(n int) *memDataset {
	m := &memDataset{stats: Stats{TargetMean: 50, TargetStdev: 2}}
	for i := 0; i < n; i++ {
		fi := float32(i)
		m.features = append(m.features, []float32{fi, fi * 2})
		m.values = append(m.values, fi)
		m.reactions = append(m.reactions, fmt.Sprintf("rxn-%d", i))
	}
	return m
}

func (m *memDataset) Len() int         { return len(m.values) }
func (m *memDataset) FeatureSize() int { return 2 }
func (m *memDataset) Stats() Stats     { return m.stats }

func (m *memDataset) Example(i int) ([]float32, float32, string, error) {
	if i < 0 || i >= len(m.values) {
		return nil, 0, "", fmt.Errorf("index %d out of range [0, %d)", i, len(m.values))
	}
	return m.features[i], m.values[i], m.reactions[i], nil
}

func (m *memDataset) Batch(indices []int) ([][]float32, []float32, []string, error) {
	features := make([][]float32, 0, len(indices))
	values := make([]float32, 0, len(indices))
	reactions := make([]string, 0, len(indices))
	for _, idx := range indices {
		f, v, r, err := m.Example(idx)
		if err != nil {
			return nil, nil, nil, err
		}
		features = append(features, f)
		values = append(values, v)
		reactions = append(reactions, r)
	}
	return features, values, reactions, nil
}

func TestTrainValidationTestSplit_Sizes(t *testing.T) {
	ds := newMemDataset(10)

	train, val, tst, err := TrainValidationTestSplit(ds, 0.1, 0.2, 42)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if val.Len() != 1 {
		t.Fatalf("expected validation size 1, got %d", val.Len())
	}
	if tst.Len() != 2 {
		t.Fatalf("expected test size 2, got %d", tst.Len())
	}
	if train.Len() != 7 {
		t.Fatalf("expected train size 7, got %d", train.Len())
	}
}

func TestTrainValidationTestSplit_DisjointAndComplete(t *testing.T) {
	ds := newMemDataset(23)

	train, val, tst, err := TrainValidationTestSplit(ds, 0.15, 0.25, 7)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	seen := make(map[int]int)
	for _, s := range []*Subset{train, val, tst} {
		for _, idx := range s.Indices() {
			seen[idx]++
		}
	}
	if len(seen) != ds.Len() {
		t.Fatalf("split does not cover dataset: covered %d of %d", len(seen), ds.Len())
	}
	for idx, count := range seen {
		if count != 1 {
			t.Fatalf("index %d assigned %d times", idx, count)
		}
	}
}

func TestTrainValidationTestSplit_Deterministic(t *testing.T) {
	ds := newMemDataset(20)

	_, val1, _, err := TrainValidationTestSplit(ds, 0.2, 0.2, 99)
	if err != nil {
		t.Fatalf("first split failed: %v", err)
	}
	_, val2, _, err := TrainValidationTestSplit(ds, 0.2, 0.2, 99)
	if err != nil {
		t.Fatalf("second split failed: %v", err)
	}

	a, b := val1.Indices(), val2.Indices()
	if len(a) != len(b) {
		t.Fatalf("split sizes differ across identical calls: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("split differs at position %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestTrainValidationTestSplit_BadFractions(t *testing.T) {
	ds := newMemDataset(10)

	if _, _, _, err := TrainValidationTestSplit(ds, 0.6, 0.5, 1); err == nil {
		t.Fatalf("expected error for fractions summing past 1, got nil")
	}
	if _, _, _, err := TrainValidationTestSplit(ds, -0.1, 0.2, 1); err == nil {
		t.Fatalf("expected error for negative fraction, got nil")
	}
}

func TestTrainValidationTestSplit_RoundingOvershoot(t *testing.T) {
	// 3 examples at 0.5/0.5 would round to 2+2; the split must still be a
	// partition of the dataset.
	ds := newMemDataset(3)

	train, val, tst, err := TrainValidationTestSplit(ds, 0.5, 0.5, 13)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	total := train.Len() + val.Len() + tst.Len()
	if total != 3 {
		t.Fatalf("split sizes sum to %d, expected 3", total)
	}
}

func TestSubset_ForwardsReads(t *testing.T) {
	ds := newMemDataset(10)

	s, err := NewSubset(ds, []int{3, 7, 1})
	if err != nil {
		t.Fatalf("NewSubset failed: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected subset len 3, got %d", s.Len())
	}
	if s.FeatureSize() != ds.FeatureSize() {
		t.Fatalf("subset feature size mismatch")
	}
	if s.Stats() != ds.Stats() {
		t.Fatalf("subset stats mismatch")
	}

	_, val, reaction, err := s.Example(1)
	if err != nil {
		t.Fatalf("subset Example failed: %v", err)
	}
	if val != 7 || reaction != "rxn-7" {
		t.Fatalf("subset Example(1) read wrong row: val=%v reaction=%q", val, reaction)
	}

	_, values, _, err := s.Batch([]int{2, 0})
	if err != nil {
		t.Fatalf("subset Batch failed: %v", err)
	}
	if values[0] != 1 || values[1] != 3 {
		t.Fatalf("subset Batch read wrong rows: %v", values)
	}

	// Out of range indices fail.
	if _, err := NewSubset(ds, []int{0, 10}); err == nil {
		t.Fatalf("expected error for out-of-range subset index, got nil")
	}
	if _, _, _, err := s.Example(3); err == nil {
		t.Fatalf("expected error for out-of-range view index, got nil")
	}
}
