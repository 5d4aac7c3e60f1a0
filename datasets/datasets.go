// Package datasets loads featurized bond dissociation reactions and serves
// them to training loops as normalized (features, target) examples.
//
// The on-disk format is CSV, one row per reaction: a reaction identifier,
// a fixed-width feature vector produced by an upstream featurizer, and the
// raw bond dissociation energy. Datasets use lazy loading - they store file
// paths and only read actual rows when a batch is requested, so large
// collections of featurized reactions do not have to fit in memory.
//
// Targets are normalized once at construction time: the dataset computes the
// mean and standard deviation of the raw energies across all files and every
// value it hands out afterwards is (raw - mean) / stdev. The Stats struct
// carries the two scalars so consumers can undo the scaling.
package datasets

// Stats holds the target normalization scalars computed when a dataset is
// constructed. They are fixed for the lifetime of the dataset.
type Stats struct {
	// TargetMean is the mean of the raw bond dissociation energies.
	TargetMean float32

	// TargetStdev is the standard deviation of the raw energies.
	// Always > 0; construction fails otherwise.
	TargetStdev float32
}

// Denormalize maps a normalized target value back to original units.
func (s Stats) Denormalize(v float32) float32 {
	return v*s.TargetStdev + s.TargetMean
}

// Dataset is the minimal interface the loader and the training loops require
// from a source of featurized reactions. BDEDataset and Subset implement it.
type Dataset interface {
	// Len returns the number of examples.
	Len() int

	// FeatureSize returns the width of every feature vector.
	FeatureSize() int

	// Stats returns the target normalization scalars.
	Stats() Stats

	// Example reads a single example by index. The returned value is
	// normalized by the dataset stats.
	Example(i int) (features []float32, value float32, reaction string, err error)

	// Batch reads multiple examples by their indices in one call.
	Batch(indices []int) (features [][]float32, values []float32, reactions []string, err error)
}
