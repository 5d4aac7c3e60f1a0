package datasets

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// BatchFlat stores a batch in flat contiguous buffers, ready to be handed to
// a tensor backend.
type BatchFlat struct {
	Inputs    []float32
	Values    []float32
	BatchSize int
	InputDim  int
}

// MakeBatchFlat flattens a batch into contiguous buffers
func MakeBatchFlat(features [][]float32, values []float32) (*BatchFlat, error) {
	if len(features) != len(values) {
		return nil, fmt.Errorf("features and values batch sizes don't match: %d != %d", len(features), len(values))
	}
	if len(features) == 0 {
		return &BatchFlat{BatchSize: 0, InputDim: 0}, nil
	}

	batchSize := len(features)
	inputDim := len(features[0])

	flatInputs := make([]float32, batchSize*inputDim)
	flatValues := make([]float32, batchSize)

	for i := range batchSize {
		if len(features[i]) != inputDim {
			return nil, fmt.Errorf("inconsistent feature dimensions at example %d: expected %d, got %d",
				i, inputDim, len(features[i]))
		}
		copy(flatInputs[i*inputDim:], features[i])
		flatValues[i] = values[i]
	}

	return &BatchFlat{
		Inputs:    flatInputs,
		Values:    flatValues,
		BatchSize: batchSize,
		InputDim:  inputDim,
	}, nil
}

// ToGomlxTensors converts BatchFlat to gomlx tensors
func (b *BatchFlat) ToGomlxTensors() (*tensors.Tensor, *tensors.Tensor, error) {
	// handle empty batch gracefully
	if b.BatchSize == 0 || b.InputDim == 0 {
		emptyInputs := make([][]float32, 0)
		emptyValues := make([]float32, 0)
		inT := tensors.FromAnyValue(emptyInputs)
		valT := tensors.FromAnyValue(emptyValues)
		return inT, valT, nil
	}
	// Reshape flat inputs into a 2D slice
	features := make([][]float32, b.BatchSize)
	for i := range b.BatchSize {
		features[i] = b.Inputs[i*b.InputDim : (i+1)*b.InputDim]
	}
	inT := tensors.FromAnyValue(features)
	valT := tensors.FromAnyValue(b.Values)
	return inT, valT, nil
}

// Tensors reads a batch of examples and returns them as gomlx tensors
func (d *BDEDataset) Tensors(indices []int) (inputs *tensors.Tensor, values *tensors.Tensor, err error) {
	features, vals, _, err := d.Batch(indices)
	if err != nil {
		return nil, nil, err
	}

	flat, err := MakeBatchFlat(features, vals)
	if err != nil {
		return nil, nil, err
	}

	return flat.ToGomlxTensors()
}

// Yield returns the next batch of data for the gomlx Dataset interface. Batch
// size is determined by the BatchSize field; the final batch of a pass may be
// smaller. Once the dataset is exhausted Yield returns an error until Restart
// is called.
func (d *BDEDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if d.yieldPos >= d.totalExamples {
		return nil, nil, nil, fmt.Errorf("dataset exhausted after %d examples; call Restart for a new pass", d.totalExamples)
	}

	end := d.yieldPos + d.BatchSize
	if end > d.totalExamples {
		end = d.totalExamples
	}
	indices := make([]int, end-d.yieldPos)
	for i := range indices {
		indices[i] = d.yieldPos + i
	}
	d.yieldPos = end

	in, va, err := d.Tensors(indices)
	if err != nil {
		return nil, nil, nil, err
	}
	inputs = []*tensors.Tensor{in}
	labels = []*tensors.Tensor{va}
	return nil, inputs, labels, nil
}

// Restart resets the Yield cursor for a new epoch
func (d *BDEDataset) Restart() error {
	d.yieldPos = 0
	return nil
}
