// Package train drives supervised training of a bond dissociation energy
// predictor: one optimization pass per epoch over a batch loader, a
// side-effect-free evaluation pass, and a checkpoint manager keyed on the
// best validation metric observed so far.
//
// The package is deliberately decoupled from any concrete model: the loops
// consume narrow interfaces (Predictor, Trainable, Optimizer, BatchSource)
// that the mlp package and the datasets.Loader satisfy. Everything runs
// single-threaded and strictly sequentially; batch order is deterministic
// given the loader's shuffle seed.
package train

import (
	"github.com/Noofbiz/bondkit/datasets"
)

// Mode selects training or inference behavior for a prediction call.
// Training mode enables training-only behavior such as dropout and lets the
// model record activations for a following backward pass; inference mode is
// deterministic and mutates nothing.
type Mode int

const (
	Training Mode = iota
	Inference
)

// Predictor maps a batch of featurized inputs to one scalar prediction per
// example. The evaluation loop requires nothing else.
type Predictor interface {
	Predict(inputs [][]float32, mode Mode) ([]float32, error)
}

// Trainable is the full surface the training loop and the checkpoint manager
// need from a model: prediction, backpropagation of loss derivatives into
// accumulated gradients, parameter/gradient enumeration for the optimizer,
// and an opaque state blob for persistence.
type Trainable interface {
	Predictor

	// Backward accumulates parameter gradients for the per-example loss
	// derivatives dpred, using the forward pass recorded by the preceding
	// training-mode Predict call.
	Backward(dpred []float32) error

	// Parameters and Gradients return aligned slices; Step applies one
	// update, ZeroGrad clears the accumulators afterwards.
	Parameters() [][]float32
	Gradients() [][]float32
	ZeroGrad()

	// MarshalState snapshots all parameters as an opaque blob;
	// UnmarshalState restores them.
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}

// Optimizer applies one gradient-descent update to parameter slices. The
// learning rate accessors exist for schedulers.
type Optimizer interface {
	Step(params, grads [][]float32)
	LR() float64
	SetLR(lr float64)
}

// BatchSource is a finite, restartable sequence of batches. datasets.Loader
// implements it.
type BatchSource interface {
	Next() bool
	Value() *datasets.Batch
	Err() error
	Reset()
}
