// Package mlp implements a small configurable multilayer perceptron used to
// regress bond dissociation energies from precomputed reaction feature
// vectors. It is a lightweight, self-contained predictor in pure Go (no
// external deep-learning dependencies) so training and tests run quickly and
// deterministically. The model satisfies the train.Trainable contract: it
// exposes its parameters and gradients for an optimizer and threads an
// explicit training/inference mode through every prediction call.
package mlp

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Noofbiz/bondkit/train"
)

// Config holds configurable hyperparameters for the MLP.
type Config struct {
	// HiddenSizes is the list of hidden layer sizes. Example: []int{64, 32}
	// If empty, a single hidden layer of size 64 is used.
	HiddenSizes []int

	// InputDim is the dimensionality of the input feature vector. Required.
	InputDim int

	// Dropout is the probability of zeroing a hidden activation in training
	// mode. Zero disables dropout; inference mode never applies it.
	Dropout float64

	// Seed controls RNG for weight init and dropout masks. If zero, a
	// time-based seed is used.
	Seed int64
}

// MLP maps a feature vector to a single scalar prediction. Hidden layers use
// ReLU; the output layer is linear with one unit.
type MLP struct {
	// Config used for initialization.
	Config Config

	// sizes includes input size, hidden sizes, then the output size (1).
	sizes []int

	// weights[l] is the row-major [out*in] matrix for layer l -> l+1;
	// biases[l] has length out. gradW/gradB are the matching accumulators.
	weights [][]float32
	biases  [][]float32
	gradW   [][]float32
	gradB   [][]float32

	// rng used for weight initialization and dropout masks
	rng *rand.Rand

	// cache holds the activations recorded by the most recent training-mode
	// Predict call; Backward consumes it.
	cache *batchCache
}

// batchCache records one training-mode forward pass.
type batchCache struct {
	size    int
	preacts [][][]float32 // [example][layer][unit]
	acts    [][][]float32 // [example][layer][unit], acts[ex][0] is the input
	masks   [][][]float32 // dropout mask per hidden layer, nil when disabled
}

// New creates an MLP with the provided configuration, initializing weights
// with the Xavier/Glorot heuristic.
func New(cfg Config) (*MLP, error) {
	if cfg.InputDim <= 0 {
		return nil, fmt.Errorf("InputDim must be positive, got %d", cfg.InputDim)
	}
	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return nil, fmt.Errorf("Dropout must be in [0, 1), got %v", cfg.Dropout)
	}
	if len(cfg.HiddenSizes) == 0 {
		cfg.HiddenSizes = []int{64}
	}
	for _, h := range cfg.HiddenSizes {
		if h <= 0 {
			return nil, fmt.Errorf("hidden sizes must be positive, got %v", cfg.HiddenSizes)
		}
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	m := &MLP{
		Config: cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}

	sizes := make([]int, 0, 2+len(cfg.HiddenSizes))
	sizes = append(sizes, cfg.InputDim)
	sizes = append(sizes, cfg.HiddenSizes...)
	sizes = append(sizes, 1)
	m.sizes = sizes

	L := len(sizes) - 1
	m.weights = make([][]float32, L)
	m.biases = make([][]float32, L)
	m.gradW = make([][]float32, L)
	m.gradB = make([][]float32, L)
	for l := 0; l < L; l++ {
		in := sizes[l]
		out := sizes[l+1]
		w := make([]float32, out*in)
		limit := float32(math.Sqrt(6.0 / float64(in+out)))
		for i := range w {
			w[i] = (m.rng.Float32()*2.0 - 1.0) * limit
		}
		m.weights[l] = w
		m.biases[l] = make([]float32, out)
		m.gradW[l] = make([]float32, out*in)
		m.gradB[l] = make([]float32, out)
	}

	return m, nil
}

// InputDim returns the expected feature vector width.
func (m *MLP) InputDim() int { return m.sizes[0] }

// forwardSingle runs one example through the network. In training mode it
// applies inverted dropout to hidden activations; masks holds the per-unit
// scale factors (0 for dropped units) so backprop can reuse them.
func (m *MLP) forwardSingle(input []float32, mode train.Mode) (preacts, acts, masks [][]float32, err error) {
	if len(input) != m.sizes[0] {
		return nil, nil, nil, fmt.Errorf("input has dimension %d, expected %d", len(input), m.sizes[0])
	}
	L := len(m.weights)
	acts = make([][]float32, L+1)
	acts[0] = input
	preacts = make([][]float32, L)

	dropout := mode == train.Training && m.Config.Dropout > 0
	if dropout {
		masks = make([][]float32, L-1)
	}

	for l := 0; l < L; l++ {
		inVec := acts[l]
		inDim := m.sizes[l]
		outDim := m.sizes[l+1]
		pre := make([]float32, outDim)
		w := m.weights[l]
		b := m.biases[l]
		for j := 0; j < outDim; j++ {
			sum := b[j]
			row := w[j*inDim : (j+1)*inDim]
			for i := 0; i < inDim; i++ {
				sum += row[i] * inVec[i]
			}
			pre[j] = sum
		}
		preacts[l] = pre

		act := make([]float32, outDim)
		copy(act, pre)
		if l < L-1 {
			// ReLU on hidden layers, linear output
			for j := range act {
				if act[j] < 0 {
					act[j] = 0
				}
			}
			if dropout {
				keep := float32(1.0 - m.Config.Dropout)
				mask := make([]float32, outDim)
				for j := range mask {
					if m.rng.Float64() >= m.Config.Dropout {
						mask[j] = 1.0 / keep
					}
					act[j] *= mask[j]
				}
				masks[l] = mask
			}
		}
		acts[l+1] = act
	}
	return preacts, acts, masks, nil
}

// Predict returns one scalar prediction per input example. In training mode
// dropout is active and the forward activations are recorded for a following
// Backward call; inference mode is side-effect free and deterministic.
func (m *MLP) Predict(inputs [][]float32, mode train.Mode) ([]float32, error) {
	out := make([]float32, len(inputs))

	var cache *batchCache
	if mode == train.Training {
		cache = &batchCache{
			size:    len(inputs),
			preacts: make([][][]float32, len(inputs)),
			acts:    make([][][]float32, len(inputs)),
			masks:   make([][][]float32, len(inputs)),
		}
	}

	for ex, in := range inputs {
		preacts, acts, masks, err := m.forwardSingle(in, mode)
		if err != nil {
			return nil, err
		}
		out[ex] = acts[len(acts)-1][0]
		if cache != nil {
			cache.preacts[ex] = preacts
			cache.acts[ex] = acts
			cache.masks[ex] = masks
		}
	}

	if mode == train.Training {
		m.cache = cache
	}
	return out, nil
}

// Backward accumulates parameter gradients for the given per-example loss
// derivatives dpred (dLoss/dPrediction). It consumes the activations recorded
// by the preceding training-mode Predict call, so the dropout masks applied
// in the forward pass are reused exactly. Gradients accumulate until ZeroGrad
// is called.
func (m *MLP) Backward(dpred []float32) error {
	if m.cache == nil {
		return errors.New("no recorded forward pass; call Predict in training mode first")
	}
	if len(dpred) != m.cache.size {
		return fmt.Errorf("dpred has %d entries, recorded forward pass has %d", len(dpred), m.cache.size)
	}

	L := len(m.weights)
	for ex := range dpred {
		acts := m.cache.acts[ex]
		preacts := m.cache.preacts[ex]
		masks := m.cache.masks[ex]

		delta := []float32{dpred[ex]}
		for l := L - 1; l >= 0; l-- {
			inAct := acts[l]
			inDim := m.sizes[l]
			outDim := m.sizes[l+1]

			for j := 0; j < outDim; j++ {
				m.gradB[l][j] += delta[j]
				gw := m.gradW[l][j*inDim : (j+1)*inDim]
				for i := 0; i < inDim; i++ {
					gw[i] += delta[j] * inAct[i]
				}
			}

			if l > 0 {
				newDelta := make([]float32, inDim)
				for i := 0; i < inDim; i++ {
					var sum float32
					for j := 0; j < outDim; j++ {
						sum += m.weights[l][j*inDim+i] * delta[j]
					}
					if preacts[l-1][i] <= 0 {
						sum = 0
					}
					if masks != nil && masks[l-1] != nil {
						sum *= masks[l-1][i]
					}
					newDelta[i] = sum
				}
				delta = newDelta
			}
		}
	}

	m.cache = nil
	return nil
}

// Parameters returns the parameter slices in a fixed order, aligned with
// Gradients. The slices alias the model's storage; optimizers update them in
// place.
func (m *MLP) Parameters() [][]float32 {
	params := make([][]float32, 0, 2*len(m.weights))
	for l := range m.weights {
		params = append(params, m.weights[l], m.biases[l])
	}
	return params
}

// Gradients returns the accumulated gradient slices, aligned with Parameters.
func (m *MLP) Gradients() [][]float32 {
	grads := make([][]float32, 0, 2*len(m.gradW))
	for l := range m.gradW {
		grads = append(grads, m.gradW[l], m.gradB[l])
	}
	return grads
}

// ZeroGrad clears the accumulated gradients.
func (m *MLP) ZeroGrad() {
	for l := range m.gradW {
		clear(m.gradW[l])
		clear(m.gradB[l])
	}
}

// State is a gob-encodable snapshot of all model weights.
type State struct {
	Sizes   []int
	Weights [][]float32
	Biases  [][]float32
}

// State returns a deep copy of the current weights.
func (m *MLP) State() *State {
	st := &State{
		Sizes:   append([]int(nil), m.sizes...),
		Weights: make([][]float32, len(m.weights)),
		Biases:  make([][]float32, len(m.biases)),
	}
	for l := range m.weights {
		st.Weights[l] = append([]float32(nil), m.weights[l]...)
		st.Biases[l] = append([]float32(nil), m.biases[l]...)
	}
	return st
}

// Restore replaces the model weights with the snapshot. The snapshot must
// come from a model with identical layer sizes.
func (m *MLP) Restore(st *State) error {
	if st == nil {
		return errors.New("nil state")
	}
	if len(st.Sizes) != len(m.sizes) {
		return fmt.Errorf("state has %d layer sizes, model has %d", len(st.Sizes), len(m.sizes))
	}
	for i := range m.sizes {
		if st.Sizes[i] != m.sizes[i] {
			return fmt.Errorf("state layer size %d is %d, model has %d", i, st.Sizes[i], m.sizes[i])
		}
	}
	for l := range m.weights {
		if len(st.Weights[l]) != len(m.weights[l]) || len(st.Biases[l]) != len(m.biases[l]) {
			return fmt.Errorf("state weight shapes do not match model at layer %d", l)
		}
		copy(m.weights[l], st.Weights[l])
		copy(m.biases[l], st.Biases[l])
	}
	m.cache = nil
	return nil
}

// MarshalState gob-encodes a snapshot of all weights into an opaque blob,
// the form the checkpoint manager persists.
func (m *MLP) MarshalState() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m.State()); err != nil {
		return nil, fmt.Errorf("failed to encode model state: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalState restores the weights from a blob produced by MarshalState.
func (m *MLP) UnmarshalState(data []byte) error {
	var st State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("failed to decode model state: %w", err)
	}
	return m.Restore(&st)
}
