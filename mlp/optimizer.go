package mlp

import "math"

// SGDConfig configures the SGD optimizer. LR is required; Momentum and
// WeightDecay default to zero.
type SGDConfig struct {
	LR          float64
	Momentum    float64
	WeightDecay float64
}

// SGDOptimizer is plain stochastic gradient descent with optional momentum.
type SGDOptimizer struct {
	lr          float64
	momentum    float64
	weightDecay float64
	velocities  [][]float32
}

// SGD creates a stochastic gradient descent optimizer.
func SGD(cfg SGDConfig) *SGDOptimizer {
	return &SGDOptimizer{
		lr:          cfg.LR,
		momentum:    cfg.Momentum,
		weightDecay: cfg.WeightDecay,
	}
}

func (s *SGDOptimizer) init(params [][]float32) {
	s.velocities = make([][]float32, len(params))
	for i, p := range params {
		s.velocities[i] = make([]float32, len(p))
	}
}

// Step applies one update in place. params and grads must be aligned, as
// returned by a model's Parameters and Gradients methods.
func (s *SGDOptimizer) Step(params, grads [][]float32) {
	if s.velocities == nil {
		s.init(params)
	}
	lr := float32(s.lr)
	wd := float32(s.weightDecay)
	mom := float32(s.momentum)
	for i, p := range params {
		g := grads[i]
		v := s.velocities[i]
		for j := range p {
			grad := g[j]
			if wd != 0 {
				grad += wd * p[j]
			}
			if mom != 0 {
				v[j] = mom*v[j] + grad
				grad = v[j]
			}
			p[j] -= lr * grad
		}
	}
}

// LR returns the current learning rate.
func (s *SGDOptimizer) LR() float64 { return s.lr }

// SetLR replaces the learning rate; schedulers call this between epochs.
func (s *SGDOptimizer) SetLR(lr float64) { s.lr = lr }

// Name returns the optimizer name.
func (s *SGDOptimizer) Name() string { return "sgd" }

// AdamConfig configures the Adam optimizer. LR is required; zero values for
// the moment coefficients and epsilon fall back to the usual defaults
// (0.9, 0.999, 1e-8).
type AdamConfig struct {
	LR          float64
	Beta1       float64
	Beta2       float64
	Epsilon     float64
	WeightDecay float64
}

// AdamOptimizer implements adaptive moment estimation.
type AdamOptimizer struct {
	lr          float64
	beta1       float64
	beta2       float64
	epsilon     float64
	weightDecay float64

	m [][]float32
	v [][]float32
	t int
}

// Adam creates an Adam optimizer, filling defaults for zero hyperparameters.
func Adam(cfg AdamConfig) *AdamOptimizer {
	if cfg.Beta1 == 0 {
		cfg.Beta1 = 0.9
	}
	if cfg.Beta2 == 0 {
		cfg.Beta2 = 0.999
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = 1e-8
	}
	return &AdamOptimizer{
		lr:          cfg.LR,
		beta1:       cfg.Beta1,
		beta2:       cfg.Beta2,
		epsilon:     cfg.Epsilon,
		weightDecay: cfg.WeightDecay,
	}
}

func (a *AdamOptimizer) init(params [][]float32) {
	a.m = make([][]float32, len(params))
	a.v = make([][]float32, len(params))
	for i, p := range params {
		a.m[i] = make([]float32, len(p))
		a.v[i] = make([]float32, len(p))
	}
	a.t = 0
}

// Step applies one bias-corrected Adam update in place.
func (a *AdamOptimizer) Step(params, grads [][]float32) {
	if a.m == nil {
		a.init(params)
	}
	a.t++
	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))

	b1 := float32(a.beta1)
	b2 := float32(a.beta2)
	wd := float32(a.weightDecay)

	for i, p := range params {
		g := grads[i]
		m := a.m[i]
		v := a.v[i]
		for j := range p {
			grad := g[j]
			if wd != 0 {
				grad += wd * p[j]
			}
			m[j] = b1*m[j] + (1-b1)*grad
			v[j] = b2*v[j] + (1-b2)*grad*grad

			mHat := float64(m[j]) / bc1
			vHat := float64(v[j]) / bc2

			p[j] -= float32(a.lr * mHat / (math.Sqrt(vHat) + a.epsilon))
		}
	}
}

// LR returns the current learning rate.
func (a *AdamOptimizer) LR() float64 { return a.lr }

// SetLR replaces the learning rate; schedulers call this between epochs.
func (a *AdamOptimizer) SetLR(lr float64) { a.lr = lr }

// Name returns the optimizer name.
func (a *AdamOptimizer) Name() string { return "adam" }
