package train

import "math"

// PlateauScheduler reduces the optimizer's learning rate when the validation
// metric stops improving: after Patience epochs without improvement the rate
// is multiplied by Factor, never dropping below MinLR. The wait counter
// resets after every reduction.
type PlateauScheduler struct {
	Factor   float64
	Patience int
	MinLR    float64

	best float64
	wait int
	init bool
}

// PlateauConfig configures NewPlateauScheduler. A zero Factor defaults to
// 0.3 and a zero Patience to 10.
type PlateauConfig struct {
	Factor   float64
	Patience int
	MinLR    float64
}

// NewPlateauScheduler creates a reduce-on-plateau learning rate scheduler.
func NewPlateauScheduler(cfg PlateauConfig) *PlateauScheduler {
	if cfg.Factor == 0 {
		cfg.Factor = 0.3
	}
	if cfg.Patience == 0 {
		cfg.Patience = 10
	}
	return &PlateauScheduler{
		Factor:   cfg.Factor,
		Patience: cfg.Patience,
		MinLR:    cfg.MinLR,
	}
}

// Step records one epoch's validation metric and adjusts the optimizer's
// learning rate if the plateau patience is exhausted. A NaN metric never
// counts as an improvement.
func (p *PlateauScheduler) Step(val float64, opt Optimizer) {
	if !math.IsNaN(val) && (!p.init || val < p.best) {
		p.best = val
		p.wait = 0
		p.init = true
		return
	}

	p.wait++
	if p.wait >= p.Patience {
		lr := opt.LR() * p.Factor
		if lr < p.MinLR {
			lr = p.MinLR
		}
		opt.SetLR(lr)
		p.wait = 0
	}
}

// Stopper implements early stopping on the validation metric: Step returns
// true once Patience consecutive epochs pass without improvement. The
// training and evaluation loops know nothing about it; the driver consults
// the stopper between epochs and breaks the epoch loop.
type Stopper struct {
	patience int
	best     float64
	wait     int
	init     bool
}

// NewStopper creates an early stopper with the given patience.
func NewStopper(patience int) *Stopper {
	return &Stopper{patience: patience}
}

// Step records one epoch's validation metric and reports whether training
// should stop. A NaN metric never counts as an improvement.
func (s *Stopper) Step(val float64) bool {
	if !math.IsNaN(val) && (!s.init || val < s.best) {
		s.best = val
		s.wait = 0
		s.init = true
		return false
	}
	s.wait++
	return s.wait >= s.patience
}
