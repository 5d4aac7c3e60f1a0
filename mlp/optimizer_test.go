package mlp

import (
	"math"
	"testing"
)

func TestSGD_Step(t *testing.T) {
	opt := SGD(SGDConfig{LR: 0.1})
	params := [][]float32{{1.0}}
	grads := [][]float32{{0.5}}

	opt.Step(params, grads)
	if got, want := params[0][0], float32(0.95); math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("sgd step: got %v want %v", got, want)
	}
}

func TestSGD_Momentum(t *testing.T) {
	opt := SGD(SGDConfig{LR: 0.1, Momentum: 0.9})
	params := [][]float32{{1.0}}
	grads := [][]float32{{0.5}}

	// v1 = 0.5, p = 1 - 0.05 = 0.95
	opt.Step(params, grads)
	// v2 = 0.9*0.5 + 0.5 = 0.95, p = 0.95 - 0.095 = 0.855
	opt.Step(params, grads)
	if got, want := params[0][0], float32(0.855); math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("sgd momentum: got %v want %v", got, want)
	}
}

func TestSGD_WeightDecay(t *testing.T) {
	opt := SGD(SGDConfig{LR: 0.1, WeightDecay: 0.1})
	params := [][]float32{{1.0}}
	grads := [][]float32{{0.5}}

	// effective grad = 0.5 + 0.1*1.0 = 0.6
	opt.Step(params, grads)
	if got, want := params[0][0], float32(0.94); math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("sgd weight decay: got %v want %v", got, want)
	}
}

func TestAdam_FirstStepMagnitude(t *testing.T) {
	opt := Adam(AdamConfig{LR: 0.1})
	params := [][]float32{{1.0}}
	grads := [][]float32{{0.5}}

	// With bias correction the first update is approximately lr*sign(grad).
	opt.Step(params, grads)
	if got, want := params[0][0], float32(0.9); math.Abs(float64(got-want)) > 1e-4 {
		t.Fatalf("adam first step: got %v want approx %v", got, want)
	}
}

func TestAdam_Defaults(t *testing.T) {
	opt := Adam(AdamConfig{LR: 0.01})
	if opt.beta1 != 0.9 || opt.beta2 != 0.999 || opt.epsilon != 1e-8 {
		t.Fatalf("adam defaults not applied: beta1=%v beta2=%v eps=%v", opt.beta1, opt.beta2, opt.epsilon)
	}
}

func TestOptimizer_SetLR(t *testing.T) {
	for _, opt := range []interface {
		LR() float64
		SetLR(float64)
		Name() string
	}{
		SGD(SGDConfig{LR: 0.1}),
		Adam(AdamConfig{LR: 0.1}),
	} {
		opt.SetLR(0.03)
		if got := opt.LR(); got != 0.03 {
			t.Fatalf("%s: SetLR not applied, got %v", opt.Name(), got)
		}
	}
}
