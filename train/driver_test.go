package train

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun_TrainsAndReports(t *testing.T) {
	trainData := makeBatches(80, 10, 1)
	valData := makeBatches(16, 16, 1)
	testData := makeBatches(16, 16, 1)

	model := newAffineModel(2)
	opt := &sgdOpt{lr: 0.5}
	path := filepath.Join(t.TempDir(), "best.gob")
	ckpt := NewCheckpointer(path)

	var out bytes.Buffer
	res, err := Run(RunConfig{Epochs: 5, Out: &out},
		model, opt, MSE(), MAE(), trainData, valData, testData, ckpt)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.History) != 5 {
		t.Fatalf("expected 5 epoch records, got %d", len(res.History))
	}
	for i, st := range res.History {
		if st.Epoch != i {
			t.Fatalf("history epoch %d recorded as %d", i, st.Epoch)
		}
		if math.IsNaN(st.Loss) || math.IsNaN(st.ValAcc) {
			t.Fatalf("non-finite stats at epoch %d: %+v", i, st)
		}
	}
	if math.IsInf(res.BestVal, 1) {
		t.Fatalf("no validation metric was ever checkpointed")
	}
	if res.Stopped {
		t.Fatalf("run reported early stop without a stopper configured")
	}

	// The driver writes a header, one line per epoch, and a test summary.
	text := out.String()
	if !strings.Contains(text, "# Epoch     Loss         TrainAcc        ValAcc     Time (s)") {
		t.Fatalf("progress header missing from output:\n%s", text)
	}
	if !strings.Contains(text, "#TestAcc:") {
		t.Fatalf("test summary missing from output:\n%s", text)
	}
	if got := strings.Count(text, "\n") - 4; got != 5 {
		// 4 = blank+header at the top, blank+summary at the bottom.
		t.Fatalf("expected 5 epoch lines, output has %d:\n%s", got, text)
	}

	// Descending loss on this convex problem.
	first := res.History[0].Loss
	last := res.History[len(res.History)-1].Loss
	if !(last < first) {
		t.Fatalf("expected loss to decrease over the run: %v then %v", first, last)
	}

	// A checkpoint file exists and the model carries the restored best state.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("checkpoint file missing: %v", err)
	}
}

func TestRun_ZeroEpochs(t *testing.T) {
	model := newAffineModel(2)
	ckpt := NewCheckpointer(filepath.Join(t.TempDir(), "best.gob"))

	_, err := Run(RunConfig{Epochs: 0},
		model, &sgdOpt{lr: 0.1}, MSE(), MAE(),
		makeBatches(10, 5, 1), makeBatches(4, 4, 1), makeBatches(4, 4, 1), ckpt)
	if !errors.Is(err, ErrNoCheckpoint) {
		t.Fatalf("expected ErrNoCheckpoint for a zero-epoch run, got %v", err)
	}
}

func TestRun_EarlyStopping(t *testing.T) {
	// Zero learning rate keeps the validation metric flat, so the stopper
	// fires as soon as its patience is exhausted.
	model := newAffineModel(2)
	model.w[0] = 0.1
	opt := &sgdOpt{lr: 0}
	ckpt := NewCheckpointer(filepath.Join(t.TempDir(), "best.gob"))

	res, err := Run(RunConfig{Epochs: 10, Patience: 1},
		model, opt, MSE(), MAE(),
		makeBatches(20, 5, 1), makeBatches(8, 8, 1), makeBatches(8, 8, 1), ckpt)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Stopped {
		t.Fatalf("expected early stop on a flat validation metric")
	}
	if len(res.History) != 2 {
		t.Fatalf("expected 2 epochs before stopping, got %d", len(res.History))
	}
}

// constModel predicts zero no matter what, so its validation metric never
// moves and every epoch counts toward the scheduler's plateau.
type constModel struct {
	*affineModel
}

func (c *constModel) Predict(inputs [][]float32, mode Mode) ([]float32, error) {
	if mode == Training {
		c.lastInputs = inputs
	}
	return make([]float32, len(inputs)), nil
}

func TestRun_SchedulerReducesLR(t *testing.T) {
	model := &constModel{affineModel: newAffineModel(2)}
	opt := &sgdOpt{lr: 1.0}
	ckpt := NewCheckpointer(filepath.Join(t.TempDir(), "best.gob"))

	sched := NewPlateauScheduler(PlateauConfig{Factor: 0.5, Patience: 1})

	_, err := Run(RunConfig{Epochs: 3, Scheduler: sched},
		model, opt, MSE(), MAE(),
		makeBatches(20, 5, 1), makeBatches(8, 8, 1), makeBatches(8, 8, 1), ckpt)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Epoch 0 seeds the plateau tracker; epochs 1 and 2 each halve the rate.
	if opt.LR() != 0.25 {
		t.Fatalf("expected lr 0.25 after two plateau reductions, got %v", opt.LR())
	}
}

func TestRun_RejectsBadArguments(t *testing.T) {
	model := newAffineModel(2)
	ckpt := NewCheckpointer(filepath.Join(t.TempDir(), "best.gob"))
	data := makeBatches(10, 5, 1)

	if _, err := Run(RunConfig{Epochs: -1}, model, &sgdOpt{}, MSE(), MAE(), data, data, data, ckpt); err == nil {
		t.Fatalf("expected error for negative epoch count")
	}
	if _, err := Run(RunConfig{Epochs: 1}, nil, &sgdOpt{}, MSE(), MAE(), data, data, data, ckpt); err == nil {
		t.Fatalf("expected error for nil model")
	}
	if _, err := Run(RunConfig{Epochs: 1}, model, &sgdOpt{}, MSE(), MAE(), data, data, data, nil); err == nil {
		t.Fatalf("expected error for nil checkpointer")
	}
}

func TestRun_EmptyTrainingData(t *testing.T) {
	model := newAffineModel(2)
	ckpt := NewCheckpointer(filepath.Join(t.TempDir(), "best.gob"))
	val := makeBatches(4, 4, 1)

	_, err := Run(RunConfig{Epochs: 1},
		model, &sgdOpt{lr: 0.1}, MSE(), MAE(), &sliceSource{}, val, val, ckpt)
	if !errors.Is(err, ErrNoExamples) {
		t.Fatalf("expected ErrNoExamples for empty training data, got %v", err)
	}
}
