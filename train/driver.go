package train

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// RunConfig configures the top-level training driver. Epoch count and all
// hyperparameters are caller-supplied; there are no hidden defaults.
type RunConfig struct {
	// Epochs is the number of full passes over the training data.
	Epochs int

	// Patience enables early stopping on the validation metric when
	// positive; zero disables it.
	Patience int

	// Scheduler optionally adjusts the optimizer's learning rate from the
	// validation metric each epoch.
	Scheduler *PlateauScheduler

	// Out receives one progress line per epoch plus a final test-accuracy
	// line. Nil discards the output.
	Out io.Writer
}

// EpochStats is one progress record of the driver.
type EpochStats struct {
	Epoch    int
	Loss     float64
	TrainAcc float64
	ValAcc   float64
	Seconds  float64
}

// Result summarizes a completed training run.
type Result struct {
	History  []EpochStats
	BestVal  float64
	TestAcc  float64
	Stopped  bool // true when early stopping ended the run
}

// Run drives the whole training procedure: for every epoch it performs one
// training pass, evaluates on the validation source, lets the checkpointer
// persist the model whenever the validation metric improves, and emits a
// progress record. After the epoch loop it restores the best checkpoint and
// reports the metric on the test source.
//
// If no checkpoint was ever saved (zero epochs, or a validation metric that
// never improved, e.g. NaN throughout), Run fails with ErrNoCheckpoint.
func Run(cfg RunConfig, model Trainable, opt Optimizer, loss Loss, metric Metric,
	trainData, valData, testData BatchSource, ckpt *Checkpointer) (*Result, error) {

	if cfg.Epochs < 0 {
		return nil, fmt.Errorf("epochs must be non-negative, got %d", cfg.Epochs)
	}
	if model == nil || opt == nil || loss == nil || metric == nil || ckpt == nil {
		return nil, errors.New("train: model, optimizer, loss, metric, and checkpointer are all required")
	}

	out := cfg.Out
	if out == nil {
		out = io.Discard
	}

	var stopper *Stopper
	if cfg.Patience > 0 {
		stopper = NewStopper(cfg.Patience)
	}

	result := &Result{}

	fmt.Fprintf(out, "\n# Epoch     Loss         TrainAcc        ValAcc     Time (s)\n")
	t0 := time.Now()

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		ti := time.Now()

		epochLoss, trainAcc, err := Epoch(opt, model, trainData, loss, metric)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		valAcc, err := Evaluate(model, valData, metric)
		if err != nil {
			return nil, fmt.Errorf("epoch %d validation: %w", epoch, err)
		}

		if cfg.Scheduler != nil {
			cfg.Scheduler.Step(valAcc, opt)
		}

		state, err := model.MarshalState()
		if err != nil {
			return nil, fmt.Errorf("epoch %d: failed to snapshot model: %w", epoch, err)
		}
		if _, err := ckpt.MaybeSave(valAcc, state); err != nil {
			return nil, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		seconds := time.Since(ti).Seconds()
		result.History = append(result.History, EpochStats{
			Epoch:    epoch,
			Loss:     epochLoss,
			TrainAcc: trainAcc,
			ValAcc:   valAcc,
			Seconds:  seconds,
		})
		fmt.Fprintf(out, "%5d   %12.6e   %12.6e   %12.6e   %.2f\n",
			epoch, epochLoss, trainAcc, valAcc, seconds)

		if stopper != nil && stopper.Step(valAcc) {
			result.Stopped = true
			break
		}
	}

	best, err := ckpt.LoadBest()
	if err != nil {
		return nil, err
	}
	if err := model.UnmarshalState(best); err != nil {
		return nil, fmt.Errorf("failed to restore best checkpoint: %w", err)
	}
	result.BestVal = ckpt.Best()

	testAcc, err := Evaluate(model, testData, metric)
	if err != nil {
		return nil, fmt.Errorf("test evaluation: %w", err)
	}
	result.TestAcc = testAcc
	fmt.Fprintf(out, "\n#TestAcc: %12.6e | Total time (s): %.2f\n", testAcc, time.Since(t0).Seconds())

	return result, nil
}
