package train

import (
	"errors"
	"fmt"
)

// ErrNoExamples is returned when a loop runs over an empty batch source.
var ErrNoExamples = errors.New("train: batch source produced no examples")

// Epoch runs one full optimization pass over the batch source: for every
// batch it predicts in training mode, computes the loss on normalized
// targets, backpropagates, applies exactly one optimizer step, and clears
// the gradient accumulators. Parameters are updated once per batch, in batch
// order; no example is skipped or double-counted within the pass.
//
// It returns the loss averaged over batches and the metric averaged over
// examples (in original target units).
func Epoch(opt Optimizer, model Trainable, data BatchSource, loss Loss, metric Metric) (avgLoss, acc float64, err error) {
	data.Reset()

	var (
		epochLoss float64
		metricSum float64
		batches   int
		count     int
	)

	for data.Next() {
		b := data.Value()
		pred, err := model.Predict(b.Inputs, Training)
		if err != nil {
			return 0, 0, fmt.Errorf("predict failed on batch %d: %w", batches, err)
		}

		epochLoss += loss.Compute(pred, b.Values)
		metricSum += metric.Sum(pred, b.Values, b.ScalerStdev)
		count += b.Size()

		if err := model.Backward(loss.Gradient(pred, b.Values)); err != nil {
			return 0, 0, fmt.Errorf("backward failed on batch %d: %w", batches, err)
		}
		opt.Step(model.Parameters(), model.Gradients())
		model.ZeroGrad()

		batches++
	}
	if err := data.Err(); err != nil {
		return 0, 0, err
	}
	if count == 0 {
		return 0, 0, ErrNoExamples
	}

	return epochLoss / float64(batches), metricSum / float64(count), nil
}

// Evaluate runs the predictor over the batch source in inference mode and
// returns the metric averaged over examples. No parameters change; running
// it twice on the same model and data yields the same value.
func Evaluate(model Predictor, data BatchSource, metric Metric) (float64, error) {
	data.Reset()

	var (
		metricSum float64
		count     int
	)

	for data.Next() {
		b := data.Value()
		pred, err := model.Predict(b.Inputs, Inference)
		if err != nil {
			return 0, fmt.Errorf("predict failed: %w", err)
		}
		metricSum += metric.Sum(pred, b.Values, b.ScalerStdev)
		count += b.Size()
	}
	if err := data.Err(); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrNoExamples
	}

	return metricSum / float64(count), nil
}
