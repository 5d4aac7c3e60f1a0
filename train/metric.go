package train

import "math"

// Metric accumulates a de-normalized accuracy measure. Sum returns the error
// summed over the batch in original target units: errors computed on
// normalized values are multiplied by the dataset's target standard
// deviation to undo the scaling. Loops divide the accumulated sum by the
// example count.
type Metric interface {
	Sum(pred, target []float32, stdev float32) float64
	Name() string
}

// maeMetric is mean absolute error in original units.
type maeMetric struct{}

// MAE returns the mean absolute error metric, reported in the raw bond
// dissociation energy units.
func MAE() Metric { return maeMetric{} }

func (maeMetric) Sum(pred, target []float32, stdev float32) float64 {
	var sum float64
	for i := range pred {
		sum += math.Abs(float64(pred[i]-target[i])) * float64(stdev)
	}
	return sum
}

func (maeMetric) Name() string { return "mae" }

// rmseMetric accumulates squared error; note the aggregate a loop reports is
// the mean of per-batch root terms only when batches are scored whole, so
// this metric is most useful with full-batch evaluation loaders.
type rmseMetric struct{}

// RMSE returns a root-mean-square error metric in raw units.
func RMSE() Metric { return rmseMetric{} }

func (rmseMetric) Sum(pred, target []float32, stdev float32) float64 {
	if len(pred) == 0 {
		return 0
	}
	var sum float64
	for i := range pred {
		d := float64(pred[i]-target[i]) * float64(stdev)
		sum += d * d
	}
	return math.Sqrt(sum/float64(len(pred))) * float64(len(pred))
}

func (rmseMetric) Name() string { return "rmse" }
