package train

// Loss scores a batch of predictions against normalized targets and provides
// the derivative of the score with respect to each prediction, which is what
// a Trainable's Backward call consumes.
type Loss interface {
	// Compute returns the batch loss (a mean over examples).
	Compute(pred, target []float32) float64

	// Gradient returns dLoss/dPrediction per example.
	Gradient(pred, target []float32) []float32

	Name() string
}

// mseLoss is mean squared error over the batch.
type mseLoss struct{}

// MSE returns the mean squared error loss used for BDE regression.
func MSE() Loss { return mseLoss{} }

func (mseLoss) Compute(pred, target []float32) float64 {
	if len(pred) == 0 {
		return 0
	}
	var sum float64
	for i := range pred {
		d := float64(pred[i] - target[i])
		sum += d * d
	}
	return sum / float64(len(pred))
}

func (mseLoss) Gradient(pred, target []float32) []float32 {
	grad := make([]float32, len(pred))
	if len(pred) == 0 {
		return grad
	}
	n := float32(len(pred))
	for i := range pred {
		grad[i] = 2.0 * (pred[i] - target[i]) / n
	}
	return grad
}

func (mseLoss) Name() string { return "mse" }
