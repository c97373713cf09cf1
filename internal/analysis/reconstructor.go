package analysis

import (
	"math"
	"math/rand"
)

// TrainableReconstructor is the capability the anomaly scorer needs
// from a reconstruction model. Any encode/decode architecture that can
// be fit to a sample matrix and report per-sample reconstruction error
// is substitutable.
type TrainableReconstructor interface {
	// Fit trains the model on the normalized sample matrix.
	Fit(X [][]float64) error
	// Reconstruct encodes and decodes a single sample.
	Reconstruct(x []float64) []float64
	// ReconstructionErrors returns the per-sample mean squared
	// reconstruction error over X.
	ReconstructionErrors(X [][]float64) []float64
}

// AutoencoderConfig parameterizes a bottleneck autoencoder.
type AutoencoderConfig struct {
	// HiddenSize is the bottleneck width.
	HiddenSize int
	// Epochs is the number of full passes over the training matrix.
	Epochs int
	// LearningRate for SGD updates.
	LearningRate float64
	// Momentum factor for the velocity terms.
	Momentum float64
	// Seed for weight initialization.
	Seed int64
}

// DefaultAutoencoderConfig returns the default training parameters.
func DefaultAutoencoderConfig() AutoencoderConfig {
	return AutoencoderConfig{
		HiddenSize:   4,
		Epochs:       200,
		LearningRate: 0.01,
		Momentum:     0.9,
	}
}

// Autoencoder is a plain parameterized encode/decode transform with one
// tanh bottleneck layer and a linear output layer, trained by SGD with
// momentum to minimize mean squared reconstruction error. Training is
// deterministic for a fixed seed: weights are seeded and samples are
// visited in matrix order.
type Autoencoder struct {
	cfg       AutoencoderConfig
	inputSize int

	weightsEnc [][]float64 // input -> hidden
	weightsDec [][]float64 // hidden -> output
	biasHidden []float64
	biasOut    []float64

	velocityEnc [][]float64
	velocityDec [][]float64

	trained  bool
	lastLoss float64
}

// NewAutoencoder creates an untrained autoencoder for the given input
// dimensionality.
func NewAutoencoder(inputSize int, cfg AutoencoderConfig) *Autoencoder {
	if cfg.HiddenSize <= 0 {
		cfg.HiddenSize = DefaultAutoencoderConfig().HiddenSize
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = DefaultAutoencoderConfig().Epochs
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = DefaultAutoencoderConfig().LearningRate
	}

	a := &Autoencoder{cfg: cfg, inputSize: inputSize}
	rng := rand.New(rand.NewSource(cfg.Seed))

	// Xavier-style init scaled by layer width.
	scaleEnc := math.Sqrt(2.0 / float64(inputSize))
	scaleDec := math.Sqrt(2.0 / float64(cfg.HiddenSize))

	a.weightsEnc = make([][]float64, inputSize)
	a.velocityEnc = make([][]float64, inputSize)
	for i := range a.weightsEnc {
		a.weightsEnc[i] = make([]float64, cfg.HiddenSize)
		a.velocityEnc[i] = make([]float64, cfg.HiddenSize)
		for j := range a.weightsEnc[i] {
			a.weightsEnc[i][j] = (rng.Float64()*2 - 1) * scaleEnc
		}
	}
	a.weightsDec = make([][]float64, cfg.HiddenSize)
	a.velocityDec = make([][]float64, cfg.HiddenSize)
	for j := range a.weightsDec {
		a.weightsDec[j] = make([]float64, inputSize)
		a.velocityDec[j] = make([]float64, inputSize)
		for k := range a.weightsDec[j] {
			a.weightsDec[j][k] = (rng.Float64()*2 - 1) * scaleDec
		}
	}
	a.biasHidden = make([]float64, cfg.HiddenSize)
	a.biasOut = make([]float64, inputSize)
	return a
}

// Fit trains the autoencoder on X for the configured number of epochs.
func (a *Autoencoder) Fit(X [][]float64) error {
	if len(X) == 0 {
		return ErrEmptyMatrix
	}

	for epoch := 0; epoch < a.cfg.Epochs; epoch++ {
		var total float64
		for _, x := range X {
			total += a.trainSample(x)
		}
		a.lastLoss = total / float64(len(X))
	}
	a.trained = true
	return nil
}

// trainSample runs one forward/backward pass and updates the weights,
// returning the sample's squared-error loss.
func (a *Autoencoder) trainSample(x []float64) float64 {
	hidden, out := a.forward(x)

	// Output gradient of 0.5*MSE with a linear output layer.
	outGrad := make([]float64, a.inputSize)
	var loss float64
	for k := 0; k < a.inputSize; k++ {
		diff := out[k] - x[k]
		outGrad[k] = diff
		loss += diff * diff
	}
	loss /= float64(a.inputSize)

	hiddenGrad := make([]float64, a.cfg.HiddenSize)
	for j := 0; j < a.cfg.HiddenSize; j++ {
		var sum float64
		for k := 0; k < a.inputSize; k++ {
			sum += outGrad[k] * a.weightsDec[j][k]
		}
		hiddenGrad[j] = sum * (1 - hidden[j]*hidden[j]) // tanh'
	}

	lr, mom := a.cfg.LearningRate, a.cfg.Momentum
	for j := 0; j < a.cfg.HiddenSize; j++ {
		for k := 0; k < a.inputSize; k++ {
			grad := outGrad[k] * hidden[j]
			a.velocityDec[j][k] = mom*a.velocityDec[j][k] - lr*grad
			a.weightsDec[j][k] += a.velocityDec[j][k]
		}
	}
	for i := 0; i < a.inputSize; i++ {
		for j := 0; j < a.cfg.HiddenSize; j++ {
			grad := hiddenGrad[j] * x[i]
			a.velocityEnc[i][j] = mom*a.velocityEnc[i][j] - lr*grad
			a.weightsEnc[i][j] += a.velocityEnc[i][j]
		}
	}
	for k := 0; k < a.inputSize; k++ {
		a.biasOut[k] -= lr * outGrad[k]
	}
	for j := 0; j < a.cfg.HiddenSize; j++ {
		a.biasHidden[j] -= lr * hiddenGrad[j]
	}

	return loss
}

func (a *Autoencoder) forward(x []float64) (hidden, out []float64) {
	hidden = make([]float64, a.cfg.HiddenSize)
	for j := 0; j < a.cfg.HiddenSize; j++ {
		sum := a.biasHidden[j]
		for i := 0; i < a.inputSize; i++ {
			sum += x[i] * a.weightsEnc[i][j]
		}
		hidden[j] = math.Tanh(sum)
	}
	out = make([]float64, a.inputSize)
	for k := 0; k < a.inputSize; k++ {
		sum := a.biasOut[k]
		for j := 0; j < a.cfg.HiddenSize; j++ {
			sum += hidden[j] * a.weightsDec[j][k]
		}
		out[k] = sum
	}
	return hidden, out
}

// Encode returns the bottleneck activation for a sample.
func (a *Autoencoder) Encode(x []float64) []float64 {
	hidden, _ := a.forward(x)
	return hidden
}

// Reconstruct encodes and decodes a single sample.
func (a *Autoencoder) Reconstruct(x []float64) []float64 {
	_, out := a.forward(x)
	return out
}

// ReconstructionErrors returns the per-sample mean squared error over X.
func (a *Autoencoder) ReconstructionErrors(X [][]float64) []float64 {
	errs := make([]float64, len(X))
	for i, x := range X {
		out := a.Reconstruct(x)
		var sum float64
		for k := range x {
			diff := out[k] - x[k]
			sum += diff * diff
		}
		errs[i] = sum / float64(len(x))
	}
	return errs
}

// LastLoss returns the mean training loss of the final epoch.
func (a *Autoencoder) LastLoss() float64 {
	return a.lastLoss
}

// Threshold returns the adaptive anomaly threshold mean + k*std over
// the given reconstruction errors. With a single sample the standard
// deviation is zero and the threshold equals the error itself.
func Threshold(errors []float64, k float64) float64 {
	if len(errors) == 0 {
		return 0
	}
	var mean float64
	for _, e := range errors {
		mean += e
	}
	mean /= float64(len(errors))

	var variance float64
	for _, e := range errors {
		diff := e - mean
		variance += diff * diff
	}
	variance /= float64(len(errors))

	return mean + k*math.Sqrt(variance)
}

// FlagAnomalies returns, for each error, whether it strictly exceeds
// the adaptive threshold mean + k*std.
func FlagAnomalies(errors []float64, k float64) []bool {
	threshold := Threshold(errors, k)
	flags := make([]bool, len(errors))
	for i, e := range errors {
		flags[i] = e > threshold
	}
	return flags
}
