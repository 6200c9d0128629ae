package simple

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Config holds configurable hyperparameters for the classifier and training.
type Config struct {
	// HiddenSizes is the list of hidden layer sizes. Example: []int{64, 32}
	// If empty, a single hidden layer of size 32 will be used.
	HiddenSizes []int

	// InputDim is the length of one input vector (grasp followed by
	// features). Required.
	InputDim int

	// LearningRate used by SGD.
	LearningRate float64

	// Epochs to train for (default if 0 will be set by NewModel to 10).
	Epochs int

	// StepsPerEpoch is the number of sampled batches per epoch (default 20).
	StepsPerEpoch int

	// BatchSize for mini-batch updates (default if 0 will be set by NewModel to 32).
	BatchSize int

	// Seed controls RNG for weight init. If zero, time-based seed is used.
	Seed int64
}

// Sampler is the minimal interface this package requires from a batch
// source. datasets.LabeledSampler satisfies it, keeping simple decoupled
// from the reader.
type Sampler interface {
	// SampleLabeled returns batchSize input vectors and their labels, 1 for
	// a successful grasp and 0 otherwise.
	SampleLabeled(batchSize int) ([][]float32, []float32, error)
}

// Model is a small MLP that predicts the probability that a grasp succeeds.
// Hidden layers use ReLU, the single output a sigmoid, and training
// minimizes binary cross-entropy with plain mini-batch SGD.
type Model struct {
	// Config used for training / initialization.
	Config Config

	// layerSizes includes input size, hidden sizes, then output size 1.
	layerSizes []int

	// weights[l] is a matrix of shape [out][in] for layer l -> l+1
	weights [][][]float32

	// biases[l] is a vector of length out for layer l -> l+1
	biases [][]float32

	rng *rand.Rand
}

// NewModel creates a new Model instance with the provided configuration.
func NewModel(cfg Config) (*Model, error) {
	if cfg.InputDim <= 0 {
		return nil, fmt.Errorf("input dimension must be positive, got %d", cfg.InputDim)
	}
	if len(cfg.HiddenSizes) == 0 {
		cfg.HiddenSizes = []int{32}
	}
	if cfg.Epochs < 0 || cfg.StepsPerEpoch < 0 || cfg.BatchSize < 0 {
		return nil, fmt.Errorf("epochs, steps per epoch and batch size must not be negative, got %d, %d, %d",
			cfg.Epochs, cfg.StepsPerEpoch, cfg.BatchSize)
	}
	for _, h := range cfg.HiddenSizes {
		if h <= 0 {
			return nil, fmt.Errorf("hidden layer sizes must be positive, got %v", cfg.HiddenSizes)
		}
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.01
	}
	if cfg.Epochs == 0 {
		cfg.Epochs = 10
	}
	if cfg.StepsPerEpoch == 0 {
		cfg.StepsPerEpoch = 20
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 32
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	m := &Model{
		Config: cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}

	sizes := make([]int, 0, 2+len(cfg.HiddenSizes))
	sizes = append(sizes, cfg.InputDim)
	sizes = append(sizes, cfg.HiddenSizes...)
	sizes = append(sizes, 1)
	m.layerSizes = sizes

	L := len(sizes) - 1
	m.weights = make([][][]float32, L)
	m.biases = make([][]float32, L)
	for l := range L {
		in := sizes[l]
		out := sizes[l+1]
		// Xavier/Glorot uniform initialization heuristic
		limit := float32(math.Sqrt(6.0 / float64(in+out)))
		mat := make([][]float32, out)
		for j := range out {
			row := make([]float32, in)
			for i := range in {
				row[i] = (m.rng.Float32()*2.0 - 1.0) * limit
			}
			mat[j] = row
		}
		m.weights[l] = mat
		m.biases[l] = make([]float32, out)
	}

	return m, nil
}

// activationReLU applies ReLU in-place over the slice.
func activationReLU(x []float32) {
	for i := range x {
		if x[i] < 0 {
			x[i] = 0
		}
	}
}

func sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(-float64(x))))
}

// forwardSingle performs a forward pass for a single input vector, returning
// the pre-activations per layer and the activations per layer
// (activations[0] = input, last = sigmoid probability).
func (m *Model) forwardSingle(input []float32) (preActs [][]float32, acts [][]float32, err error) {
	if len(input) != m.layerSizes[0] {
		return nil, nil, fmt.Errorf("input has dimension %d, model expects %d", len(input), m.layerSizes[0])
	}
	L := len(m.weights)
	acts = make([][]float32, L+1)
	acts[0] = input

	preActs = make([][]float32, L)
	for l := range L {
		inVec := acts[l]
		W := m.weights[l]
		b := m.biases[l]
		pre := make([]float32, len(b))
		for j := range pre {
			sum := b[j]
			for i, v := range inVec {
				sum += W[j][i] * v
			}
			pre[j] = sum
		}
		preActs[l] = pre

		act := make([]float32, len(pre))
		copy(act, pre)
		if l < L-1 {
			activationReLU(act)
		} else {
			for j := range act {
				act[j] = sigmoid(act[j])
			}
		}
		acts[l+1] = act
	}
	return preActs, acts, nil
}

// PredictProba returns the predicted success probability for every input.
func (m *Model) PredictProba(inputs [][]float32) ([]float32, error) {
	out := make([]float32, len(inputs))
	for i, in := range inputs {
		_, acts, err := m.forwardSingle(in)
		if err != nil {
			return nil, err
		}
		out[i] = acts[len(acts)-1][0]
	}
	return out, nil
}

// Loss returns the mean binary cross-entropy of the model on a labeled batch.
func (m *Model) Loss(inputs [][]float32, labels []float32) (float64, error) {
	if len(inputs) != len(labels) {
		return 0, fmt.Errorf("inputs and labels batch sizes don't match: %d != %d", len(inputs), len(labels))
	}
	if len(inputs) == 0 {
		return 0, errors.New("empty batch")
	}
	probs, err := m.PredictProba(inputs)
	if err != nil {
		return 0, err
	}
	const eps = 1e-7
	var sum float64
	for i, p := range probs {
		q := math.Min(math.Max(float64(p), eps), 1-eps)
		y := float64(labels[i])
		sum -= y*math.Log(q) + (1-y)*math.Log(1-q)
	}
	return sum / float64(len(probs)), nil
}

// TrainWithSampler trains the model on freshly sampled batches and returns
// the mean training loss of every epoch.
func (m *Model) TrainWithSampler(s Sampler) ([]float64, error) {
	if s == nil {
		return nil, errors.New("sampler is nil")
	}
	lr := float32(m.Config.LearningRate)
	history := make([]float64, 0, m.Config.Epochs)

	for range m.Config.Epochs {
		var epochLoss float64
		for range m.Config.StepsPerEpoch {
			inputs, labels, err := s.SampleLabeled(m.Config.BatchSize)
			if err != nil {
				return history, fmt.Errorf("failed to sample training batch: %w", err)
			}
			loss, err := m.Loss(inputs, labels)
			if err != nil {
				return history, err
			}
			epochLoss += loss
			if err := m.step(inputs, labels, lr); err != nil {
				return history, err
			}
		}
		history = append(history, epochLoss/float64(m.Config.StepsPerEpoch))
	}
	return history, nil
}

// step accumulates gradients over one mini-batch and applies the averaged
// SGD update.
func (m *Model) step(inputs [][]float32, labels []float32, lr float32) error {
	L := len(m.weights)
	gradW := make([][][]float32, L)
	gradB := make([][]float32, L)
	for l := range L {
		gradW[l] = make([][]float32, len(m.weights[l]))
		for j := range gradW[l] {
			gradW[l][j] = make([]float32, len(m.weights[l][j]))
		}
		gradB[l] = make([]float32, len(m.biases[l]))
	}

	for ex, in := range inputs {
		preacts, acts, err := m.forwardSingle(in)
		if err != nil {
			return err
		}

		// sigmoid + cross-entropy: dLoss/dz = p - y
		delta := []float32{acts[L][0] - labels[ex]}

		for l := L - 1; l >= 0; l-- {
			inAct := acts[l]
			for j, d := range delta {
				gradB[l][j] += d
				for i, a := range inAct {
					gradW[l][j][i] += d * a
				}
			}
			if l == 0 {
				break
			}
			prev := make([]float32, len(inAct))
			for i := range prev {
				if preacts[l-1][i] <= 0 {
					continue
				}
				var sum float32
				for j, d := range delta {
					sum += m.weights[l][j][i] * d
				}
				prev[i] = sum
			}
			delta = prev
		}
	}

	scale := lr / float32(len(inputs))
	for l := range L {
		for j := range m.weights[l] {
			m.biases[l][j] -= scale * gradB[l][j]
			for i := range m.weights[l][j] {
				m.weights[l][j][i] -= scale * gradW[l][j][i]
			}
		}
	}
	return nil
}
