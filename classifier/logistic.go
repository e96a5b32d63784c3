// Package classifier provides a baseline binary classifier for use with the
// bias-aware grid search: a logistic regression trained by full-batch
// gradient descent. Weights start at zero and the optimizer draws no random
// numbers, so fits are fully deterministic, which keeps searches over it
// reproducible.
//
// The search core is agnostic to model families; this package only exists so
// the CLI and the examples have a concrete Estimator to drive.
package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bags"
)

// LogisticRegression is a binary logistic-regression classifier.
//
// Hyperparameters:
// - LearningRate: gradient-descent step size
// - Epochs: number of full passes over the training data
// - L2: L2 regularization strength applied to the weights (not the bias)
type LogisticRegression struct {
	LearningRate float64
	Epochs       int
	L2           float64

	weights []float64
	bias    float64
	fitted  bool
}

// NewLogisticRegression returns a classifier with conservative defaults.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		LearningRate: 0.1,
		Epochs:       200,
	}
}

// Fit trains the classifier on x (one row per sample) and binary labels y.
func (m *LogisticRegression) Fit(x mat.Matrix, y []int) error {
	rows, cols := x.Dims()

	if rows != len(y) {
		return fmt.Errorf("logistic regression: %d rows but %d labels", rows, len(y))
	}

	if rows == 0 {
		return fmt.Errorf("logistic regression: empty training set")
	}

	if m.LearningRate <= 0 || m.Epochs <= 0 {
		return fmt.Errorf("logistic regression: learning rate and epochs must be positive")
	}

	weights := make([]float64, cols)
	bias := 0.0

	gradWeights := make([]float64, cols)

	for epoch := 0; epoch < m.Epochs; epoch++ {
		for j := range gradWeights {
			gradWeights[j] = 0
		}

		gradBias := 0.0

		for i := 0; i < rows; i++ {
			z := bias
			for j := 0; j < cols; j++ {
				z += weights[j] * x.At(i, j)
			}

			// Residual of the predicted probability against the label.
			residual := sigmoid(z) - float64(y[i])

			for j := 0; j < cols; j++ {
				gradWeights[j] += residual * x.At(i, j)
			}

			gradBias += residual
		}

		scale := 1.0 / float64(rows)

		for j := 0; j < cols; j++ {
			weights[j] -= m.LearningRate * (gradWeights[j]*scale + m.L2*weights[j])
		}

		bias -= m.LearningRate * gradBias * scale
	}

	m.weights = weights
	m.bias = bias
	m.fitted = true

	return nil
}

// Predict returns one label in {0, 1} per row of x, thresholding the
// predicted probability at 0.5.
func (m *LogisticRegression) Predict(x mat.Matrix) ([]int, error) {
	probabilities, err := m.PredictProba(x)
	if err != nil {
		return nil, err
	}

	predictions := make([]int, len(probabilities))
	for i, p := range probabilities {
		if p >= 0.5 {
			predictions[i] = 1
		}
	}

	return predictions, nil
}

// PredictProba returns P(y=1) per row of x.
func (m *LogisticRegression) PredictProba(x mat.Matrix) ([]float64, error) {
	if !m.fitted {
		return nil, fmt.Errorf("logistic regression: not fitted")
	}

	rows, cols := x.Dims()

	if cols != len(m.weights) {
		return nil, fmt.Errorf("logistic regression: fitted on %d features, got %d", len(m.weights), cols)
	}

	probabilities := make([]float64, rows)

	for i := 0; i < rows; i++ {
		z := m.bias
		for j := 0; j < cols; j++ {
			z += m.weights[j] * x.At(i, j)
		}

		probabilities[i] = sigmoid(z)
	}

	return probabilities, nil
}

// Factory builds a LogisticRegression from a search configuration. Known
// parameters: "learning_rate" (float), "epochs" (int), "l2" (float); missing
// parameters keep their defaults, unknown parameters are rejected so a typo
// in a grid fails loudly instead of silently searching nothing.
func Factory(cfg bags.Configuration) (bags.Estimator, error) {
	m := NewLogisticRegression()

	for name, value := range cfg {
		switch name {
		case "learning_rate":
			rate, err := toFloat(value)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", name, err)
			}

			m.LearningRate = rate
		case "epochs":
			epochs, err := toInt(value)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", name, err)
			}

			m.Epochs = epochs
		case "l2":
			l2, err := toFloat(value)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", name, err)
			}

			m.L2 = l2
		default:
			return nil, fmt.Errorf("unknown parameter %q", name)
		}
	}

	return m, nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// toFloat accepts the numeric types a grid literal or a YAML file can carry.
func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("want a number, got %T", value)
	}
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("want an integer, got %v", v)
		}

		return int(v), nil
	default:
		return 0, fmt.Errorf("want an integer, got %T", value)
	}
}
