package services

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"adscope-lab/internal/domain/models"
)

const (
	// ModelName identifies the only model family this engine produces.
	ModelName = "supervised_risk_v1"

	minTrainingRows     = 8
	defaultEpochs       = 350
	defaultLearningRate = 0.08
	defaultL2           = 0.001
	scalerStdFloor      = 1e-6
	logitClamp          = 40.0
	decisionThreshold   = 0.5
	probaRoundingDigits = 1e6
)

// MLFeatureNames fixes the model's feature order. Training, prediction and
// snapshot round-trips all depend on this ordering staying stable.
var MLFeatureNames = []string{
	"permissions_total",
	"suspicious_permissions_count",
	"dangerous_permissions_count",
	"ad_sdk_hits",
	"tracker_hits",
	"suspicious_keyword_hits",
	"boot_receiver_detected",
	"accessibility_binding_detected",
	"overlay_permission_detected",
	"install_packages_permission_detected",
	"write_settings_detected",
	"apk_hash_present",
	"apk_size_kb",
}

// LabeledVector pairs a feature vector with its 0/1 verdict label.
type LabeledVector struct {
	Features models.FeatureVector
	Label    int
}

// SupervisedRiskModel is a logistic-regression scorer over the fixed feature
// set, trained with full-batch gradient descent. The scaler is refit from
// scratch on every training run; there is no incremental update path.
type SupervisedRiskModel struct {
	Means   map[string]float64
	Stds    map[string]float64
	Weights map[string]float64
	Bias    float64
	Version string
}

type modelPayload struct {
	ModelName    string             `json:"model_name"`
	Version      string             `json:"version"`
	Means        map[string]float64 `json:"means"`
	Stds         map[string]float64 `json:"stds"`
	Weights      map[string]float64 `json:"weights"`
	Bias         float64            `json:"bias"`
	FeatureNames []string           `json:"feature_names"`
}

// NewSupervisedRiskModel returns an untrained model with identity scaling
// and zero weights. Version is stamped at construction time.
func NewSupervisedRiskModel() *SupervisedRiskModel {
	m := &SupervisedRiskModel{
		Means:   make(map[string]float64, len(MLFeatureNames)),
		Stds:    make(map[string]float64, len(MLFeatureNames)),
		Weights: make(map[string]float64, len(MLFeatureNames)),
		Version: time.Now().UTC().Format(time.RFC3339),
	}
	for _, name := range MLFeatureNames {
		m.Means[name] = 0.0
		m.Stds[name] = 1.0
		m.Weights[name] = 0.0
	}
	return m
}

// Fit trains the model on labeled rows and returns self-evaluation metrics
// computed over the same rows. The metrics describe fit quality only; they
// are not a held-out evaluation.
func (m *SupervisedRiskModel) Fit(rows []LabeledVector) (models.TrainingMetrics, error) {
	if len(rows) < minTrainingRows {
		return models.TrainingMetrics{}, fmt.Errorf("%w: need at least %d labeled samples, have %d",
			models.ErrInsufficientSamples, minTrainingRows, len(rows))
	}

	m.computeScaler(rows)

	n := float64(len(rows))
	for epoch := 0; epoch < defaultEpochs; epoch++ {
		gradW := make(map[string]float64, len(MLFeatureNames))
		gradB := 0.0

		for _, row := range rows {
			x := m.vectorize(row.Features)
			logit := m.Bias
			for _, name := range MLFeatureNames {
				logit += m.Weights[name] * x[name]
			}
			err := sigmoid(logit) - float64(row.Label)

			for _, name := range MLFeatureNames {
				gradW[name] += err * x[name]
			}
			gradB += err
		}

		for _, name := range MLFeatureNames {
			grad := gradW[name]/n + defaultL2*m.Weights[name]
			m.Weights[name] -= defaultLearningRate * grad
		}
		m.Bias -= defaultLearningRate * (gradB / n)
	}

	return m.Evaluate(rows), nil
}

// Evaluate computes confusion-matrix metrics for the rows at the 0.5
// decision threshold.
func (m *SupervisedRiskModel) Evaluate(rows []LabeledVector) models.TrainingMetrics {
	var tp, fp, tn, fn int

	for _, row := range rows {
		pred := 0
		if m.PredictProba(row.Features) >= decisionThreshold {
			pred = 1
		}
		switch {
		case pred == 1 && row.Label == 1:
			tp++
		case pred == 1 && row.Label == 0:
			fp++
		case pred == 0 && row.Label == 0:
			tn++
		default:
			fn++
		}
	}

	total := maxInt(1, tp+fp+tn+fn)
	precision := float64(tp) / float64(maxInt(1, tp+fp))
	recall := float64(tp) / float64(maxInt(1, tp+fn))
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return models.TrainingMetrics{
		Samples:   total,
		Accuracy:  round4(float64(tp+tn) / float64(total)),
		Precision: round4(precision),
		Recall:    round4(recall),
		F1:        round4(f1),
	}
}

// PredictProba returns the malicious-class probability for one feature
// vector. Pure given model state.
func (m *SupervisedRiskModel) PredictProba(features models.FeatureVector) float64 {
	x := m.vectorize(features)
	logit := m.Bias
	for _, name := range MLFeatureNames {
		logit += m.Weights[name] * x[name]
	}
	return math.Round(sigmoid(logit)*probaRoundingDigits) / probaRoundingDigits
}

// MarshalPayload serializes the full model state as a self-contained JSON
// snapshot.
func (m *SupervisedRiskModel) MarshalPayload() (string, error) {
	payload := modelPayload{
		ModelName:    ModelName,
		Version:      m.Version,
		Means:        m.Means,
		Stds:         m.Stds,
		Weights:      m.Weights,
		Bias:         m.Bias,
		FeatureNames: MLFeatureNames,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal model payload: %w", err)
	}
	return string(raw), nil
}

// ModelFromPayload restores a model from a stored JSON snapshot.
func ModelFromPayload(payloadJSON string) (*SupervisedRiskModel, error) {
	var payload modelPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode model payload: %w", err)
	}

	m := NewSupervisedRiskModel()
	if payload.Version != "" {
		m.Version = payload.Version
	} else {
		m.Version = "unknown"
	}
	for k, v := range payload.Means {
		m.Means[k] = v
	}
	for k, v := range payload.Stds {
		m.Stds[k] = v
	}
	for k, v := range payload.Weights {
		m.Weights[k] = v
	}
	m.Bias = payload.Bias
	return m, nil
}

func (m *SupervisedRiskModel) computeScaler(rows []LabeledVector) {
	n := float64(len(rows))
	means := make(map[string]float64, len(MLFeatureNames))
	stds := make(map[string]float64, len(MLFeatureNames))

	for _, name := range MLFeatureNames {
		var sum float64
		for _, row := range rows {
			sum += row.Features.NumericValue(name)
		}
		mean := sum / n

		var sq float64
		for _, row := range rows {
			d := row.Features.NumericValue(name) - mean
			sq += d * d
		}
		variance := sq / math.Max(1.0, n-1.0)

		means[name] = mean
		stds[name] = math.Max(scalerStdFloor, math.Sqrt(variance))
	}

	m.Means = means
	m.Stds = stds
}

func (m *SupervisedRiskModel) vectorize(features models.FeatureVector) map[string]float64 {
	x := make(map[string]float64, len(MLFeatureNames))
	for _, name := range MLFeatureNames {
		mean, std := m.Means[name], m.Stds[name]
		if std == 0 {
			std = 1.0
		}
		x[name] = (features.NumericValue(name) - mean) / std
	}
	return x
}

func sigmoid(v float64) float64 {
	v = math.Max(-logitClamp, math.Min(logitClamp, v))
	return 1.0 / (1.0 + math.Exp(-v))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
