package models

// TrainingMetrics is the self-evaluation of a trained model against its own
// training rows. There is deliberately no held-out split: the metrics
// describe fit, not generalization, and consumers must treat them that way.
type TrainingMetrics struct {
	Samples   int     `json:"samples"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// ModelRecord is one row of the append-only model-version log. Payload and
// metrics are stored as JSON so a snapshot is fully self-contained.
type ModelRecord struct {
	ID             int64  `json:"id"`
	ModelName      string `json:"model_name"`
	ModelVersion   string `json:"model_version"`
	PayloadJSON    string `json:"model_payload_json"`
	MetricsJSON    string `json:"metrics_json"`
	TrainedSamples int    `json:"trained_samples"`
	CreatedAt      string `json:"created_at"`
}

// TrainingReport is returned by the train operation.
type TrainingReport struct {
	ModelName      string          `json:"model_name"`
	ModelVersion   string          `json:"model_version"`
	TrainedSamples int             `json:"trained_samples"`
	Metrics        TrainingMetrics `json:"metrics"`
}
