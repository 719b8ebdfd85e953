package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"adscope-lab/internal/config"
	"adscope-lab/internal/domain/models"
	"adscope-lab/internal/domain/services"
	"adscope-lab/internal/infrastructure/database/repository"
	"adscope-lab/pkg/logger"
)

// stixSourceName identifies this engine in exported bundles.
const stixSourceName = "adscope-android-triage"

// Pipeline wires extraction, scoring, correlation and persistence into the
// operations exposed to callers. Operations are synchronous; callers may
// invoke them concurrently from independent goroutines.
type Pipeline struct {
	cfg    config.IntelConfig
	logger *logger.Logger

	scans     *repository.ScanRepository
	iocs      *repository.IOCRepository
	baselines *repository.BaselineRepository
	labels    *repository.LabelRepository
	modelRepo *repository.ModelRepository

	extractor     *services.FeatureExtractor
	riskEngine    *services.RiskEngine
	anomaly       *services.AnomalyDetector
	matcher       *services.IOCMatcher
	attacks       *services.AttackMapper
	fingerprinter *services.Fingerprinter
	correlator    *services.CampaignCorrelator
	stix          *services.STIXExporter
	dashboard     *services.DashboardRenderer

	// mu guards the active model; training replaces it while scans read it.
	mu      sync.RWMutex
	mlModel *services.SupervisedRiskModel
}

// New builds a pipeline over an open database. The newest stored model
// snapshot, if any, becomes the active scoring model.
func New(ctx context.Context, db *sql.DB, cfg config.IntelConfig, log *logger.Logger) (*Pipeline, error) {
	p := &Pipeline{
		cfg:    cfg,
		logger: log.WithComponent("pipeline"),

		scans:     repository.NewScanRepository(db, log),
		iocs:      repository.NewIOCRepository(db, log),
		baselines: repository.NewBaselineRepository(db, log),
		labels:    repository.NewLabelRepository(db, log),
		modelRepo: repository.NewModelRepository(db, log),

		extractor:     services.NewFeatureExtractor(),
		riskEngine:    services.NewRiskEngine(log),
		anomaly:       services.NewAnomalyDetector(),
		matcher:       services.NewIOCMatcher(log),
		attacks:       services.NewAttackMapper(),
		fingerprinter: services.NewFingerprinter(),
		correlator:    services.NewCampaignCorrelator(log),
		stix:          services.NewSTIXExporter(stixSourceName, log),
		dashboard:     services.NewDashboardRenderer(),
	}

	if err := p.loadLatestModel(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) loadLatestModel(ctx context.Context) error {
	rec, err := p.modelRepo.Latest(ctx, services.ModelName)
	if err != nil {
		return fmt.Errorf("failed to load latest model: %w", err)
	}
	if rec == nil {
		return nil
	}

	model, err := services.ModelFromPayload(rec.PayloadJSON)
	if err != nil {
		// A corrupt stored snapshot must not brick the pipeline; scans fall
		// back to rule-only scoring.
		p.logger.Warn().Err(err).Str("version", rec.ModelVersion).
			Msg("stored model snapshot unusable, continuing without ML scoring")
		return nil
	}

	p.mu.Lock()
	p.mlModel = model
	p.mu.Unlock()

	p.logger.Info().Str("version", model.Version).Msg("active model loaded")
	return nil
}

// ScanPackage runs the full triage for one already-collected snapshot and
// persists the fused result. The pipeline never talks to device tooling;
// snapshot collection is the caller's concern.
func (p *Pipeline) ScanPackage(ctx context.Context, deviceID, packageName string, snapshot models.DeviceSnapshot) (*models.ScanResult, error) {
	features := p.extractor.Extract(packageName, snapshot)
	summary := p.extractor.SummarizeComponents(snapshot.DumpsysPackage)
	permissions := p.extractor.Permissions(snapshot.DumpsysPackage)
	fingerprint := p.fingerprinter.Fingerprint(packageName, permissions, summary, snapshot)

	activeIOCs, err := p.iocs.Active(ctx)
	if err != nil {
		return nil, err
	}
	iocMatches := p.matcher.Match(snapshot, activeIOCs)
	techniques := p.attacks.Infer(features, snapshot.DumpsysPackage)

	ruleScore, reasons := p.riskEngine.Score(features, iocMatches)

	baseline, err := p.baselines.Load(ctx)
	if err != nil {
		return nil, err
	}
	anomaly := p.anomaly.Evaluate(features, baseline)

	result := &models.ScanResult{
		DeviceID:             deviceID,
		PackageName:          packageName,
		TimestampUTC:         time.Now().UTC().Format(time.RFC3339),
		Features:             features,
		RiskScore:            ruleScore,
		ComponentFingerprint: fingerprint,
		Reasons:              reasons,
		IOCMatches:           iocMatches,
		AttackTechniques:     techniques,
	}
	p.fuseScores(result, anomaly)

	stored := models.StoredSnapshot{
		DeviceSnapshot:       snapshot,
		ComponentSummary:     &summary,
		ComponentFingerprint: fingerprint,
		AttackTechniques:     techniques,
	}
	scanID, err := p.scans.Insert(ctx, result, stored)
	if err != nil {
		return nil, err
	}
	result.ScanID = scanID

	p.logger.Info().
		Str("device", deviceID).
		Str("package", packageName).
		Float64("risk_score", result.RiskScore).
		Str("risk_level", string(result.RiskLevel)).
		Int64("scan_id", scanID).
		Msg("scan completed")

	return result, nil
}

// fuseScores blends the rule score with the ML probability when a model is
// active, applies the anomaly bump and recomputes the level.
func (p *Pipeline) fuseScores(result *models.ScanResult, anomaly *services.AnomalyResult) {
	p.mu.RLock()
	model := p.mlModel
	p.mu.RUnlock()

	score := result.RiskScore
	if model != nil {
		mlScore := round2(model.PredictProba(result.Features) * 100.0)
		score = round2(math.Min(100.0, 0.65*score+0.35*mlScore))
		result.MLRiskScore = &mlScore
		result.MLModelVersion = model.Version
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("ML model (%s) suggests risk %g", model.Version, mlScore))
	}

	if len(result.AttackTechniques) > 0 {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("ATT&CK Mobile mapping inferred: %d techniques", len(result.AttackTechniques)))
	}

	if anomaly != nil {
		result.AnomalyScore = &anomaly.Score
		result.AnomalyZMax = &anomaly.ZMax
		if anomaly.Score >= 70 {
			score = math.Min(100.0, round2(score+12.0))
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("High statistical anomaly (score=%g, zmax=%g)", anomaly.Score, anomaly.ZMax))
		}
	}

	result.RiskScore = score
	result.RiskLevel = models.ScoreToLevel(score)
}

// SyncIOCsFromFile upserts every signature from the JSON catalogue at path
// (the configured default when path is empty). A missing file is seeded
// with example local signatures first.
func (p *Pipeline) SyncIOCsFromFile(ctx context.Context, path string) (int, error) {
	if path == "" {
		path = p.cfg.IOCFile
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeSeedIOCFile(path); err != nil {
			return 0, err
		}
		p.logger.Info().Str("path", path).Msg("seeded default IOC catalogue")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read ioc file: %w", err)
	}

	var file models.IOCFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return 0, fmt.Errorf("failed to decode ioc file: %w", err)
	}

	return p.iocs.Upsert(ctx, file.IOCs)
}

// RebuildBaseline recomputes the anomaly baseline from up to maxRows recent
// feature vectors and returns the sample count used (0 when no history).
func (p *Pipeline) RebuildBaseline(ctx context.Context, maxRows int) (int, error) {
	if maxRows <= 0 {
		maxRows = p.cfg.BaselineMaxRows
	}

	vectors, err := p.scans.FeatureHistory(ctx, maxRows)
	if err != nil {
		return 0, err
	}
	return p.baselines.Rebuild(ctx, vectors)
}

// LabelScan records an analyst verdict for a scan id.
func (p *Pipeline) LabelScan(ctx context.Context, scanID int64, label int, source string) error {
	return p.labels.Set(ctx, scanID, label, source)
}

// LabelLatestScanForPackage labels the newest scan of a package and returns
// the affected scan id.
func (p *Pipeline) LabelLatestScanForPackage(ctx context.Context, packageName string, label int, source string) (int64, error) {
	scanID, err := p.scans.LatestScanIDForPackage(ctx, packageName)
	if err != nil {
		return 0, err
	}
	if err := p.labels.Set(ctx, scanID, label, source); err != nil {
		return 0, err
	}
	return scanID, nil
}

// RecentScans returns a recency-ordered lightweight view of the scan log.
func (p *Pipeline) RecentScans(ctx context.Context, limit int) ([]models.RecentScan, error) {
	if limit <= 0 {
		limit = 20
	}
	return p.scans.RecentScans(ctx, limit)
}

// TrainSupervisedModel fits a fresh model on the labeled history, persists
// the snapshot and makes it the active scoring model. Fails without mutating
// state when fewer than minSamples labeled rows exist.
func (p *Pipeline) TrainSupervisedModel(ctx context.Context, minSamples, maxRows int) (*models.TrainingReport, error) {
	if minSamples <= 0 {
		minSamples = p.cfg.TrainingMinSamples
	}
	if maxRows <= 0 {
		maxRows = p.cfg.TrainingMaxRows
	}

	features, labels, err := p.scans.LabeledFeatureRows(ctx, maxRows)
	if err != nil {
		return nil, err
	}
	if len(features) < minSamples {
		return nil, fmt.Errorf("%w: %d labeled rows, minimum required %d",
			models.ErrInsufficientSamples, len(features), minSamples)
	}

	rows := make([]services.LabeledVector, len(features))
	for i := range features {
		rows[i] = services.LabeledVector{Features: features[i], Label: labels[i]}
	}

	model := services.NewSupervisedRiskModel()
	metrics, err := model.Fit(rows)
	if err != nil {
		return nil, err
	}

	payloadJSON, err := model.MarshalPayload()
	if err != nil {
		return nil, err
	}
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal training metrics: %w", err)
	}

	if _, err := p.modelRepo.Store(ctx, models.ModelRecord{
		ModelName:      services.ModelName,
		ModelVersion:   model.Version,
		PayloadJSON:    payloadJSON,
		MetricsJSON:    string(metricsJSON),
		TrainedSamples: len(rows),
	}); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.mlModel = model
	p.mu.Unlock()

	return &models.TrainingReport{
		ModelName:      services.ModelName,
		ModelVersion:   model.Version,
		TrainedSamples: len(rows),
		Metrics:        metrics,
	}, nil
}

// AnalyzeCampaigns correlates up to limit recent scans into campaign
// clusters.
func (p *Pipeline) AnalyzeCampaigns(ctx context.Context, limit, minClusterSize int) (*models.CampaignSummary, error) {
	if limit <= 0 {
		limit = p.cfg.CampaignLimit
	}
	if minClusterSize <= 0 {
		minClusterSize = p.cfg.MinClusterSize
	}

	records, err := p.scans.ScanRecords(ctx, limit)
	if err != nil {
		return nil, err
	}
	summary := p.correlator.Summarize(records, minClusterSize)
	return &summary, nil
}

// ExportSTIXLite builds a STIX 2.1 bundle from stored scans. When scanIDs is
// non-empty only those scans are exported; otherwise up to limit recent
// scans. A non-empty outputPath also writes the bundle as indented JSON.
func (p *Pipeline) ExportSTIXLite(ctx context.Context, outputPath string, limit int, scanIDs []int64) (*models.STIXBundle, error) {
	if limit <= 0 {
		limit = p.cfg.ExportLimit
	}

	var records []models.ScanRecord
	var err error
	if len(scanIDs) > 0 {
		records, err = p.scans.ScanRecordsByIDs(ctx, scanIDs)
	} else {
		records, err = p.scans.ScanRecords(ctx, limit)
	}
	if err != nil {
		return nil, err
	}

	bundle := p.stix.BuildBundle(records)
	if outputPath != "" {
		if err := writeJSONFile(outputPath, bundle); err != nil {
			return nil, err
		}
	}
	return &bundle, nil
}

// ExportCampaignDashboard writes the Markdown campaign report plus a sibling
// .json summary and reports where both landed.
func (p *Pipeline) ExportCampaignDashboard(ctx context.Context, outputPath string, limit, minClusterSize, topN int) (*models.DashboardExport, error) {
	if topN <= 0 {
		topN = p.cfg.DashboardTopN
	}

	summary, err := p.AnalyzeCampaigns(ctx, limit, minClusterSize)
	if err != nil {
		return nil, err
	}

	markdown := p.dashboard.RenderMarkdown(*summary, topN)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dashboard directory: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(markdown), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write dashboard markdown: %w", err)
	}

	jsonPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".json"
	if err := writeJSONFile(jsonPath, summary); err != nil {
		return nil, err
	}

	return &models.DashboardExport{
		GeneratedAt:    summary.GeneratedAt,
		ClustersCount:  len(summary.Clusters),
		TotalScans:     summary.TotalScans,
		MarkdownOutput: outputPath,
		JSONOutput:     jsonPath,
	}, nil
}

func writeSeedIOCFile(path string) error {
	seed := models.IOCFile{IOCs: []models.IOCSignature{
		{Type: models.IOCTypeKeyword, Value: "com.fake.system.updater", Severity: 9, Confidence: 0.9, Source: "local_seed", Active: true},
		{Type: models.IOCTypeKeyword, Value: "silentinstall", Severity: 8, Confidence: 0.8, Source: "local_seed", Active: true},
		{Type: models.IOCTypeRegex, Value: `android\.permission\.BIND_ACCESSIBILITY_SERVICE`, Severity: 8, Confidence: 0.85, Source: "local_seed", Active: true},
	}}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create ioc directory: %w", err)
	}
	return writeJSONFile(path, seed)
}

func writeJSONFile(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

