package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/cyderes/dog-ratings-pipeline/internal/cleaning"
	"github.com/cyderes/dog-ratings-pipeline/internal/config"
	"github.com/cyderes/dog-ratings-pipeline/internal/faults"
	"github.com/cyderes/dog-ratings-pipeline/internal/models"
	"github.com/cyderes/dog-ratings-pipeline/internal/output"
	"github.com/cyderes/dog-ratings-pipeline/internal/report"
	"github.com/cyderes/dog-ratings-pipeline/internal/rules"
	"github.com/cyderes/dog-ratings-pipeline/internal/storage"
)

// Service runs the pipeline: acquire, clean, merge, emit and store.
type Service struct {
	config     *config.Config
	storage    storage.Storage
	rules      *rules.Set
	logger     *logrus.Logger
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
}

// RunResult is everything one successful run produced.
type RunResult struct {
	RunID  string
	Raw    models.RawTables
	Tables *cleaning.Result
	Report *report.Report
}

// NewService creates a new pipeline service using the embedded rating rules
func NewService(cfg *config.Config, store storage.Storage, logger *logrus.Logger) *Service {
	return &Service{
		config:  cfg,
		storage: store,
		rules:   rules.Default(),
		logger:  logger,
		httpClient: &http.Client{
			Timeout: cfg.Ingestion.Timeout,
		},
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
	}
}

// Run executes the pipeline once. The run status is stored before and after
// the run; a failed run leaves the previously stored records in place.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	status := models.RunStatus{
		RunID:     ulid.Make().String(),
		StartedAt: time.Now().UTC(),
		Status:    models.StatusRunning,
	}
	log := s.logger.WithField("run_id", status.RunID)
	s.updateStatus(ctx, log, status)

	log.WithField("rules_version", s.rules.Version()).Info("Pipeline run started")
	result, err := s.run(ctx, log, &status)

	status.FinishedAt = time.Now().UTC()
	if err != nil {
		status.Status = models.StatusFailure
		status.ErrorMessage = err.Error()
		s.updateStatus(ctx, log, status)

		entry := log.WithError(err)
		if kind := faults.Kind(err); kind != nil {
			entry = entry.WithField("fault", kind.Error())
		}
		entry.Error("Pipeline run failed")
		return nil, err
	}

	status.Status = models.StatusSuccess
	s.updateStatus(ctx, log, status)
	log.WithFields(logrus.Fields{
		"records":  status.RecordsMerged,
		"duration": status.FinishedAt.Sub(status.StartedAt),
	}).Info("Pipeline run finished")

	result.RunID = status.RunID
	return result, nil
}

func (s *Service) run(ctx context.Context, log *logrus.Entry, status *models.RunStatus) (*RunResult, error) {
	raw, err := s.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	status.ArchiveRows = len(raw.Archive)
	status.ImageRows = len(raw.Predictions)
	status.MetricsRows = len(raw.Metrics)
	log.WithFields(logrus.Fields{
		"archive_rows":    status.ArchiveRows,
		"prediction_rows": status.ImageRows,
		"metrics_rows":    status.MetricsRows,
	}).Info("Sources acquired")

	tables, err := cleaning.Process(raw, s.rules)
	if err != nil {
		return nil, err
	}
	status.RecordsMerged = len(tables.Records)
	s.logStats(log, tables)

	if err := s.emit(log, tables.Records); err != nil {
		return nil, err
	}

	rep, err := report.Build(tables.Records, s.config.Report.MinBreedCount)
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}
	if path := s.config.Output.ReportPath; path != "" {
		if err := report.WriteJSONFile(path, rep); err != nil {
			return nil, fmt.Errorf("writing report: %w", err)
		}
		log.WithField("path", path).Info("Report written")
	}

	if err := s.storage.StoreRecords(ctx, tables.Records); err != nil {
		return nil, fmt.Errorf("failed to store records: %w", err)
	}

	return &RunResult{Raw: raw, Tables: tables, Report: rep}, nil
}

func (s *Service) emit(log *logrus.Entry, records []models.MasterRecord) error {
	path := s.config.Output.CSVPath
	if err := output.WriteCSVFile(path, records); err != nil {
		return fmt.Errorf("writing master table: %w", err)
	}
	log.WithField("path", path).Info("Master table written")

	if path := s.config.Output.ParquetPath; path != "" {
		if err := output.WriteParquetFile(path, records); err != nil {
			return fmt.Errorf("writing parquet: %w", err)
		}
		log.WithField("path", path).Info("Parquet copy written")
	}
	return nil
}

func (s *Service) logStats(log *logrus.Entry, t *cleaning.Result) {
	ps, is := t.PostStats, t.ImageStats
	log.WithFields(logrus.Fields{
		"input":       ps.Input,
		"reshares":    ps.Reshares,
		"denylisted":  ps.Denylisted,
		"corrected":   ps.Corrected,
		"multi_stage": ps.MultiStage,
		"output":      ps.Output,
	}).Info("Posts cleaned")
	if ps.MultiStage > 0 {
		log.WithField("rows", ps.MultiStage).Warn("Posts with more than one life stage resolved by precedence")
	}
	log.WithFields(logrus.Fields{
		"input":          is.Input,
		"duplicate_urls": is.DuplicateURLs,
		"no_breed":       is.NoBreed,
		"output":         is.Output,
	}).Info("Image predictions cleaned")
	log.WithField("records", len(t.Records)).Info("Tables merged")
}

// updateStatus stores status. Failing to record status never fails a run.
func (s *Service) updateStatus(ctx context.Context, log *logrus.Entry, status models.RunStatus) {
	if err := s.storage.UpdateRunStatus(ctx, status); err != nil {
		log.WithError(err).Warn("Failed to update run status")
	}
}

// fetchPredictions downloads the prediction table with retry logic
func (s *Service) fetchPredictions(ctx context.Context) ([]models.PredictionRow, error) {
	var lastErr error

	for attempt := 0; attempt < s.config.Ingestion.RetryCount; attempt++ {
		rows, err := s.fetchPredictionsOnce(ctx)
		if err == nil {
			return rows, nil
		}

		lastErr = err
		if attempt < s.config.Ingestion.RetryCount-1 {
			s.logger.WithError(err).WithField("attempt", attempt+1).Warn("Prediction download failed, retrying")
			select {
			case <-ctx.Done():
				return nil, faults.Acquisition(ctx.Err(), "downloading image predictions")
			case <-time.After(s.backoff(attempt)):
			}
		}
	}

	return nil, faults.Acquisition(lastErr, "downloading image predictions failed after %d attempts", s.config.Ingestion.RetryCount)
}

// fetchPredictionsOnce performs a single download attempt
func (s *Service) fetchPredictionsOnce(ctx context.Context) ([]models.PredictionRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.Sources.PredictionsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return decodePredictions(resp.Body)
}
