package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkboard-io/linkboard-api/internal/models"
	"github.com/linkboard-io/linkboard-api/internal/repository"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
	"github.com/linkboard-io/linkboard-api/pkg/export"
	"github.com/linkboard-io/linkboard-api/pkg/jobs"
	"github.com/linkboard-io/linkboard-api/pkg/storage"
)

// JobTypeAnalyticsExport tags queued export renders.
const JobTypeAnalyticsExport = "share.analytics_export"

// statsWindow bounds the per-day breakdown in stats responses.
const statsWindow = 30 * 24 * time.Hour

type accessEventReader interface {
	ListByShare(ctx context.Context, sharedViewID string, filter models.AccessEventFilter) ([]models.ShareAccessEvent, int, error)
	Stats(ctx context.Context, sharedViewID string, since time.Time) (*models.ShareAccessStats, error)
}

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
}

type exportFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// AnalyticsConfig tunes export behaviour.
type AnalyticsConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// AnalyticsService serves the owner-facing access history of shares:
// aggregate stats, raw event listings and rendered CSV/PDF exports
// with signed, expiring download links. Everything here reads the
// append-only event log; nothing on this surface can change what a
// visitor sees.
type AnalyticsService struct {
	shares     shareStore
	events     accessEventReader
	exportJobs exportJobStore
	queue      eventQueue
	storage    exportFileStorage
	csv        csvRenderer
	pdf        pdfRenderer
	signer     *storage.SignedURLSigner
	logger     *zap.Logger
	cfg        AnalyticsConfig
}

// NewAnalyticsService constructs an AnalyticsService. The queue may be
// nil, which disables export creation.
func NewAnalyticsService(
	shares shareStore,
	events accessEventReader,
	exportJobs exportJobStore,
	queue eventQueue,
	fileStore exportFileStorage,
	signer *storage.SignedURLSigner,
	cfg AnalyticsConfig,
	logger *zap.Logger,
	csv csvRenderer,
	pdf pdfRenderer,
) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &AnalyticsService{
		shares:     shares,
		events:     events,
		exportJobs: exportJobs,
		queue:      queue,
		storage:    fileStore,
		csv:        csv,
		pdf:        pdf,
		signer:     signer,
		logger:     logger,
		cfg:        cfg,
	}
}

// SetQueue attaches the export queue after construction. The queue's
// handler closes over this service, so the two cannot be built in one
// step.
func (s *AnalyticsService) SetQueue(queue eventQueue) {
	s.queue = queue
}

// Stats returns aggregate access statistics for one share.
func (s *AnalyticsService) Stats(ctx context.Context, shareID string) (*models.ShareAccessStats, error) {
	if _, err := s.loadShare(ctx, shareID); err != nil {
		return nil, err
	}
	since := time.Now().UTC().Add(-statsWindow)
	stats, err := s.events.Stats(ctx, shareID, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load access stats")
	}
	return stats, nil
}

// ListEvents returns the raw access log for one share, newest first.
func (s *AnalyticsService) ListEvents(ctx context.Context, shareID string, filter models.AccessEventFilter) ([]models.ShareAccessEvent, *models.Pagination, error) {
	if _, err := s.loadShare(ctx, shareID); err != nil {
		return nil, nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	events, total, err := s.events.ListByShare(ctx, shareID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list access events")
	}
	return events, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// CreateExport queues a CSV or PDF render of a share's access log and
// returns the pending job.
func (s *AnalyticsService) CreateExport(ctx context.Context, shareID string, format models.ExportFormat, createdBy string) (*models.ExportJob, error) {
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "exports are disabled")
	}
	if _, err := s.loadShare(ctx, shareID); err != nil {
		return nil, err
	}

	job := &models.ExportJob{
		ID:           uuid.NewString(),
		SharedViewID: shareID,
		Format:       format,
		Status:       models.ExportStatusQueued,
		CreatedBy:    createdBy,
	}
	if err := s.exportJobs.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeAnalyticsExport, Payload: job.ID}); err != nil {
		s.markFailed(context.Background(), job.ID, "queue unavailable")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}
	return job, nil
}

// GetExport returns an export job, attaching a fresh signed download
// link when the render has finished.
func (s *AnalyticsService) GetExport(ctx context.Context, jobID string) (*models.ExportJob, error) {
	job, err := s.exportJobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if job.Status == models.ExportStatusFinished && job.FilePath != nil && s.signer != nil {
		token, _, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			s.logger.Sugar().Warnw("failed to sign export download", "job_id", job.ID, "error", err)
		} else {
			url := fmt.Sprintf("%s/shares/exports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token)
			job.DownloadURL = &url
		}
	}
	return job, nil
}

// OpenDownload validates a signed download token and opens the stored
// file. The download route stays registered even when exports are
// disabled, so a missing signer or storage must deny rather than
// dereference nil.
func (s *AnalyticsService) OpenDownload(ctx context.Context, token string) (*models.ExportJob, *os.File, error) {
	if s.signer == nil || s.storage == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "export downloads are disabled")
	}
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "download link is invalid or expired")
	}
	job, err := s.exportJobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if job.Status != models.ExportStatusFinished || job.FilePath == nil || *job.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export file not available")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return job, file, nil
}

// Cleanup removes rendered files older than the configured TTL.
func (s *AnalyticsService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

// ExportHandler returns the queue handler that renders queued exports.
func (s *AnalyticsService) ExportHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		jobID, ok := job.Payload.(string)
		if !ok {
			s.logger.Sugar().Errorw("export job has unexpected payload", "job_id", job.ID)
			return nil
		}
		return s.process(ctx, jobID)
	}
}

func (s *AnalyticsService) process(ctx context.Context, jobID string) error {
	job, err := s.exportJobs.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", jobID, err)
	}
	processing := models.ExportStatusProcessing
	if err := s.exportJobs.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &processing}); err != nil {
		return fmt.Errorf("mark export job processing: %w", err)
	}

	relPath, err := s.render(ctx, job)
	if err != nil {
		s.markFailed(ctx, job.ID, err.Error())
		return err
	}

	finished := models.ExportStatusFinished
	now := time.Now().UTC()
	if err := s.exportJobs.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:     &finished,
		FilePath:   &relPath,
		FinishedAt: &now,
	}); err != nil {
		return fmt.Errorf("mark export job finished: %w", err)
	}
	s.logger.Sugar().Infow("export rendered", "job_id", job.ID, "format", job.Format, "path", relPath)
	return nil
}

func (s *AnalyticsService) render(ctx context.Context, job *models.ExportJob) (string, error) {
	share, err := s.loadShare(ctx, job.SharedViewID)
	if err != nil {
		return "", err
	}

	events, _, err := s.events.ListByShare(ctx, job.SharedViewID, models.AccessEventFilter{Page: 1, PageSize: 10000})
	if err != nil {
		return "", fmt.Errorf("load access events: %w", err)
	}

	dataset := buildAccessDataset(events)
	title := fmt.Sprintf("Access Report %s", share.Name)

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("access_%s_%s.%s", sanitizeFilename(share.UID), time.Now().UTC().Format("20060102_150405"), job.Format)
	return s.storage.Save(filename, payload)
}

func (s *AnalyticsService) markFailed(ctx context.Context, jobID, message string) {
	failed := models.ExportStatusFailed
	now := time.Now().UTC()
	if len(message) > 500 {
		message = message[:500]
	}
	if err := s.exportJobs.Update(ctx, jobID, repository.UpdateExportJobParams{
		Status:       &failed,
		ErrorMessage: &message,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Sugar().Errorw("failed to mark export job failed", "job_id", jobID, "error", err)
	}
}

func (s *AnalyticsService) loadShare(ctx context.Context, shareID string) (*models.SharedView, error) {
	share, err := s.shares.FindByID(ctx, shareID)
	if err != nil {
		return nil, appErrors.ErrShareNotFound
	}
	return share, nil
}

func buildAccessDataset(events []models.ShareAccessEvent) export.Dataset {
	rows := make([]map[string]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, map[string]string{
			"Session ID":  e.SessionID,
			"IP":          e.IP,
			"User Agent":  e.UserAgent,
			"Accessed At": e.AccessedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{
		Headers: []string{"Session ID", "IP", "User Agent", "Accessed At"},
		Rows:    rows,
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
