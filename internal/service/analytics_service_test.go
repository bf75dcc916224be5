package service

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkboard-io/linkboard-api/internal/models"
	"github.com/linkboard-io/linkboard-api/internal/repository"
	appErrors "github.com/linkboard-io/linkboard-api/pkg/errors"
	"github.com/linkboard-io/linkboard-api/pkg/storage"
)

type mockEventReader struct {
	events []models.ShareAccessEvent
	stats  *models.ShareAccessStats
}

func (m *mockEventReader) ListByShare(ctx context.Context, sharedViewID string, filter models.AccessEventFilter) ([]models.ShareAccessEvent, int, error) {
	return m.events, len(m.events), nil
}

func (m *mockEventReader) Stats(ctx context.Context, sharedViewID string, since time.Time) (*models.ShareAccessStats, error) {
	return m.stats, nil
}

type mockExportJobStore struct {
	jobsByID map[string]models.ExportJob
	updates  map[string][]repository.UpdateExportJobParams
}

func (m *mockExportJobStore) Create(ctx context.Context, job *models.ExportJob) error {
	if m.jobsByID == nil {
		m.jobsByID = make(map[string]models.ExportJob)
	}
	m.jobsByID[job.ID] = *job
	return nil
}

func (m *mockExportJobStore) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if j, ok := m.jobsByID[id]; ok {
		return &j, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExportJobStore) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	if m.updates == nil {
		m.updates = make(map[string][]repository.UpdateExportJobParams)
	}
	m.updates[id] = append(m.updates[id], params)
	j := m.jobsByID[id]
	if params.Status != nil {
		j.Status = *params.Status
	}
	if params.FilePath != nil {
		j.FilePath = params.FilePath
	}
	if params.ErrorMessage != nil {
		j.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		j.FinishedAt = params.FinishedAt
	}
	m.jobsByID[id] = j
	return nil
}

type mockFileStorage struct {
	saved map[string][]byte
}

func (m *mockFileStorage) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *mockFileStorage) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (m *mockFileStorage) Delete(filename string) error { return nil }

func (m *mockFileStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) { return nil, nil }

type analyticsFixture struct {
	svc     *AnalyticsService
	shares  *mockShareStore
	events  *mockEventReader
	exports *mockExportJobStore
	queue   *mockJobQueue
	files   *mockFileStorage
	signer  *storage.SignedURLSigner
}

func newAnalyticsFixture() *analyticsFixture {
	shares := &mockShareStore{shares: map[string]models.SharedView{
		"share-1": {ID: "share-1", UID: "uid-1", Name: "Team Links"},
	}}
	events := &mockEventReader{
		events: []models.ShareAccessEvent{
			{ID: "ev-1", SharedViewID: "share-1", SessionID: "sess-1", IP: "198.51.100.7", UserAgent: "curl/8", AccessedAt: time.Now()},
		},
		stats: &models.ShareAccessStats{TotalAccesses: 12, UniqueSessions: 3},
	}
	exports := &mockExportJobStore{}
	queue := &mockJobQueue{}
	files := &mockFileStorage{}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	svc := NewAnalyticsService(shares, events, exports, queue, files, signer, AnalyticsConfig{}, zap.NewNop(), nil, nil)
	return &analyticsFixture{svc: svc, shares: shares, events: events, exports: exports, queue: queue, files: files, signer: signer}
}

func TestAnalyticsStats(t *testing.T) {
	f := newAnalyticsFixture()

	stats, err := f.svc.Stats(context.Background(), "share-1")
	require.NoError(t, err)
	assert.Equal(t, 12, stats.TotalAccesses)

	_, err = f.svc.Stats(context.Background(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrShareNotFound))
}

func TestAnalyticsListEvents(t *testing.T) {
	f := newAnalyticsFixture()

	events, pagination, err := f.svc.ListEvents(context.Background(), "share-1", models.AccessEventFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 50, pagination.PageSize)
}

func TestAnalyticsCreateExport(t *testing.T) {
	f := newAnalyticsFixture()

	job, err := f.svc.CreateExport(context.Background(), "share-1", models.ExportFormatCSV, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, JobTypeAnalyticsExport, f.queue.jobs[0].Type)
	assert.Equal(t, job.ID, f.queue.jobs[0].Payload)
}

func TestAnalyticsCreateExportRejectsFormat(t *testing.T) {
	f := newAnalyticsFixture()

	_, err := f.svc.CreateExport(context.Background(), "share-1", models.ExportFormat("xlsx"), "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, f.queue.jobs)
}

func TestAnalyticsExportHandlerRendersCSV(t *testing.T) {
	f := newAnalyticsFixture()

	job, err := f.svc.CreateExport(context.Background(), "share-1", models.ExportFormatCSV, "user-1")
	require.NoError(t, err)

	handler := f.svc.ExportHandler()
	require.NoError(t, handler(context.Background(), f.queue.jobs[0]))

	stored, err := f.exports.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, stored.Status)
	require.NotNil(t, stored.FilePath)
	assert.True(t, strings.HasPrefix(*stored.FilePath, "access_uid-1_"))
	assert.NotNil(t, stored.FinishedAt)

	payload := f.files.saved[*stored.FilePath]
	assert.Contains(t, string(payload), "Session ID")
	assert.Contains(t, string(payload), "sess-1")
}

func TestAnalyticsGetExportSignsDownload(t *testing.T) {
	f := newAnalyticsFixture()

	job, err := f.svc.CreateExport(context.Background(), "share-1", models.ExportFormatCSV, "user-1")
	require.NoError(t, err)
	require.NoError(t, f.svc.ExportHandler()(context.Background(), f.queue.jobs[0]))

	fetched, err := f.svc.GetExport(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.DownloadURL)
	assert.True(t, strings.HasPrefix(*fetched.DownloadURL, "/api/v1/shares/exports/download/"))

	token := strings.TrimPrefix(*fetched.DownloadURL, "/api/v1/shares/exports/download/")
	jobID, relPath, _, err := f.signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, job.ID, jobID)
	assert.Equal(t, *fetched.FilePath, relPath)
}

func TestAnalyticsGetExportPendingHasNoDownload(t *testing.T) {
	f := newAnalyticsFixture()

	job, err := f.svc.CreateExport(context.Background(), "share-1", models.ExportFormatPDF, "user-1")
	require.NoError(t, err)

	fetched, err := f.svc.GetExport(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, fetched.Status)
	assert.Nil(t, fetched.DownloadURL)
}

func TestAnalyticsOpenDownloadRejectsBadToken(t *testing.T) {
	f := newAnalyticsFixture()

	_, _, err := f.svc.OpenDownload(context.Background(), "not-a-token")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAnalyticsOpenDownloadExportsDisabled(t *testing.T) {
	svc := NewAnalyticsService(&mockShareStore{}, &mockEventReader{}, &mockExportJobStore{}, nil, nil, nil, AnalyticsConfig{}, zap.NewNop(), nil, nil)

	_, _, err := svc.OpenDownload(context.Background(), "job1.1234567890.cGF0aA.deadbeef")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestBuildAccessDataset(t *testing.T) {
	at := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	dataset := buildAccessDataset([]models.ShareAccessEvent{
		{SessionID: "sess-1", IP: "198.51.100.7", UserAgent: "curl/8", AccessedAt: at},
	})
	assert.Equal(t, []string{"Session ID", "IP", "User Agent", "Accessed At"}, dataset.Headers)
	require.Len(t, dataset.Rows, 1)
	assert.Equal(t, "2026-05-04T12:00:00Z", dataset.Rows[0]["Accessed At"])
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "na", sanitizeFilename(""))
	assert.Equal(t, "a_b-c", sanitizeFilename("a b/c"))
	assert.Len(t, sanitizeFilename(strings.Repeat("x", 300)), 100)
}
