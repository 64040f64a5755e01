package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cyderes/dog-ratings-pipeline/internal/config"
	"github.com/cyderes/dog-ratings-pipeline/internal/models"
	"github.com/cyderes/dog-ratings-pipeline/internal/report"
	"github.com/cyderes/dog-ratings-pipeline/internal/storage"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) StoreRecords(ctx context.Context, records []models.MasterRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockStorage) GetRecords(ctx context.Context, limit int, offset int) ([]models.MasterRecord, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.MasterRecord), args.Error(1)
}

func (m *MockStorage) GetRecordByID(ctx context.Context, tweetID string) (*models.MasterRecord, error) {
	args := m.Called(ctx, tweetID)
	return args.Get(0).(*models.MasterRecord), args.Error(1)
}

func (m *MockStorage) UpdateRunStatus(ctx context.Context, status models.RunStatus) error {
	args := m.Called(ctx, status)
	return args.Error(0)
}

func (m *MockStorage) GetRunStatus(ctx context.Context) (*models.RunStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(*models.RunStatus), args.Error(1)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestServer(store storage.Storage, rep *report.Report) http.Handler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewServer(config.ServerConfig{Port: 0}, store, rep, logger).Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(new(MockStorage), nil), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestRecords_Pagination(t *testing.T) {
	store := storage.NewMemoryStorage()
	var records []models.MasterRecord
	for _, id := range []string{"1", "2", "3"} {
		records = append(records, models.MasterRecord{TweetID: id, Stage: models.StageUnknown})
	}
	require.NoError(t, store.StoreRecords(context.Background(), records))

	rec := get(t, newTestServer(store, nil), "/records?limit=2&offset=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Records []models.MasterRecord `json:"records"`
		Count   int                   `json:"count"`
		Limit   int                   `json:"limit"`
		Offset  int                   `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, 2, body.Limit)
	assert.Equal(t, 1, body.Offset)
	assert.Equal(t, "2", body.Records[0].TweetID)
}

func TestRecords_Defaults(t *testing.T) {
	store := new(MockStorage)
	store.On("GetRecords", mock.Anything, defaultLimit, 0).Return([]models.MasterRecord{}, nil)

	rec := get(t, newTestServer(store, nil), "/records")
	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestRecords_BadQuery(t *testing.T) {
	h := newTestServer(new(MockStorage), nil)
	for _, target := range []string{"/records?limit=0", "/records?limit=x", "/records?offset=-1"} {
		assert.Equal(t, http.StatusBadRequest, get(t, h, target).Code, target)
	}
}

func TestRecords_StorageError(t *testing.T) {
	store := new(MockStorage)
	store.On("GetRecords", mock.Anything, mock.Anything, mock.Anything).Return([]models.MasterRecord(nil), assert.AnError)

	rec := get(t, newTestServer(store, nil), "/records")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestRecordByID(t *testing.T) {
	breed := "pug"
	store := new(MockStorage)
	store.On("GetRecordByID", mock.Anything, "892420643555336193").
		Return(&models.MasterRecord{TweetID: "892420643555336193", Breed: &breed}, nil)
	store.On("GetRecordByID", mock.Anything, "1").Return((*models.MasterRecord)(nil), nil)
	h := newTestServer(store, nil)

	rec := get(t, h, "/records/892420643555336193")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"breed_of_dog":"pug"`)
	assert.Contains(t, rec.Body.String(), `"favorite_count":null`)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/records/1").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/records/8.9e17").Code)
	store.AssertExpectations(t)
}

func TestStatus(t *testing.T) {
	store := new(MockStorage)
	store.On("GetRunStatus", mock.Anything).Return(&models.RunStatus{RunID: "01J", Status: models.StatusSuccess}, nil)

	rec := get(t, newTestServer(store, nil), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"success"`)
}

func TestReport(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, newTestServer(new(MockStorage), nil), "/report").Code)

	rep, err := report.Build(nil, 15)
	require.NoError(t, err)
	rec := get(t, newTestServer(new(MockStorage), rep), "/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"min_breed_count":15`)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(new(MockStorage), nil)
	for _, target := range []string{"/records", "/records/1", "/status", "/report"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, target)
	}
}
