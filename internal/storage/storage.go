package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cyderes/dog-ratings-pipeline/internal/config"
	"github.com/cyderes/dog-ratings-pipeline/internal/models"
)

// connectTimeout bounds connection setup for the network backends.
const connectTimeout = 10 * time.Second

// statusKey identifies the single run status record in every backend.
const statusKey = "run_status"

// Storage interface defines the contract for persisting the master table.
// StoreRecords replaces whatever a previous run stored.
type Storage interface {
	StoreRecords(ctx context.Context, records []models.MasterRecord) error
	GetRecords(ctx context.Context, limit int, offset int) ([]models.MasterRecord, error)
	GetRecordByID(ctx context.Context, tweetID string) (*models.MasterRecord, error)
	UpdateRunStatus(ctx context.Context, status models.RunStatus) error
	GetRunStatus(ctx context.Context) (*models.RunStatus, error)
	Close() error
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryStorage(), nil
	case "dynamodb":
		return NewDynamoDBStorage(cfg)
	case "mongodb":
		return NewMongoDBStorage(cfg)
	case "postgresql":
		return NewPostgreSQLStorage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func neverRun() *models.RunStatus {
	return &models.RunStatus{Status: models.StatusNeverRun}
}

// page returns records[offset:offset+limit], clamped to the slice.
func page(records []models.MasterRecord, limit, offset int) []models.MasterRecord {
	if offset >= len(records) {
		return []models.MasterRecord{}
	}
	end := len(records)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]models.MasterRecord, end-offset)
	copy(out, records[offset:end])
	return out
}
