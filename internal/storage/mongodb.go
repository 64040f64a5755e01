package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cyderes/dog-ratings-pipeline/internal/config"
	"github.com/cyderes/dog-ratings-pipeline/internal/models"
)

// MongoDBStorage implements Storage interface using MongoDB
type MongoDBStorage struct {
	client  *mongo.Client
	records *mongo.Collection
	status  *mongo.Collection
}

// NewMongoDBStorage connects to cfg.MongoDBURI and indexes the record
// collection by tweet id.
func NewMongoDBStorage(cfg config.StorageConfig) (*MongoDBStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDBURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(cfg.MongoDatabase)
	m := &MongoDBStorage{
		client:  client,
		records: db.Collection(cfg.TableName),
		status:  db.Collection(cfg.TableName + "_status"),
	}

	_, err = m.records.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tweet_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create tweet_id index: %w", err)
	}
	return m, nil
}

// StoreRecords upserts records by tweet id, then removes the documents of
// ids no longer present. A failed write leaves the earlier records readable.
func (m *MongoDBStorage) StoreRecords(ctx context.Context, records []models.MasterRecord) error {
	if len(records) > 0 {
		_, err := m.records.BulkWrite(ctx, replaceModels(records), options.BulkWrite().SetOrdered(false))
		if err != nil {
			return fmt.Errorf("failed to store records: %w", err)
		}
	}
	if _, err := m.records.DeleteMany(ctx, staleFilter(records)); err != nil {
		return fmt.Errorf("failed to delete stale records: %w", err)
	}
	return nil
}

func replaceModels(records []models.MasterRecord) []mongo.WriteModel {
	out := make([]mongo.WriteModel, len(records))
	for i, r := range records {
		out[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "tweet_id", Value: r.TweetID}}).
			SetReplacement(r).
			SetUpsert(true)
	}
	return out
}

// staleFilter matches every document whose tweet id is not in records.
func staleFilter(records []models.MasterRecord) bson.D {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.TweetID
	}
	return bson.D{{Key: "tweet_id", Value: bson.D{{Key: "$nin", Value: ids}}}}
}

// GetRecords returns one page of records in numeric tweet id order
func (m *MongoDBStorage) GetRecords(ctx context.Context, limit int, offset int) ([]models.MasterRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "tweet_id", Value: 1}}).
		SetCollation(&options.Collation{Locale: "en", NumericOrdering: true}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := m.records.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	records := []models.MasterRecord{}
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

// GetRecordByID returns nil when the id is not stored
func (m *MongoDBStorage) GetRecordByID(ctx context.Context, tweetID string) (*models.MasterRecord, error) {
	var rec models.MasterRecord
	err := m.records.FindOne(ctx, bson.D{{Key: "tweet_id", Value: tweetID}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", tweetID, err)
	}
	return &rec, nil
}

func (m *MongoDBStorage) UpdateRunStatus(ctx context.Context, status models.RunStatus) error {
	_, err := m.status.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: statusKey}},
		status,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to store run status: %w", err)
	}
	return nil
}

func (m *MongoDBStorage) GetRunStatus(ctx context.Context) (*models.RunStatus, error) {
	var status models.RunStatus
	err := m.status.FindOne(ctx, bson.D{{Key: "_id", Value: statusKey}}).Decode(&status)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return neverRun(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run status: %w", err)
	}
	return &status, nil
}

// Close disconnects the client
func (m *MongoDBStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
