package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"github.com/cyderes/dog-ratings-pipeline/internal/config"
	"github.com/cyderes/dog-ratings-pipeline/internal/models"
)

const (
	// batchWriteLimit is the DynamoDB cap on requests per BatchWriteItem call.
	batchWriteLimit = 25
	// unprocessedAttempts bounds how often one batch is resent while
	// DynamoDB keeps returning UnprocessedItems.
	unprocessedAttempts = 8
)

// DynamoDBStorage implements Storage interface using AWS DynamoDB
type DynamoDBStorage struct {
	client      dynamodbiface.DynamoDBAPI
	tableName   string
	statusTable string
	backoff     func(attempt int) time.Duration
}

// NewDynamoDBStorage creates a new DynamoDB storage instance
func NewDynamoDBStorage(cfg config.StorageConfig) (*DynamoDBStorage, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}

	// For local testing with DynamoDB Local
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	d := &DynamoDBStorage{
		client:      dynamodb.New(sess),
		tableName:   cfg.TableName,
		statusTable: cfg.TableName + "_status",
		backoff:     unprocessedBackoff,
	}

	if err := d.ensureTable(d.tableName, "tweet_id"); err != nil {
		return nil, fmt.Errorf("failed to ensure table exists: %w", err)
	}
	if err := d.ensureTable(d.statusTable, "id"); err != nil {
		return nil, fmt.Errorf("failed to ensure status table exists: %w", err)
	}
	return d, nil
}

// ensureTable creates a table keyed by a string hash key if it doesn't exist
func (d *DynamoDBStorage) ensureTable(name, key string) error {
	_, err := d.client.DescribeTable(&dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	})
	if err == nil {
		return nil
	}

	_, err = d.client.CreateTable(&dynamodb.CreateTableInput{
		TableName: aws.String(name),
		KeySchema: []*dynamodb.KeySchemaElement{
			{AttributeName: aws.String(key), KeyType: aws.String("HASH")},
		},
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{AttributeName: aws.String(key), AttributeType: aws.String("S")},
		},
		BillingMode: aws.String("PAY_PER_REQUEST"),
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	return d.client.WaitUntilTableExists(&dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	})
}

// StoreRecords writes records in batches, then deletes the keys a previous
// run left behind. A failed write leaves the earlier records readable.
func (d *DynamoDBStorage) StoreRecords(ctx context.Context, records []models.MasterRecord) error {
	keep := make(map[string]bool, len(records))
	var puts []*dynamodb.WriteRequest
	for _, r := range records {
		item, err := marshalRecord(r)
		if err != nil {
			return err
		}
		keep[r.TweetID] = true
		puts = append(puts, &dynamodb.WriteRequest{PutRequest: &dynamodb.PutRequest{Item: item}})
	}

	var deletes []*dynamodb.WriteRequest
	err := d.client.ScanPagesWithContext(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(d.tableName),
		ProjectionExpression: aws.String("tweet_id"),
	}, func(out *dynamodb.ScanOutput, last bool) bool {
		for _, item := range out.Items {
			if id := item["tweet_id"]; id != nil && !keep[aws.StringValue(id.S)] {
				deletes = append(deletes, &dynamodb.WriteRequest{
					DeleteRequest: &dynamodb.DeleteRequest{Key: map[string]*dynamodb.AttributeValue{"tweet_id": id}},
				})
			}
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to scan stored records: %w", err)
	}

	if err := d.batchWrite(ctx, puts); err != nil {
		return fmt.Errorf("failed to store records: %w", err)
	}
	if err := d.batchWrite(ctx, deletes); err != nil {
		return fmt.Errorf("failed to delete stale records: %w", err)
	}
	return nil
}

// batchWrite sends requests in chunks, resending unprocessed items with a
// growing delay.
func (d *DynamoDBStorage) batchWrite(ctx context.Context, requests []*dynamodb.WriteRequest) error {
	for start := 0; start < len(requests); start += batchWriteLimit {
		end := min(start+batchWriteLimit, len(requests))
		pending := map[string][]*dynamodb.WriteRequest{d.tableName: requests[start:end]}
		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt == unprocessedAttempts {
				return fmt.Errorf("%d items still unprocessed after %d attempts", len(pending[d.tableName]), attempt)
			}
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(d.backoff(attempt)):
				}
			}
			out, err := d.client.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return err
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}

func unprocessedBackoff(attempt int) time.Duration {
	return min(50*time.Millisecond<<attempt, 5*time.Second)
}

// GetRecords scans the whole table and pages over it in tweet id order
func (d *DynamoDBStorage) GetRecords(ctx context.Context, limit int, offset int) ([]models.MasterRecord, error) {
	var all []models.MasterRecord
	var decodeErr error
	err := d.client.ScanPagesWithContext(ctx, &dynamodb.ScanInput{
		TableName: aws.String(d.tableName),
	}, func(out *dynamodb.ScanOutput, last bool) bool {
		var batch []models.MasterRecord
		if decodeErr = dynamodbattribute.UnmarshalListOfMaps(out.Items, &batch); decodeErr != nil {
			return false
		}
		all = append(all, batch...)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to unmarshal records: %w", decodeErr)
	}

	sortByID(all)
	return page(all, limit, offset), nil
}

// GetRecordByID retrieves a specific record by tweet id
func (d *DynamoDBStorage) GetRecordByID(ctx context.Context, tweetID string) (*models.MasterRecord, error) {
	result, err := d.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"tweet_id": {S: aws.String(tweetID)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", tweetID, err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var rec models.MasterRecord
	if err := dynamodbattribute.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

// UpdateRunStatus updates the run status
func (d *DynamoDBStorage) UpdateRunStatus(ctx context.Context, status models.RunStatus) error {
	item, err := dynamodbattribute.MarshalMap(status)
	if err != nil {
		return fmt.Errorf("failed to marshal run status: %w", err)
	}
	item["id"] = &dynamodb.AttributeValue{S: aws.String(statusKey)}

	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.statusTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to store run status: %w", err)
	}
	return nil
}

// GetRunStatus retrieves the latest run status
func (d *DynamoDBStorage) GetRunStatus(ctx context.Context) (*models.RunStatus, error) {
	result, err := d.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.statusTable),
		Key: map[string]*dynamodb.AttributeValue{
			"id": {S: aws.String(statusKey)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get run status: %w", err)
	}
	if result.Item == nil {
		return neverRun(), nil
	}

	var status models.RunStatus
	if err := dynamodbattribute.UnmarshalMap(result.Item, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run status: %w", err)
	}
	return &status, nil
}

// Close closes the DynamoDB connection
func (d *DynamoDBStorage) Close() error {
	// DynamoDB client doesn't need explicit closing
	return nil
}

func marshalRecord(r models.MasterRecord) (map[string]*dynamodb.AttributeValue, error) {
	item, err := dynamodbattribute.MarshalMap(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record %s: %w", r.TweetID, err)
	}
	return item, nil
}

func sortByID(records []models.MasterRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].TweetID, records[j].TweetID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}
