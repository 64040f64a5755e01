package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyderes/dog-ratings-pipeline/internal/models"
)

// fakeDynamo answers BatchWriteItem from a queue of canned replies and
// scans a fixed set of stored keys.
type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI
	stored  []string
	replies []func(*dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error)
	batches [][]*dynamodb.WriteRequest
}

func (f *fakeDynamo) BatchWriteItemWithContext(_ aws.Context, in *dynamodb.BatchWriteItemInput, _ ...request.Option) (*dynamodb.BatchWriteItemOutput, error) {
	for _, reqs := range in.RequestItems {
		f.batches = append(f.batches, reqs)
	}
	if len(f.replies) == 0 {
		return &dynamodb.BatchWriteItemOutput{}, nil
	}
	next := f.replies[0]
	f.replies = f.replies[1:]
	return next(in)
}

func (f *fakeDynamo) ScanPagesWithContext(_ aws.Context, _ *dynamodb.ScanInput, fn func(*dynamodb.ScanOutput, bool) bool, _ ...request.Option) error {
	out := &dynamodb.ScanOutput{}
	for _, id := range f.stored {
		out.Items = append(out.Items, map[string]*dynamodb.AttributeValue{"tweet_id": {S: aws.String(id)}})
	}
	fn(out, true)
	return nil
}

func newFakeDynamoStorage(f *fakeDynamo, delays *[]int) *DynamoDBStorage {
	return &DynamoDBStorage{
		client:    f,
		tableName: "records",
		backoff: func(attempt int) time.Duration {
			*delays = append(*delays, attempt)
			return time.Millisecond
		},
	}
}

func TestDynamoDBStorage_StoreRecordsWritesBeforeDeleting(t *testing.T) {
	f := &fakeDynamo{stored: []string{"1", "9"}}
	var delays []int
	d := newFakeDynamoStorage(f, &delays)

	err := d.StoreRecords(context.Background(), []models.MasterRecord{record("1"), record("2")})
	require.NoError(t, err)

	require.Len(t, f.batches, 2)
	require.Len(t, f.batches[0], 2)
	assert.NotNil(t, f.batches[0][0].PutRequest)
	assert.NotNil(t, f.batches[0][1].PutRequest)
	require.Len(t, f.batches[1], 1)
	require.NotNil(t, f.batches[1][0].DeleteRequest)
	assert.Equal(t, "9", *f.batches[1][0].DeleteRequest.Key["tweet_id"].S)
}

func TestDynamoDBStorage_FailedWriteKeepsStaleRecords(t *testing.T) {
	f := &fakeDynamo{
		stored: []string{"9"},
		replies: []func(*dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error){
			func(*dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
				return nil, errors.New("throttled")
			},
		},
	}
	var delays []int
	d := newFakeDynamoStorage(f, &delays)

	err := d.StoreRecords(context.Background(), []models.MasterRecord{record("1")})
	assert.ErrorContains(t, err, "failed to store records: throttled")
	assert.Len(t, f.batches, 1, "no delete batch is sent after a failed write")
}

func TestDynamoDBStorage_ResendsUnprocessedItemsWithBackoff(t *testing.T) {
	unprocessed := func(in *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
		left := map[string][]*dynamodb.WriteRequest{}
		for table, reqs := range in.RequestItems {
			left[table] = reqs[:1]
		}
		return &dynamodb.BatchWriteItemOutput{UnprocessedItems: left}, nil
	}
	f := &fakeDynamo{
		replies: []func(*dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error){unprocessed, unprocessed},
	}
	var delays []int
	d := newFakeDynamoStorage(f, &delays)

	err := d.StoreRecords(context.Background(), []models.MasterRecord{record("1"), record("2")})
	require.NoError(t, err)
	assert.Len(t, f.batches, 3)
	assert.Len(t, f.batches[2], 1)
	assert.Equal(t, []int{1, 2}, delays)
}

func TestDynamoDBStorage_BatchWriteGivesUp(t *testing.T) {
	stuck := func(in *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
		return &dynamodb.BatchWriteItemOutput{UnprocessedItems: in.RequestItems}, nil
	}
	f := &fakeDynamo{}
	for i := 0; i < unprocessedAttempts; i++ {
		f.replies = append(f.replies, stuck)
	}
	var delays []int
	d := newFakeDynamoStorage(f, &delays)

	err := d.batchWrite(context.Background(), []*dynamodb.WriteRequest{{}})
	assert.EqualError(t, err, "1 items still unprocessed after 8 attempts")
	assert.Len(t, f.batches, unprocessedAttempts)
}

func TestDynamoDBStorage_BatchWriteStopsOnCancel(t *testing.T) {
	stuck := func(in *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
		return &dynamodb.BatchWriteItemOutput{UnprocessedItems: in.RequestItems}, nil
	}
	f := &fakeDynamo{replies: []func(*dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error){stuck}}
	d := &DynamoDBStorage{
		client:    f,
		tableName: "records",
		backoff:   func(int) time.Duration { return time.Hour },
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.batchWrite(ctx, []*dynamodb.WriteRequest{{}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.batches, 1)
}

func TestUnprocessedBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, unprocessedBackoff(1))
	assert.Equal(t, 400*time.Millisecond, unprocessedBackoff(3))
	assert.Equal(t, 5*time.Second, unprocessedBackoff(10))
}
