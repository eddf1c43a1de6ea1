package dynamo

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"retailetl/internal/storage"
	"retailetl/pkg/records"
)

// maxBatchWriteItems is the DynamoDB BatchWriteItem request ceiling.
const maxBatchWriteItems = 25

// API is the slice of the DynamoDB client the repository uses. Tests supply
// fakes; production passes *dynamodb.Client.
type API interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Repository implements storage.Repository against a single DynamoDB table.
type Repository struct {
	client      API
	table       string
	maxAttempts int
	baseBackoff time.Duration
}

var _ storage.Repository = (*Repository)(nil)

// Option adjusts repository behavior.
type Option func(*Repository)

// WithRetry overrides the unprocessed-item retry policy: up to attempts
// resubmissions per batch, sleeping base<<n with jitter between them.
func WithRetry(attempts int, base time.Duration) Option {
	return func(r *Repository) {
		if attempts > 0 {
			r.maxAttempts = attempts
		}
		if base > 0 {
			r.baseBackoff = base
		}
	}
}

// NewRepository builds a repository over the given table.
func NewRepository(client API, table string, opts ...Option) *Repository {
	r := &Repository{
		client:      client,
		table:       table,
		maxAttempts: 5,
		baseBackoff: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BulkPut writes records in BatchWriteItem groups of at most 25. Writes are
// plain puts keyed by the table's primary key, so re-running a load replaces
// rows instead of duplicating them. Unprocessed items returned by the service
// are resubmitted with exponential backoff; records that remain unprocessed
// after the retry budget produce an error alongside the confirmed count.
func (r *Repository) BulkPut(ctx context.Context, recs []records.Record) (int64, error) {
	var written int64
	for start := 0; start < len(recs); start += maxBatchWriteItems {
		end := start + maxBatchWriteItems
		if end > len(recs) {
			end = len(recs)
		}
		n, err := r.putBatch(ctx, recs[start:end])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (r *Repository) putBatch(ctx context.Context, recs []records.Record) (int64, error) {
	reqs := make([]types.WriteRequest, 0, len(recs))
	for _, rec := range recs {
		item, err := MarshalItem(rec)
		if err != nil {
			return 0, fmt.Errorf("marshal item: %w", err)
		}
		reqs = append(reqs, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	pending := reqs
	for attempt := 0; ; attempt++ {
		out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{r.table: pending},
		})
		if err != nil {
			return int64(len(reqs) - len(pending)), fmt.Errorf("batch write: %w", err)
		}

		leftover := out.UnprocessedItems[r.table]
		if len(leftover) == 0 {
			return int64(len(reqs)), nil
		}
		if attempt+1 >= r.maxAttempts {
			return int64(len(reqs) - len(leftover)),
				fmt.Errorf("%d items unprocessed after %d attempts", len(leftover), r.maxAttempts)
		}

		sleep := r.baseBackoff << attempt
		sleep += time.Duration(rand.Int63n(int64(r.baseBackoff)))
		log.Printf("dynamo: table=%s unprocessed=%d attempt=%d backoff=%s",
			r.table, len(leftover), attempt+1, sleep.Truncate(time.Millisecond))

		select {
		case <-ctx.Done():
			return int64(len(reqs) - len(leftover)), ctx.Err()
		case <-time.After(sleep):
		}
		pending = leftover
	}
}
