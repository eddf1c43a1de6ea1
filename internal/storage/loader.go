// This file implements a generic, batched loader that drains finalized
// records from a channel and invokes a provided bulk-put function per batch.
//
// Backends implement PutFn using their most efficient primitive (the dynamo
// backend groups records into capped batch-write requests and retries
// unprocessed leftovers itself).
//
// Logging: a concise progress line is emitted at a fixed record cadence with
// running totals and instantaneous rows/sec since the previous progress line.
package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"retailetl/pkg/records"
)

// PutFn abstracts a backend's bulk write capability. Implementations should
// persist the provided records and return the number confirmed written. The
// function should be safe for repeated calls and cancel promptly when ctx is
// done.
type PutFn func(ctx context.Context, recs []records.Record) (int64, error)

// DefaultProgressEvery is the record cadence for progress logging when the
// caller passes zero.
const DefaultProgressEvery = 1000

// LoadBatches drains records from 'in', groups them into batches of size
// 'batchSize', and calls 'putFn' for each non-empty batch. It returns the
// total number of records reported by putFn and the first error encountered.
//
// An error from putFn aborts the load: records already confirmed stay
// written (the store overwrites by primary key, so re-running the load is
// safe), and the error is returned with the running total.
//
// Cancellation: returns (total, ctx.Err()) when canceled.
func LoadBatches(
	ctx context.Context,
	in <-chan records.Record,
	batchSize int,
	progressEvery int,
	putFn PutFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if putFn == nil {
		return 0, fmt.Errorf("putFn must not be nil")
	}
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}

	var (
		total        int64
		batches      int64
		batch        = make([]records.Record, 0, batchSize)
		start        = time.Now()
		lastProgress = start
		lastTotal    int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := putFn(ctx, batch)
		total += n

		// Reuse allocated slice; keep capacity to avoid churn.
		batch = batch[:0]

		if err != nil {
			log.Printf("loader: bulk put failed after=%d total=%d err=%v", n, total, err)
			return err
		}
		batches++

		// Progress log once per cadence crossing.
		if total/int64(progressEvery) > lastTotal/int64(progressEvery) {
			now := time.Now()
			sinceLast := now.Sub(lastProgress)
			rps := float64(0)
			if sinceLast > 0 {
				rps = float64(total-lastTotal) / sinceLast.Seconds()
			}
			log.Printf(
				"loader: progress total=%d batches=%d rps=%.0f elapsed=%s",
				total,
				batches,
				rps,
				now.Sub(start).Truncate(time.Millisecond),
			)
			lastProgress = now
			lastTotal = total
		}

		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case rec, ok := <-in:
			if !ok {
				// Channel closed: flush remaining records.
				if err := flush(); err != nil {
					return total, err
				}
				log.Printf("loader: input closed, total_loaded=%d batches=%d", total, batches)
				return total, nil
			}
			batch = append(batch, rec)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
