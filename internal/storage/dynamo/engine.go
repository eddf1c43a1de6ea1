package dynamo

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"retailetl/internal/storage"
	"retailetl/pkg/records"
)

// Query walks a secondary index, following LastEvaluatedKey across pages
// until the service stops returning one. A page error after partial progress
// yields a partial result carrying everything accumulated so far.
func (r *Repository) Query(ctx context.Context, q storage.IndexQuery) storage.Result {
	expr, err := buildExpression(q.Key, q.Filter, q.Projection)
	if err != nil {
		return storage.PartialResult(nil, fmt.Errorf("build query expression: %w", err))
	}

	var (
		items    []records.Record
		startKey map[string]types.AttributeValue
		pages    int
	)
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.table),
			IndexName:                 aws.String(q.Index),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			log.Printf("dynamo: query table=%s index=%s page=%d failed err=%v", r.table, q.Index, pages, err)
			return storage.PartialResult(items, fmt.Errorf("query page %d: %w", pages, err))
		}
		pages++

		items, err = appendItems(items, out.Items)
		if err != nil {
			return storage.PartialResult(items, err)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return storage.CompleteResult(items)
		}
		startKey = out.LastEvaluatedKey
	}
}

// Scan reads the whole table, following LastEvaluatedKey the same way Query
// does. Filters are applied server-side per page, so a filtered scan still
// bills and pages over every item.
func (r *Repository) Scan(ctx context.Context, s storage.TableScan) storage.Result {
	expr, err := buildExpression(nil, s.Filter, s.Projection)
	if err != nil {
		return storage.PartialResult(nil, fmt.Errorf("build scan expression: %w", err))
	}

	var (
		items    []records.Record
		startKey map[string]types.AttributeValue
		pages    int
	)
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(r.table),
			FilterExpression:          expr.Filter(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			log.Printf("dynamo: scan table=%s page=%d failed err=%v", r.table, pages, err)
			return storage.PartialResult(items, fmt.Errorf("scan page %d: %w", pages, err))
		}
		pages++

		items, err = appendItems(items, out.Items)
		if err != nil {
			return storage.PartialResult(items, err)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return storage.CompleteResult(items)
		}
		startKey = out.LastEvaluatedKey
	}
}

// buildExpression assembles the shared expression object from the optional
// key, filter, and projection parts. All-nil input is valid for unfiltered
// scans and yields an expression whose accessors return nil pointers.
func buildExpression(key, filter storage.Predicate, proj []string) (expression.Expression, error) {
	var zero expression.Expression
	builder := expression.NewBuilder()
	empty := true

	if key != nil {
		kc, err := keyCondition(key)
		if err != nil {
			return zero, err
		}
		builder = builder.WithKeyCondition(kc)
		empty = false
	}
	if filter != nil {
		cond, err := condition(filter)
		if err != nil {
			return zero, err
		}
		builder = builder.WithFilter(cond)
		empty = false
	}
	if len(proj) > 0 {
		builder = builder.WithProjection(projection(proj))
		empty = false
	}
	if empty {
		return zero, nil
	}
	return builder.Build()
}

func appendItems(dst []records.Record, raw []map[string]types.AttributeValue) ([]records.Record, error) {
	for _, item := range raw {
		rec, err := UnmarshalItem(item)
		if err != nil {
			return dst, fmt.Errorf("decode item: %w", err)
		}
		dst = append(dst, rec)
	}
	return dst, nil
}
