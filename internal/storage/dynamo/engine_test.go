package dynamo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"retailetl/internal/schema"
	"retailetl/internal/storage"
)

func pageItems(ids ...string) []map[string]types.AttributeValue {
	items := make([]map[string]types.AttributeValue, len(ids))
	for i, id := range ids {
		items[i] = map[string]types.AttributeValue{
			"invoice_id": &types.AttributeValueMemberS{Value: id},
		}
	}
	return items
}

func TestQueryFollowsContinuationCursor(t *testing.T) {
	t.Parallel()

	pages := [][]string{{"a", "b"}, {"c"}, {"d", "e"}}
	fake := &fakeAPI{}
	fake.queryFn = func(call int, in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		if aws.ToString(in.IndexName) != schema.CountryIndex {
			t.Errorf("index = %q, want %q", aws.ToString(in.IndexName), schema.CountryIndex)
		}
		if call == 0 && in.ExclusiveStartKey != nil {
			t.Error("first page must not carry a start key")
		}
		if call > 0 && in.ExclusiveStartKey == nil {
			t.Errorf("page %d missing continuation cursor", call)
		}
		out := &dynamodb.QueryOutput{Items: pageItems(pages[call]...)}
		if call < len(pages)-1 {
			out.LastEvaluatedKey = map[string]types.AttributeValue{
				"invoice_id": &types.AttributeValueMemberS{Value: fmt.Sprintf("cursor-%d", call)},
			}
		}
		return out, nil
	}
	repo := NewRepository(fake, "sales")

	res := repo.Query(context.Background(), storage.IndexQuery{
		Index: schema.CountryIndex,
		Key:   storage.Equals(schema.AttrCountry, "France"),
	})
	if !res.Complete() {
		t.Fatalf("result incomplete: %v", res.Cause)
	}
	if len(res.Items) != 5 {
		t.Fatalf("items = %d, want 5", len(res.Items))
	}
	if fake.queryCalls != 3 {
		t.Errorf("query calls = %d, want 3", fake.queryCalls)
	}
	if res.Items[0]["invoice_id"] != "a" || res.Items[4]["invoice_id"] != "e" {
		t.Errorf("items out of order: %v", res.Items)
	}
}

func TestQueryReturnsPartialOnPageError(t *testing.T) {
	t.Parallel()

	boom := errors.New("provisioned throughput exceeded")
	fake := &fakeAPI{}
	fake.queryFn = func(call int, _ *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		if call == 0 {
			return &dynamodb.QueryOutput{
				Items: pageItems("a", "b"),
				LastEvaluatedKey: map[string]types.AttributeValue{
					"invoice_id": &types.AttributeValueMemberS{Value: "cursor"},
				},
			}, nil
		}
		return nil, boom
	}
	repo := NewRepository(fake, "sales")

	res := repo.Query(context.Background(), storage.IndexQuery{
		Index: schema.CustomerIndex,
		Key:   storage.Equals(schema.AttrCustomerID, "17850"),
	})
	if res.Complete() {
		t.Fatal("result should be partial")
	}
	if !errors.Is(res.Cause, boom) {
		t.Errorf("cause = %v, want wrapped page error", res.Cause)
	}
	if len(res.Items) != 2 {
		t.Errorf("partial items = %d, want the 2 gathered before the failure", len(res.Items))
	}
}

func TestQueryCompilesKeyRangeAndFilter(t *testing.T) {
	t.Parallel()

	fake := &fakeAPI{}
	fake.queryFn = func(_ int, in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		if in.KeyConditionExpression == nil {
			t.Error("missing key condition expression")
		}
		if in.FilterExpression == nil {
			t.Error("missing filter expression")
		}
		if in.ProjectionExpression == nil {
			t.Error("missing projection expression")
		}
		// Partition value, two range bounds, one filter bound.
		if len(in.ExpressionAttributeValues) != 4 {
			t.Errorf("expression values = %d, want 4", len(in.ExpressionAttributeValues))
		}
		return &dynamodb.QueryOutput{}, nil
	}
	repo := NewRepository(fake, "sales")

	res := repo.Query(context.Background(), storage.IndexQuery{
		Index: schema.CountryIndex,
		Key: storage.AllOf(
			storage.Equals(schema.AttrCountry, "France"),
			storage.InRange(schema.AttrTimestamp, "2010-12-01T00:00:00", "2010-12-31T23:59:59"),
		),
		Filter:     storage.AtLeast(schema.AttrTotalAmount, 100.0),
		Projection: []string{schema.AttrInvoiceID, schema.AttrTotalAmount},
	})
	if !res.Complete() {
		t.Fatalf("result incomplete: %v", res.Cause)
	}
}

func TestQueryRejectsDisjunctiveKey(t *testing.T) {
	t.Parallel()

	repo := NewRepository(&fakeAPI{}, "sales")
	res := repo.Query(context.Background(), storage.IndexQuery{
		Index: schema.CountryIndex,
		Key: storage.AnyOf(
			storage.Equals(schema.AttrCountry, "France"),
			storage.Equals(schema.AttrCountry, "Germany"),
		),
	})
	if res.Complete() {
		t.Fatal("OR key condition should fail to compile")
	}
	if len(res.Items) != 0 {
		t.Errorf("items = %d, want none", len(res.Items))
	}
}

func TestScanFollowsCursorAndKeepsFilter(t *testing.T) {
	t.Parallel()

	fake := &fakeAPI{}
	fake.scanFn = func(call int, in *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
		if in.FilterExpression == nil {
			t.Errorf("page %d: filter expression not carried", call)
		}
		if call == 0 {
			return &dynamodb.ScanOutput{
				Items: pageItems("a"),
				LastEvaluatedKey: map[string]types.AttributeValue{
					"invoice_id": &types.AttributeValueMemberS{Value: "a"},
				},
			}, nil
		}
		return &dynamodb.ScanOutput{Items: pageItems("b")}, nil
	}
	repo := NewRepository(fake, "sales")

	res := repo.Scan(context.Background(), storage.TableScan{
		Filter: storage.OneOf(schema.AttrCountry, "France", "EIRE"),
	})
	if !res.Complete() {
		t.Fatalf("result incomplete: %v", res.Cause)
	}
	if len(res.Items) != 2 {
		t.Errorf("items = %d, want 2", len(res.Items))
	}
	if fake.scanCalls != 2 {
		t.Errorf("scan calls = %d, want 2", fake.scanCalls)
	}
}

func TestScanWithoutFilterSendsNoExpressions(t *testing.T) {
	t.Parallel()

	fake := &fakeAPI{}
	fake.scanFn = func(_ int, in *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
		if in.FilterExpression != nil || in.ProjectionExpression != nil {
			t.Error("bare scan should carry no expressions")
		}
		return &dynamodb.ScanOutput{Items: pageItems("a")}, nil
	}
	repo := NewRepository(fake, "sales")

	res := repo.Scan(context.Background(), storage.TableScan{})
	if !res.Complete() || len(res.Items) != 1 {
		t.Fatalf("result = %+v", res)
	}
}
