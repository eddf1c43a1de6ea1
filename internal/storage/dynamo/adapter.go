package dynamo

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"retailetl/internal/schema"
	"retailetl/pkg/records"
)

// MarshalItem converts a pipeline record into a DynamoDB item. Floats are
// written as Number attributes built from the float's shortest decimal string,
// so 19.99 is stored as exactly "19.99" and never as a binary-float expansion.
// Nil cells are omitted from the item.
func MarshalItem(rec records.Record) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, len(rec))
	for name, v := range rec {
		if v == nil {
			continue
		}
		av, err := marshalCell(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		item[name] = av
	}
	return item, nil
}

func marshalCell(v any) (types.AttributeValue, error) {
	switch t := v.(type) {
	case string:
		return &types.AttributeValueMemberS{Value: t}, nil
	case int:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(int64(t), 10)}, nil
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(t, 10)}, nil
	case float64:
		d, err := decimal.NewFromString(strconv.FormatFloat(t, 'f', -1, 64))
		if err != nil {
			return nil, fmt.Errorf("non-finite number %v", t)
		}
		return &types.AttributeValueMemberN{Value: d.String()}, nil
	case decimal.Decimal:
		return &types.AttributeValueMemberN{Value: t.String()}, nil
	case time.Time:
		return &types.AttributeValueMemberS{Value: t.Format(schema.TimestampLayout)}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: t}, nil
	default:
		return attributevalue.Marshal(v)
	}
}

// UnmarshalItem converts a DynamoDB item back into a pipeline record. Number
// attributes come back as int64 when they carry no fractional part, float64
// otherwise. Timestamps stay in their stored string form.
func UnmarshalItem(item map[string]types.AttributeValue) (records.Record, error) {
	rec := make(records.Record, len(item))
	for name, av := range item {
		v, err := unmarshalCell(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		rec[name] = v
	}
	return rec, nil
}

func unmarshalCell(av types.AttributeValue) (any, error) {
	switch t := av.(type) {
	case *types.AttributeValueMemberS:
		return t.Value, nil
	case *types.AttributeValueMemberN:
		if !strings.ContainsAny(t.Value, ".eE") {
			if n, err := strconv.ParseInt(t.Value, 10, 64); err == nil {
				return n, nil
			}
		}
		f, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", t.Value, err)
		}
		return f, nil
	case *types.AttributeValueMemberBOOL:
		return t.Value, nil
	case *types.AttributeValueMemberNULL:
		return nil, nil
	default:
		var v any
		if err := attributevalue.Unmarshal(av, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
