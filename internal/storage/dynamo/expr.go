package dynamo

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"retailetl/internal/schema"
	"retailetl/internal/storage"
)

// keyCondition compiles a predicate into a DynamoDB key condition. Key
// conditions are restricted: a partition-key equality, optionally ANDed with
// one range condition on the sort key. Anything else is rejected here rather
// than at the service.
func keyCondition(p storage.Predicate) (expression.KeyConditionBuilder, error) {
	var zero expression.KeyConditionBuilder
	switch t := p.(type) {
	case storage.Eq:
		return expression.Key(t.Attr).Equal(expression.Value(exprValue(t.Value))), nil
	case storage.Between:
		return expression.Key(t.Attr).Between(
			expression.Value(exprValue(t.Low)),
			expression.Value(exprValue(t.High)),
		), nil
	case storage.GTE:
		return expression.Key(t.Attr).GreaterThanEqual(expression.Value(exprValue(t.Value))), nil
	case storage.LTE:
		return expression.Key(t.Attr).LessThanEqual(expression.Value(exprValue(t.Value))), nil
	case storage.And:
		if len(t.Preds) != 2 {
			return zero, fmt.Errorf("key condition AND takes exactly two operands, got %d", len(t.Preds))
		}
		left, err := keyCondition(t.Preds[0])
		if err != nil {
			return zero, err
		}
		right, err := keyCondition(t.Preds[1])
		if err != nil {
			return zero, err
		}
		return expression.KeyAnd(left, right), nil
	case storage.Or:
		return zero, fmt.Errorf("OR is not allowed in a key condition")
	default:
		return zero, fmt.Errorf("unsupported key predicate %T", p)
	}
}

// condition compiles a predicate tree into a filter condition. Unlike key
// conditions, filters may nest AND/OR freely.
func condition(p storage.Predicate) (expression.ConditionBuilder, error) {
	var zero expression.ConditionBuilder
	switch t := p.(type) {
	case storage.Eq:
		return expression.Name(t.Attr).Equal(expression.Value(exprValue(t.Value))), nil
	case storage.Between:
		return expression.Name(t.Attr).Between(
			expression.Value(exprValue(t.Low)),
			expression.Value(exprValue(t.High)),
		), nil
	case storage.GTE:
		return expression.Name(t.Attr).GreaterThanEqual(expression.Value(exprValue(t.Value))), nil
	case storage.LTE:
		return expression.Name(t.Attr).LessThanEqual(expression.Value(exprValue(t.Value))), nil
	case storage.And:
		return composite(t.Preds, expression.And)
	case storage.Or:
		return composite(t.Preds, expression.Or)
	default:
		return zero, fmt.Errorf("unsupported filter predicate %T", p)
	}
}

func composite(
	operands []storage.Predicate,
	join func(expression.ConditionBuilder, expression.ConditionBuilder, ...expression.ConditionBuilder) expression.ConditionBuilder,
) (expression.ConditionBuilder, error) {
	var zero expression.ConditionBuilder
	if len(operands) < 2 {
		return zero, fmt.Errorf("composite predicate needs at least two operands, got %d", len(operands))
	}
	built := make([]expression.ConditionBuilder, 0, len(operands))
	for _, op := range operands {
		c, err := condition(op)
		if err != nil {
			return zero, err
		}
		built = append(built, c)
	}
	return join(built[0], built[1], built[2:]...), nil
}

func projection(names []string) expression.ProjectionBuilder {
	builders := make([]expression.NameBuilder, len(names))
	for i, n := range names {
		builders[i] = expression.Name(n)
	}
	return expression.NamesList(builders[0], builders[1:]...)
}

// exprValue maps predicate leaf values onto the forms the item codec writes,
// so comparisons line up with stored attributes.
func exprValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(schema.TimestampLayout)
	}
	return v
}
