package mongo

import (
	"fmt"
	"strings"

	"github.com/shibukawa/pipequery"
	"github.com/shibukawa/pipequery/pipeline"
	"go.mongodb.org/mongo-driver/bson"
)

var matchOperators = map[pipeline.Operator]string{
	pipeline.OperatorNe:    "$ne",
	pipeline.OperatorGt:    "$gt",
	pipeline.OperatorGe:    "$gte",
	pipeline.OperatorLt:    "$lt",
	pipeline.OperatorLe:    "$lte",
	pipeline.OperatorIn:    "$in",
	pipeline.OperatorNin:   "$nin",
	pipeline.OperatorFrom:  "$gte",
	pipeline.OperatorUntil: "$lte",
}

var expressionOperators = map[pipeline.Operator]string{
	pipeline.OperatorEq:    "$eq",
	pipeline.OperatorNe:    "$ne",
	pipeline.OperatorGt:    "$gt",
	pipeline.OperatorGe:    "$gte",
	pipeline.OperatorLt:    "$lt",
	pipeline.OperatorLe:    "$lte",
	pipeline.OperatorFrom:  "$gte",
	pipeline.OperatorUntil: "$lte",
}

// BuildMatch compiles a condition into a $match query document.
func BuildMatch(c pipeline.Condition) (bson.M, error) {
	switch cond := c.(type) {
	case *pipeline.AndCondition:
		children, err := buildMatches(cond.And)
		if err != nil {
			return nil, err
		}

		return bson.M{"$and": children}, nil
	case *pipeline.OrCondition:
		children, err := buildMatches(cond.Or)
		if err != nil {
			return nil, err
		}

		return bson.M{"$or": children}, nil
	case *pipeline.SimpleCondition:
		return buildSimpleMatch(cond)
	default:
		return nil, fmt.Errorf("%w: %T", pipequery.ErrInvalidCondition, c)
	}
}

func buildMatches(children []pipeline.Condition) (bson.A, error) {
	result := make(bson.A, 0, len(children))

	for _, child := range children {
		m, err := BuildMatch(child)
		if err != nil {
			return nil, err
		}

		result = append(result, m)
	}

	return result, nil
}

func buildSimpleMatch(c *pipeline.SimpleCondition) (bson.M, error) {
	switch c.Operator {
	case pipeline.OperatorEq:
		return bson.M{c.Column: c.Value}, nil
	case pipeline.OperatorMatches:
		return bson.M{c.Column: bson.M{"$regex": c.Value}}, nil
	case pipeline.OperatorNotMatches:
		return bson.M{c.Column: bson.M{"$not": bson.M{"$regex": c.Value}}}, nil
	case pipeline.OperatorIsNull:
		return bson.M{c.Column: bson.M{"$eq": nil}}, nil
	case pipeline.OperatorNotNull:
		return bson.M{c.Column: bson.M{"$ne": nil}}, nil
	}

	op, ok := matchOperators[c.Operator]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", pipequery.ErrUnsupportedOperator, c.Operator)
	}

	if c.Operator.IsMultiValue() {
		if _, ok := c.Value.([]any); !ok {
			return nil, fmt.Errorf("%w: '%s' on '%s' needs a list value", pipequery.ErrInvalidCondition, c.Operator, c.Column)
		}
	}

	return bson.M{c.Column: bson.M{op: c.Value}}, nil
}

// BuildExpression compiles a condition into a boolean aggregation
// expression, as used by $cond.
func BuildExpression(c pipeline.Condition) (bson.M, error) {
	return buildExpression(c, true)
}

func buildExpression(c pipeline.Condition, regexMatch bool) (bson.M, error) {
	switch cond := c.(type) {
	case *pipeline.AndCondition:
		children, err := buildExpressions(cond.And, regexMatch)
		if err != nil {
			return nil, err
		}

		return bson.M{"$and": children}, nil
	case *pipeline.OrCondition:
		children, err := buildExpressions(cond.Or, regexMatch)
		if err != nil {
			return nil, err
		}

		return bson.M{"$or": children}, nil
	case *pipeline.SimpleCondition:
		return buildSimpleExpression(cond, regexMatch)
	default:
		return nil, fmt.Errorf("%w: %T", pipequery.ErrInvalidCondition, c)
	}
}

func buildExpressions(children []pipeline.Condition, regexMatch bool) (bson.A, error) {
	result := make(bson.A, 0, len(children))

	for _, child := range children {
		e, err := buildExpression(child, regexMatch)
		if err != nil {
			return nil, err
		}

		result = append(result, e)
	}

	return result, nil
}

func buildSimpleExpression(c *pipeline.SimpleCondition, regexMatch bool) (bson.M, error) {
	column := fieldPath(c.Column)

	switch c.Operator {
	case pipeline.OperatorIn, pipeline.OperatorNin:
		if _, ok := c.Value.([]any); !ok {
			return nil, fmt.Errorf("%w: '%s' on '%s' needs a list value", pipequery.ErrInvalidCondition, c.Operator, c.Column)
		}

		in := bson.M{"$in": bson.A{column, bson.M{"$literal": c.Value}}}
		if c.Operator == pipeline.OperatorNin {
			return bson.M{"$not": bson.A{in}}, nil
		}

		return in, nil
	case pipeline.OperatorMatches, pipeline.OperatorNotMatches:
		if !regexMatch {
			return nil, fmt.Errorf("%w: '%s' in expressions needs $regexMatch", pipequery.ErrUnsupportedFeature, c.Operator)
		}

		match := bson.M{"$regexMatch": bson.M{"input": column, "regex": c.Value}}
		if c.Operator == pipeline.OperatorNotMatches {
			return bson.M{"$not": bson.A{match}}, nil
		}

		return match, nil
	case pipeline.OperatorIsNull:
		return bson.M{"$eq": bson.A{column, nil}}, nil
	case pipeline.OperatorNotNull:
		return bson.M{"$ne": bson.A{column, nil}}, nil
	}

	op, ok := expressionOperators[c.Operator]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", pipequery.ErrUnsupportedOperator, c.Operator)
	}

	return bson.M{op: bson.A{column, literal(c.Value)}}, nil
}

func fieldPath(column string) string {
	return "$" + column
}

// literal protects strings that the aggregation language would read as field paths.
func literal(v any) any {
	if s, ok := v.(string); ok && strings.HasPrefix(s, "$") {
		return bson.M{"$literal": s}
	}

	return v
}
