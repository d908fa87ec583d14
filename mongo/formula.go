package mongo

import (
	"fmt"

	"github.com/shibukawa/pipequery"
	"github.com/shibukawa/pipequery/formula"
	"go.mongodb.org/mongo-driver/bson"
)

var arithmetic = map[rune]string{
	'+': "$add",
	'-': "$subtract",
	'*': "$multiply",
	'%': "$mod",
}

// FormulaExpression compiles a formula into an aggregation expression.
// Strings are parsed as formulas; numbers and booleans are used as they are.
func FormulaExpression(f any) (any, error) {
	switch v := f.(type) {
	case string:
		n, err := formula.Parse(v)
		if err != nil {
			return nil, err
		}

		return formulaNode(n)
	case nil:
		return nil, fmt.Errorf("%w: empty formula", pipequery.ErrInvalidFormula)
	default:
		return v, nil
	}
}

func formulaNode(n formula.Node) (any, error) {
	switch v := n.(type) {
	case *formula.Number:
		return v.Value, nil
	case *formula.String:
		return literal(v.Value), nil
	case *formula.Column:
		return fieldPath(v.Name), nil
	case *formula.Unary:
		operand, err := formulaNode(v.Operand)
		if err != nil {
			return nil, err
		}

		return bson.M{"$multiply": bson.A{-1, operand}}, nil
	case *formula.Binary:
		left, err := formulaNode(v.Left)
		if err != nil {
			return nil, err
		}

		right, err := formulaNode(v.Right)
		if err != nil {
			return nil, err
		}

		if v.Operator == '/' {
			// division by zero or null yields null
			return bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{right, bson.A{0, nil}}},
				nil,
				bson.M{"$divide": bson.A{left, right}},
			}}, nil
		}

		op, ok := arithmetic[v.Operator]
		if !ok {
			return nil, fmt.Errorf("%w: operator '%c'", pipequery.ErrInvalidFormula, v.Operator)
		}

		return bson.M{op: bson.A{left, right}}, nil
	default:
		return nil, fmt.Errorf("%w: %T", pipequery.ErrInvalidFormula, n)
	}
}
