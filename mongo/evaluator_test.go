package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// evaluate runs the subset of the aggregation expression language produced
// by the date builders against one document. Numbers come back as float64.
func evaluate(t *testing.T, expr any, doc map[string]any) any {
	t.Helper()

	switch e := expr.(type) {
	case string:
		if len(e) > 1 && e[0] == '$' {
			return normalize(doc[e[1:]])
		}

		return e
	case bson.A:
		values := make([]any, len(e))
		for i, elem := range e {
			values[i] = evaluate(t, elem, doc)
		}

		return values
	case bson.M:
		if len(e) != 1 {
			t.Fatalf("operator document with %d keys: %v", len(e), e)
		}

		for op, arg := range e {
			return evaluateOperator(t, op, arg, doc)
		}
	}

	return normalize(expr)
}

func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return v
	}
}

func mongoWeek(d time.Time) float64 {
	return float64((d.YearDay() - 1 + 7 - int(d.Weekday())) / 7)
}

func isoDayOfWeek(d time.Time) float64 {
	return float64((int(d.Weekday())+6)%7 + 1)
}

func evaluateOperator(t *testing.T, op string, arg any, doc map[string]any) any {
	t.Helper()

	date := func() time.Time {
		d, ok := evaluate(t, arg, doc).(time.Time)
		if !ok {
			t.Fatalf("%s expects a date, got %v", op, arg)
		}

		return d
	}

	numbers := func() []float64 {
		values := evaluate(t, arg, doc).([]any)
		result := make([]float64, len(values))

		for i, v := range values {
			f, ok := v.(float64)
			if !ok {
				t.Fatalf("%s expects numbers, got %v", op, values)
			}

			result[i] = f
		}

		return result
	}

	switch op {
	case "$year":
		return float64(date().Year())
	case "$month":
		return float64(date().Month())
	case "$dayOfMonth":
		return float64(date().Day())
	case "$dayOfYear":
		return float64(date().YearDay())
	case "$dayOfWeek":
		return float64(date().Weekday()) + 1
	case "$isoDayOfWeek":
		return isoDayOfWeek(date())
	case "$week":
		return mongoWeek(date())
	case "$isoWeek":
		_, week := date().ISOWeek()
		return float64(week)
	case "$isoWeekYear":
		year, _ := date().ISOWeek()
		return float64(year)
	case "$add":
		n := numbers()
		return n[0] + n[1]
	case "$multiply":
		n := numbers()
		return n[0] * n[1]
	case "$divide":
		n := numbers()
		return n[0] / n[1]
	case "$subtract":
		values := evaluate(t, arg, doc).([]any)
		if d, ok := values[0].(time.Time); ok {
			return d.Add(-time.Duration(values[1].(float64)) * time.Millisecond)
		}

		return values[0].(float64) - values[1].(float64)
	case "$lte":
		n := numbers()
		return n[0] <= n[1]
	case "$eq":
		values := evaluate(t, arg, doc).([]any)
		return values[0] == values[1]
	case "$cond":
		args := arg.(bson.A)
		if evaluate(t, args[0], doc).(bool) {
			return evaluate(t, args[1], doc)
		}

		return evaluate(t, args[2], doc)
	case "$switch":
		sw := arg.(bson.M)
		for _, b := range sw["branches"].(bson.A) {
			branch := b.(bson.M)
			if evaluate(t, branch["case"], doc).(bool) {
				return evaluate(t, branch["then"], doc)
			}
		}

		return evaluate(t, sw["default"], doc)
	case "$dateFromParts":
		parts := arg.(bson.M)
		year := evaluate(t, parts["year"], doc).(float64)
		month := evaluate(t, parts["month"], doc).(float64)
		day := evaluate(t, parts["day"], doc).(float64)

		return time.Date(int(year), time.Month(int(month)), int(day), 0, 0, 0, 0, time.UTC)
	}

	t.Fatalf("unsupported operator %s", op)

	return nil
}
