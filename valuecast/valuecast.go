// Package valuecast converts the string representation of values typed in an
// editor into typed values, and coerces loosely typed values into numbers.
package valuecast

import (
	"fmt"
	"strings"
	"time"

	"github.com/shibukawa/pipequery"
	"github.com/shopspring/decimal"
)

// ColumnType is the primitive type of a column.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
	TypeBoolean ColumnType = "boolean"
	TypeDate    ColumnType = "date"
	TypeObject  ColumnType = "object"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Cast converts s to the Go representation of columnType: int64, float64,
// bool or time.Time (UTC). Strings, objects and unknown types are returned unchanged.
func Cast(s string, columnType ColumnType) (any, error) {
	switch columnType {
	case TypeInteger:
		d, err := parseDecimal(s)
		if err != nil {
			return nil, err
		}

		if !d.IsInteger() {
			return nil, fmt.Errorf("%w: '%s' is not an integer", pipequery.ErrInvalidValue, s)
		}

		return d.IntPart(), nil
	case TypeFloat:
		d, err := parseDecimal(s)
		if err != nil {
			return nil, err
		}

		f, _ := d.Float64()

		return f, nil
	case TypeBoolean:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return nil, fmt.Errorf("%w: '%s' is not a boolean", pipequery.ErrInvalidValue, s)
		}
	case TypeDate:
		return parseDate(s)
	default:
		return s, nil
	}
}

// Infer guesses the type of a command-line style literal: integers, floats,
// booleans and null are converted, anything else stays a string.
func Infer(s string) any {
	trimmed := strings.TrimSpace(s)

	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return s
	}

	if d.IsInteger() && !strings.ContainsAny(trimmed, ".eE") {
		return d.IntPart()
	}

	f, _ := d.Float64()

	return f
}

// ToNumber coerces v into a number. Go numeric types are returned as they are;
// strings are parsed (integers become int64, other numbers float64).
func ToNumber(v any) (any, error) {
	switch t := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return t, nil
	case decimal.Decimal:
		f, _ := t.Float64()
		return f, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return nil, fmt.Errorf("%w: '%s'", pipequery.ErrInvalidNumber, t)
		}

		if d.IsInteger() {
			return d.IntPart(), nil
		}

		f, _ := d.Float64()

		return f, nil
	default:
		return nil, fmt.Errorf("%w: %T is not numeric", pipequery.ErrInvalidNumber, v)
	}
}

// ToInt returns the integer value of a number produced by ToNumber or JSON decoding.
func ToInt(v any) (int64, error) {
	n, err := ToNumber(v)
	if err != nil {
		return 0, err
	}

	switch t := n.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case float32:
		return floatToInt(float64(t))
	case float64:
		return floatToInt(t)
	}

	return 0, fmt.Errorf("%w: %v", pipequery.ErrInvalidNumber, v)
}

func floatToInt(f float64) (int64, error) {
	d := decimal.NewFromFloat(f)
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: %v is not an integer", pipequery.ErrInvalidNumber, f)
	}

	return d.IntPart(), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: '%s' is not a number", pipequery.ErrInvalidValue, s)
	}

	return d, nil
}

func parseDate(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: '%s' is not a date", pipequery.ErrInvalidValue, s)
}
