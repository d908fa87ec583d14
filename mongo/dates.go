package mongo

import (
	"fmt"

	"github.com/shibukawa/pipequery"
	"github.com/shibukawa/pipequery/pipeline"
	"go.mongodb.org/mongo-driver/bson"
)

const dayMilliseconds = 24 * 60 * 60 * 1000

// DateExtractMap maps basic date parts to the aggregation operator extracting them.
var DateExtractMap = map[pipeline.DatePart]string{
	pipeline.DatePartYear:         "$year",
	pipeline.DatePartMonth:        "$month",
	pipeline.DatePartDay:          "$dayOfMonth",
	pipeline.DatePartWeek:         "$week",
	pipeline.DatePartDayOfYear:    "$dayOfYear",
	pipeline.DatePartDayOfWeek:    "$dayOfWeek",
	pipeline.DatePartIsoYear:      "$isoWeekYear",
	pipeline.DatePartIsoWeek:      "$isoWeek",
	pipeline.DatePartIsoDayOfWeek: "$isoDayOfWeek",
	pipeline.DatePartHour:         "$hour",
	pipeline.DatePartMinutes:      "$minute",
	pipeline.DatePartSeconds:      "$second",
	pipeline.DatePartMilliseconds: "$millisecond",
}

// AdvancedDateExtractMap maps derived date parts to a builder of the
// expression computing them from a date column.
var AdvancedDateExtractMap = map[pipeline.DatePart]func(column string) bson.M{
	pipeline.DatePartQuarter:                   quarter,
	pipeline.DatePartFirstDayOfYear:            firstDayOfYear,
	pipeline.DatePartFirstDayOfMonth:           firstDayOfMonth,
	pipeline.DatePartFirstDayOfWeek:            firstDayOfWeek,
	pipeline.DatePartFirstDayOfQuarter:         firstDayOfQuarter,
	pipeline.DatePartFirstDayOfIsoWeek:         firstDayOfIsoWeek,
	pipeline.DatePartPreviousDay:               previousDay,
	pipeline.DatePartFirstDayOfPreviousYear:    firstDayOfPreviousYear,
	pipeline.DatePartFirstDayOfPreviousMonth:   firstDayOfPreviousMonth,
	pipeline.DatePartFirstDayOfPreviousWeek:    firstDayOfPreviousWeek,
	pipeline.DatePartFirstDayOfPreviousQuarter: firstDayOfPreviousQuarter,
	pipeline.DatePartFirstDayOfPreviousIsoWeek: firstDayOfPreviousIsoWeek,
	pipeline.DatePartPreviousYear:              previousYear,
	pipeline.DatePartPreviousMonth:             previousMonth,
	pipeline.DatePartPreviousWeek:              previousWeek,
	pipeline.DatePartPreviousQuarter:           previousQuarter,
	pipeline.DatePartPreviousIsoWeek:           previousIsoWeek,
}

// DateExtractExpression returns the expression extracting part from column.
func DateExtractExpression(part pipeline.DatePart, column string) (bson.M, error) {
	if op, ok := DateExtractMap[part]; ok {
		return bson.M{op: fieldPath(column)}, nil
	}

	if build, ok := AdvancedDateExtractMap[part]; ok {
		return build(column), nil
	}

	return nil, fmt.Errorf("%w: '%s'", pipequery.ErrUnsupportedDatePart, part)
}

func extract(op, column string) bson.M {
	return bson.M{op: fieldPath(column)}
}

func yearOf(column string) bson.M  { return extract("$year", column) }
func monthOf(column string) bson.M { return extract("$month", column) }

func minusOne(expr any) bson.M {
	return bson.M{"$subtract": bson.A{expr, 1}}
}

func equals(expr any, value any) bson.M {
	return bson.M{"$eq": bson.A{expr, value}}
}

// switchOnQuarter maps quarters 1 to 3 to the given values, fallback for quarter 4.
func switchOnQuarter(column string, q1, q2, q3, fallback any) bson.M {
	q := quarter(column)

	return bson.M{"$switch": bson.M{
		"branches": bson.A{
			bson.M{"case": equals(q, 1), "then": q1},
			bson.M{"case": equals(q, 2), "then": q2},
			bson.M{"case": equals(q, 3), "then": q3},
		},
		"default": fallback,
	}}
}

func dateFromParts(year, month, day any) bson.M {
	return bson.M{"$dateFromParts": bson.M{"year": year, "month": month, "day": day}}
}

// truncatedDay is the date at midnight.
func truncatedDay(column string) bson.M {
	return dateFromParts(yearOf(column), monthOf(column), extract("$dayOfMonth", column))
}

func minusDays(date any, days any) bson.M {
	return bson.M{"$subtract": bson.A{date, bson.M{"$multiply": bson.A{days, dayMilliseconds}}}}
}

func quarter(column string) bson.M {
	months := bson.M{"$divide": bson.A{monthOf(column), 3}}

	return bson.M{"$switch": bson.M{
		"branches": bson.A{
			bson.M{"case": bson.M{"$lte": bson.A{months, 1}}, "then": 1},
			bson.M{"case": bson.M{"$lte": bson.A{months, 2}}, "then": 2},
			bson.M{"case": bson.M{"$lte": bson.A{months, 3}}, "then": 3},
		},
		"default": 4,
	}}
}

func firstDayOfYear(column string) bson.M {
	return dateFromParts(yearOf(column), 1, 1)
}

func firstDayOfMonth(column string) bson.M {
	return dateFromParts(yearOf(column), monthOf(column), 1)
}

func firstDayOfQuarter(column string) bson.M {
	return dateFromParts(yearOf(column), switchOnQuarter(column, 1, 4, 7, 10), 1)
}

func firstDayOfWeek(column string) bson.M {
	return minusDays(truncatedDay(column), minusOne(extract("$dayOfWeek", column)))
}

func firstDayOfIsoWeek(column string) bson.M {
	return minusDays(truncatedDay(column), minusOne(extract("$isoDayOfWeek", column)))
}

func previousDay(column string) bson.M {
	return minusDays(truncatedDay(column), 1)
}

func firstDayOfPreviousYear(column string) bson.M {
	return dateFromParts(minusOne(yearOf(column)), 1, 1)
}

func firstDayOfPreviousMonth(column string) bson.M {
	january := equals(monthOf(column), 1)

	return dateFromParts(
		bson.M{"$cond": bson.A{january, minusOne(yearOf(column)), yearOf(column)}},
		previousMonth(column),
		1,
	)
}

func firstDayOfPreviousWeek(column string) bson.M {
	return minusDays(firstDayOfWeek(column), 7)
}

func firstDayOfPreviousIsoWeek(column string) bson.M {
	return minusDays(firstDayOfIsoWeek(column), 7)
}

func firstDayOfPreviousQuarter(column string) bson.M {
	firstQuarter := equals(quarter(column), 1)

	return dateFromParts(
		bson.M{"$cond": bson.A{firstQuarter, minusOne(yearOf(column)), yearOf(column)}},
		switchOnQuarter(column, 10, 1, 4, 7),
		1,
	)
}

func previousYear(column string) bson.M {
	return minusOne(yearOf(column))
}

func previousMonth(column string) bson.M {
	return bson.M{"$cond": bson.A{equals(monthOf(column), 1), 12, minusOne(monthOf(column))}}
}

func previousQuarter(column string) bson.M {
	return bson.M{"$cond": bson.A{equals(quarter(column), 1), 4, minusOne(quarter(column))}}
}

func previousWeek(column string) bson.M {
	return bson.M{"$week": minusDays(fieldPath(column), 7)}
}

func previousIsoWeek(column string) bson.M {
	return bson.M{"$isoWeek": minusDays(fieldPath(column), 7)}
}
