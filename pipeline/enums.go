package pipeline

// Operator is the comparison operator of a simple condition.
type Operator string

const (
	OperatorEq         Operator = "eq"
	OperatorNe         Operator = "ne"
	OperatorGt         Operator = "gt"
	OperatorGe         Operator = "ge"
	OperatorLt         Operator = "lt"
	OperatorLe         Operator = "le"
	OperatorIn         Operator = "in"
	OperatorNin        Operator = "nin"
	OperatorMatches    Operator = "matches"
	OperatorNotMatches Operator = "notmatches"
	OperatorIsNull     Operator = "isnull"
	OperatorNotNull    Operator = "notnull"
	OperatorFrom       Operator = "from"
	OperatorUntil      Operator = "until"
)

// IsMultiValue reports whether the operator compares against a list of values.
func (o Operator) IsMultiValue() bool {
	return o == OperatorIn || o == OperatorNin
}

// IsNullCheck reports whether the operator ignores its value.
func (o Operator) IsNullCheck() bool {
	return o == OperatorIsNull || o == OperatorNotNull
}

// JoinType selects which rows a join keeps.
type JoinType string

const (
	JoinLeft      JoinType = "left"
	JoinInner     JoinType = "inner"
	JoinLeftOuter JoinType = "left outer"
)

// SortOrder is either ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// AggFunction names an aggregation function.
type AggFunction string

const (
	AggSum           AggFunction = "sum"
	AggAvg           AggFunction = "avg"
	AggCount         AggFunction = "count"
	AggCountDistinct AggFunction = "count distinct"
	AggMin           AggFunction = "min"
	AggMax           AggFunction = "max"
	AggFirst         AggFunction = "first"
	AggLast          AggFunction = "last"
)

// DataType is the target type of a convert step.
type DataType string

const (
	DataTypeBoolean DataType = "boolean"
	DataTypeDate    DataType = "date"
	DataTypeFloat   DataType = "float"
	DataTypeInteger DataType = "integer"
	DataTypeText    DataType = "text"
)

// DatePart is a component extracted from a date column.
type DatePart string

// Basic date parts map directly to a backend extraction operator.
const (
	DatePartYear         DatePart = "year"
	DatePartMonth        DatePart = "month"
	DatePartDay          DatePart = "day"
	DatePartWeek         DatePart = "week"
	DatePartDayOfYear    DatePart = "dayOfYear"
	DatePartDayOfWeek    DatePart = "dayOfWeek"
	DatePartIsoYear      DatePart = "isoYear"
	DatePartIsoWeek      DatePart = "isoWeek"
	DatePartIsoDayOfWeek DatePart = "isoDayOfWeek"
	DatePartHour         DatePart = "hour"
	DatePartMinutes      DatePart = "minutes"
	DatePartSeconds      DatePart = "seconds"
	DatePartMilliseconds DatePart = "milliseconds"
)

// Advanced date parts are derived from the basic ones.
const (
	DatePartQuarter                   DatePart = "quarter"
	DatePartFirstDayOfYear            DatePart = "firstDayOfYear"
	DatePartFirstDayOfMonth           DatePart = "firstDayOfMonth"
	DatePartFirstDayOfWeek            DatePart = "firstDayOfWeek"
	DatePartFirstDayOfQuarter         DatePart = "firstDayOfQuarter"
	DatePartFirstDayOfIsoWeek         DatePart = "firstDayOfIsoWeek"
	DatePartPreviousDay               DatePart = "previousDay"
	DatePartFirstDayOfPreviousYear    DatePart = "firstDayOfPreviousYear"
	DatePartFirstDayOfPreviousMonth   DatePart = "firstDayOfPreviousMonth"
	DatePartFirstDayOfPreviousWeek    DatePart = "firstDayOfPreviousWeek"
	DatePartFirstDayOfPreviousQuarter DatePart = "firstDayOfPreviousQuarter"
	DatePartFirstDayOfPreviousIsoWeek DatePart = "firstDayOfPreviousIsoWeek"
	DatePartPreviousYear              DatePart = "previousYear"
	DatePartPreviousMonth             DatePart = "previousMonth"
	DatePartPreviousWeek              DatePart = "previousWeek"
	DatePartPreviousQuarter           DatePart = "previousQuarter"
	DatePartPreviousIsoWeek           DatePart = "previousIsoWeek"
)
