package mongo

import (
	"fmt"
	"strconv"

	"github.com/shibukawa/pipequery"
	"github.com/shibukawa/pipequery/pipeline"
	"github.com/shibukawa/pipequery/valuecast"
	"go.mongodb.org/mongo-driver/bson"
)

// Temporary fields used by multi-stage translations.
const (
	appArrayField      = "_vqbAppArray"
	topElemsField      = "_vqbAppTopElems"
	targetField        = "_vqbTarget"
	totalField         = "_vqbTotalDenum"
	indexField         = "_vqbIndex"
	pipelineInline     = "_vqbPipelineInline"
	pipelineAppend     = "_vqbPipelineToAppend_"
	pipelinesUnion     = "_vqbPipelinesUnion"
	joinKeyField       = "_vqbJoinKey"
	joinVariablePrefix = "vqb_"
)

var convertTypes = map[pipeline.DataType]string{
	pipeline.DataTypeBoolean: "bool",
	pipeline.DataTypeDate:    "date",
	pipeline.DataTypeFloat:   "double",
	pipeline.DataTypeInteger: "int",
	pipeline.DataTypeText:    "string",
}

func setColumn(column string, expr any) []bson.M {
	return []bson.M{{"$addFields": bson.M{column: expr}}}
}

// groupID is the _id of a $group on columns; nil groups everything together.
func groupID(columns []string) any {
	if len(columns) == 0 {
		return nil
	}

	id := bson.M{}
	for _, c := range columns {
		id[c] = fieldPath(c)
	}

	return id
}

// ungroup pushes the rows into an array during a $group, to restore them afterwards.
func ungroup(merge bson.M) []bson.M {
	return []bson.M{
		{"$unwind": fieldPath(appArrayField)},
		{"$replaceRoot": bson.M{"newRoot": bson.M{"$mergeObjects": bson.A{fieldPath(appArrayField), merge}}}},
	}
}

func (t *Translator) filter(s *pipeline.FilterStep) ([]bson.M, error) {
	match, err := BuildMatch(s.Condition)
	if err != nil {
		return nil, err
	}

	return []bson.M{{"$match": match}}, nil
}

// subQuery compiles a referenced pipeline; a named reference is a bare collection.
func (t *Translator) subQuery(ref pipeline.Reference) (*Query, error) {
	if !ref.IsInline() {
		return &Query{Domain: ref.Name, Pipeline: []bson.M{}}, nil
	}

	return t.Translate(ref.Pipeline)
}

// appendPipelines unions the current rows with every sub-pipeline:
//
//	$group all rows into one array, $lookup each sub-pipeline,
//	$concatArrays them, then $unwind and $replaceRoot back to rows.
func (t *Translator) appendPipelines(s *pipeline.AppendStep) ([]bson.M, error) {
	stages := []bson.M{
		{"$group": bson.M{"_id": nil, pipelineInline: bson.M{"$push": "$$ROOT"}}},
	}

	arrays := bson.A{fieldPath(pipelineInline)}

	for i, ref := range s.Pipelines {
		sub, err := t.subQuery(ref)
		if err != nil {
			return nil, fmt.Errorf("pipeline #%d: %w", i, err)
		}

		as := pipelineAppend + strconv.Itoa(i)
		stages = append(stages, bson.M{"$lookup": bson.M{
			"from":     sub.Domain,
			"pipeline": sub.Pipeline,
			"as":       as,
		}})
		arrays = append(arrays, fieldPath(as))
	}

	return append(stages,
		bson.M{"$project": bson.M{pipelinesUnion: bson.M{"$concatArrays": arrays}}},
		bson.M{"$unwind": fieldPath(pipelinesUnion)},
		bson.M{"$replaceRoot": bson.M{"newRoot": fieldPath(pipelinesUnion)}},
	), nil
}

// join looks the right pipeline up with the On pairs as equality
// constraints, then merges every match into the left row.
func (t *Translator) join(s *pipeline.JoinStep) ([]bson.M, error) {
	if len(s.On) == 0 {
		return nil, fmt.Errorf("%w: join needs at least one column pair", pipequery.ErrInvalidStep)
	}

	sub, err := t.subQuery(s.RightPipeline)
	if err != nil {
		return nil, fmt.Errorf("right pipeline: %w", err)
	}

	let := bson.M{}
	equalities := make(bson.A, 0, len(s.On))

	for i, pair := range s.On {
		variable := joinVariablePrefix + strconv.Itoa(i)
		let[variable] = fieldPath(pair[0])
		equalities = append(equalities, bson.M{"$eq": bson.A{fieldPath(pair[1]), "$$" + variable}})
	}

	rightStages := append(append([]bson.M{}, sub.Pipeline...),
		bson.M{"$match": bson.M{"$expr": bson.M{"$and": equalities}}})

	stages := []bson.M{{"$lookup": bson.M{
		"from":     sub.Domain,
		"let":      let,
		"pipeline": rightStages,
		"as":       joinKeyField,
	}}}

	switch s.Type {
	case pipeline.JoinInner:
		stages = append(stages, bson.M{"$unwind": fieldPath(joinKeyField)})
	case pipeline.JoinLeft, pipeline.JoinLeftOuter:
		stages = append(stages, bson.M{"$unwind": bson.M{"path": fieldPath(joinKeyField), "preserveNullAndEmptyArrays": true}})
	default:
		return nil, fmt.Errorf("%w: unknown join type '%s'", pipequery.ErrInvalidStep, s.Type)
	}

	return append(stages,
		bson.M{"$replaceRoot": bson.M{"newRoot": bson.M{"$mergeObjects": bson.A{fieldPath(joinKeyField), "$$ROOT"}}}},
		bson.M{"$project": bson.M{joinKeyField: 0}},
	), nil
}

func (t *Translator) formula(s *pipeline.FormulaStep) ([]bson.M, error) {
	expr, err := FormulaExpression(s.Formula)
	if err != nil {
		return nil, err
	}

	return setColumn(s.NewColumn, expr), nil
}

// top sorts on RankOn, groups rows and keeps the Limit first of every group.
func (t *Translator) top(s *pipeline.TopStep) ([]bson.M, error) {
	limit, err := valuecast.ToInt(s.Limit)
	if err != nil {
		return nil, fmt.Errorf("limit: %w", err)
	}

	order := 1
	if s.Sort == pipeline.SortDesc {
		order = -1
	}

	return []bson.M{
		{"$sort": bson.D{{Key: s.RankOn, Value: order}}},
		{"$group": bson.M{"_id": groupID(s.Groups), appArrayField: bson.M{"$push": "$$ROOT"}}},
		{"$project": bson.M{topElemsField: bson.M{"$slice": bson.A{fieldPath(appArrayField), limit}}}},
		{"$unwind": fieldPath(topElemsField)},
		{"$replaceRoot": bson.M{"newRoot": fieldPath(topElemsField)}},
	}, nil
}

func (t *Translator) fillna(s *pipeline.FillnaStep) ([]bson.M, error) {
	fields := bson.M{}
	for _, c := range s.Columns {
		fields[c] = bson.M{"$ifNull": bson.A{fieldPath(c), literal(s.Value)}}
	}

	return []bson.M{{"$addFields": fields}}, nil
}

func (t *Translator) replace(s *pipeline.ReplaceStep) ([]bson.M, error) {
	branches := make(bson.A, 0, len(s.ToReplace))
	for _, pair := range s.ToReplace {
		branches = append(branches, bson.M{
			"case": bson.M{"$eq": bson.A{fieldPath(s.SearchColumn), literal(pair[0])}},
			"then": literal(pair[1]),
		})
	}

	if len(branches) == 0 {
		return nil, nil
	}

	return setColumn(s.SearchColumn, bson.M{"$switch": bson.M{
		"branches": branches,
		"default":  fieldPath(s.SearchColumn),
	}}), nil
}

func (t *Translator) dateExtract(s *pipeline.DateExtractStep) ([]bson.M, error) {
	if len(s.NewColumns) > 0 && len(s.NewColumns) != len(s.DateInfo) {
		return nil, fmt.Errorf("%w: %d date parts for %d new columns", pipequery.ErrInvalidStep, len(s.DateInfo), len(s.NewColumns))
	}

	fields := bson.M{}

	for i, part := range s.DateInfo {
		expr, err := DateExtractExpression(part, s.Column)
		if err != nil {
			return nil, err
		}

		name := s.Column + "_" + string(part)
		if len(s.NewColumns) > 0 {
			name = s.NewColumns[i]
		}

		fields[name] = expr
	}

	return []bson.M{{"$addFields": fields}}, nil
}

func (t *Translator) ifThenElse(s *pipeline.IfThenElseStep) ([]bson.M, error) {
	expr, err := t.branch(&s.IfThenElse)
	if err != nil {
		return nil, err
	}

	return setColumn(s.NewColumn, expr), nil
}

// branch compiles a branch chain into nested $cond; then and else values are formulas.
func (t *Translator) branch(b *pipeline.IfThenElse) (bson.M, error) {
	cond, err := buildExpression(b.If, t.backend().Supports(pipequery.FeatureRegexMatch))
	if err != nil {
		return nil, fmt.Errorf("if: %w", err)
	}

	then, err := FormulaExpression(b.Then)
	if err != nil {
		return nil, fmt.Errorf("then: %w", err)
	}

	var otherwise any

	if nested, ok := b.ElseBranch(); ok {
		otherwise, err = t.branch(nested)
	} else {
		otherwise, err = FormulaExpression(b.Else)
	}

	if err != nil {
		return nil, fmt.Errorf("else: %w", err)
	}

	return bson.M{"$cond": bson.M{"if": cond, "then": then, "else": otherwise}}, nil
}

func (t *Translator) selectColumns(s *pipeline.SelectStep) ([]bson.M, error) {
	fields := bson.M{}
	for _, c := range s.Columns {
		fields[c] = 1
	}

	return []bson.M{{"$project": fields}}, nil
}

func (t *Translator) deleteColumns(s *pipeline.DeleteStep) ([]bson.M, error) {
	fields := bson.M{}
	for _, c := range s.Columns {
		fields[c] = 0
	}

	return []bson.M{{"$project": fields}}, nil
}

func (t *Translator) rename(s *pipeline.RenameStep) ([]bson.M, error) {
	added := bson.M{}
	removed := bson.M{}

	for _, pair := range s.ToRename {
		added[pair[1]] = fieldPath(pair[0])
		removed[pair[0]] = 0
	}

	return []bson.M{{"$addFields": added}, {"$project": removed}}, nil
}

func (t *Translator) sort(s *pipeline.SortStep) ([]bson.M, error) {
	keys := bson.D{}

	for _, c := range s.Columns {
		order := 1
		if c.Order == pipeline.SortDesc {
			order = -1
		}

		keys = append(keys, bson.E{Key: c.Column, Value: order})
	}

	return []bson.M{{"$sort": keys}}, nil
}

// aggregate groups on On; keep_original_granularity merges the results back
// into every original row instead.
func (t *Translator) aggregate(s *pipeline.AggregateStep) ([]bson.M, error) {
	group := bson.M{"_id": groupID(s.On)}
	project := bson.M{"_id": 0}
	merged := bson.M{}

	for _, c := range s.On {
		project[c] = fieldPath("_id." + c)
	}

	for _, agg := range s.Aggregations {
		if len(agg.Columns) != len(agg.NewColumns) {
			return nil, fmt.Errorf("%w: %d columns for %d new columns", pipequery.ErrInvalidStep, len(agg.Columns), len(agg.NewColumns))
		}

		for i, column := range agg.Columns {
			newColumn := agg.NewColumns[i]

			accumulator, err := accumulate(agg.AggFunction, column)
			if err != nil {
				return nil, err
			}

			group[newColumn] = accumulator

			if agg.AggFunction == pipeline.AggCountDistinct {
				size := bson.M{"$size": fieldPath(newColumn)}
				project[newColumn] = size
				merged[newColumn] = size
			} else {
				project[newColumn] = 1
				merged[newColumn] = fieldPath(newColumn)
			}
		}
	}

	if !s.KeepOriginalGranularity {
		return []bson.M{{"$group": group}, {"$project": project}}, nil
	}

	group[appArrayField] = bson.M{"$push": "$$ROOT"}

	return append([]bson.M{{"$group": group}}, ungroup(merged)...), nil
}

func accumulate(fn pipeline.AggFunction, column string) (bson.M, error) {
	switch fn {
	case pipeline.AggSum:
		return bson.M{"$sum": fieldPath(column)}, nil
	case pipeline.AggAvg:
		return bson.M{"$avg": fieldPath(column)}, nil
	case pipeline.AggCount:
		return bson.M{"$sum": 1}, nil
	case pipeline.AggCountDistinct:
		return bson.M{"$addToSet": fieldPath(column)}, nil
	case pipeline.AggMin:
		return bson.M{"$min": fieldPath(column)}, nil
	case pipeline.AggMax:
		return bson.M{"$max": fieldPath(column)}, nil
	case pipeline.AggFirst:
		return bson.M{"$first": fieldPath(column)}, nil
	case pipeline.AggLast:
		return bson.M{"$last": fieldPath(column)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown aggregation function '%s'", pipequery.ErrInvalidStep, fn)
	}
}

// argExtremum keeps the rows of every group whose column equals the group extremum.
func (t *Translator) argExtremum(column string, groups []string, accumulator string) ([]bson.M, error) {
	stages := []bson.M{{"$group": bson.M{
		"_id":         groupID(groups),
		appArrayField: bson.M{"$push": "$$ROOT"},
		targetField:   bson.M{accumulator: fieldPath(column)},
	}}}
	stages = append(stages, ungroup(bson.M{targetField: fieldPath(targetField)})...)

	return append(stages,
		bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{fieldPath(column), fieldPath(targetField)}}}},
		bson.M{"$project": bson.M{targetField: 0}},
	), nil
}

func (t *Translator) concatenate(s *pipeline.ConcatenateStep) ([]bson.M, error) {
	parts := bson.A{}

	for i, c := range s.Columns {
		if i > 0 && s.Separator != "" {
			parts = append(parts, literal(s.Separator))
		}

		parts = append(parts, fieldPath(c))
	}

	return setColumn(s.NewColumnName, bson.M{"$concat": parts}), nil
}

func (t *Translator) uniqueGroups(s *pipeline.UniqueGroupsStep) ([]bson.M, error) {
	project := bson.M{"_id": 0}
	for _, c := range s.On {
		project[c] = fieldPath("_id." + c)
	}

	return []bson.M{{"$group": bson.M{"_id": groupID(s.On)}}, {"$project": project}}, nil
}

func (t *Translator) toDate(s *pipeline.ToDateStep) ([]bson.M, error) {
	args := bson.M{"dateString": fieldPath(s.Column)}

	if s.Format != "" {
		if err := t.require(pipequery.FeatureDateFormat, "parsing dates with a format"); err != nil {
			return nil, err
		}

		args["format"] = s.Format
	}

	return setColumn(s.Column, bson.M{"$dateFromString": args}), nil
}

func (t *Translator) fromDate(s *pipeline.FromDateStep) ([]bson.M, error) {
	return setColumn(s.Column, bson.M{"$dateToString": bson.M{"date": fieldPath(s.Column), "format": s.Format}}), nil
}

// substring keeps characters StartIndex..EndIndex (1-based, inclusive);
// negative indexes count from the end of the text.
func (t *Translator) substring(s *pipeline.SubstringStep) ([]bson.M, error) {
	if s.StartIndex == 0 || s.EndIndex == 0 {
		return nil, fmt.Errorf("%w: substring indexes are 1-based", pipequery.ErrInvalidStep)
	}

	length := bson.M{"$strLenCP": fieldPath(s.Column)}

	var start, end any

	if s.StartIndex > 0 {
		start = s.StartIndex - 1
	} else {
		start = bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{length, s.StartIndex}}}}
	}

	if s.EndIndex > 0 {
		end = s.EndIndex
	} else {
		end = bson.M{"$add": bson.A{length, s.EndIndex + 1}}
	}

	var count any

	startIndex, startFixed := start.(int)
	endIndex, endFixed := end.(int)

	if startFixed && endFixed {
		count = max(endIndex-startIndex, 0)
	} else {
		count = bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{end, start}}}}
	}

	newColumn := s.NewColumnName
	if newColumn == "" {
		newColumn = s.Column + "_SUBSTR"
	}

	return setColumn(newColumn, bson.M{"$substrCP": bson.A{fieldPath(s.Column), start, count}}), nil
}

func (t *Translator) trim(s *pipeline.TrimStep) ([]bson.M, error) {
	if err := t.require(pipequery.FeatureTrim, "$trim"); err != nil {
		return nil, err
	}

	fields := bson.M{}
	for _, c := range s.Columns {
		fields[c] = bson.M{"$trim": bson.M{"input": fieldPath(c)}}
	}

	return []bson.M{{"$addFields": fields}}, nil
}

// percentage divides the column by its group total; a zero total gives null.
func (t *Translator) percentage(s *pipeline.PercentageStep) ([]bson.M, error) {
	newColumn := s.NewColumnName
	if newColumn == "" {
		newColumn = s.Column + "_PCT"
	}

	stages := []bson.M{{"$group": bson.M{
		"_id":         groupID(s.Group),
		appArrayField: bson.M{"$push": "$$ROOT"},
		totalField:    bson.M{"$sum": fieldPath(s.Column)},
	}}}

	return append(stages, ungroup(bson.M{newColumn: bson.M{"$cond": bson.A{
		bson.M{"$eq": bson.A{fieldPath(totalField), 0}},
		nil,
		bson.M{"$divide": bson.A{fieldPath(appArrayField + "." + s.Column), fieldPath(totalField)}},
	}}})...), nil
}

// cumSum sorts on the reference column, collects every summed column per
// group and adds the sum of the prefix ending at each row.
func (t *Translator) cumSum(s *pipeline.CumSumStep) ([]bson.M, error) {
	if len(s.ToCumSum) == 0 {
		return nil, fmt.Errorf("%w: nothing to sum", pipequery.ErrInvalidStep)
	}

	group := bson.M{"_id": groupID(s.GroupBy), appArrayField: bson.M{"$push": "$$ROOT"}}
	sums := bson.M{}

	for _, pair := range s.ToCumSum {
		column, newColumn := pair[0], pair[1]
		if newColumn == "" {
			newColumn = column + "_CUMSUM"
		}

		collected := "_vqb_" + column
		group[collected] = bson.M{"$push": fieldPath(column)}
		sums[newColumn] = bson.M{"$sum": bson.M{"$slice": bson.A{
			fieldPath(collected),
			bson.M{"$add": bson.A{fieldPath(indexField), 1}},
		}}}
	}

	return []bson.M{
		{"$sort": bson.D{{Key: s.ReferenceColumn, Value: 1}}},
		{"$group": group},
		{"$unwind": bson.M{"path": fieldPath(appArrayField), "includeArrayIndex": indexField}},
		{"$replaceRoot": bson.M{"newRoot": bson.M{"$mergeObjects": bson.A{fieldPath(appArrayField), sums}}}},
	}, nil
}

func (t *Translator) convert(s *pipeline.ConvertStep) ([]bson.M, error) {
	if err := t.require(pipequery.FeatureConvert, "$convert"); err != nil {
		return nil, err
	}

	to, ok := convertTypes[s.DataType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown data type '%s'", pipequery.ErrInvalidStep, s.DataType)
	}

	fields := bson.M{}
	for _, c := range s.Columns {
		fields[c] = bson.M{"$convert": bson.M{"input": fieldPath(c), "to": to}}
	}

	return []bson.M{{"$addFields": fields}}, nil
}

// custom passes a stage object or a list of stage objects through.
func (t *Translator) custom(s *pipeline.CustomStep) ([]bson.M, error) {
	switch q := s.Query.(type) {
	case map[string]any:
		return []bson.M{bson.M(pipeline.CloneValue(q).(map[string]any))}, nil
	case []any:
		stages := make([]bson.M, 0, len(q))

		for i, elem := range q {
			stage, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: custom stage #%d is not an object", pipequery.ErrInvalidStep, i)
			}

			stages = append(stages, bson.M(pipeline.CloneValue(stage).(map[string]any)))
		}

		return stages, nil
	default:
		return nil, fmt.Errorf("%w: custom query must be an object or a list of objects", pipequery.ErrInvalidStep)
	}
}
