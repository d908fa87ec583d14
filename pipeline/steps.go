package pipeline

// DomainStep selects the source dataset.
type DomainStep struct {
	Domain string `json:"domain"`
}

// FilterStep keeps the rows matching a condition.
type FilterStep struct {
	Condition Condition `json:"condition"`
}

// AppendStep unions the rows of other pipelines after the current rows.
type AppendStep struct {
	Pipelines []Reference `json:"pipelines"`
}

// JoinStep joins the current rows with the rows of another pipeline.
// On lists [left column, right column] pairs.
type JoinStep struct {
	RightPipeline Reference   `json:"right_pipeline"`
	Type          JoinType    `json:"type"`
	On            [][2]string `json:"on"`
}

// FormulaStep computes a new column from an arithmetic formula.
// Formula is a formula string or an already resolved number.
type FormulaStep struct {
	NewColumn string `json:"new_column"`
	Formula   any    `json:"formula"`
}

// TopStep keeps the Limit first rows per group ranked on a column.
type TopStep struct {
	Groups []string  `json:"groups,omitempty"`
	RankOn string    `json:"rank_on"`
	Sort   SortOrder `json:"sort"`
	Limit  any       `json:"limit"`
}

// FillnaStep replaces null values of columns.
type FillnaStep struct {
	Columns []string `json:"columns"`
	Value   any      `json:"value"`
}

// ReplaceStep replaces values of a column; ToReplace holds [old, new] pairs.
type ReplaceStep struct {
	SearchColumn string   `json:"search_column"`
	ToReplace    [][2]any `json:"to_replace"`
}

// DateExtractStep adds one column per extracted date part.
// NewColumns defaults to "<column>_<part>" when empty.
type DateExtractStep struct {
	Column     string     `json:"column"`
	DateInfo   []DatePart `json:"date_info"`
	NewColumns []string   `json:"new_columns,omitempty"`
}

// IfThenElseStep computes a column from a chain of conditional branches.
type IfThenElseStep struct {
	NewColumn string `json:"new_column"`
	IfThenElse
}

// SelectStep keeps only the listed columns.
type SelectStep struct {
	Columns []string `json:"columns"`
}

// DeleteStep drops the listed columns.
type DeleteStep struct {
	Columns []string `json:"columns"`
}

// RenameStep renames columns; ToRename holds [old, new] pairs.
type RenameStep struct {
	ToRename [][2]string `json:"to_rename"`
}

// SortColumn is one sort key.
type SortColumn struct {
	Column string    `json:"column"`
	Order  SortOrder `json:"order"`
}

// SortStep orders the rows.
type SortStep struct {
	Columns []SortColumn `json:"columns"`
}

// Aggregation applies one function to columns, producing NewColumns.
type Aggregation struct {
	Columns     []string    `json:"columns"`
	NewColumns  []string    `json:"newcolumns"`
	AggFunction AggFunction `json:"aggfunction"`
}

// AggregateStep groups rows by On and aggregates the other columns.
type AggregateStep struct {
	On                      []string      `json:"on"`
	Aggregations            []Aggregation `json:"aggregations"`
	KeepOriginalGranularity bool          `json:"keep_original_granularity,omitempty"`
}

// ArgmaxStep keeps the rows holding the maximum of a column per group.
type ArgmaxStep struct {
	Column string   `json:"column"`
	Groups []string `json:"groups,omitempty"`
}

// ArgminStep keeps the rows holding the minimum of a column per group.
type ArgminStep struct {
	Column string   `json:"column"`
	Groups []string `json:"groups,omitempty"`
}

// LowercaseStep lowercases a text column.
type LowercaseStep struct {
	Column string `json:"column"`
}

// UppercaseStep uppercases a text column.
type UppercaseStep struct {
	Column string `json:"column"`
}

// ConcatenateStep joins text columns with a separator.
type ConcatenateStep struct {
	Columns       []string `json:"columns"`
	Separator     string   `json:"separator"`
	NewColumnName string   `json:"new_column_name"`
}

// TextStep adds a column holding a constant.
type TextStep struct {
	NewColumn string `json:"new_column"`
	Text      any    `json:"text"`
}

// DuplicateStep copies a column.
type DuplicateStep struct {
	Column        string `json:"column"`
	NewColumnName string `json:"new_column_name"`
}

// UniqueGroupsStep keeps the distinct combinations of columns.
type UniqueGroupsStep struct {
	On []string `json:"on"`
}

// ToDateStep parses a text column into dates.
type ToDateStep struct {
	Column string `json:"column"`
	Format string `json:"format,omitempty"`
}

// FromDateStep formats a date column as text.
type FromDateStep struct {
	Column string `json:"column"`
	Format string `json:"format"`
}

// SubstringStep extracts characters StartIndex..EndIndex (1-based, inclusive).
// Negative indexes count from the end of the text.
type SubstringStep struct {
	Column        string `json:"column"`
	StartIndex    int    `json:"start_index"`
	EndIndex      int    `json:"end_index"`
	NewColumnName string `json:"new_column_name,omitempty"`
}

// TrimStep strips surrounding whitespace from text columns.
type TrimStep struct {
	Columns []string `json:"columns"`
}

// PercentageStep expresses a column as a share of its group total.
type PercentageStep struct {
	Column        string   `json:"column"`
	Group         []string `json:"group,omitempty"`
	NewColumnName string   `json:"new_column_name,omitempty"`
}

// CumSumStep computes running sums ordered by ReferenceColumn.
// ToCumSum holds [column, new column] pairs.
type CumSumStep struct {
	ToCumSum        [][2]string `json:"to_cumsum"`
	ReferenceColumn string      `json:"reference_column"`
	GroupBy         []string    `json:"groupby,omitempty"`
}

// ConvertStep converts columns to another type.
type ConvertStep struct {
	Columns  []string `json:"columns"`
	DataType DataType `json:"data_type"`
}

// CompareTextStep adds a boolean column telling whether two text columns are equal.
type CompareTextStep struct {
	NewColumnName string `json:"new_column_name"`
	Str1          string `json:"str1"`
	Str2          string `json:"str2"`
}

// CustomStep carries backend-native query stages verbatim.
type CustomStep struct {
	Query any `json:"query"`
}

func (*DomainStep) StepName() Name       { return NameDomain }
func (*FilterStep) StepName() Name       { return NameFilter }
func (*AppendStep) StepName() Name       { return NameAppend }
func (*JoinStep) StepName() Name         { return NameJoin }
func (*FormulaStep) StepName() Name      { return NameFormula }
func (*TopStep) StepName() Name          { return NameTop }
func (*FillnaStep) StepName() Name       { return NameFillna }
func (*ReplaceStep) StepName() Name      { return NameReplace }
func (*DateExtractStep) StepName() Name  { return NameDateExtract }
func (*IfThenElseStep) StepName() Name   { return NameIfThenElse }
func (*SelectStep) StepName() Name       { return NameSelect }
func (*DeleteStep) StepName() Name       { return NameDelete }
func (*RenameStep) StepName() Name       { return NameRename }
func (*SortStep) StepName() Name         { return NameSort }
func (*AggregateStep) StepName() Name    { return NameAggregate }
func (*ArgmaxStep) StepName() Name       { return NameArgmax }
func (*ArgminStep) StepName() Name       { return NameArgmin }
func (*LowercaseStep) StepName() Name    { return NameLowercase }
func (*UppercaseStep) StepName() Name    { return NameUppercase }
func (*ConcatenateStep) StepName() Name  { return NameConcatenate }
func (*TextStep) StepName() Name         { return NameText }
func (*DuplicateStep) StepName() Name    { return NameDuplicate }
func (*UniqueGroupsStep) StepName() Name { return NameUniqueGroups }
func (*ToDateStep) StepName() Name       { return NameToDate }
func (*FromDateStep) StepName() Name     { return NameFromDate }
func (*SubstringStep) StepName() Name    { return NameSubstring }
func (*TrimStep) StepName() Name         { return NameTrim }
func (*PercentageStep) StepName() Name   { return NamePercentage }
func (*CumSumStep) StepName() Name       { return NameCumSum }
func (*ConvertStep) StepName() Name      { return NameConvert }
func (*CompareTextStep) StepName() Name  { return NameCompareText }
func (*CustomStep) StepName() Name       { return NameCustom }

func (s *DomainStep) clone() Step {
	c := *s

	return &c
}

func (s *FilterStep) clone() Step {
	return &FilterStep{Condition: CloneCondition(s.Condition)}
}

func (s *AppendStep) clone() Step {
	return &AppendStep{Pipelines: cloneReferences(s.Pipelines)}
}

func (s *JoinStep) clone() Step {
	return &JoinStep{RightPipeline: s.RightPipeline.Clone(), Type: s.Type, On: clonePairs(s.On)}
}

func (s *FormulaStep) clone() Step {
	return &FormulaStep{NewColumn: s.NewColumn, Formula: CloneValue(s.Formula)}
}

func (s *TopStep) clone() Step {
	return &TopStep{Groups: cloneStrings(s.Groups), RankOn: s.RankOn, Sort: s.Sort, Limit: CloneValue(s.Limit)}
}

func (s *FillnaStep) clone() Step {
	return &FillnaStep{Columns: cloneStrings(s.Columns), Value: CloneValue(s.Value)}
}

func (s *ReplaceStep) clone() Step {
	return &ReplaceStep{SearchColumn: s.SearchColumn, ToReplace: cloneValuePairs(s.ToReplace)}
}

func (s *DateExtractStep) clone() Step {
	c := &DateExtractStep{Column: s.Column, NewColumns: cloneStrings(s.NewColumns)}
	if s.DateInfo != nil {
		c.DateInfo = append([]DatePart{}, s.DateInfo...)
	}

	return c
}

func (s *IfThenElseStep) clone() Step {
	return &IfThenElseStep{NewColumn: s.NewColumn, IfThenElse: *s.IfThenElse.Clone()}
}

func (s *SelectStep) clone() Step {
	return &SelectStep{Columns: cloneStrings(s.Columns)}
}

func (s *DeleteStep) clone() Step {
	return &DeleteStep{Columns: cloneStrings(s.Columns)}
}

func (s *RenameStep) clone() Step {
	return &RenameStep{ToRename: clonePairs(s.ToRename)}
}

func (s *SortStep) clone() Step {
	c := &SortStep{}
	if s.Columns != nil {
		c.Columns = append([]SortColumn{}, s.Columns...)
	}

	return c
}

func (s *AggregateStep) clone() Step {
	c := &AggregateStep{On: cloneStrings(s.On), KeepOriginalGranularity: s.KeepOriginalGranularity}
	if s.Aggregations != nil {
		c.Aggregations = make([]Aggregation, len(s.Aggregations))
		for i, a := range s.Aggregations {
			c.Aggregations[i] = Aggregation{
				Columns:     cloneStrings(a.Columns),
				NewColumns:  cloneStrings(a.NewColumns),
				AggFunction: a.AggFunction,
			}
		}
	}

	return c
}

func (s *ArgmaxStep) clone() Step {
	return &ArgmaxStep{Column: s.Column, Groups: cloneStrings(s.Groups)}
}

func (s *ArgminStep) clone() Step {
	return &ArgminStep{Column: s.Column, Groups: cloneStrings(s.Groups)}
}

func (s *LowercaseStep) clone() Step {
	c := *s

	return &c
}

func (s *UppercaseStep) clone() Step {
	c := *s

	return &c
}

func (s *ConcatenateStep) clone() Step {
	return &ConcatenateStep{Columns: cloneStrings(s.Columns), Separator: s.Separator, NewColumnName: s.NewColumnName}
}

func (s *TextStep) clone() Step {
	return &TextStep{NewColumn: s.NewColumn, Text: CloneValue(s.Text)}
}

func (s *DuplicateStep) clone() Step {
	c := *s

	return &c
}

func (s *UniqueGroupsStep) clone() Step {
	return &UniqueGroupsStep{On: cloneStrings(s.On)}
}

func (s *ToDateStep) clone() Step {
	c := *s

	return &c
}

func (s *FromDateStep) clone() Step {
	c := *s

	return &c
}

func (s *SubstringStep) clone() Step {
	c := *s

	return &c
}

func (s *TrimStep) clone() Step {
	return &TrimStep{Columns: cloneStrings(s.Columns)}
}

func (s *PercentageStep) clone() Step {
	return &PercentageStep{Column: s.Column, Group: cloneStrings(s.Group), NewColumnName: s.NewColumnName}
}

func (s *CumSumStep) clone() Step {
	return &CumSumStep{ToCumSum: clonePairs(s.ToCumSum), ReferenceColumn: s.ReferenceColumn, GroupBy: cloneStrings(s.GroupBy)}
}

func (s *ConvertStep) clone() Step {
	return &ConvertStep{Columns: cloneStrings(s.Columns), DataType: s.DataType}
}

func (s *CompareTextStep) clone() Step {
	c := *s

	return &c
}

func (s *CustomStep) clone() Step {
	return &CustomStep{Query: CloneValue(s.Query)}
}

