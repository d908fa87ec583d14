// Package pipeline defines the step model shared by every compilation pass.
//
// A Pipeline is an ordered list of steps. Each step kind is a distinct Go type
// implementing Step; the set of kinds is closed to this package, so passes can
// switch over the concrete types exhaustively.
package pipeline

import (
	"fmt"
	"sort"

	"github.com/shibukawa/pipequery"
)

// Name is the discriminator carried by every step in its "name" field.
type Name string

const (
	NameDomain       Name = "domain"
	NameFilter       Name = "filter"
	NameAppend       Name = "append"
	NameJoin         Name = "join"
	NameFormula      Name = "formula"
	NameTop          Name = "top"
	NameFillna       Name = "fillna"
	NameReplace      Name = "replace"
	NameDateExtract  Name = "dateextract"
	NameIfThenElse   Name = "ifthenelse"
	NameSelect       Name = "select"
	NameDelete       Name = "delete"
	NameRename       Name = "rename"
	NameSort         Name = "sort"
	NameAggregate    Name = "aggregate"
	NameArgmax       Name = "argmax"
	NameArgmin       Name = "argmin"
	NameLowercase    Name = "lowercase"
	NameUppercase    Name = "uppercase"
	NameConcatenate  Name = "concatenate"
	NameText         Name = "text"
	NameDuplicate    Name = "duplicate"
	NameUniqueGroups Name = "uniquegroups"
	NameToDate       Name = "todate"
	NameFromDate     Name = "fromdate"
	NameSubstring    Name = "substring"
	NameTrim         Name = "trim"
	NamePercentage   Name = "percentage"
	NameCumSum       Name = "cumsum"
	NameConvert      Name = "convert"
	NameCompareText  Name = "comparetext"
	NameCustom       Name = "custom"
)

// Step is one transformation unit of a pipeline.
type Step interface {
	StepName() Name
	clone() Step
}

var registry = map[Name]func() Step{
	NameDomain:       func() Step { return &DomainStep{} },
	NameFilter:       func() Step { return &FilterStep{} },
	NameAppend:       func() Step { return &AppendStep{} },
	NameJoin:         func() Step { return &JoinStep{} },
	NameFormula:      func() Step { return &FormulaStep{} },
	NameTop:          func() Step { return &TopStep{} },
	NameFillna:       func() Step { return &FillnaStep{} },
	NameReplace:      func() Step { return &ReplaceStep{} },
	NameDateExtract:  func() Step { return &DateExtractStep{} },
	NameIfThenElse:   func() Step { return &IfThenElseStep{} },
	NameSelect:       func() Step { return &SelectStep{} },
	NameDelete:       func() Step { return &DeleteStep{} },
	NameRename:       func() Step { return &RenameStep{} },
	NameSort:         func() Step { return &SortStep{} },
	NameAggregate:    func() Step { return &AggregateStep{} },
	NameArgmax:       func() Step { return &ArgmaxStep{} },
	NameArgmin:       func() Step { return &ArgminStep{} },
	NameLowercase:    func() Step { return &LowercaseStep{} },
	NameUppercase:    func() Step { return &UppercaseStep{} },
	NameConcatenate:  func() Step { return &ConcatenateStep{} },
	NameText:         func() Step { return &TextStep{} },
	NameDuplicate:    func() Step { return &DuplicateStep{} },
	NameUniqueGroups: func() Step { return &UniqueGroupsStep{} },
	NameToDate:       func() Step { return &ToDateStep{} },
	NameFromDate:     func() Step { return &FromDateStep{} },
	NameSubstring:    func() Step { return &SubstringStep{} },
	NameTrim:         func() Step { return &TrimStep{} },
	NamePercentage:   func() Step { return &PercentageStep{} },
	NameCumSum:       func() Step { return &CumSumStep{} },
	NameConvert:      func() Step { return &ConvertStep{} },
	NameCompareText:  func() Step { return &CompareTextStep{} },
	NameCustom:       func() Step { return &CustomStep{} },
}

// NewStep returns an empty step of the named kind.
func NewStep(name Name) (Step, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", pipequery.ErrUnsupportedStep, name)
	}

	return ctor(), nil
}

// StepNames lists every known step name in lexical order.
func StepNames() []Name {
	names := make([]Name, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names
}

// Pipeline is an ordered sequence of steps; each step consumes the output of the previous one.
type Pipeline []Step

// Clone returns a deep copy of the pipeline.
func (p Pipeline) Clone() Pipeline {
	if p == nil {
		return nil
	}

	out := make(Pipeline, len(p))
	for i, step := range p {
		out[i] = Clone(step)
	}

	return out
}

// Clone returns a deep copy of a single step.
func Clone(step Step) Step {
	if step == nil {
		return nil
	}

	return step.clone()
}

// Scope maps pipeline names to pipelines for dereferencing.
type Scope map[string]Pipeline
