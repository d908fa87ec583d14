// Package mongo compiles pipelines into MongoDB aggregation queries.
package mongo

import (
	"fmt"

	"github.com/shibukawa/pipequery"
	"github.com/shibukawa/pipequery/pipeline"
	"go.mongodb.org/mongo-driver/bson"
)

// Query is a compiled aggregation: the collection to run it on and its stages.
type Query struct {
	Domain   string   `json:"domain"`
	Pipeline []bson.M `json:"pipeline"`
}

// Translator compiles dereferenced, interpolated pipelines.
type Translator struct {
	// Backend selects the server version; the zero value means pipequery.DefaultBackend.
	Backend pipequery.Backend
	// Simplify merges consecutive $match stages.
	Simplify bool
}

// NewTranslator returns a translator for backend.
func NewTranslator(backend pipequery.Backend) *Translator {
	return &Translator{Backend: backend}
}

func (t *Translator) backend() pipequery.Backend {
	if t.Backend == "" {
		return pipequery.DefaultBackend
	}

	return t.Backend
}

func (t *Translator) require(feature pipequery.Feature, what string) error {
	if !t.backend().Supports(feature) {
		return fmt.Errorf("%w: %s is not available on %s", pipequery.ErrUnsupportedFeature, what, t.backend())
	}

	return nil
}

// Translate compiles p. The first step must be a domain step naming the
// collection; it may not appear anywhere else.
func (t *Translator) Translate(p pipeline.Pipeline) (*Query, error) {
	if !t.backend().Valid() {
		return nil, fmt.Errorf("%w: unknown backend '%s'", pipequery.ErrUnsupportedFeature, t.backend())
	}

	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty pipeline", pipequery.ErrInvalidPipeline)
	}

	domain, ok := p[0].(*pipeline.DomainStep)
	if !ok {
		return nil, fmt.Errorf("%w: pipeline starts with '%s' instead of a domain step", pipequery.ErrInvalidPipeline, p[0].StepName())
	}

	q := &Query{Domain: domain.Domain, Pipeline: []bson.M{}}

	for i, step := range p[1:] {
		stages, err := t.translateStep(step)
		if err != nil {
			return nil, fmt.Errorf("step #%d (%s): %w", i+1, step.StepName(), err)
		}

		q.Pipeline = append(q.Pipeline, stages...)
	}

	if t.Simplify {
		q.Pipeline = Simplify(q.Pipeline)
	}

	return q, nil
}

func (t *Translator) translateStep(step pipeline.Step) ([]bson.M, error) {
	switch s := step.(type) {
	case *pipeline.DomainStep:
		return nil, fmt.Errorf("%w: domain step '%s' is only allowed first", pipequery.ErrInvalidPipeline, s.Domain)
	case *pipeline.FilterStep:
		return t.filter(s)
	case *pipeline.AppendStep:
		return t.appendPipelines(s)
	case *pipeline.JoinStep:
		return t.join(s)
	case *pipeline.FormulaStep:
		return t.formula(s)
	case *pipeline.TopStep:
		return t.top(s)
	case *pipeline.FillnaStep:
		return t.fillna(s)
	case *pipeline.ReplaceStep:
		return t.replace(s)
	case *pipeline.DateExtractStep:
		return t.dateExtract(s)
	case *pipeline.IfThenElseStep:
		return t.ifThenElse(s)
	case *pipeline.SelectStep:
		return t.selectColumns(s)
	case *pipeline.DeleteStep:
		return t.deleteColumns(s)
	case *pipeline.RenameStep:
		return t.rename(s)
	case *pipeline.SortStep:
		return t.sort(s)
	case *pipeline.AggregateStep:
		return t.aggregate(s)
	case *pipeline.ArgmaxStep:
		return t.argExtremum(s.Column, s.Groups, "$max")
	case *pipeline.ArgminStep:
		return t.argExtremum(s.Column, s.Groups, "$min")
	case *pipeline.LowercaseStep:
		return setColumn(s.Column, bson.M{"$toLower": fieldPath(s.Column)}), nil
	case *pipeline.UppercaseStep:
		return setColumn(s.Column, bson.M{"$toUpper": fieldPath(s.Column)}), nil
	case *pipeline.ConcatenateStep:
		return t.concatenate(s)
	case *pipeline.TextStep:
		return setColumn(s.NewColumn, bson.M{"$literal": s.Text}), nil
	case *pipeline.DuplicateStep:
		return setColumn(s.NewColumnName, fieldPath(s.Column)), nil
	case *pipeline.UniqueGroupsStep:
		return t.uniqueGroups(s)
	case *pipeline.ToDateStep:
		return t.toDate(s)
	case *pipeline.FromDateStep:
		return t.fromDate(s)
	case *pipeline.SubstringStep:
		return t.substring(s)
	case *pipeline.TrimStep:
		return t.trim(s)
	case *pipeline.PercentageStep:
		return t.percentage(s)
	case *pipeline.CumSumStep:
		return t.cumSum(s)
	case *pipeline.ConvertStep:
		return t.convert(s)
	case *pipeline.CompareTextStep:
		return setColumn(s.NewColumnName, bson.M{"$eq": bson.A{fieldPath(s.Str1), fieldPath(s.Str2)}}), nil
	case *pipeline.CustomStep:
		return t.custom(s)
	default:
		return nil, fmt.Errorf("%w: %s", pipequery.ErrUnsupportedStep, step.StepName())
	}
}

// Translate compiles p with the default backend.
func Translate(p pipeline.Pipeline) (*Query, error) {
	return (&Translator{}).Translate(p)
}
