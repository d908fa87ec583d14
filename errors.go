package pipequery

import "errors"

// Common errors used throughout the pipequery packages
var (
	// ErrCyclicReference is returned when named pipelines reference each other in a loop.
	// Dereferencing errors
	ErrCyclicReference = errors.New("cyclic pipeline reference")

	// ErrUnsupportedStep indicates a step kind outside the known set of steps.
	// Step model errors
	ErrUnsupportedStep = errors.New("unsupported step")
	// ErrInvalidStep indicates a step object could not be decoded into its kind.
	ErrInvalidStep = errors.New("invalid step")
	// ErrInvalidCondition indicates a condition object is neither simple, and nor or.
	ErrInvalidCondition = errors.New("invalid condition")
	// ErrInvalidReference indicates a pipeline reference is neither a name nor a pipeline.
	ErrInvalidReference = errors.New("invalid pipeline reference")

	// ErrMalformedConditionTree is returned when an editable tree breaks the single-condition rule.
	// Condition tree errors
	ErrMalformedConditionTree = errors.New("malformed condition tree")
	// ErrTreeTooDeep indicates an editable tree nests deeper than the editor supports.
	ErrTreeTooDeep = errors.New("condition tree is too deep for the editor")

	// ErrTemplateEvaluation indicates a template expression failed to compile or evaluate.
	// Interpolation errors
	ErrTemplateEvaluation = errors.New("template evaluation failed")
	// ErrInvalidNumber indicates a value could not be coerced to a number.
	ErrInvalidNumber = errors.New("invalid number")
	// ErrInvalidValue indicates a string could not be cast to the requested column type.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidPipeline indicates a pipeline does not meet translation preconditions.
	// Translation errors
	ErrInvalidPipeline = errors.New("invalid pipeline")
	// ErrUnsupportedOperator indicates a condition operator the backend cannot compile.
	ErrUnsupportedOperator = errors.New("unsupported operator")
	// ErrUnsupportedDatePart indicates a date part that has no extraction expression.
	ErrUnsupportedDatePart = errors.New("unsupported date part")
	// ErrUnsupportedFeature indicates the configured backend lacks a required feature.
	ErrUnsupportedFeature = errors.New("feature not supported by backend")
	// ErrInvalidFormula indicates a formula string could not be parsed.
	ErrInvalidFormula = errors.New("invalid formula")
)
