package main

import "errors"

// Sentinel errors for command operations
var (
	ErrInputFileNotExist = errors.New("input file does not exist")
	ErrInvalidVariable   = errors.New("invalid variable, expected key=value")
	ErrPipelineNotFound  = errors.New("pipeline not found in scope file")
	ErrMissingInput      = errors.New("missing input")
)
