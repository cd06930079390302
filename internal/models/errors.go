package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrModelNotLoaded = errors.New("model not loaded")

// ValidationError rejects a malformed predict payload before inference.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid request: %s: %s", strings.Join(e.Fields, ", "), e.Reason)
}

// LoadError aborts startup when the model or the log sink cannot be opened.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// InferenceError wraps a failure raised by the model during prediction.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return "inference failed: " + e.Err.Error()
}

func (e *InferenceError) Unwrap() error { return e.Err }

// LogWriteError reports an audit record that could not be persisted.
type LogWriteError struct {
	Err error
}

func (e *LogWriteError) Error() string {
	return "audit log write failed: " + e.Err.Error()
}

func (e *LogWriteError) Unwrap() error { return e.Err }
