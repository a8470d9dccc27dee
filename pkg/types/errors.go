package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFrequency rejects frequency values outside {hourly, daily}.
	ErrUnsupportedFrequency = errors.New("unsupported frequency")

	// ErrEmptyInput means a stage received no rows to process.
	ErrEmptyInput = errors.New("no rows to process")

	// ErrModelNotFound means the registry holds no artifact at the requested key.
	ErrModelNotFound = errors.New("model not found")
)

// SchemaError reports required columns absent from an input table.
// It aborts the stage that raised it.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ParseError reports a timestamp that could not be parsed on ingestion.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable timestamp %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PersistenceError marks a sink write failure for a single document. Callers
// log it and continue with the rest of the batch.
type PersistenceError struct {
	DeviceID string
	SiteID   string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist forecast for device %s site %s: %v", e.DeviceID, e.SiteID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
