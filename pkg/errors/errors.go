// Package errors provides structured error types for the pipeline.
// Every constructor attaches a stack trace via cockroachdb/errors, and the
// error types carry zerolog marshalers so failures land in the logs as
// structured fields rather than flat strings.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// NotFittedError is returned when Predict or Transform is called on an
// estimator whose Fit has not run.
type NotFittedError struct {
	EstimatorName string
	Method        string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("yieldpipe: %s: estimator is not fitted yet; call Fit() before %s()", e.EstimatorName, e.Method)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("estimator", e.EstimatorName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(estimator, method string) error {
	err := &NotFittedError{EstimatorName: estimator, Method: method}
	return errors.WithStack(err)
}

// DimensionError reports an input whose shape disagrees with what the
// operation expects.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("yieldpipe: %s: dimension mismatch on axis %d (%s): expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValueError reports an argument whose value is invalid for the operation.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("yieldpipe: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ColumnError reports a requested column that is absent from the data and
// could not be recovered. Available lists the columns that do exist so the
// caller can see what was actually there.
type ColumnError struct {
	Column    string
	Role      string // "target" or "feature"
	Available []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("yieldpipe: %s column %q not found in data; available columns: %v", e.Role, e.Column, e.Available)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *ColumnError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).
		Str("role", e.Role).
		Strs("available", e.Available).
		Str("type", "ColumnError")
}

// NewColumnError creates a ColumnError with a stack trace.
func NewColumnError(column, role string, available []string) error {
	err := &ColumnError{Column: column, Role: role, Available: available}
	return errors.WithStack(err)
}

// DataQualityError reports a dataset that was flagged invalid before any
// model fitting was attempted, for example too few samples after cleaning.
type DataQualityError struct {
	Op      string
	Reason  string
	Samples int
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("yieldpipe: %s: %s (samples: %d)", e.Op, e.Reason, e.Samples)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *DataQualityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Int("samples", e.Samples).
		Str("type", "DataQualityError")
}

// NewDataQualityError creates a DataQualityError with a stack trace.
func NewDataQualityError(op, reason string, samples int) error {
	err := &DataQualityError{Op: op, Reason: reason, Samples: samples}
	return errors.WithStack(err)
}

// BundleError reports a model bundle that is missing, unreadable, or
// structurally incomplete.
type BundleError struct {
	Path    string
	Missing []string
	Err     error
}

func (e *BundleError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("yieldpipe: model bundle %q is incomplete; missing: %v", e.Path, e.Missing)
	}
	if e.Err != nil {
		return fmt.Sprintf("yieldpipe: model bundle %q unusable: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("yieldpipe: model bundle %q unusable", e.Path)
}

func (e *BundleError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *BundleError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Strs("missing", e.Missing).
		Str("type", "BundleError")
}

// NewBundleError creates a BundleError with a stack trace.
func NewBundleError(path string, missing []string, err error) error {
	bundleErr := &BundleError{Path: path, Missing: missing, Err: err}
	return errors.WithStack(bundleErr)
}

// SourceError reports a raw data source that could not be read. Readers
// treat these as non-fatal except for the yield source.
type SourceError struct {
	Source string
	Path   string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("yieldpipe: source %q (%s) unreadable: %v", e.Source, e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *SourceError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("source", e.Source).
		Str("path", e.Path).
		Str("type", "SourceError")
}

// NewSourceError creates a SourceError with a stack trace.
func NewSourceError(source, path string, err error) error {
	srcErr := &SourceError{Source: source, Path: path, Err: err}
	return errors.WithStack(srcErr)
}

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap annotates err with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates an error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack attaches a stack trace to err.
func WithStack(err error) error {
	return errors.WithStack(err)
}

var (
	// ErrEmptyData is returned when an operation receives no data.
	ErrEmptyData = New("empty data")

	// ErrNoYieldSource is returned when the mandatory yield source is
	// missing; without the target there is no row population to build.
	ErrNoYieldSource = New("yield source missing or empty")

	// ErrStoreUnavailable marks acquisition failures after retries are
	// exhausted; the resolver falls back to the snapshot file on it.
	ErrStoreUnavailable = New("feature store unavailable")
)
