// Package model holds the estimator plumbing shared by every fitted
// component: the fitted-state flag and gob persistence helpers.
package model

// EstimatorState tracks whether an estimator has been fitted.
type EstimatorState int

const (
	// NotFitted is the initial state of every estimator.
	NotFitted EstimatorState = iota
	// Fitted marks an estimator whose Fit has completed.
	Fitted
)

// BaseEstimator is embedded by every estimator to provide fitted-state
// bookkeeping. Predict/Transform implementations gate on IsFitted. The
// state field is exported so embedding estimators survive gob encoding;
// defining GobEncode here instead would be promoted onto the embedding
// type and silently truncate it to this one field.
type BaseEstimator struct {
	State EstimatorState
}

// IsFitted reports whether the estimator has been fitted.
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as fitted.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset returns the estimator to the unfitted state.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}
