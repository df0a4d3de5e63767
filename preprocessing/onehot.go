package preprocessing

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/agriml/yieldpipe/core/model"
	"github.com/agriml/yieldpipe/pkg/errors"
)

// OneHotEncoder expands one categorical column into indicator columns,
// one per category seen at fit time. Categories are ordered
// lexicographically so the expanded column order is deterministic across
// runs. Unseen categories transform to an all-zero row.
type OneHotEncoder struct {
	model.BaseEstimator

	// Prefix names the source column; expanded columns are named
	// "<Prefix>_<category>".
	Prefix string

	// Categories holds the sorted distinct values seen at fit time.
	Categories []string
}

// NewOneHotEncoder creates an unfitted encoder for the named column.
func NewOneHotEncoder(prefix string) *OneHotEncoder {
	return &OneHotEncoder{Prefix: prefix}
}

// Fit collects the distinct categories from values.
func (e *OneHotEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "OneHotEncoder.Fit")
	}

	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	e.Categories = make([]string, 0, len(seen))
	for v := range seen {
		e.Categories = append(e.Categories, v)
	}
	sort.Strings(e.Categories)

	e.SetFitted()
	return nil
}

// FeatureNames returns the expanded column names in category order.
func (e *OneHotEncoder) FeatureNames() []string {
	names := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		names[i] = e.Prefix + "_" + c
	}
	return names
}

// Transform produces the indicator matrix for values, one row per input
// value and one column per fitted category.
func (e *OneHotEncoder) Transform(values []string) (*mat.Dense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}

	index := make(map[string]int, len(e.Categories))
	for i, c := range e.Categories {
		index[c] = i
	}

	result := mat.NewDense(len(values), len(e.Categories), nil)
	for i, v := range values {
		if j, ok := index[v]; ok {
			result.Set(i, j, 1)
		}
	}
	return result, nil
}

// FitTransform fits on values and returns their indicator matrix.
func (e *OneHotEncoder) FitTransform(values []string) (*mat.Dense, error) {
	if err := e.Fit(values); err != nil {
		return nil, err
	}
	return e.Transform(values)
}
