package train

import (
	"github.com/agriml/yieldpipe/boost"
	"github.com/agriml/yieldpipe/core/model"
	"github.com/agriml/yieldpipe/pkg/errors"
	"github.com/agriml/yieldpipe/preprocessing"
)

// Bundle is the persisted training artifact: the fitted model, the
// exact column order its matrix was assembled in, the target name, and
// the scaler fitted during training. The scaler rides along for
// inspection and inverse transforms; inference does not reapply it.
type Bundle struct {
	Model          *boost.GBTRegressor
	FeatureColumns []string
	TargetColumn   string
	Scaler         *preprocessing.StandardScaler
}

// Save gob-encodes the bundle to path, creating parent directories.
func (b *Bundle) Save(path string) error {
	if err := model.Save(b, path); err != nil {
		return errors.NewBundleError(path, nil, err)
	}
	return nil
}

// LoadBundle reads a bundle and fails closed: a bundle without a fitted
// model or without feature columns is rejected rather than used.
func LoadBundle(path string) (*Bundle, error) {
	var b Bundle
	if err := model.Load(&b, path); err != nil {
		return nil, errors.NewBundleError(path, nil, err)
	}

	var missing []string
	if b.Model == nil || !b.Model.IsFitted() {
		missing = append(missing, "model")
	}
	if len(b.FeatureColumns) == 0 {
		missing = append(missing, "feature_columns")
	}
	if len(missing) > 0 {
		return nil, errors.NewBundleError(path, missing, nil)
	}
	return &b, nil
}
