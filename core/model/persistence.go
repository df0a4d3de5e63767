package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/agriml/yieldpipe/pkg/errors"
)

// Save gob-encodes v to path, creating parent directories as needed.
func Save(v interface{}, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %q", dir)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", path)
	}
	defer file.Close()

	return SaveToWriter(v, file)
}

// Load gob-decodes path into v, which must be a pointer.
func Load(v interface{}, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", path)
	}
	defer file.Close()

	return LoadFromReader(v, file)
}

// SaveToWriter gob-encodes v to w.
func SaveToWriter(v interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadFromReader gob-decodes r into v.
func LoadFromReader(v interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
