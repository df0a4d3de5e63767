package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/agriml/yieldpipe/pkg/errors"
)

// ReadCSV loads a CSV file into a frame. The first record supplies the
// column names; every cell is read as a string, with empty cells becoming
// null. Numeric coercion is a separate, explicit step.
func ReadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	defer file.Close()

	return ReadCSVFrom(file)
}

// ReadCSVFrom reads CSV data from r into a frame.
func ReadCSVFrom(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.ErrEmptyData
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV header")
	}

	frame := New(header...)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read CSV record")
		}
		row := make(map[string]Value, len(header))
		for i, col := range header {
			if i >= len(record) || record[i] == "" {
				row[col] = Null()
				continue
			}
			row[col] = Str(record[i])
		}
		frame.AppendRow(row)
	}
	return frame, nil
}

// WriteCSV writes the frame to path, creating parent directories as
// needed. Null cells are written empty; numeric cells use their shortest
// exact decimal form.
func WriteCSV(f *Frame, path string) error {
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

	return WriteCSVTo(f, file)
}

// WriteCSVTo writes the frame as CSV to w.
func WriteCSVTo(f *Frame, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.Columns()); err != nil {
		return errors.Wrap(err, "failed to write CSV header")
	}
	record := make([]string, len(f.Columns()))
	for i := 0; i < f.NumRows(); i++ {
		for j, col := range f.Columns() {
			record[j] = f.At(i, col).Display()
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, "failed to write CSV record")
		}
	}
	writer.Flush()
	return errors.WithStack(writer.Error())
}
