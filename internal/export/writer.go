// Package export writes the final churn table and its verification report.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"churnsim/internal/dataset"
)

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// DropAuxiliary removes every intermediate column present in df.
func DropAuxiliary(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	var present []string

	for _, name := range dataset.AuxiliaryColumns {
		if dataset.HasColumn(df, name) {
			present = append(present, name)
		}
	}

	if len(present) == 0 {
		return df, nil
	}

	out := df.Drop(present)
	if out.Err != nil {
		return df, fmt.Errorf("drop intermediate columns: %w", out.Err)
	}

	for _, name := range out.Names() {
		if slices.Contains(dataset.AuxiliaryColumns, name) {
			return df, fmt.Errorf("intermediate column %s survived drop", name)
		}
	}

	return out, nil
}

// Records renders df as CSV records, header first. Floats use the shortest
// representation that round-trips; missing values become empty cells.
func Records(df dataframe.DataFrame) [][]string {
	names := df.Names()
	records := make([][]string, df.Nrow()+1)
	records[0] = names

	for i := 1; i < len(records); i++ {
		records[i] = make([]string, len(names))
	}

	for c, name := range names {
		col := df.Col(name)
		missing := col.IsNaN()

		var cells []string
		if col.Type() == series.Float {
			cells = formatFloats(col.Float())
		} else {
			cells = col.Records()
		}

		for r, cell := range cells {
			if missing[r] {
				cell = ""
			}

			records[r+1][c] = cell
		}
	}

	return records
}

func formatFloats(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}

		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}

	return out
}

// PendingFile is a complete file written next to its target, waiting to
// replace it.
type PendingFile struct {
	path      string
	tmp       string
	committed bool
}

// StageFile writes a new file next to path through write and leaves it
// pending. Missing parent directories are created.
func StageFile(path string, write func(io.Writer) error) (_ *PendingFile, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temporary file: %w", err)
	}

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return nil, err
	}

	if err = tmp.Chmod(fileMode); err != nil {
		return nil, fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}

	if err = tmp.Sync(); err != nil {
		return nil, fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}

	if err = tmp.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", tmp.Name(), err)
	}

	return &PendingFile{path: path, tmp: tmp.Name()}, nil
}

// Path returns the final location of the file.
func (f *PendingFile) Path() string {
	return f.path
}

// Name returns where the content currently lives.
func (f *PendingFile) Name() string {
	if f.committed {
		return f.path
	}

	return f.tmp
}

// Commit renames the pending file over its target.
func (f *PendingFile) Commit() error {
	if f.committed {
		return nil
	}

	if err := os.Rename(f.tmp, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}

	f.committed = true

	return nil
}

// Discard removes the file, pending or committed.
func (f *PendingFile) Discard() error {
	if err := os.Remove(f.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", f.Name(), err)
	}

	return nil
}

// StageCSV writes df as CSV with a header and no index column to a pending
// file for path.
func StageCSV(df dataframe.DataFrame, path string) (*PendingFile, error) {
	return StageFile(path, func(w io.Writer) error {
		if err := csv.NewWriter(w).WriteAll(Records(df)); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}

		return nil
	})
}

// WriteCSV writes df to path. The table is first written to a temporary
// file next to path and renamed over path only once complete, so a failure
// never leaves a partial file behind.
func WriteCSV(df dataframe.DataFrame, path string) error {
	pending, err := StageCSV(df, path)
	if err != nil {
		return err
	}

	if err := pending.Commit(); err != nil {
		pending.Discard()
		return err
	}

	return nil
}
