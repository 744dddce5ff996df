package export

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churnsim/internal/dataset"
)

func finalFrame(t *testing.T) dataframe.DataFrame {
	t.Helper()

	df := dataframe.New(
		series.New([]int{0, 1, 0}, series.Int, "churn"),
		series.New([]string{"C-1", "C-2", "C-3"}, series.String, "customer_id"),
		series.New([]float64{2.2, 3, 1}, series.Float, "customer_support_network_quality_score"),
		series.New([]float64{75, 50, 62.5}, series.Float, "subscription_monthly_charges"),
	)
	require.NoError(t, df.Err)

	return df
}

func withAuxiliary(t *testing.T, df dataframe.DataFrame) dataframe.DataFrame {
	t.Helper()

	for _, name := range dataset.AuxiliaryColumns {
		df = df.Mutate(series.New([]float64{0.1, 0.2, 0.3}, series.Float, name))
		require.NoError(t, df.Err)
	}

	return df
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	return records
}

func TestDropAuxiliary(t *testing.T) {
	df := withAuxiliary(t, finalFrame(t))

	out, err := DropAuxiliary(df)
	require.NoError(t, err)

	assert.Equal(t, finalFrame(t).Names(), out.Names())

	for _, name := range dataset.AuxiliaryColumns {
		assert.NotContains(t, out.Names(), name)
	}
}

func TestDropAuxiliary_NothingToDrop(t *testing.T) {
	df := finalFrame(t)

	out, err := DropAuxiliary(df)
	require.NoError(t, err)
	assert.Equal(t, df.Names(), out.Names())
}

func TestRecords(t *testing.T) {
	df := finalFrame(t).Mutate(series.New([]float64{math.NaN(), 0.1, 1e-7}, series.Float, "score"))
	require.NoError(t, df.Err)

	assert.Equal(t, [][]string{
		{"churn", "customer_id", "customer_support_network_quality_score", "subscription_monthly_charges", "score"},
		{"0", "C-1", "2.2", "75", ""},
		{"1", "C-2", "3", "50", "0.1"},
		{"0", "C-3", "1", "62.5", "0.0000001"},
	}, Records(df))
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "churn.csv")

	require.NoError(t, WriteCSV(finalFrame(t), path))

	records := readCSV(t, path)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"churn", "customer_id", "customer_support_network_quality_score", "subscription_monthly_charges"}, records[0])
	assert.Equal(t, []string{"0", "C-1", "2.2", "75"}, records[1])

	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file is left behind")
}

func TestWriteCSV_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "churn.csv")
	require.NoError(t, os.WriteFile(path, []byte("old,content\n1,2\n3,4\n5,6\n7,8\n"), 0o644))

	require.NoError(t, WriteCSV(finalFrame(t), path))

	records := readCSV(t, path)
	require.Len(t, records, 4)
	assert.Equal(t, "churn", records[0][0])
}

func TestWriteCSV_FailureLeavesNoPartialFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "churn.csv")
	require.NoError(t, os.Mkdir(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "keep"), nil, 0o644))

	err := WriteCSV(finalFrame(t), target)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "churn.csv", entries[0].Name())
}

func TestWriteCSV_FileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "churn.csv")
	require.NoError(t, WriteCSV(finalFrame(t), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestStageCSV_CommitAndDiscard(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "churn.csv")

	pending, err := StageCSV(finalFrame(t), path)
	require.NoError(t, err)

	assert.NoFileExists(t, path, "nothing is visible before commit")
	assert.FileExists(t, pending.Name())
	assert.Equal(t, path, pending.Path())

	require.NoError(t, pending.Commit())
	assert.Equal(t, path, pending.Name())
	assert.Len(t, readCSV(t, path), 4)

	require.NoError(t, pending.Discard())
	assert.NoFileExists(t, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStageFile_WriteErrorRemovesTemporary(t *testing.T) {
	dir := t.TempDir()
	errBoom := errors.New("boom")

	_, err := StageFile(filepath.Join(dir, "report.md"), func(w io.Writer) error {
		if _, err := io.WriteString(w, "partial"); err != nil {
			return err
		}

		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
