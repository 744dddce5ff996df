package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndExtract(t *testing.T) {
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	signed := Sign("# Report\n\nbody\n", Metadata{
		RunID:      "run-1",
		Version:    "v1.2.3",
		Seed:       42,
		Rows:       3,
		InputHash:  "abc",
		OutputHash: "def",
		LastModify: stamp,
	})

	meta, clean := Extract(signed)
	require.NotNil(t, meta)
	assert.Equal(t, "# Report\n\nbody", clean)
	assert.Equal(t, "run-1", meta.RunID)
	assert.Equal(t, "v1.2.3", meta.Version)
	assert.Equal(t, uint64(42), meta.Seed)
	assert.Equal(t, 3, meta.Rows)
	assert.Equal(t, "abc", meta.InputHash)
	assert.Equal(t, "def", meta.OutputHash)
	assert.True(t, meta.LastModify.Equal(stamp))
	assert.Equal(t, CalculateHash(clean), meta.Hash)
}

func TestSign_ReplacesExistingBlock(t *testing.T) {
	first := Sign("body", Metadata{RunID: "first"})
	second := Sign(first, Metadata{RunID: "second"})

	meta, clean := Extract(second)
	require.NotNil(t, meta)
	assert.Equal(t, "body", clean)
	assert.Equal(t, "second", meta.RunID)
}

func TestVerify(t *testing.T) {
	signed := Sign("content", Metadata{RunID: "r"})

	ok, err := Verify(signed)
	require.NoError(t, err)
	assert.True(t, ok)

	tampered := "changed" + signed[len("content"):]
	ok, err = Verify(tampered)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrHashMismatch)
}

func TestVerify_NoBlock(t *testing.T) {
	ok, err := Verify("plain text")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNoMetadataBlock)
}

func TestVerify_NoHash(t *testing.T) {
	content := "text\n\n" + TagStart + "\nRUN_ID: x\n" + TagEnd

	ok, err := Verify(content)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNoHashFound)
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	got, err := HashFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 64)

	again, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	_, err = HashFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
