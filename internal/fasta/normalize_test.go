// internal/fasta/normalize_test.go
package fasta

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestPrepareCRLF(t *testing.T) {
	in := t.TempDir()
	cache := t.TempDir()
	p := write(t, in, "test_crlf.fasta", []byte(">seq1\r\nATGC\r\n"))

	out, copied, err := Prepare(p, cache)
	require.NoError(t, err)
	assert.True(t, copied)
	assert.NotEqual(t, p, out)
	assert.Equal(t, "test_crlf.fasta", filepath.Base(out))
	assert.Equal(t, cache, filepath.Dir(filepath.Dir(out)))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, ">seq1\nATGC\n", string(got))
}

func TestPrepareLFUntouched(t *testing.T) {
	in := t.TempDir()
	p := write(t, in, "test_lf.fasta", []byte(">seq1\nATGC\n"))
	out, copied, err := Prepare(p, t.TempDir())
	require.NoError(t, err)
	assert.False(t, copied)
	assert.Equal(t, p, out)
}

func TestPrepareGzip(t *testing.T) {
	in := t.TempDir()
	p := filepath.Join(in, "asm.fa.gz")
	fh, err := os.Create(p)
	require.NoError(t, err)
	gw := gzip.NewWriter(fh)
	_, err = gw.Write([]byte(">c1\r\nACGT\r\nAC"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, fh.Close())

	cache := t.TempDir()
	out, copied, err := Prepare(p, cache)
	require.NoError(t, err)
	assert.True(t, copied)
	assert.Equal(t, "asm.fa", filepath.Base(out))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, ">c1\nACGT\nAC\n", string(got))
}

func TestPrepareSameNameSeparateCopies(t *testing.T) {
	cache := t.TempDir()
	a := write(t, t.TempDir(), "asm.fasta", []byte(">c1\r\nAAAA\r\n"))
	b := write(t, t.TempDir(), "asm.fasta", []byte(">c2\r\nCCCCCCCC\r\n"))

	outA, _, err := Prepare(a, cache)
	require.NoError(t, err)
	outB, _, err := Prepare(b, cache)
	require.NoError(t, err)
	require.NotEqual(t, outA, outB)
	assert.Equal(t, "asm.fasta", filepath.Base(outB))

	got, err := os.ReadFile(outA)
	require.NoError(t, err)
	assert.Equal(t, ">c1\nAAAA\n", string(got))
	got, err = os.ReadFile(outB)
	require.NoError(t, err)
	assert.Equal(t, ">c2\nCCCCCCCC\n", string(got))

	// Releasing one copy leaves the other in place.
	write(t, filepath.Dir(outA), "asm.fasta.fai", []byte("c1\t4\t4\t4\t5\n"))
	require.NoError(t, Release(outA))
	assert.NoDirExists(t, filepath.Dir(outA))
	assert.FileExists(t, outB)
}

func TestPrepareMissing(t *testing.T) {
	_, _, err := Prepare(filepath.Join(t.TempDir(), "nope.fa"), t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "sample1", Stem("/data/sample1.fasta"))
	assert.Equal(t, "sample1", Stem("sample1.fa.gz"))
	assert.Equal(t, "s.v1", Stem("dir/s.v1.fna"))
	assert.Equal(t, "noext", Stem("noext"))
}
