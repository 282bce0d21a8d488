package whitelist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `>cps1_wzy_01 capsule [type_id=1] len=1200
ACGTACGTAC
GTACGTAC
>cps14_WZX_02 [type_id=14]
ACGTTTGA
>orphan_allele no label here
ACGT
>cps2_wzy [type_id=1/2] [type_id=2]
ACGG
`

func TestRead(t *testing.T) {
	a, err := Read(strings.NewReader(fixture))
	require.NoError(t, err)
	require.Equal(t, 4, a.Len())

	l, ok := a.LabelOf("cps1_wzy_01")
	assert.True(t, ok)
	assert.Equal(t, "1", l)
	assert.Equal(t, GeneWzy, a.GeneClass["cps1_wzy_01"])

	l, _ = a.LabelOf("cps14_WZX_02")
	assert.Equal(t, "14", l)
	assert.Equal(t, GeneWzx, a.GeneClass["cps14_WZX_02"])

	_, ok = a.LabelOf("orphan_allele")
	assert.False(t, ok)
	assert.Equal(t, GeneNone, a.GeneClass["orphan_allele"])

	// first type_id token wins
	l, _ = a.LabelOf("cps2_wzy")
	assert.Equal(t, "1/2", l)
}

func TestClassifyOrder(t *testing.T) {
	assert.Equal(t, GeneWzy, Classify("wzx_wzy_fusion"))
	assert.Equal(t, GeneWzx, Classify("cpsWZX"))
	assert.Equal(t, GeneNone, Classify("cpsA"))
}

func TestParseFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "wl.fasta")
	require.NoError(t, os.WriteFile(p, []byte(fixture), 0o644))
	a, err := Parse(p)
	require.NoError(t, err)
	assert.Equal(t, 4, a.Len())
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.fasta"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
