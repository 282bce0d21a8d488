package stage2

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swineotype/core/hsp"
)

var knownPairs = []string{"1_vs_14", "2_vs_1_2"}

func TestMapToContig(t *testing.T) {
	pos, s := MapToContig(481, 1, 1, 1000)
	assert.Equal(t, 481, pos)
	assert.Equal(t, Forward, s)

	pos, s = MapToContig(481, 1, 1000, 1)
	assert.Equal(t, 520, pos)
	assert.Equal(t, Reverse, s)

	pos, s = MapToContig(150, 101, 5000, 5400)
	assert.Equal(t, 5049, pos)
	assert.Equal(t, Forward, s)
}

func TestSpans(t *testing.T) {
	assert.True(t, Spans(481, 1, 1000))
	assert.True(t, Spans(481, 1000, 1))
	assert.True(t, Spans(1, 1, 1))
	assert.False(t, Spans(1001, 1, 1000))
	assert.False(t, Spans(0, 1, 1000))
}

func rhit(q, contig string, pid float64, length int, bits float64, qs, qe, ss, se int) hsp.Hit {
	return hsp.Hit{QSeqID: q, SSeqID: contig, PIdent: pid, Length: length, QLen: length,
		BitScore: bits, QStart: qs, QEnd: qe, SStart: ss, SEnd: se}
}

const ref114 = "cpsK|pair=1_vs_14|pos=481|baseA=G|A=1|B=14"
const ref2 = "cpsK2|pair=2_vs_1_2|pos=300|baseA=C|A=2|B=1/2"

func TestSelectBest(t *testing.T) {
	th := Thresholds{MinPID: 90, MinAlen: 300}
	hits := []hsp.Hit{
		rhit(ref114, "c1", 99, 1000, 1500, 1, 1000, 1, 1000),
		rhit(ref114, "c9", 99, 1000, 1800, 1, 1000, 2000, 1001),
		rhit(ref2, "c2", 100, 1000, 9000, 1, 1000, 1, 1000), // other pair
	}
	ev, err := Select(hits, "1_vs_14", th)
	require.NoError(t, err)
	require.NotNil(t, ev)
	want := &Evidence{RefID: ref114, Contig: "c9", ContigPos: 1520, Strand: Reverse,
		PIdent: 99, Length: 1000, BitScore: 1800, Pair: "1_vs_14"}
	if diff := cmp.Diff(want, ev); diff != "" {
		t.Fatalf("evidence mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "c9:1520-1520", ev.Region())
}

func TestSelectTieKeepsFirst(t *testing.T) {
	th := Thresholds{MinPID: 90, MinAlen: 300}
	hits := []hsp.Hit{
		rhit(ref114, "first", 99, 1000, 1500, 1, 1000, 1, 1000),
		rhit(ref114, "second", 99, 1000, 1500, 1, 1000, 1, 1000),
	}
	ev, err := Select(hits, "1_vs_14", th)
	require.NoError(t, err)
	assert.Equal(t, "first", ev.Contig)
}

func TestSelectNothingQualifies(t *testing.T) {
	th := Thresholds{MinPID: 90, MinAlen: 300}
	hits := []hsp.Hit{
		rhit(ref114, "c1", 89.9, 1000, 1500, 1, 1000, 1, 1000), // identity
		rhit(ref114, "c1", 99, 299, 1500, 1, 299, 1, 299),      // length, and span
		rhit(ref114, "c1", 99, 400, 1500, 500, 900, 1, 400),    // site outside span
		rhit("plain_ref", "c1", 99, 1000, 1500, 1, 1000, 1, 1000),
	}
	ev, err := Select(hits, "1_vs_14", th)
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestSelectNoPairFilter(t *testing.T) {
	ev, err := Select([]hsp.Hit{rhit(ref2, "c2", 99, 1000, 10, 1, 1000, 1, 1000)}, "", Thresholds{})
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "2_vs_1_2", ev.Pair)
}

func TestSelectBadMeta(t *testing.T) {
	_, err := Select([]hsp.Hit{rhit("r|pos=x", "c", 99, 1000, 1, 1, 1000, 1, 1000)}, "", Thresholds{})
	require.Error(t, err)
}

func TestInterpretInversion(t *testing.T) {
	ev := &Evidence{RefID: "r|pair=1_vs_14|pos=5|baseA=T|A=14|B=1", Base: "T"}
	got, ok := Interpret(ev, knownPairs)
	require.True(t, ok)
	assert.Equal(t, "1", got)

	for _, b := range []string{"A", "C", "G", "N"} {
		ev.Base = b
		got, ok = Interpret(ev, knownPairs)
		require.True(t, ok)
		assert.Equal(t, "14", got, "base %s", b)
	}
}

func TestInterpretNoCall(t *testing.T) {
	_, ok := Interpret(nil, knownPairs)
	assert.False(t, ok)

	_, ok = Interpret(&Evidence{RefID: "r|pair=3_vs_7|pos=5|A=3|B=7", Base: "G"}, knownPairs)
	assert.False(t, ok)
}
