// internal/integration/integration_test.go
package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swineotype/internal/app"
	"swineotype/pkg/api"
)

// Stand-ins for the external tools. blastn replays <query>.<stem>.tsv,
// makeblastdb touches <out>.nin (failing for inputs named broken*), and
// samtools prints the base stored in <fasta>.base.
const fakeBlastn = `#!/bin/sh
q=""; db=""
while [ $# -gt 0 ]; do
  case "$1" in
    -query) q="$2"; shift 2;;
    -db) db="$2"; shift 2;;
    *) shift;;
  esac
done
stem=$(basename "$db"); stem=${stem#asmdb_}
if [ -f "$q.$stem.tsv" ]; then cat "$q.$stem.tsv"; fi
exit 0
`

const fakeMakeblastdb = `#!/bin/sh
in=""; out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -in) in="$2"; shift 2;;
    -out) out="$2"; shift 2;;
    *) shift;;
  esac
done
case "$(basename "$in")" in
  broken*) echo "BLAST Database error: bad input" >&2; exit 2;;
esac
touch "$out.nin"
`

const fakeSamtools = `#!/bin/sh
echo ">$3"
if [ -f "$2.base" ]; then cat "$2.base"; fi
`

const whitelist = `>wzy_1_a [type_id=1]
ACGT
>wzy_14_a [type_id=14]
ACGT
>wzx_7_a [type_id=7]
ACGT
`

type env struct {
	dir, bin, cfg, out, wl, res string
}

func row(cols ...string) string { return strings.Join(cols, "\t") + "\n" }

func setup(t *testing.T, tools ...string) env {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stand-ins need /bin/sh")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))
	scripts := map[string]string{"blastn": fakeBlastn, "makeblastdb": fakeMakeblastdb, "samtools": fakeSamtools}
	if len(tools) == 0 {
		tools = []string{"blastn", "makeblastdb", "samtools"}
	}
	for _, name := range tools {
		require.NoError(t, os.WriteFile(filepath.Join(bin, name), []byte(scripts[name]), 0o755))
	}
	t.Setenv("PATH", bin+string(os.PathListSeparator)+"/usr/bin"+string(os.PathListSeparator)+"/bin")

	data := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	e := env{
		dir: dir,
		bin: bin,
		cfg: filepath.Join(dir, "swineo.yaml"),
		out: filepath.Join(dir, "out"),
		wl:  filepath.Join(data, "suis_wzxwzy_whitelist.fasta"),
		res: filepath.Join(data, "suis_resolver_refs.fasta"),
	}
	require.NoError(t, os.WriteFile(e.wl, []byte(whitelist), 0o644))
	require.NoError(t, os.WriteFile(e.res, []byte(">cps|pair=1_vs_14|pos=481|baseA=G|A=1|B=14\nACGT\n"), 0o644))
	require.NoError(t, os.WriteFile(e.cfg, []byte(
		"data_dir: "+data+"\n"+
			"tmp_dir: "+filepath.Join(dir, "cache")+"\n"), 0o644))
	return e
}

// assembly writes an assembly plus the tables the fake blastn replays.
func (e env) assembly(t *testing.T, stem, wlHits, resHits, base string) string {
	t.Helper()
	p := filepath.Join(e.dir, stem+".fasta")
	require.NoError(t, os.WriteFile(p, []byte(">contig_1\nACGT\n"), 0o644))
	require.NoError(t, os.WriteFile(e.wl+"."+stem+".tsv", []byte(wlHits), 0o644))
	if resHits != "" {
		require.NoError(t, os.WriteFile(e.res+"."+stem+".tsv", []byte(resHits), 0o644))
	}
	if base != "" {
		require.NoError(t, os.WriteFile(p+".base", []byte(base+"\n"), 0o644))
	}
	return p
}

func TestEndToEnd(t *testing.T) {
	e := setup(t)
	s1 := e.assembly(t, "s1",
		row("wzx_7_a", "contig_1", "99.5", "900", "1000", "0.0", "1500", "1", "900", "100", "999"),
		"", "")
	s2 := e.assembly(t, "s2",
		row("wzy_14_a", "contig_1", "99", "900", "1000", "0.0", "2000", "1", "900", "100", "999")+
			row("wzy_1_a", "contig_2", "97", "900", "1000", "0.0", "1000", "1", "900", "100", "999"),
		row("cps|pair=1_vs_14|pos=481|baseA=G|A=1|B=14", "contig_7", "98", "600", "600", "0.0", "900", "1", "600", "600", "1"),
		"c")
	merged := filepath.Join(e.dir, "res", "merged.csv")
	jsonl := filepath.Join(e.dir, "res", "results.jsonl")

	var out, errBuf bytes.Buffer
	code := app.Run([]string{
		"--config", e.cfg, "--out_dir", e.out, "--threads", "1", "--jobs", "2",
		"--merged_csv", merged, "--jsonl", jsonl,
		"--assembly", filepath.Join(e.dir, "s*.fasta"),
	}, &out, &errBuf)
	require.Equal(t, 0, code, "stderr: %s", errBuf.String())

	assert.Contains(t, out.String(), "[OK] s1.fasta => 7 (STAGE1)")
	assert.Contains(t, out.String(), "[OK] s2.fasta => 1 (STAGE2)")
	assert.Contains(t, out.String(), "[INFO] Merged CSV written: "+merged)
	assert.FileExists(t, filepath.Join(e.out, "s1", "wzxwzy_vs_asm.tsv"))
	assert.FileExists(t, filepath.Join(e.out, "s2", "resolver_vs_asm.tsv"))
	assert.FileExists(t, filepath.Join(e.dir, "cache", "asmdb_s1.nin"))

	fh, err := os.Open(merged)
	require.NoError(t, err)
	defer fh.Close()
	rows, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"sample", "stage1_top", "ref_id", "contig", "contig_pos", "strand", "base", "status", "final_serotype"}, rows[0])
	assert.Equal(t, []string{s1, "7", "", "", "", "", "", "STAGE1", "7"}, rows[1])
	assert.Equal(t, []string{s2, "14", "cps|pair=1_vs_14|pos=481|baseA=G|A=1|B=14", "contig_7", "120", "-", "C", "STAGE2", "1"}, rows[2])

	jb, err := os.ReadFile(jsonl)
	require.NoError(t, err)
	sc := bufio.NewScanner(bytes.NewReader(jb))
	n := 0
	for sc.Scan() {
		var v api.SampleResultV1
		require.NoError(t, json.Unmarshal(sc.Bytes(), &v))
		assert.NotEmpty(t, v.RunID)
		n++
	}
	assert.Equal(t, 2, n)
}

func TestNativeExtractorWithoutSamtools(t *testing.T) {
	e := setup(t, "blastn", "makeblastdb")
	s := e.assembly(t, "s3",
		row("wzy_14_a", "contig_1", "99", "900", "1000", "0.0", "2000", "1", "900", "100", "999"),
		row("cps|pair=1_vs_14|pos=481|baseA=G|A=1|B=14", "contig_1", "98", "600", "600", "0.0", "900", "479", "482", "1", "4"),
		"")
	var out, errBuf bytes.Buffer
	code := app.Run([]string{"--config", e.cfg, "--out_dir", e.out, "--extractor", "native", "-q", s}, &out, &errBuf)
	require.Equal(t, 0, code, "stderr: %s", errBuf.String())
	// pos 481 maps to contig_1:3, which holds G (= baseA), so the call is B.
	assert.Contains(t, out.String(), "[OK] s3.fasta => 14 (STAGE2)")
}

func TestFailedSampleIsSkipped(t *testing.T) {
	e := setup(t)
	good := e.assembly(t, "ok", row("wzx_7_a", "contig_1", "99", "900", "1000", "0.0", "1500", "1", "900", "1", "900"), "", "")
	bad := e.assembly(t, "broken", "", "", "")
	merged := filepath.Join(e.dir, "merged.csv")

	var out, errBuf bytes.Buffer
	code := app.Run([]string{"--config", e.cfg, "--out_dir", e.out, "--quiet", "--merged_csv", merged, bad, good}, &out, &errBuf)
	assert.Equal(t, 3, code)
	assert.Contains(t, errBuf.String(), "[WARN] broken.fasta => SKIPPED")
	assert.Contains(t, errBuf.String(), "bad input")
	assert.Contains(t, out.String(), "[OK] ok.fasta => 7 (STAGE1)")

	b, err := os.ReadFile(merged)
	require.NoError(t, err)
	assert.Contains(t, string(b), bad+",,,,,,,SKIPPED,\n")
}

func TestNoCallStatuses(t *testing.T) {
	e := setup(t)
	// 14 leads but Stage-2 finds no resolver hit.
	s := e.assembly(t, "nohsp", row("wzy_14_a", "contig_1", "99", "900", "1000", "0.0", "2000", "1", "900", "1", "900"), "", "")
	merged := filepath.Join(e.dir, "merged.csv")
	jsonl := filepath.Join(e.dir, "nohsp.jsonl")
	var out, errBuf bytes.Buffer
	code := app.Run([]string{"--config", e.cfg, "--out_dir", e.out, "-q",
		"--merged_csv", merged, "--jsonl", jsonl, s}, &out, &errBuf)
	assert.Equal(t, 0, code)
	assert.Contains(t, errBuf.String(), "[WARN] nohsp.fasta => NO_CALL_STAGE2")

	b, err := os.ReadFile(merged)
	require.NoError(t, err)
	assert.Contains(t, string(b), s+",14,,,,,,NO_CALL_STAGE2,\n")
	jb, err := os.ReadFile(jsonl)
	require.NoError(t, err)
	assert.Contains(t, string(jb), `"status":"NO_CALL_STAGE2"`)
	assert.Contains(t, string(jb), `"stage2_status":"NO_HSP_OR_LOW_QUAL"`)
}

func TestMissingTool(t *testing.T) {
	e := setup(t, "blastn")
	s := e.assembly(t, "s1", "", "", "")
	t.Setenv("PATH", e.bin)
	var out, errBuf bytes.Buffer
	code := app.Run([]string{"--config", e.cfg, "--out_dir", e.out, s}, &out, &errBuf)
	assert.Equal(t, 2, code)
	assert.Contains(t, errBuf.String(), "makeblastdb")
	assert.Contains(t, errBuf.String(), "samtools")
}

func TestUsageErrors(t *testing.T) {
	e := setup(t)
	var out, errBuf bytes.Buffer
	assert.Equal(t, 2, app.Run([]string{"--out_dir", e.out}, &out, &errBuf))
	assert.Contains(t, errBuf.String(), "--assembly")

	errBuf.Reset()
	assert.Equal(t, 2, app.Run([]string{"--config", e.cfg, "--out_dir", e.out, filepath.Join(e.dir, "*.none")}, &out, &errBuf))
	assert.Contains(t, errBuf.String(), "no assemblies matched")

	errBuf.Reset()
	assert.Equal(t, 2, app.Run([]string{"--bogus"}, &out, &errBuf))
}

func TestVersionAndConfig(t *testing.T) {
	e := setup(t)
	var out, errBuf bytes.Buffer
	require.Equal(t, 0, app.Run([]string{"--version"}, &out, &errBuf))
	assert.True(t, strings.HasPrefix(out.String(), "swineotype version "))

	out.Reset()
	require.Equal(t, 0, app.Run([]string{"config", "--config", e.cfg}, &out, &errBuf), errBuf.String())
	assert.Contains(t, out.String(), "min_pid: 85")
	assert.Contains(t, out.String(), "tmp_dir: "+filepath.Join(e.dir, "cache"))
}

func TestCancelledRunExit130(t *testing.T) {
	e := setup(t)
	s := e.assembly(t, "s1", "", "", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out, errBuf bytes.Buffer
	code := app.RunContext(ctx, []string{"--config", e.cfg, "--out_dir", e.out, "-q", s}, &out, &errBuf)
	assert.Equal(t, 130, code)
}
