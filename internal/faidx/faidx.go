// Package faidx extracts single bases from an assembly at 1-based contig
// positions, either through `samtools faidx` or natively from a .fai index.
package faidx

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/biogo/hts/fai"

	"swineotype/core/stage2"
	"swineotype/internal/runutil"
	"swineotype/internal/toolrun"
)

// Extractor names accepted by New.
const (
	KindSamtools = "samtools"
	KindNative   = "native"
)

// Extractor returns the uppercase base at contig:pos of fastaPath, or
// stage2.UnknownBase when no sequence comes back.
type Extractor interface {
	Base(ctx context.Context, fastaPath, contig string, pos int) (string, error)
}

// New returns the extractor for kind.
func New(kind string, r toolrun.Runner) (Extractor, error) {
	switch kind {
	case KindSamtools, "":
		return Samtools{Runner: r}, nil
	case KindNative:
		return NewNative(), nil
	}
	return nil, fmt.Errorf("unknown extractor %q (want %s | %s)", kind, KindSamtools, KindNative)
}

// Tools lists the executables an extractor of kind needs.
func Tools(kind string) []string {
	if kind == KindNative {
		return nil
	}
	return []string{"samtools"}
}

// Region renders a one-base samtools region.
func Region(contig string, pos int) string { return fmt.Sprintf("%s:%d-%d", contig, pos, pos) }

// Samtools shells out to `samtools faidx <fasta> <region>`.
type Samtools struct {
	Runner toolrun.Runner
}

// Base runs samtools on the single-base region contig:pos.
func (s Samtools) Base(ctx context.Context, fastaPath, contig string, pos int) (string, error) {
	out, err := s.Runner.Run(ctx, "samtools", "faidx", fastaPath, Region(contig, pos))
	if err != nil {
		return "", err
	}
	return BaseFromFASTA(out), nil
}

// BaseFromFASTA takes the second line of a header+sequence block,
// uppercased. Anything shorter yields stage2.UnknownBase.
func BaseFromFASTA(out []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	n := 0
	for sc.Scan() {
		n++
		if n == 2 {
			if b := strings.ToUpper(strings.TrimSpace(sc.Text())); b != "" {
				return b
			}
			break
		}
	}
	return stage2.UnknownBase
}

// IndexCacheSize bounds the number of in-memory indexes Native keeps.
const IndexCacheSize = 32

// Native reads bases through biogo/hts/fai. An existing <fasta>.fai is
// used when it is not older than the FASTA; otherwise the index is built
// in memory. Recently used indexes are cached per file version.
type Native struct {
	mu  sync.Mutex
	idx *runutil.LRU[indexKey, fai.Index]
}

// indexKey identifies one version of a FASTA file on disk.
type indexKey struct {
	path  string
	size  int64
	mtime int64
}

// NewNative returns a Native extractor with an empty index cache.
func NewNative() *Native { return &Native{idx: runutil.NewLRU[indexKey, fai.Index](IndexCacheSize)} }

// Base reads the base at contig:pos. Positions outside the contig yield
// stage2.UnknownBase; an unknown contig is an error.
func (n *Native) Base(_ context.Context, fastaPath, contig string, pos int) (string, error) {
	idx, err := n.index(fastaPath)
	if err != nil {
		return "", err
	}
	rec, ok := idx[contig]
	if !ok {
		return "", fmt.Errorf("faidx %s: unknown contig %q", fastaPath, contig)
	}
	if pos < 1 || pos > rec.Length {
		return stage2.UnknownBase, nil
	}

	fh, err := os.Open(fastaPath)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	seq, err := fai.NewFile(fh, idx).SeqRange(contig, pos-1, pos)
	if err != nil {
		return "", fmt.Errorf("faidx %s: %w", Region(contig, pos), err)
	}
	b, err := io.ReadAll(seq)
	if err != nil {
		return "", err
	}
	if s := strings.ToUpper(strings.TrimSpace(string(b))); s != "" {
		return s, nil
	}
	return stage2.UnknownBase, nil
}

func (n *Native) index(path string) (fai.Index, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := indexKey{path: path, size: fi.Size(), mtime: fi.ModTime().UnixNano()}

	n.mu.Lock()
	defer n.mu.Unlock()
	if idx, ok := n.idx.Get(key); ok {
		return idx, nil
	}
	var idx fai.Index
	if st, serr := os.Stat(path + ".fai"); serr == nil && !st.ModTime().Before(fi.ModTime()) {
		idx, err = readIndex(path+".fai", fai.ReadFrom)
	} else {
		idx, err = readIndex(path, fai.NewIndex)
	}
	if err != nil {
		return nil, fmt.Errorf("faidx %s: %w", path, err)
	}
	n.idx.Put(key, idx)
	return idx, nil
}

func readIndex(path string, read func(io.Reader) (fai.Index, error)) (fai.Index, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return read(fh)
}
