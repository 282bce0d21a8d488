// Package blast invokes makeblastdb and blastn. Per-assembly databases are
// cached in a shared directory and reused across runs.
package blast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"swineotype/core/hsp"
	"swineotype/internal/fasta"
	"swineotype/internal/toolrun"
)

// MaxTargetSeqs caps subject sequences reported per query.
const MaxTargetSeqs = 50

// Task is the blastn task mode.
const Task = "blastn"

// Tools lists the executables the gateway needs.
var Tools = []string{"blastn", "makeblastdb"}

// Gateway builds and searches per-assembly nucleotide databases.
type Gateway struct {
	runner    toolrun.Runner
	cacheDir  string
	byContent bool
	log       *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Options configure a Gateway.
type Options struct {
	CacheDir string
	// ByContent keys databases by stem plus a content digest instead of
	// the stem alone, so same-named assemblies never share a database.
	ByContent bool
}

// New returns a Gateway running tools through r. A nil log discards output.
func New(r toolrun.Runner, o Options, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		runner:    r,
		cacheDir:  o.CacheDir,
		byContent: o.ByContent,
		log:       log,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Prefix returns the database path prefix for an assembly.
func (g *Gateway) Prefix(assembly string) (string, error) {
	key := fasta.Stem(assembly)
	if g.byContent {
		sum, err := digest(assembly)
		if err != nil {
			return "", err
		}
		key += "_" + sum
	}
	return filepath.Join(g.cacheDir, "asmdb_"+key), nil
}

// EnsureIndex returns the database prefix for assembly, running
// makeblastdb only when no .nin/.ndb artifact exists yet.
func (g *Gateway) EnsureIndex(ctx context.Context, assembly string) (string, error) {
	prefix, err := g.Prefix(assembly)
	if err != nil {
		return "", fmt.Errorf("index %s: %w", assembly, err)
	}

	lk := g.lockFor(prefix)
	lk.Lock()
	defer lk.Unlock()

	if Indexed(prefix) {
		g.log.Debug("reusing blast db", zap.String("prefix", prefix))
		return prefix, nil
	}
	if err := os.MkdirAll(g.cacheDir, 0o755); err != nil {
		return "", err
	}
	g.log.Info("building blast db", zap.String("assembly", assembly), zap.String("prefix", prefix))
	if _, err := g.runner.Run(ctx, "makeblastdb", "-in", assembly, "-dbtype", "nucl", "-out", prefix); err != nil {
		return "", fmt.Errorf("index %s: %w", assembly, err)
	}
	return prefix, nil
}

// Search runs blastn of query against the database at prefix and returns
// the raw tabular output.
func (g *Gateway) Search(ctx context.Context, query, prefix string, threads int) (string, error) {
	if threads < 1 {
		threads = 1
	}
	out, err := g.runner.Run(ctx, "blastn", SearchArgs(query, prefix, threads)...)
	if err != nil {
		return "", fmt.Errorf("search %s: %w", filepath.Base(query), err)
	}
	return string(out), nil
}

// Align indexes assembly if needed, searches query against it and parses
// the result. The raw table is returned alongside the hits.
func (g *Gateway) Align(ctx context.Context, query, assembly string, threads int) (string, []hsp.Hit, error) {
	prefix, err := g.EnsureIndex(ctx, assembly)
	if err != nil {
		return "", nil, err
	}
	raw, err := g.Search(ctx, query, prefix, threads)
	if err != nil {
		return "", nil, err
	}
	hits, err := hsp.ParseString(raw)
	if err != nil {
		return raw, nil, fmt.Errorf("search %s: %w", filepath.Base(query), err)
	}
	return raw, hits, nil
}

// SearchArgs is the blastn argument vector.
func SearchArgs(query, prefix string, threads int) []string {
	return []string{
		"-query", query,
		"-db", prefix,
		"-task", Task,
		"-outfmt", hsp.OutFmt,
		"-max_target_seqs", strconv.Itoa(MaxTargetSeqs),
		"-num_threads", strconv.Itoa(threads),
	}
}

// Indexed reports whether database artifacts exist at prefix.
func Indexed(prefix string) bool {
	for _, ext := range []string{".nin", ".ndb"} {
		if _, err := os.Stat(prefix + ext); err == nil {
			return true
		}
	}
	return false
}

func (g *Gateway) lockFor(key string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lk, ok := g.locks[key]
	if !ok {
		lk = &sync.Mutex{}
		g.locks[key] = lk
	}
	return lk
}

func digest(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	h := sha256.New()
	if _, err := io.Copy(h, fh); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil))[:12], nil
}
