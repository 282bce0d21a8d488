// internal/pipeline/process.go
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"swineotype/core/decision"
	"swineotype/core/stage1"
	"swineotype/core/stage2"
	"swineotype/core/whitelist"
	"swineotype/internal/config"
	"swineotype/internal/faidx"
	"swineotype/internal/fasta"
	"swineotype/internal/report"
	"swineotype/internal/writers"
)

// Debug table names inside a sample's run directory.
const (
	Stage1Table = "wzxwzy_vs_asm.tsv"
	Stage2Table = "resolver_vs_asm.tsv"
)

// Processor types one assembly at a time; it is safe for concurrent use.
type Processor struct {
	aligner Aligner
	extract faidx.Extractor
	cfg     config.Config
	alleles whitelist.Alleles
	outDir  string
	threads int
	log     *zap.Logger
}

// Options configure a Processor.
type Options struct {
	OutDir  string
	Threads int
}

// New loads the whitelist once and returns a Processor.
func New(cfg config.Config, a Aligner, x faidx.Extractor, o Options, log *zap.Logger) (*Processor, error) {
	alleles, err := whitelist.Parse(cfg.WhitelistFASTA)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if o.Threads < 1 {
		o.Threads = 1
	}
	return &Processor{
		aligner: a,
		extract: x,
		cfg:     cfg,
		alleles: alleles,
		outDir:  o.OutDir,
		threads: o.Threads,
		log:     log,
	}, nil
}

// Process types one assembly. Data insufficiency is reported through the
// record's status; a returned error means the sample could not be processed.
func (p *Processor) Process(ctx context.Context, assembly string) (report.Record, error) {
	log := p.log.With(zap.String("sample", assembly))

	runDir := filepath.Join(p.outDir, fasta.Stem(assembly))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return report.Record{}, err
	}
	asm, copied, err := fasta.Prepare(assembly, p.cfg.TmpDir)
	if err != nil {
		return report.Record{}, fmt.Errorf("prepare %s: %w", assembly, err)
	}
	if copied {
		log.Debug("normalized assembly", zap.String("path", asm))
		if p.cfg.CleanTemp {
			defer removeTemp(asm, log)
		}
	}

	r, err := p.Stage1(ctx, asm, runDir)
	if err != nil {
		return report.Record{}, err
	}
	plan := decision.PlanFor(r, p.cfg.Pairs)
	log.Debug("stage1",
		zap.String("top", r.Top),
		zap.String("second", r.Second),
		zap.Float64("fraction", r.Fraction),
		zap.Float64("delta", r.Delta),
		zap.Bool("decisive", r.Decisive),
		zap.Bool("must_stage2", plan.MustStage2),
		zap.String("allowed_pair", plan.AllowedPair))

	var ev *stage2.Evidence
	if plan.Run() {
		if ev, err = p.Stage2(ctx, asm, runDir, plan.AllowedPair); err != nil {
			return report.Record{}, err
		}
	} else if plan.MustStage2 {
		log.Debug("stage2 required but no discriminating pair applies")
	}

	out := decision.Finalize(r, plan, plan.Run(), ev, p.cfg.Pairs)
	return report.Build(assembly, r, ev, out), nil
}

// Stage1 aligns the whitelist against asm and scores the hits.
func (p *Processor) Stage1(ctx context.Context, asm, runDir string) (stage1.Result, error) {
	raw, hits, err := p.aligner.Align(ctx, p.cfg.WhitelistFASTA, asm, p.threads)
	if err != nil {
		return stage1.Result{}, err
	}
	if err := p.keepDebug(runDir, Stage1Table, raw); err != nil {
		return stage1.Result{}, err
	}
	return stage1.Score(hits, p.alleles, p.cfg.Stage1Thresholds()), nil
}

// Stage2 aligns the resolver references against asm, picks the best hit for
// pair and reads the diagnostic base. Nil evidence means nothing qualified.
func (p *Processor) Stage2(ctx context.Context, asm, runDir, pair string) (*stage2.Evidence, error) {
	raw, hits, err := p.aligner.Align(ctx, p.cfg.ResolverFASTA, asm, p.threads)
	if err != nil {
		return nil, err
	}
	if err := p.keepDebug(runDir, Stage2Table, raw); err != nil {
		return nil, err
	}
	ev, err := stage2.Select(hits, pair, p.cfg.Stage2Thresholds())
	if err != nil || ev == nil {
		return nil, err
	}
	if ev.Base, err = p.extract.Base(ctx, asm, ev.Contig, ev.ContigPos); err != nil {
		return nil, fmt.Errorf("extract %s: %w", ev.Region(), err)
	}
	p.log.Debug("stage2 evidence",
		zap.String("ref_id", ev.RefID),
		zap.String("region", ev.Region()),
		zap.String("strand", string(ev.Strand)),
		zap.String("base", ev.Base))
	return ev, nil
}

func (p *Processor) keepDebug(runDir, name, raw string) error {
	if !p.cfg.KeepDebug {
		return nil
	}
	_, err := writers.WriteDebugTable(filepath.Join(runDir, name), raw, p.cfg.GzipDebug)
	return err
}

func removeTemp(path string, log *zap.Logger) {
	if err := fasta.Release(path); err != nil {
		log.Warn("clean temp", zap.String("path", path), zap.Error(err))
	}
}
