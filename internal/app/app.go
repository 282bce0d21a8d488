// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/cheggaaa/pb.v1"
	"gopkg.in/yaml.v3"

	"swineotype/internal/appadapter"
	"swineotype/internal/blast"
	"swineotype/internal/cli"
	"swineotype/internal/cliutil"
	"swineotype/internal/config"
	"swineotype/internal/faidx"
	"swineotype/internal/logging"
	"swineotype/internal/pipeline"
	"swineotype/internal/report"
	"swineotype/internal/toolrun"
	"swineotype/internal/version"
	"swineotype/internal/writers"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitUsage     = 2
	ExitRuntime   = 3
	ExitCancelled = 130
)

// syncWriter serializes writes from the progress bar and status lines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// NewRootCommand builds the swineotype command tree. The exit code of the
// typing run is stored in *code.
func NewRootCommand(stdout, stderr io.Writer, code *int) *cobra.Command {
	var opts cli.Options
	root := &cobra.Command{
		Use:   "swineotype [flags] [assembly...]",
		Short: "Serotype Streptococcus suis assemblies from wzx/wzy alleles and diagnostic sites",
		Long: `swineotype assigns a capsular serotype to each assembly in two stages:

  1. Stage-1 sums BLAST bitscores of wzx/wzy whitelist alleles per serotype.
  2. Stage-2 reads a diagnostic base where Stage-1 cannot separate 1/14 or 2/(1/2).

Requires blastn, makeblastdb and samtools on PATH (samtools only with --extractor samtools).`,
		Version:       version.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Finalize(args); err != nil {
				return usageError{err}
			}
			*code = typeAssemblies(cmd.Context(), opts, stdout, stderr)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("swineotype version {{.Version}}\n")
	cli.Register(root.Flags(), &opts)
	cli.RegisterPersistent(root.PersistentFlags(), &opts)

	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.ConfigFile)
			if err != nil {
				return usageError{err}
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg.Settings()); err != nil {
				return err
			}
			return enc.Close()
		},
	})
	return root
}

type usageError struct{ error }

func (u usageError) Unwrap() error { return u.error }

func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	code := ExitOK
	root := NewRootCommand(stdout, stderr, &code)
	root.SetArgs(argv)
	if err := root.ExecuteContext(parent); err != nil {
		if parent.Err() != nil {
			return ExitCancelled
		}
		_, _ = fmt.Fprintln(stderr, "error:", err)
		var ue usageError
		if !errors.As(err, &ue) {
			_, _ = fmt.Fprint(stderr, root.UsageString())
		}
		return ExitUsage
	}
	return code
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

func typeAssemblies(ctx context.Context, opts cli.Options, stdout, stderr io.Writer) int {
	errw := &syncWriter{w: stderr}
	runID := uuid.NewString()
	log := logging.New(errw, opts.Verbose, opts.Quiet).With(zap.String("run_id", runID))
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		_, _ = fmt.Fprintln(errw, "[ERROR]", err)
		return ExitUsage
	}
	if opts.Extractor != "" {
		cfg.Extractor = opts.Extractor
	}
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintln(errw, "[ERROR] invalid config:", err)
		return ExitUsage
	}

	assemblies, err := cliutil.ExpandPatterns(opts.Assemblies)
	if err != nil {
		_, _ = fmt.Fprintln(errw, "[ERROR]", err)
		return ExitUsage
	}

	runner := toolrun.Exec{Log: log}
	if opts.Species == cli.SpeciesApp {
		return runApp(ctx, runner, cfg, opts, assemblies, stdout, errw, log)
	}

	tools := append(append([]string(nil), blast.Tools...), faidx.Tools(cfg.Extractor)...)
	if err := toolrun.Require(tools...); err != nil {
		_, _ = fmt.Fprintln(errw, "[ERROR]", err)
		return ExitUsage
	}
	if err := cfg.CheckInputs(); err != nil {
		_, _ = fmt.Fprintln(errw, "[ERROR]", err)
		return ExitUsage
	}
	outDir, err := filepath.Abs(opts.OutDir)
	if err == nil {
		err = os.MkdirAll(outDir, 0o755)
	}
	if err != nil {
		_, _ = fmt.Fprintln(errw, "[ERROR]", err)
		return ExitRuntime
	}

	gw := blast.New(runner, blast.Options{CacheDir: cfg.TmpDir, ByContent: cfg.CacheByContent}, log)
	extractor, err := faidx.New(cfg.Extractor, runner)
	if err != nil {
		_, _ = fmt.Fprintln(errw, "[ERROR]", err)
		return ExitUsage
	}
	proc, err := pipeline.New(cfg, gw, extractor, pipeline.Options{OutDir: outDir, Threads: opts.Threads}, log)
	if err != nil {
		_, _ = fmt.Fprintln(errw, "[ERROR]", err)
		return ExitUsage
	}

	var (
		jsonl     chan<- report.Record
		jsonlDone <-chan error
		jsonlFile *os.File
	)
	if opts.JSONL != "" {
		if err := os.MkdirAll(filepath.Dir(opts.JSONL), 0o755); err != nil {
			_, _ = fmt.Fprintln(errw, "[ERROR]", err)
			return ExitRuntime
		}
		if jsonlFile, err = os.Create(opts.JSONL); err != nil {
			_, _ = fmt.Fprintln(errw, "[ERROR]", err)
			return ExitRuntime
		}
		defer jsonlFile.Close()
		jsonl, jsonlDone = writers.StartRecordJSONLWriter(jsonlFile, 16, runID)
	}

	var bar *pb.ProgressBar
	if !opts.Quiet {
		bar = pb.New(len(assemblies)).Prefix("Serotyping assemblies ")
		bar.Output = errw
		bar.Start()
	}

	recs, runErr := pipeline.Run(ctx, proc, assemblies, opts.Jobs, log, func(r report.Record) {
		line, ok := r.StatusLine()
		if ok {
			_, _ = fmt.Fprintln(stdout, line)
		} else {
			_, _ = fmt.Fprintln(errw, line)
		}
		if jsonl != nil {
			jsonl <- r
		}
		if bar != nil {
			bar.Increment()
		}
	})
	if bar != nil {
		bar.Finish()
	}

	code := ExitOK
	if jsonl != nil {
		close(jsonl)
		if err := <-jsonlDone; err != nil {
			_, _ = fmt.Fprintln(errw, "[ERROR] jsonl:", err)
			code = ExitRuntime
		}
	}
	if runErr != nil {
		log.Warn("run cancelled", zap.Error(runErr))
		return ExitCancelled
	}

	if opts.MergedCSV != "" {
		if err := writers.AppendMergedCSV(opts.MergedCSV, recs); err != nil {
			_, _ = fmt.Fprintln(errw, "[ERROR]", err)
			return ExitRuntime
		}
		_, _ = fmt.Fprintf(stdout, "[INFO] Merged CSV written: %s\n", opts.MergedCSV)
	}
	for _, r := range recs {
		if r.Err != nil {
			code = ExitRuntime
		}
	}
	return code
}

func runApp(ctx context.Context, r toolrun.Runner, cfg config.Config, opts cli.Options, assemblies []string, stdout, stderr io.Writer, log *zap.Logger) int {
	if err := toolrun.Require(appadapter.Tool); err != nil {
		_, _ = fmt.Fprintln(stderr, "[ERROR]", err)
		return ExitUsage
	}
	abs, err := cliutil.Absolute(assemblies)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "[ERROR]", err)
		return ExitUsage
	}
	err = appadapter.Run(ctx, r, appadapter.Options{
		Assemblies:  abs,
		OutDir:      opts.OutDir,
		Threads:     opts.Threads,
		Summary:     opts.MergedCSV,
		DetectorDir: cfg.AppDetectorDir,
	}, stdout, log)
	switch {
	case err == nil:
		return ExitOK
	case ctx.Err() != nil:
		return ExitCancelled
	case toolrun.IsToolFailure(err):
		_, _ = fmt.Fprintln(stderr, "[ERROR]", err)
		return ExitRuntime
	default:
		_, _ = fmt.Fprintln(stderr, "[ERROR]", err)
		return ExitUsage
	}
}
