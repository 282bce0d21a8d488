package appadapter

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"swineotype/internal/toolrun"
)

// Tool is the workflow runner executable.
const Tool = "snakemake"

// Options configure one adapter run.
type Options struct {
	Assemblies  []string // absolute paths
	OutDir      string
	Threads     int
	Summary     string // optional summary to create or merge into
	DetectorDir string
}

// SnakemakeArgs is the workflow invocation for layout l.
func SnakemakeArgs(l Layout, d Detector, threads int) []string {
	return []string{
		"-s", d.Snakefile(),
		"--configfile", l.ConfigYAML(),
		"--cores", strconv.Itoa(threads),
		"--directory", l.AppDir,
		"--use-conda",
	}
}

// Run prepares the workflow tree, runs Snakemake and, when o.Summary is
// set, merges the serovar calls into it. Progress goes to info.
func Run(ctx context.Context, r toolrun.Runner, o Options, info io.Writer, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if len(o.Assemblies) == 0 {
		return fmt.Errorf("no assemblies")
	}
	if o.Threads < 1 {
		o.Threads = 1
	}
	outDir, err := filepath.Abs(o.OutDir)
	if err != nil {
		return err
	}
	l := NewLayout(outDir)
	d := Detector{Dir: o.DetectorDir}
	if err := l.Create(); err != nil {
		return err
	}
	infof(info, "Found %d assemblies", len(o.Assemblies))

	if err := WriteSampleSheet(l.SampleSheet(), o.Assemblies); err != nil {
		return fmt.Errorf("sample sheet: %w", err)
	}
	infof(info, "Wrote samples table with %d assemblies -> %s", len(o.Assemblies), l.SampleSheet())

	if err := d.Check(); err != nil {
		return err
	}
	infof(info, "Using KMA DB prefix: %s", d.DBPrefix())
	if err := copyFile(filepath.Join(l.Config, "serovar_profiles.yaml"), d.Profiles()); err != nil {
		return err
	}
	if err := WriteProjectConfig(l.ProjectConfig()); err != nil {
		return err
	}
	rendered, err := NewWorkflowConfig(l, d, o.Threads).Write(l.ConfigYAML())
	if err != nil {
		return fmt.Errorf("workflow config: %w", err)
	}
	log.Debug("workflow config", zap.ByteString("yaml", rendered))

	if err := LinkAssemblies(l.Assemblies, o.Assemblies); err != nil {
		return err
	}

	args := SnakemakeArgs(l, d, o.Threads)
	infof(info, "Command: %s %s", Tool, strings.Join(args, " "))
	out, err := r.Run(ctx, Tool, args...)
	if err != nil {
		return fmt.Errorf("serovar detector failed: %w", err)
	}
	log.Debug("snakemake finished", zap.Int("stdout_bytes", len(out)))

	calls, err := ReadSerovars(l.SerovarTSV())
	if err != nil {
		return fmt.Errorf("APP serovar results: %w", err)
	}
	if o.Summary == "" {
		return nil
	}
	summary, err := filepath.Abs(o.Summary)
	if err != nil {
		return err
	}
	merged, err := MergeSummary(summary, calls)
	if err != nil {
		return fmt.Errorf("summary %s: %w", summary, err)
	}
	if merged {
		infof(info, "Updated summary written: %s", summary)
	} else {
		infof(info, "Summary written: %s", summary)
	}
	return nil
}

func infof(w io.Writer, format string, a ...any) {
	if w == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "[INFO] "+format+"\n", a...)
}
