// internal/cli/options.go
package cli

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/pflag"
)

// Species selectors.
const (
	SpeciesSuis = "suis"
	SpeciesApp  = "app"
)

// Options holds all CLI flags and arguments.
type Options struct {
	// Input
	Assemblies []string
	ConfigFile string
	Species    string

	// Output
	OutDir    string
	MergedCSV string
	JSONL     string

	// Performance
	Threads int
	Jobs    int

	// Overrides
	Extractor string

	// Misc
	Quiet   bool
	Verbose bool
}

// DefaultThreads is half the CPUs, at least one.
func DefaultThreads() int {
	if n := runtime.NumCPU() / 2; n > 1 {
		return n
	}
	return 1
}

// Register wires the typing flags onto fs.
func Register(fs *pflag.FlagSet, o *Options) {
	fs.StringArrayVar(&o.Assemblies, "assembly", nil, "assembly FASTA file or glob (repeatable; positionals also accepted)")
	fs.StringVar(&o.OutDir, "out_dir", "", "output directory [required]")
	fs.StringVar(&o.MergedCSV, "merged_csv", "", "append one row per sample to this CSV")
	fs.StringVar(&o.JSONL, "jsonl", "", "write one JSON result per sample to this file")
	fs.IntVar(&o.Threads, "threads", DefaultThreads(), "threads passed to blastn")
	fs.IntVar(&o.Jobs, "jobs", 1, "assemblies processed concurrently")
	fs.StringVar(&o.Species, "species", SpeciesSuis, "species to serotype: suis | app")
	fs.StringVar(&o.Extractor, "extractor", "", "base extractor: samtools | native (overrides config)")
}

// RegisterPersistent wires flags shared with subcommands.
func RegisterPersistent(fs *pflag.FlagSet, o *Options) {
	fs.StringVar(&o.ConfigFile, "config", "", "YAML config file")
	fs.BoolVarP(&o.Quiet, "quiet", "q", false, "no progress bar or logs")
	fs.BoolVar(&o.Verbose, "verbose", false, "debug logging on stderr")
}

// Finalize folds positionals into Assemblies and validates the options.
func (o *Options) Finalize(args []string) error {
	o.Assemblies = append(o.Assemblies, args...)

	var errs []error
	if len(o.Assemblies) == 0 {
		errs = append(errs, errors.New("at least one --assembly is required"))
	}
	if o.OutDir == "" {
		errs = append(errs, errors.New("--out_dir is required"))
	}
	switch o.Species {
	case SpeciesSuis, SpeciesApp:
	default:
		errs = append(errs, fmt.Errorf("--species must be %s or %s, got %q", SpeciesSuis, SpeciesApp, o.Species))
	}
	switch o.Extractor {
	case "", "samtools", "native":
	default:
		errs = append(errs, fmt.Errorf("--extractor must be samtools or native, got %q", o.Extractor))
	}
	if o.Threads < 1 {
		errs = append(errs, fmt.Errorf("--threads must be >= 1, got %d", o.Threads))
	}
	if o.Jobs < 1 {
		errs = append(errs, fmt.Errorf("--jobs must be >= 1, got %d", o.Jobs))
	}
	return errors.Join(errs...)
}
