// Package appadapter prepares and runs the external Actinobacillus
// pleuropneumoniae serovar workflow (Snakemake + KMA) and folds its calls
// into a swineotype summary.
package appadapter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"swineotype/internal/fasta"
)

// DBName is the KMA database prefix name under <detector>/db.
const DBName = "Actinobacillus_pleuropneumoniae"

// DBExtensions must all exist next to the database prefix.
var DBExtensions = []string{".fasta", ".seq.b", ".comp.b", ".length.b"}

// Layout is the adapter's working tree under the output directory.
type Layout struct {
	AppDir     string
	Results    string
	Tmp        string
	Config     string
	Logs       string
	Schemas    string
	Assemblies string
}

func NewLayout(outDir string) Layout {
	app := filepath.Join(outDir, "app_detector")
	results := filepath.Join(app, "results")
	tmp := filepath.Join(app, "tmp")
	return Layout{
		AppDir:     app,
		Results:    results,
		Tmp:        tmp,
		Config:     filepath.Join(app, "config"),
		Logs:       filepath.Join(app, "logs"),
		Schemas:    filepath.Join(results, "schemas"),
		Assemblies: filepath.Join(tmp, "assemblies"),
	}
}

// Create makes every directory of the layout.
func (l Layout) Create() error {
	for _, d := range []string{l.Results, l.Tmp, l.Config, l.Logs, l.Schemas, l.Assemblies} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (l Layout) SampleSheet() string   { return filepath.Join(l.Schemas, "sample_sheet.csv") }
func (l Layout) ProjectConfig() string { return filepath.Join(l.Schemas, "project_config.yaml") }
func (l Layout) ConfigYAML() string    { return filepath.Join(l.Config, "config.yaml") }
func (l Layout) SerovarTSV() string    { return filepath.Join(l.Results, "serovar.tsv") }

// Detector locates the bundled serovar_detector checkout.
type Detector struct{ Dir string }

func (d Detector) DBPrefix() string  { return filepath.Join(d.Dir, "db", DBName) }
func (d Detector) Profiles() string  { return filepath.Join(d.Dir, "config", "serovar_profiles.yaml") }
func (d Detector) Snakefile() string { return filepath.Join(d.Dir, "workflow", "Snakefile") }

// Check verifies the database files and the serovar profiles.
func (d Detector) Check() error {
	prefix := d.DBPrefix()
	for _, ext := range DBExtensions {
		if _, err := os.Stat(prefix + ext); err != nil {
			return fmt.Errorf("database prefix not found or incomplete: %s: %w", prefix, err)
		}
	}
	if _, err := os.Stat(d.Profiles()); err != nil {
		return fmt.Errorf("missing serovar profiles: %w", err)
	}
	return nil
}

// WriteSampleSheet writes the PEP sample table, one Assembly row per stem.
func WriteSampleSheet(path string, assemblies []string) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(fh)
	_ = w.Write([]string{"sample_name", "type"})
	for _, a := range assemblies {
		_ = w.Write([]string{fasta.Stem(a), "Assembly"})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

const projectConfig = "pep_version: 2.1.0\nname: app_serovar_project\nsample_table: sample_sheet.csv\n"

// WriteProjectConfig writes the PEP project file unless one exists.
func WriteProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(projectConfig), 0o644)
}

// WorkflowConfig is the Snakemake --configfile document.
type WorkflowConfig struct {
	OutDir          string  `yaml:"outdir"`
	TmpDir          string  `yaml:"tmpdir"`
	AppendResults   bool    `yaml:"append_results"`
	Database        string  `yaml:"database"`
	Threads         int     `yaml:"threads"`
	Threshold       float64 `yaml:"threshold"`
	Debug           bool    `yaml:"debug"`
	SerovarProfiles string  `yaml:"serovar_profiles"`
	SummaryFile     string  `yaml:"summary_file"`
	LogDir          string  `yaml:"log_dir"`
	ResultsDir      string  `yaml:"results_dir"`
	Schemas         string  `yaml:"schemas"`
	Version         string  `yaml:"version"`
}

// NewWorkflowConfig fills the workflow config for layout l.
func NewWorkflowConfig(l Layout, d Detector, threads int) WorkflowConfig {
	return WorkflowConfig{
		OutDir:          l.Results,
		TmpDir:          l.Tmp,
		Database:        d.DBPrefix(),
		Threads:         threads,
		Threshold:       98.0,
		SerovarProfiles: d.Profiles(),
		SummaryFile:     filepath.Join(l.Results, "serovar_summary.tsv"),
		LogDir:          l.Logs,
		ResultsDir:      l.Results,
		Schemas:         l.Schemas,
		Version:         "2.1.0",
	}
}

// Write stores c as YAML at path and returns the rendered bytes.
func (c WorkflowConfig) Write(path string) ([]byte, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	return b, os.WriteFile(path, b, 0o644)
}

// LinkAssemblies symlinks each assembly into dir by base name. Existing
// links are kept unless their target has gone missing.
func LinkAssemblies(dir string, assemblies []string) error {
	for _, a := range assemblies {
		link := filepath.Join(dir, filepath.Base(a))
		if _, err := os.Lstat(link); err == nil {
			if _, err := os.Stat(link); err == nil {
				continue
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := os.Remove(link); err != nil {
				return err
			}
		}
		if err := os.Symlink(a, link); err != nil {
			return fmt.Errorf("link %s: %w", a, err)
		}
	}
	return nil
}

func copyFile(dst, src string) error {
	b, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, b, 0o644)
}
