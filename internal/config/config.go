// Package config builds the immutable run configuration from defaults, an
// optional YAML file and SWINEO_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"swineotype/core/decision"
	"swineotype/core/stage1"
	"swineotype/core/stage2"
)

// EnvPrefix is prepended (with "_") to upper-cased keys for env overrides.
const EnvPrefix = "SWINEO"

// Keys.
const (
	KeyDataDir          = "data_dir"
	KeyWhitelistFASTA   = "wzxwzy_fasta"
	KeyResolverFASTA    = "resolver_refs_fasta"
	KeyTmpDir           = "tmp_dir"
	KeyPlurality        = "plurality"
	KeyDelta            = "delta"
	KeyRequireAgreement = "require_agreement"
	KeyMinPID           = "min_pid"
	KeyMinCov           = "min_cov"
	KeyMinResPID        = "min_res_pid"
	KeyMinResAlen       = "min_res_alen"
	KeyKeepDebug        = "keep_debug"
	KeyGzipDebug        = "gzip_debug"
	KeyCleanTemp        = "clean_temp"
	KeyAmbigSet         = "ambig_set"
	KeyPair1v14         = "pair_1_14"
	KeyPair2v12         = "pair_2_1_2"
	KeyExtractor        = "extractor"
	KeyCacheByContent   = "cache_by_content"
	KeyAppDetectorDir   = "app_detector_dir"
)

// Pair names as carried in resolver ids.
const (
	Pair1v14 = "1_vs_14"
	Pair2v12 = "2_vs_1_2"
)

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		KeyDataDir:          "data",
		KeyWhitelistFASTA:   "suis_wzxwzy_whitelist.fasta",
		KeyResolverFASTA:    "suis_resolver_refs.fasta",
		KeyTmpDir:           "results/db_cache",
		KeyPlurality:        0.60,
		KeyDelta:            100.0,
		KeyRequireAgreement: 1,
		KeyMinPID:           85.0,
		KeyMinCov:           0.80,
		KeyMinResPID:        90.0,
		KeyMinResAlen:       300,
		KeyKeepDebug:        1,
		KeyGzipDebug:        0,
		KeyCleanTemp:        0,
		KeyAmbigSet:         []string{"1", "14", "2", "1/2"},
		KeyPair1v14:         []string{"1", "14"},
		KeyPair2v12:         []string{"2", "1/2"},
		KeyExtractor:        "samtools",
		KeyCacheByContent:   false,
		KeyAppDetectorDir:   "third_party/serovar_detector",
	}
}

// Config is the resolved run configuration. Paths are absolute.
type Config struct {
	DataDir          string
	WhitelistFASTA   string
	ResolverFASTA    string
	TmpDir           string
	Plurality        float64
	Delta            float64
	RequireAgreement int
	MinPID           float64
	MinCov           float64
	MinResPID        float64
	MinResAlen       int
	KeepDebug        bool
	GzipDebug        bool
	CleanTemp        bool
	AmbiguousSet     []string
	Pairs            []decision.Pair
	Extractor        string
	CacheByContent   bool
	AppDetectorDir   string

	// File is the config file that was read, if any.
	File string
}

// Load resolves the configuration. path may be empty.
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}
	if path != "" {
		v.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return fromViper(v, path)
}

func fromViper(v *viper.Viper, file string) (Config, error) {
	dataDir, err := filepath.Abs(v.GetString(KeyDataDir))
	if err != nil {
		return Config{}, err
	}
	tmpDir, err := filepath.Abs(v.GetString(KeyTmpDir))
	if err != nil {
		return Config{}, err
	}
	c := Config{
		DataDir:          dataDir,
		WhitelistFASTA:   underDir(dataDir, v.GetString(KeyWhitelistFASTA)),
		ResolverFASTA:    underDir(dataDir, v.GetString(KeyResolverFASTA)),
		TmpDir:           tmpDir,
		Plurality:        v.GetFloat64(KeyPlurality),
		Delta:            v.GetFloat64(KeyDelta),
		RequireAgreement: v.GetInt(KeyRequireAgreement),
		MinPID:           v.GetFloat64(KeyMinPID),
		MinCov:           v.GetFloat64(KeyMinCov),
		MinResPID:        v.GetFloat64(KeyMinResPID),
		MinResAlen:       v.GetInt(KeyMinResAlen),
		KeepDebug:        v.GetBool(KeyKeepDebug),
		GzipDebug:        v.GetBool(KeyGzipDebug),
		CleanTemp:        v.GetBool(KeyCleanTemp),
		AmbiguousSet:     stringSet(v.Get(KeyAmbigSet)),
		Pairs: []decision.Pair{
			{Name: Pair1v14, Labels: stringSet(v.Get(KeyPair1v14))},
			{Name: Pair2v12, Labels: stringSet(v.Get(KeyPair2v12))},
		},
		Extractor:      strings.ToLower(strings.TrimSpace(v.GetString(KeyExtractor))),
		CacheByContent: v.GetBool(KeyCacheByContent),
		File:           file,
	}
	if det := v.GetString(KeyAppDetectorDir); det != "" {
		if c.AppDetectorDir, err = filepath.Abs(det); err != nil {
			return Config{}, err
		}
	}
	return c, nil
}

func underDir(dir, name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// stringSet accepts a YAML list or a comma-separated string (env form) and
// returns the distinct trimmed members in first-seen order.
func stringSet(raw any) []string {
	var items []string
	switch x := raw.(type) {
	case string:
		items = strings.Split(x, ",")
	default:
		items = cast.ToStringSlice(x)
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Plurality < 0 || c.Plurality > 1 {
		errs = append(errs, fmt.Errorf("%s must be in [0,1], got %v", KeyPlurality, c.Plurality))
	}
	if c.Delta < 0 {
		errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", KeyDelta, c.Delta))
	}
	if c.MinPID < 0 || c.MinPID > 100 {
		errs = append(errs, fmt.Errorf("%s must be in [0,100], got %v", KeyMinPID, c.MinPID))
	}
	if c.MinResPID < 0 || c.MinResPID > 100 {
		errs = append(errs, fmt.Errorf("%s must be in [0,100], got %v", KeyMinResPID, c.MinResPID))
	}
	if c.MinCov < 0 || c.MinCov > 1 {
		errs = append(errs, fmt.Errorf("%s must be in [0,1], got %v", KeyMinCov, c.MinCov))
	}
	if c.MinResAlen < 0 {
		errs = append(errs, fmt.Errorf("%s must be >= 0, got %d", KeyMinResAlen, c.MinResAlen))
	}
	switch c.Extractor {
	case "samtools", "native":
	default:
		errs = append(errs, fmt.Errorf("%s must be samtools or native, got %q", KeyExtractor, c.Extractor))
	}
	return errors.Join(errs...)
}

// CheckInputs verifies that the reference FASTA files exist.
func (c Config) CheckInputs() error {
	for _, p := range []string{c.WhitelistFASTA, c.ResolverFASTA} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("reference fasta: %w", err)
		}
	}
	return nil
}

// Stage1Thresholds returns the Stage-1 scoring parameters.
func (c Config) Stage1Thresholds() stage1.Thresholds {
	amb := make(map[string]bool, len(c.AmbiguousSet))
	for _, l := range c.AmbiguousSet {
		amb[l] = true
	}
	return stage1.Thresholds{
		MinPID:    c.MinPID,
		MinCov:    c.MinCov,
		Plurality: c.Plurality,
		Delta:     c.Delta,
		Ambiguous: amb,
	}
}

// Stage2Thresholds returns the resolver hit filters.
func (c Config) Stage2Thresholds() stage2.Thresholds {
	return stage2.Thresholds{MinPID: c.MinResPID, MinAlen: c.MinResAlen}
}

// Settings returns the effective configuration as a flat key map, suitable
// for YAML rendering.
func (c Config) Settings() map[string]any {
	pairLabels := func(name string) []string {
		for _, p := range c.Pairs {
			if p.Name == name {
				return p.Labels
			}
		}
		return nil
	}
	amb := append([]string(nil), c.AmbiguousSet...)
	sort.Strings(amb)
	return map[string]any{
		KeyDataDir:          c.DataDir,
		KeyWhitelistFASTA:   c.WhitelistFASTA,
		KeyResolverFASTA:    c.ResolverFASTA,
		KeyTmpDir:           c.TmpDir,
		KeyPlurality:        c.Plurality,
		KeyDelta:            c.Delta,
		KeyRequireAgreement: c.RequireAgreement,
		KeyMinPID:           c.MinPID,
		KeyMinCov:           c.MinCov,
		KeyMinResPID:        c.MinResPID,
		KeyMinResAlen:       c.MinResAlen,
		KeyKeepDebug:        boolInt(c.KeepDebug),
		KeyGzipDebug:        boolInt(c.GzipDebug),
		KeyCleanTemp:        boolInt(c.CleanTemp),
		KeyAmbigSet:         amb,
		KeyPair1v14:         pairLabels(Pair1v14),
		KeyPair2v12:         pairLabels(Pair2v12),
		KeyExtractor:        c.Extractor,
		KeyCacheByContent:   c.CacheByContent,
		KeyAppDetectorDir:   c.AppDetectorDir,
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
