// Package config loads recordctl settings from a YAML file, a .env file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDirName  = ".recordctl"
	defaultConfigFileName = "config.yaml"
	localConfigFileName   = "recordctl.yaml"

	defaultEnv      = "development"
	defaultLogLevel = "info"
	defaultBackend  = BackendFile
	defaultPath     = "records"
	defaultFormat   = "json"
	defaultIDScheme = IDSchemeTimestamp
)

// Backend kinds.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Id schemes.
const (
	IDSchemeTimestamp = "timestamp"
	IDSchemeUUID      = "uuid"
)

type LogOptions struct {
	Level string `yaml:"level,omitempty"`
}

type StoreOptions struct {
	// Backend is one of memory, file, sqlite or postgres.
	Backend string `yaml:"backend,omitempty"`
	// Path is the snapshot directory for the file backend and the database file
	// for sqlite.
	Path string `yaml:"path,omitempty"`
	// Format is json or yaml, used by the file backend.
	Format      string `yaml:"format,omitempty"`
	PostgresDSN string `yaml:"postgres_dsn,omitempty"`
	IDScheme    string `yaml:"id_scheme,omitempty"`
	NewestFirst bool   `yaml:"newest_first,omitempty"`
}

type Options struct {
	Env   string       `yaml:"env,omitempty"`
	Log   LogOptions   `yaml:"log,omitempty"`
	Store StoreOptions `yaml:"store,omitempty"`
}

func (o *Options) LogValue() slog.Value {
	dsn := ""
	if o.Store.PostgresDSN != "" {
		dsn = "[redacted]"
	}
	return slog.GroupValue(
		slog.String("env", o.Env),
		slog.String("log_level", o.Log.Level),
		slog.String("backend", o.Store.Backend),
		slog.String("path", o.Store.Path),
		slog.String("format", o.Store.Format),
		slog.String("postgres_dsn", dsn),
		slog.String("id_scheme", o.Store.IDScheme),
		slog.Bool("newest_first", o.Store.NewestFirst),
	)
}

// Load reads the configuration. An explicit cfgFile must exist; otherwise
// ./recordctl.yaml and then ~/.recordctl/config.yaml are tried, falling back to
// defaults. Environment variables override file values.
func Load(cfgFile string) (*Options, error) {
	opts, source, err := loadFirst(candidates(cfgFile), cfgFile != "")
	if err != nil {
		return nil, err
	}

	if err := overrideWithEnv(opts); err != nil {
		return nil, err
	}

	applyDefaults(opts)

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("Config loaded.", "config_file", source, slog.Any("config", opts))
	return opts, nil
}

// LoadEnv loads variables from the given .env files into the process environment.
// Missing files are skipped; variables already set are left alone.
func LoadEnv(files ...string) error {
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
		slog.Debug("Environment file loaded", "file", f)
	}
	return nil
}

func candidates(cfgFile string) []string {
	if cfgFile != "" {
		return []string{cfgFile}
	}

	paths := []string{localConfigFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, defaultConfigDirName, defaultConfigFileName))
	}
	return paths
}

func loadFirst(paths []string, mustExist bool) (*Options, string, error) {
	for _, p := range paths {
		opts, err := parseCfgFile(p)
		if err == nil {
			return opts, p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) || mustExist {
			return nil, "", err
		}
	}
	return &Options{}, "", nil
}

func parseCfgFile(cfgFile string) (*Options, error) {
	cfgFile = filepath.Clean(cfgFile)
	b, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
	}

	var opts Options
	if err := yaml.Unmarshal(b, &opts); err != nil {
		return nil, fmt.Errorf("decode yaml config %s: %w", cfgFile, err)
	}
	return &opts, nil
}

func overrideWithEnv(opts *Options) error {
	strs := map[string]*string{
		"RECORDS_ENV":          &opts.Env,
		"RECORDS_LOG_LEVEL":    &opts.Log.Level,
		"RECORDS_BACKEND":      &opts.Store.Backend,
		"RECORDS_PATH":         &opts.Store.Path,
		"RECORDS_FORMAT":       &opts.Store.Format,
		"RECORDS_POSTGRES_DSN": &opts.Store.PostgresDSN,
		"RECORDS_ID_SCHEME":    &opts.Store.IDScheme,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("RECORDS_NEWEST_FIRST"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse RECORDS_NEWEST_FIRST: %w", err)
		}
		opts.Store.NewestFirst = b
	}
	return nil
}

// applyDefaults fills in every field left empty.
func applyDefaults(opts *Options) {
	if opts.Env == "" {
		opts.Env = defaultEnv
	}
	if opts.Log.Level == "" {
		opts.Log.Level = defaultLogLevel
	}
	if opts.Store.Backend == "" {
		opts.Store.Backend = defaultBackend
	}
	if opts.Store.Path == "" {
		opts.Store.Path = defaultPath
		if opts.Store.Backend == BackendSQLite {
			opts.Store.Path = defaultPath + ".db"
		}
	}
	if opts.Store.Format == "" {
		opts.Store.Format = defaultFormat
	}
	if opts.Store.IDScheme == "" {
		opts.Store.IDScheme = defaultIDScheme
	}
}

// Validate reports settings that cannot work together.
func (o *Options) Validate() error {
	backends := []string{BackendMemory, BackendFile, BackendSQLite, BackendPostgres}
	if !slices.Contains(backends, o.Store.Backend) {
		return fmt.Errorf("config: unknown backend %q", o.Store.Backend)
	}
	if o.Store.Backend == BackendPostgres && o.Store.PostgresDSN == "" {
		return errors.New("config: postgres backend needs postgres_dsn or RECORDS_POSTGRES_DSN")
	}
	if o.Store.Format != "json" && o.Store.Format != "yaml" {
		return fmt.Errorf("config: unknown format %q", o.Store.Format)
	}
	if o.Store.IDScheme != IDSchemeTimestamp && o.Store.IDScheme != IDSchemeUUID {
		return fmt.Errorf("config: unknown id scheme %q", o.Store.IDScheme)
	}
	return nil
}
