package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/flarebyte/tracker-snapshot/internal/paths"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPostgresPort   = 5432
	DefaultPostgresSchema = "tsnap"
	DefaultConcurrency    = 4
	DefaultTokenEnv       = "GITHUB_TOKEN"
	DefaultServePort      = 53052
)

// Store kinds.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Vault backends.
const (
	VaultKeychain = "keychain"
	VaultEnv      = "env"
)

// EndpointConfig describes one remote tracker repository.
type EndpointConfig struct {
	Provider    string `yaml:"provider"`
	Repository  string `yaml:"repository"` // owner/name
	BaseURL     string `yaml:"base_url"`   // empty for github.com
	TokenEnv    string `yaml:"token_env"`
	TokenSecret string `yaml:"token_secret"` // vault entry used when TokenEnv is unset
}

// Owner returns the owner part of Repository.
func (e EndpointConfig) Owner() string {
	o, _, _ := strings.Cut(e.Repository, "/")
	return o
}

// Name returns the repository name part of Repository.
func (e EndpointConfig) Name() string {
	_, n, _ := strings.Cut(e.Repository, "/")
	return n
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Schema   string `yaml:"schema"`
}

// DSN renders a pgx connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type StoreConfig struct {
	Kind     string         `yaml:"kind"`
	Dir      string         `yaml:"dir"` // parent directory of file archives
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

type VaultConfig struct {
	Backend string `yaml:"backend"`
}

type EntitiesConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// SelectionConfig maps selectable types to selection expressions such as
// "5,7" or "3-9".
type SelectionConfig struct {
	Strict bool              `yaml:"strict"`
	Types  map[string]string `yaml:"types"`
}

type RestoreConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type ServeConfig struct {
	Port int `yaml:"port"`
}

type Config struct {
	Source    EndpointConfig    `yaml:"source"`
	Target    EndpointConfig    `yaml:"target"`
	Store     StoreConfig       `yaml:"store"`
	Vault     VaultConfig       `yaml:"vault"`
	Entities  EntitiesConfig    `yaml:"entities"`
	Selection SelectionConfig   `yaml:"selection"`
	Conflicts map[string]string `yaml:"conflicts"`
	Restore   RestoreConfig     `yaml:"restore"`
	Log       LogConfig         `yaml:"log"`
	Serve     ServeConfig       `yaml:"serve"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		Source: EndpointConfig{Provider: "github", TokenEnv: DefaultTokenEnv, TokenSecret: "source-token"},
		Target: EndpointConfig{Provider: "github", TokenEnv: DefaultTokenEnv, TokenSecret: "target-token"},
		Store: StoreConfig{
			Kind: StoreFile,
			Dir:  paths.ArchiveDir(),
			Postgres: PostgresConfig{
				Host:    "127.0.0.1",
				Port:    DefaultPostgresPort,
				DBName:  "tsnap",
				SSLMode: "disable",
				Schema:  DefaultPostgresSchema,
			},
			SQLite: SQLiteConfig{Path: paths.SQLiteFile()},
		},
		Vault:     VaultConfig{Backend: defaultVaultBackend()},
		Selection: SelectionConfig{Types: map[string]string{}},
		Conflicts: map[string]string{},
		Restore:   RestoreConfig{Concurrency: DefaultConcurrency},
		Log:       LogConfig{Level: "info", Format: "text"},
		Serve:     ServeConfig{Port: DefaultServePort},
	}
}

// Path returns the expected path to the config.yaml file.
func Path() string {
	return paths.ConfigFile()
}

// Load reads configuration from config.yaml if it exists.
// Missing file is not an error; defaults are returned.
func Load() (Config, error) {
	return LoadFile(Path())
}

// LoadFile reads the configuration at p and merges it over the defaults.
func LoadFile(p string) (Config, error) {
	cfg := Defaults()
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(b, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	merge(&cfg, fileCfg)
	return cfg, nil
}

// merge overrides cfg with the non-zero values of f.
func merge(cfg *Config, f Config) {
	mergeEndpoint(&cfg.Source, f.Source)
	mergeEndpoint(&cfg.Target, f.Target)

	setString(&cfg.Store.Kind, f.Store.Kind)
	setString(&cfg.Store.Dir, f.Store.Dir)
	pg := f.Store.Postgres
	setString(&cfg.Store.Postgres.Host, pg.Host)
	if pg.Port != 0 {
		cfg.Store.Postgres.Port = pg.Port
	}
	setString(&cfg.Store.Postgres.User, pg.User)
	setString(&cfg.Store.Postgres.Password, pg.Password)
	setString(&cfg.Store.Postgres.DBName, pg.DBName)
	setString(&cfg.Store.Postgres.SSLMode, pg.SSLMode)
	setString(&cfg.Store.Postgres.Schema, pg.Schema)
	setString(&cfg.Store.SQLite.Path, f.Store.SQLite.Path)

	setString(&cfg.Vault.Backend, f.Vault.Backend)

	if len(f.Entities.Include) > 0 {
		cfg.Entities.Include = f.Entities.Include
	}
	if len(f.Entities.Exclude) > 0 {
		cfg.Entities.Exclude = f.Entities.Exclude
	}
	if f.Selection.Strict {
		cfg.Selection.Strict = true
	}
	for k, v := range f.Selection.Types {
		cfg.Selection.Types[k] = v
	}
	for k, v := range f.Conflicts {
		cfg.Conflicts[k] = v
	}
	if f.Restore.Concurrency != 0 {
		cfg.Restore.Concurrency = f.Restore.Concurrency
	}
	setString(&cfg.Log.Level, f.Log.Level)
	setString(&cfg.Log.Format, f.Log.Format)
	if f.Serve.Port != 0 {
		cfg.Serve.Port = f.Serve.Port
	}
}

func mergeEndpoint(dst *EndpointConfig, src EndpointConfig) {
	setString(&dst.Provider, src.Provider)
	setString(&dst.Repository, src.Repository)
	setString(&dst.BaseURL, src.BaseURL)
	setString(&dst.TokenEnv, src.TokenEnv)
	setString(&dst.TokenSecret, src.TokenSecret)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks the values that do not need the entity registry.
func (c Config) Validate() error {
	switch c.Store.Kind {
	case StoreFile, StorePostgres, StoreSQLite:
	default:
		return fmt.Errorf("store.kind: unknown store %q (want file, postgres or sqlite)", c.Store.Kind)
	}
	switch c.Vault.Backend {
	case VaultKeychain, VaultEnv:
	default:
		return fmt.Errorf("vault.backend: unknown backend %q (want keychain or env)", c.Vault.Backend)
	}
	for name, ep := range map[string]EndpointConfig{"source": c.Source, "target": c.Target} {
		if ep.Provider != "" && ep.Provider != "github" {
			return fmt.Errorf("%s.provider: unsupported provider %q", name, ep.Provider)
		}
		if ep.Repository != "" && (ep.Owner() == "" || ep.Name() == "") {
			return fmt.Errorf("%s.repository: want owner/name, got %q", name, ep.Repository)
		}
	}
	if c.Restore.Concurrency < 1 {
		return fmt.Errorf("restore.concurrency: must be at least 1, got %d", c.Restore.Concurrency)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: want text or json, got %q", c.Log.Format)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func Marshal(c Config) ([]byte, error) {
	return yaml.Marshal(c)
}
