package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/araddon/dateparse"
	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

// Settings file keys follow the names operators already use for the
// importer; flags and environment variables override the file.
type rawCfg struct {
	ConfigFile string `long:"config" short:"c" env:"MT2WP_CONFIG" yaml:"-" description:"YAML settings file"`

	ImportPosts  bool   `long:"import-posts" env:"IMPORT_POSTS" yaml:"import_posts" description:"Import posts from the export"`
	ImportAssets bool   `long:"import-assets" env:"IMPORT_ASSETS" yaml:"import_assets" description:"Copy assets referenced by imported posts"`
	DeleteBefore string `long:"delete-posts-before" env:"IMPORTER_DELETE_WP_POSTS_BEFORE" yaml:"importer_delete_wp_posts_before" description:"Delete existing posts dated before this time"`

	Timezone        string `long:"timezone" env:"IMPORTER_TIMEZONE" yaml:"importer_timezone" description:"Timezone of export dates (e.g., UTC, America/New_York)"`
	ImporterVerbose *bool  `long:"importer-verbose" env:"IMPORTER_VERBOSE" yaml:"importer_verbose" description:"Log progress of every post and asset (default true)"`
	Quiet           bool   `long:"quiet" short:"q" env:"QUIET" yaml:"-" description:"Log warnings and errors only"`
	Debug           bool   `long:"debug" env:"DEBUG" yaml:"debug" description:"Enable debug logging"`

	DBDriver        string `long:"db-driver" env:"WP_DB_DRIVER" yaml:"wp_db_driver" description:"Target database driver (mysql, sqlite)"`
	DBHost          string `long:"db-host" env:"WP_DB_HOST" yaml:"wp_db_host" description:"Database host"`
	DBPort          int    `long:"db-port" env:"WP_DB_PORT" yaml:"wp_db_port" description:"Database port"`
	DBUser          string `long:"db-user" env:"WP_DB_USER" yaml:"wp_db_user" description:"Database user"`
	DBPassword      string `long:"db-password" env:"WP_DB_PASS" yaml:"wp_db_pass" description:"Database password"`
	DBName          string `long:"db-name" env:"WP_DB_NAME" yaml:"wp_db_name" description:"Database name, or file path for sqlite"`
	DBPrefix        string `long:"db-prefix" env:"WP_DB_PREFIX" yaml:"wp_db_prefix" description:"WordPress table prefix"`
	BootstrapSchema bool   `long:"bootstrap-schema" env:"BOOTSTRAP_SCHEMA" yaml:"bootstrap_schema" description:"Create the WordPress schema in an empty sqlite database"`

	WPRoot   string `long:"wp-root" env:"WP_ROOT" yaml:"wp_root" description:"WordPress document root"`
	WPDomain string `long:"wp-domain" env:"WP_DOMAIN" yaml:"wp_domain" description:"WordPress domain, without protocol or trailing slash"`

	SourceFile     string `long:"export" env:"MT_MTIF_FILE" yaml:"mt_mtif_file" description:"Export file to import"`
	SourceFormat   string `long:"export-format" env:"SOURCE_FORMAT" yaml:"source_format" description:"Export format (mtif, feed)"`
	SourceEncoding string `long:"export-encoding" env:"SOURCE_ENCODING" yaml:"source_encoding" description:"Character encoding of an MTIF export"`

	MTDomain       string `long:"mt-domain" env:"MT_DOMAIN" yaml:"mt_domain" description:"Movable Type domain, without protocol or trailing slash"`
	MTDomainHidden bool   `long:"mt-domain-hidden" env:"MT_DOMAIN_HIDDEN" yaml:"mt_domain_hidden" description:"Send the Movable Type domain as Host header only"`
	MTAddress      string `long:"mt-address" env:"MT_ADDRESS" yaml:"mt_address" description:"Address to dial when the Movable Type domain is hidden"`

	AssetWorkers int           `long:"asset-workers" env:"ASSET_WORKERS" yaml:"asset_workers" description:"Concurrent asset fetches per post"`
	FetchTimeout time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" yaml:"fetch_timeout" description:"Timeout of a single asset request"`
	FetchRate    float64       `long:"fetch-rate" env:"FETCH_RATE" yaml:"fetch_rate" description:"Asset requests per second (0 for unlimited)"`
	FetchRetries int           `long:"fetch-retries" env:"FETCH_RETRIES" yaml:"fetch_retries" description:"Retries of a failed asset request"`
	UserAgent    string        `long:"user-agent" env:"USER_AGENT" yaml:"user_agent" description:"User agent string for HTTP requests"`

	StatusAddr string `long:"status-addr" env:"STATUS_ADDR" yaml:"status_addr" description:"Serve /health and /stats on this address while running"`
}

var globalCfg *Cfg

// Load reads the settings file named by --config, then applies flags and
// environment variables on top. It returns nil, nil when help was shown.
func Load(args []string) (*Cfg, error) {
	raw := rawCfg{FetchRetries: -1}

	var pre struct {
		ConfigFile string `long:"config" short:"c" env:"MT2WP_CONFIG"`
	}
	if _, err := flags.NewParser(&pre, flags.IgnoreUnknown).ParseArgs(args); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if pre.ConfigFile != "" {
		if err := loadFile(pre.ConfigFile, &raw); err != nil {
			return nil, err
		}
	}

	parser := flags.NewParser(&raw, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg, err := build(raw)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	applyTimezone(cfg.Location)

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func loadFile(filename string, raw *rawCfg) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return &ConfigError{Setting: "config", Err: err}
	}

	if err := yaml.Unmarshal(data, raw); err != nil {
		return &ConfigError{Setting: "config", Err: fmt.Errorf("failed to parse %s: %w", filename, err)}
	}

	return nil
}

// build applies defaults and parses the settings that are not plain values.
func build(raw rawCfg) (*Cfg, error) {
	cfg := &Cfg{
		ImportPosts:     raw.ImportPosts,
		ImportAssets:    raw.ImportAssets,
		Timezone:        raw.Timezone,
		Verbose:         (raw.ImporterVerbose == nil || *raw.ImporterVerbose) && !raw.Quiet,
		Debug:           raw.Debug,
		DBDriver:        cmp.Or(raw.DBDriver, "mysql"),
		DBHost:          raw.DBHost,
		DBPort:          raw.DBPort,
		DBUser:          raw.DBUser,
		DBPassword:      raw.DBPassword,
		DBName:          raw.DBName,
		DBPrefix:        cmp.Or(raw.DBPrefix, "wp_"),
		BootstrapSchema: raw.BootstrapSchema,
		WPRoot:          raw.WPRoot,
		WPDomain:        raw.WPDomain,
		SourceFile:      raw.SourceFile,
		SourceFormat:    cmp.Or(raw.SourceFormat, SourceFormatMTIF),
		SourceEncoding:  cmp.Or(raw.SourceEncoding, "utf-8"),
		MTDomain:        raw.MTDomain,
		MTDomainHidden:  raw.MTDomainHidden,
		MTAddress:       raw.MTAddress,
		AssetWorkers:    cmp.Or(raw.AssetWorkers, 4),
		FetchTimeout:    cmp.Or(raw.FetchTimeout, 30*time.Second),
		FetchRate:       raw.FetchRate,
		FetchRetries:    raw.FetchRetries,
		UserAgent:       cmp.Or(raw.UserAgent, "mt2wp/"+GetVersion()),
		StatusAddr:      raw.StatusAddr,
		Version:         GetVersion(),
	}

	if cfg.FetchRetries < 0 {
		cfg.FetchRetries = 2
	}

	if cfg.Timezone == "" {
		return nil, &ConfigError{Setting: "importer_timezone", Err: errors.New("timezone is not set")}
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, &ConfigError{Setting: "importer_timezone", Err: fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)}
	}
	cfg.Location = loc

	if raw.DeleteBefore != "" {
		cutoff, err := dateparse.ParseIn(raw.DeleteBefore, loc)
		if err != nil {
			return nil, &ConfigError{Setting: "importer_delete_wp_posts_before", Err: fmt.Errorf("%q is not a valid time: %w", raw.DeleteBefore, err)}
		}
		cfg.DeleteBefore = cutoff.In(loc)
	}

	return cfg, nil
}

func applyTimezone(loc *time.Location) {
	if loc == nil {
		return
	}
	time.Local = loc
	slog.Debug("Timezone configured", "timezone", loc.String())
}
