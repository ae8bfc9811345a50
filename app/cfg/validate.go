package cfg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Validate checks the settings that can be verified without connecting to
// the target database or reading the export.
func Validate(cfg *Cfg) error {
	if err := validateDatabase(cfg); err != nil {
		return err
	}

	if cfg.ImportPosts {
		if cfg.SourceFormat != SourceFormatMTIF && cfg.SourceFormat != SourceFormatFeed {
			return &ConfigError{Setting: "source_format", Err: fmt.Errorf("unsupported format %q", cfg.SourceFormat)}
		}

		info, err := os.Stat(cfg.SourceFile)
		if err != nil || !info.Mode().IsRegular() {
			return &ConfigError{Setting: "mt_mtif_file", Err: fmt.Errorf("cannot load export data at %q", cfg.SourceFile)}
		}

		if err := validateDomain(cfg.WPDomain); err != nil {
			return &ConfigError{Setting: "wp_domain", Err: err}
		}
	}

	if cfg.ImportAssets {
		if err := validateRoot(cfg.WPRoot); err != nil {
			return &ConfigError{Setting: "wp_root", Err: err}
		}
		if err := validateDomain(cfg.MTDomain); err != nil {
			return &ConfigError{Setting: "mt_domain", Err: err}
		}
		if err := validateDomain(cfg.WPDomain); err != nil {
			return &ConfigError{Setting: "wp_domain", Err: err}
		}
		if cfg.AssetWorkers <= 0 {
			return &ConfigError{Setting: "asset_workers", Err: errors.New("must be positive")}
		}
		if cfg.FetchTimeout <= 0 {
			return &ConfigError{Setting: "fetch_timeout", Err: errors.New("must be positive")}
		}
	}

	return nil
}

func validateDatabase(cfg *Cfg) error {
	switch cfg.DBDriver {
	case "mysql":
		if cfg.DBName == "" {
			return &ConfigError{Setting: "wp_db_name", Err: errors.New("database name is not set")}
		}
		if cfg.DBUser == "" {
			return &ConfigError{Setting: "wp_db_user", Err: errors.New("database user is not set")}
		}
		if cfg.DBHost == "" {
			return &ConfigError{Setting: "wp_db_host", Err: errors.New("database host is not set")}
		}
		if cfg.BootstrapSchema {
			return &ConfigError{Setting: "bootstrap_schema", Err: errors.New("schema bootstrap is only available for sqlite")}
		}
	case "sqlite":
		if cfg.DBName == "" {
			return &ConfigError{Setting: "wp_db_name", Err: errors.New("database file is not set")}
		}
	default:
		return &ConfigError{Setting: "wp_db_driver", Err: fmt.Errorf("unsupported driver %q", cfg.DBDriver)}
	}

	if !prefixPattern.MatchString(cfg.DBPrefix) {
		return &ConfigError{Setting: "wp_db_prefix", Err: fmt.Errorf("invalid table prefix %q", cfg.DBPrefix)}
	}

	return nil
}

// validateDomain accepts a bare host such as "example.com" or
// "www.example.com:8080".
func validateDomain(domain string) error {
	if domain == "" {
		return errors.New("domain is not set")
	}
	if strings.Contains(domain, "://") || strings.HasSuffix(domain, "/") {
		return fmt.Errorf("domain %q should not include protocol information or a trailing slash", domain)
	}
	return nil
}

func validateRoot(root string) error {
	if root == "" {
		return errors.New("WordPress root is not set")
	}

	if _, err := os.Stat(filepath.Join(root, "wp-config.php")); err != nil {
		return fmt.Errorf("no WordPress install found at %q", root)
	}

	probe, err := os.CreateTemp(root, ".mt2wp-*")
	if err != nil {
		return fmt.Errorf("WordPress root %q is not writable: %w", root, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}
