package cfg

import (
	"fmt"
	"time"
)

const (
	SourceFormatMTIF = "mtif"
	SourceFormatFeed = "feed"
)

type Cfg struct {
	// Phases
	ImportPosts  bool
	ImportAssets bool
	DeleteBefore time.Time // zero when pruning is disabled

	// Importer
	Timezone string
	Location *time.Location
	Verbose  bool
	Debug    bool

	// Target database
	DBDriver        string
	DBHost          string
	DBPort          int
	DBUser          string
	DBPassword      string
	DBName          string
	DBPrefix        string
	BootstrapSchema bool

	// Target site
	WPRoot   string
	WPDomain string

	// Source export
	SourceFile     string
	SourceFormat   string
	SourceEncoding string

	// Source site
	MTDomain       string
	MTDomainHidden bool
	MTAddress      string

	// Asset fetching
	AssetWorkers int
	FetchTimeout time.Duration
	FetchRate    float64
	FetchRetries int
	UserAgent    string

	StatusAddr string
	Version    string
}

// ConfigError reports a setting that is missing or invalid. It is raised
// before anything is written to the target.
type ConfigError struct {
	Setting string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %v", e.Setting, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
