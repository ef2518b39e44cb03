package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds a single HTTP request, including reading the body.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// FetchConfig holds settings for talking to the literature index.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MinDelay is the minimum spacing between the starts of any two outbound
	// requests, searches and downloads combined (default 1s).
	MinDelay time.Duration `json:"min_delay" yaml:"min_delay" mapstructure:"min_delay"`

	// MaxRetries is the number of retries after the first attempt (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryBaseDelay is the first backoff delay; it doubles on each retry (default 2s).
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay" mapstructure:"retry_base_delay"`

	// APIBase is the query endpoint of the index.
	APIBase string `json:"api_base" yaml:"api_base" mapstructure:"api_base"`

	// PDFBase is the prefix that, followed by an external id, locates a document.
	PDFBase string `json:"pdf_base" yaml:"pdf_base" mapstructure:"pdf_base"`
}

// StoreConfig holds settings for the durable store.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout" mapstructure:"busy_timeout"`
}

// ConverterBackend identifies the tool used to pull text out of documents.
type ConverterBackend string

const (
	ConverterPDF        ConverterBackend = "pdf"
	ConverterMarkitdown ConverterBackend = "markitdown"
)

// PipelineConfig holds settings for one pipeline run.
type PipelineConfig struct {
	// DocumentsDir receives downloaded documents as {external_id}.pdf.
	DocumentsDir string `json:"documents_dir" yaml:"documents_dir" mapstructure:"documents_dir"`

	// PapersPerSubscription caps how many parsed papers are processed per
	// subscription per run (default 10).
	PapersPerSubscription int `json:"papers_per_subscription" yaml:"papers_per_subscription" mapstructure:"papers_per_subscription"`

	// MaxResults is the result cap sent with each search (default 50).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// Workers bounds concurrent document downloads (default 2).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// PreviewLines is the number of non-empty lines kept as a preview (default 2).
	PreviewLines int `json:"preview_lines" yaml:"preview_lines" mapstructure:"preview_lines"`

	// Lookback, when positive, restricts searches to papers submitted within
	// this window before the run starts.
	Lookback time.Duration `json:"lookback" yaml:"lookback" mapstructure:"lookback"`

	// Converter selects the text extraction backend: pdf or markitdown.
	Converter ConverterBackend `json:"converter" yaml:"converter" mapstructure:"converter"`

	// ContainerRuntime forces docker or podman for the markitdown backend.
	// Empty tries docker, then podman.
	ContainerRuntime string `json:"container_runtime" yaml:"container_runtime" mapstructure:"container_runtime"`

	// MarkitdownImage is the image run by the markitdown backend.
	MarkitdownImage string `json:"markitdown_image" yaml:"markitdown_image" mapstructure:"markitdown_image"`
}

// ScheduleConfig defines when recurring runs fire.
type ScheduleConfig struct {
	// TimeOfDay is the daily fire time as HH:MM.
	TimeOfDay string `json:"time_of_day" yaml:"time_of_day" mapstructure:"time_of_day"`

	// Timezone is an IANA zone name used to interpret TimeOfDay.
	Timezone string `json:"timezone" yaml:"timezone" mapstructure:"timezone"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// Config groups every stage configuration.
type Config struct {
	Fetch         FetchConfig    `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Store         StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Pipeline      PipelineConfig `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Schedule      ScheduleConfig `json:"schedule" yaml:"schedule" mapstructure:"schedule"`
	Logging       LoggingConfig  `json:"logging" yaml:"logging" mapstructure:"logging"`
	Metrics       MetricsConfig  `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
	Subscriptions []Subscription `json:"subscriptions" yaml:"subscriptions" mapstructure:"subscriptions"`
}

// FindSubscription returns the subscription with the given name.
func (c Config) FindSubscription(name string) (Subscription, bool) {
	for _, s := range c.Subscriptions {
		if s.Name == name {
			return s, true
		}
	}
	return Subscription{}, false
}
