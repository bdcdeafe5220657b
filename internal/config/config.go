package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus" mapstructure:"corpus"`
	Records   RecordsConfig   `yaml:"records" mapstructure:"records"`
	Schema    SchemaConfig    `yaml:"schema" mapstructure:"schema"`
	Agent     AgentConfig     `yaml:"agent" mapstructure:"agent"`
	Browser   BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CorpusConfig locates the source documents.
type CorpusConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// RecordsConfig holds the paths of the spreadsheet artifacts.
type RecordsConfig struct {
	StorePath          string `yaml:"store_path" mapstructure:"store_path"`
	DiscrepancyLogPath string `yaml:"discrepancy_log_path" mapstructure:"discrepancy_log_path"`
	HealingReportPath  string `yaml:"healing_report_path" mapstructure:"healing_report_path"`
}

// SchemaConfig points at an optional field schema override.
type SchemaConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// AgentConfig configures a single turn against the remote agent.
type AgentConfig struct {
	Backend            string        `yaml:"backend" mapstructure:"backend"`
	URL                string        `yaml:"url" mapstructure:"url"`
	NavigateTimeout    time.Duration `yaml:"navigate_timeout" mapstructure:"navigate_timeout"`
	SettleDelay        time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`
	FileChooserTimeout time.Duration `yaml:"file_chooser_timeout" mapstructure:"file_chooser_timeout"`
	MenuDelay          time.Duration `yaml:"menu_delay" mapstructure:"menu_delay"`
	AffordanceTimeout  time.Duration `yaml:"affordance_timeout" mapstructure:"affordance_timeout"`
	IngestTimeout      time.Duration `yaml:"ingest_timeout" mapstructure:"ingest_timeout"`
	IngestFallback     time.Duration `yaml:"ingest_fallback" mapstructure:"ingest_fallback"`
	CompletionGrace    time.Duration `yaml:"completion_grace" mapstructure:"completion_grace"`
	CompletionInterval time.Duration `yaml:"completion_interval" mapstructure:"completion_interval"`
	CompletionTimeout  time.Duration `yaml:"completion_timeout" mapstructure:"completion_timeout"`
	MinTurnInterval    time.Duration `yaml:"min_turn_interval" mapstructure:"min_turn_interval"`
}

// BrowserConfig configures the Chrome instance driven by rod.
type BrowserConfig struct {
	Bin          string        `yaml:"bin" mapstructure:"bin"`
	UserDataDir  string        `yaml:"user_data_dir" mapstructure:"user_data_dir"`
	RemoteURL    string        `yaml:"remote_url" mapstructure:"remote_url"`
	Headless     bool          `yaml:"headless" mapstructure:"headless"`
	LoginTimeout time.Duration `yaml:"login_timeout" mapstructure:"login_timeout"`
	LoginPoll    time.Duration `yaml:"login_poll" mapstructure:"login_poll"`
	DebugDir     string        `yaml:"debug_dir" mapstructure:"debug_dir"`
}

// AnthropicConfig holds Anthropic API settings for the API backend.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// StoreConfig configures the run ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("STUDYX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("corpus.dir", "Articles")
	v.SetDefault("records.store_path", "extracted_studies.xlsx")
	v.SetDefault("records.discrepancy_log_path", "validation_discrepancies.xlsx")
	v.SetDefault("records.healing_report_path", "healing_report.xlsx")
	v.SetDefault("schema.path", "")
	v.SetDefault("agent.backend", "browser")
	v.SetDefault("agent.url", "https://gemini.google.com/app")
	v.SetDefault("agent.navigate_timeout", 90*time.Second)
	v.SetDefault("agent.settle_delay", 2*time.Second)
	v.SetDefault("agent.file_chooser_timeout", 60*time.Second)
	v.SetDefault("agent.menu_delay", 2*time.Second)
	v.SetDefault("agent.affordance_timeout", 10*time.Second)
	v.SetDefault("agent.ingest_timeout", 60*time.Second)
	v.SetDefault("agent.ingest_fallback", 15*time.Second)
	v.SetDefault("agent.completion_grace", 5*time.Second)
	v.SetDefault("agent.completion_interval", 1*time.Second)
	v.SetDefault("agent.completion_timeout", 120*time.Second)
	v.SetDefault("agent.min_turn_interval", time.Duration(0))
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.login_timeout", 10*time.Minute)
	v.SetDefault("browser.login_poll", 5*time.Second)
	v.SetDefault("browser.debug_dir", ".")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "study-extract.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings required by mode are present. Mode is
// "agent" for commands that take turns against the remote agent and "ledger"
// for commands that only read the run ledger.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required for postgres")
	}

	switch mode {
	case "ledger":
	case "agent":
		if c.Corpus.Dir == "" {
			problems = append(problems, "corpus.dir is required")
		}
		if c.Records.StorePath == "" || c.Records.DiscrepancyLogPath == "" || c.Records.HealingReportPath == "" {
			problems = append(problems, "records paths are required")
		}
		switch c.Agent.Backend {
		case "browser":
			if c.Agent.URL == "" {
				problems = append(problems, "agent.url is required")
			}
			if c.Agent.CompletionInterval <= 0 {
				problems = append(problems, "agent.completion_interval must be > 0")
			}
		case "anthropic":
			if c.Anthropic.Key == "" {
				problems = append(problems, "anthropic.key is required for the anthropic backend")
			}
		default:
			problems = append(problems, fmt.Sprintf("agent.backend %q is not supported", c.Agent.Backend))
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
