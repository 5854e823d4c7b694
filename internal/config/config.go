package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml"
)

// Cfg is a container for all config derived from config.toml.
type Cfg struct {
	PrometheusListenAddr string        `toml:"prometheus_listen_addr" split_words:"true"`
	Mirror               Mirror        `toml:"mirror" envconfig:"mirror"`
	Fetch                Fetch         `toml:"fetch" envconfig:"fetch"`
	Pipeline             Pipeline      `toml:"pipeline" envconfig:"pipeline"`
	Webhook              Webhook       `toml:"webhook" envconfig:"webhook"`
	Logging              Logging       `toml:"logging" envconfig:"logging"`
	Notifications        Notifications `toml:"notifications"`
}

// Mirror contains the settings locating the mirrored repositories on disk.
type Mirror struct {
	// Root is the directory all mirrors live under, laid out as
	// <root>/<namespace>/<name>.git bare repositories.
	Root string `toml:"root"`
	// Ignore lists path fragments relative to Root. A discovered repository
	// whose path starts with one of these fragments is never fetched; an
	// entry also excludes everything nested under it.
	Ignore []string `toml:"ignore"`
}

// Fetch contains the settings controlling fetch execution.
type Fetch struct {
	// Providers is the ordered list of remote-name substrings eligible for
	// fetch. A configured remote is fetched iff its name contains one of
	// these entries.
	Providers []string `toml:"providers"`
	// Interval is the delay between two full mirror runs in daemon mode.
	Interval Duration `toml:"interval"`
	// Workers bounds how many repositories are fetched at the same time.
	Workers int `toml:"workers"`
}

// Pipeline contains the settings required to reach the GitLab pipeline API.
type Pipeline struct {
	URL      string        `toml:"url" json:"url"`
	Token    string        `toml:"token" json:"token"`
	Triggers []TriggerRule `toml:"trigger"`
}

// TriggerRule maps repositories to the branch a pipeline is created for.
// Rules are evaluated in configured order, first match wins.
type TriggerRule struct {
	Repo   string `toml:"repo"`
	Branch string `toml:"branch"`
}

// Webhook contains the settings of the inbound webhook listener.
type Webhook struct {
	ListenAddr string `toml:"listen_addr" split_words:"true"`
}

// Logging contains the logging configuration for gitlab-mirror-pull
type Logging struct {
	Format            string `toml:"format,omitempty"`
	Level             string `toml:"level,omitempty"`
	SentryDSN         string `toml:"sentry_dsn" split_words:"true"`
	SentryEnvironment string `toml:"sentry_environment" split_words:"true"`
}

// Notifications contains the settings used to mail mirror reports.
type Notifications struct {
	SMTPAddr string   `toml:"smtp_addr"`
	From     string   `toml:"from"`
	To       []string `toml:"to"`
}

// Load initializes the Cfg from file and the environment.
// Environment variables take precedence over the file.
func Load(file io.Reader) (Cfg, error) {
	var cfg Cfg

	if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
		return Cfg{}, fmt.Errorf("load toml: %v", err)
	}

	if err := envconfig.Process("gmp", &cfg); err != nil {
		return Cfg{}, fmt.Errorf("envconfig: %v", err)
	}

	cfg.setDefaults()

	cfg.Mirror.Root = filepath.Clean(cfg.Mirror.Root)

	return cfg, nil
}

// Validate checks the current Cfg for sanity.
func (cfg *Cfg) Validate() error {
	for _, run := range []func() error{
		cfg.validateMirrorRoot,
		cfg.validateFetch,
		cfg.validatePipeline,
		cfg.validateNotifications,
	} {
		if err := run(); err != nil {
			return err
		}
	}

	return nil
}

func (cfg *Cfg) setDefaults() {
	if cfg.Fetch.Interval.Duration() == 0 {
		cfg.Fetch.Interval = Duration(time.Minute)
	}

	if cfg.Fetch.Workers == 0 {
		cfg.Fetch.Workers = 1
	}
}

func (cfg *Cfg) validateMirrorRoot() error {
	if len(cfg.Mirror.Root) == 0 {
		return fmt.Errorf("mirror.root is not set")
	}

	if !filepath.IsAbs(cfg.Mirror.Root) {
		return fmt.Errorf("mirror.root must be an absolute path: %q", cfg.Mirror.Root)
	}

	fs, err := os.Stat(cfg.Mirror.Root)
	if err != nil {
		return fmt.Errorf("mirror.root must exist: %w", err)
	}

	if !fs.IsDir() {
		return fmt.Errorf("mirror.root is not a directory: %q", cfg.Mirror.Root)
	}

	return nil
}

func (cfg *Cfg) validateFetch() error {
	if cfg.Fetch.Workers < 1 {
		return fmt.Errorf("fetch.workers must be at least 1, got %d", cfg.Fetch.Workers)
	}

	if cfg.Fetch.Interval.Duration() < 0 {
		return fmt.Errorf("fetch.interval cannot be negative")
	}

	for _, provider := range cfg.Fetch.Providers {
		if strings.TrimSpace(provider) == "" {
			return fmt.Errorf("fetch.providers entries cannot be blank")
		}
	}

	return nil
}

func (cfg *Cfg) validatePipeline() error {
	if len(cfg.Pipeline.Triggers) == 0 {
		return nil
	}

	if cfg.Pipeline.URL == "" {
		return fmt.Errorf("pipeline.url must be set when triggers are configured")
	}

	if _, err := url.Parse(cfg.Pipeline.URL); err != nil {
		return fmt.Errorf("pipeline.url is not a valid url: %w", err)
	}

	if cfg.Pipeline.Token == "" {
		return fmt.Errorf("pipeline.token must be set when triggers are configured")
	}

	for i, rule := range cfg.Pipeline.Triggers {
		if rule.Repo == "" {
			return fmt.Errorf("pipeline.trigger[%d]: repo cannot be empty", i)
		}
		if rule.Branch == "" {
			return fmt.Errorf("pipeline.trigger[%d]: branch cannot be empty", i)
		}
	}

	return nil
}

func (cfg *Cfg) validateNotifications() error {
	n := cfg.Notifications
	if n.SMTPAddr == "" {
		return nil
	}

	if n.From == "" {
		return fmt.Errorf("notifications.from must be set when smtp_addr is configured")
	}

	if len(n.To) == 0 {
		return fmt.Errorf("notifications.to must be set when smtp_addr is configured")
	}

	return nil
}
