// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration for one audit run.
type Config struct {
	Logger        LoggerConfig        `mapstructure:"logger" yaml:"logger"`
	Browser       BrowserConfig       `mapstructure:"browser" yaml:"browser"`
	Target        TargetConfig        `mapstructure:"target" yaml:"target"`
	Phases        PhasesConfig        `mapstructure:"phases" yaml:"phases"`
	Accessibility AccessibilityConfig `mapstructure:"accessibility" yaml:"accessibility"`
	References    ReferencesConfig    `mapstructure:"references" yaml:"references"`
	Explore       ExploreConfig       `mapstructure:"explore" yaml:"explore"`
	Engine        EngineConfig        `mapstructure:"engine" yaml:"engine"`
	Output        OutputConfig        `mapstructure:"output" yaml:"output"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser process.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string      `mapstructure:"args" yaml:"args"`
	LaunchTimeout   time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// TargetConfig describes the application under test: where it lives, which
// routes to visit and at which canvas sizes.
type TargetConfig struct {
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	Routes            []Route       `mapstructure:"routes" yaml:"routes"`
	Viewports         []Viewport    `mapstructure:"viewports" yaml:"viewports"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ReadinessTimeout  time.Duration `mapstructure:"readiness_timeout" yaml:"readiness_timeout"`
	// SettleTime is waited after load before console output and failed
	// requests are read.
	SettleTime time.Duration `mapstructure:"settle_time" yaml:"settle_time"`
}

// Route is one logical page under test.
type Route struct {
	Name          string        `mapstructure:"name" yaml:"name"`
	Path          string        `mapstructure:"path" yaml:"path"`
	ReadySelector string        `mapstructure:"ready_selector" yaml:"ready_selector"`
	Interactions  []Interaction `mapstructure:"interactions" yaml:"interactions"`
}

// Interaction is a single scripted step executed during exploratory navigation.
type Interaction struct {
	Action   string        `mapstructure:"action" yaml:"action"`
	Selector string        `mapstructure:"selector" yaml:"selector"`
	Value    string        `mapstructure:"value" yaml:"value"`
	Wait     time.Duration `mapstructure:"wait" yaml:"wait"`
}

// Supported interaction actions.
const (
	ActionClick  = "click"
	ActionType   = "type"
	ActionSelect = "select"
	ActionHover  = "hover"
	ActionWait   = "wait"
)

// Viewport is one canvas-size configuration used to render a route.
type Viewport struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Width  int    `mapstructure:"width" yaml:"width"`
	Height int    `mapstructure:"height" yaml:"height"`
	Mobile bool   `mapstructure:"mobile" yaml:"mobile"`
}

// PhasesConfig toggles individual pipeline phases. A mode selects a subset of
// phases; a phase runs only when both the mode and this toggle allow it.
type PhasesConfig struct {
	References    bool `mapstructure:"references" yaml:"references"`
	UI            bool `mapstructure:"ui" yaml:"ui"`
	Errors        bool `mapstructure:"errors" yaml:"errors"`
	Explore       bool `mapstructure:"explore" yaml:"explore"`
	Accessibility bool `mapstructure:"accessibility" yaml:"accessibility"`
	Report        bool `mapstructure:"report" yaml:"report"`
	Plan          bool `mapstructure:"plan" yaml:"plan"`
}

// AccessibilityConfig controls the audit and remediation behaviour.
type AccessibilityConfig struct {
	Remediate bool `mapstructure:"remediate" yaml:"remediate"`
	// Reaudit re-collects the page after remediation and records a second score.
	Reaudit bool `mapstructure:"reaudit" yaml:"reaudit"`
}

// ReferencesConfig configures the design benchmark phase.
type ReferencesConfig struct {
	CatalogFile string        `mapstructure:"catalog_file" yaml:"catalog_file"`
	Priorities  []string      `mapstructure:"priorities" yaml:"priorities"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ExploreConfig tunes exploratory navigation.
type ExploreConfig struct {
	MaxLinks       int           `mapstructure:"max_links" yaml:"max_links"`
	RateLimit      float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// EngineConfig configures how units of work are scheduled inside a phase.
type EngineConfig struct {
	// Concurrency is the number of browser sessions allowed open at once.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// OutputConfig controls where and in which formats reports are written.
type OutputConfig struct {
	Dir     string   `mapstructure:"dir" yaml:"dir"`
	Formats []string `mapstructure:"formats" yaml:"formats"`
}

// Report formats understood by the reporting package.
var KnownFormats = []string{"json", "markdown", "html", "sarif", "junit"}

// ConfigurationError reports a malformed configuration value. It is always
// fatal and is raised before any browser session is opened.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "uiprobe")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.launch_timeout", "30s")

	// -- Target --
	v.SetDefault("target.base_url", "http://localhost:3000")
	v.SetDefault("target.routes", []map[string]any{
		{"name": "home", "path": "/"},
	})
	v.SetDefault("target.viewports", []map[string]any{
		{"name": "desktop", "width": 1920, "height": 1080},
		{"name": "tablet", "width": 768, "height": 1024},
		{"name": "mobile", "width": 375, "height": 667, "mobile": true},
	})
	v.SetDefault("target.navigation_timeout", "30s")
	v.SetDefault("target.readiness_timeout", "15s")
	v.SetDefault("target.settle_time", "1s")

	// -- Phases --
	for _, phase := range []string{"references", "ui", "errors", "explore", "accessibility", "report", "plan"} {
		v.SetDefault("phases."+phase, true)
	}

	// -- Accessibility --
	v.SetDefault("accessibility.remediate", true)
	v.SetDefault("accessibility.reaudit", true)

	// -- References --
	v.SetDefault("references.priorities", []string{"high"})
	v.SetDefault("references.timeout", "30s")

	// -- Explore --
	v.SetDefault("explore.max_links", 50)
	v.SetDefault("explore.rate_limit", 5.0)
	v.SetDefault("explore.request_timeout", "10s")

	// -- Engine --
	v.SetDefault("engine.concurrency", 1)

	// -- Output --
	v.SetDefault("output.dir", "./uiprobe-reports")
	v.SetDefault("output.formats", KnownFormats)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// Every failure is a *ConfigurationError.
func (c *Config) Validate() error {
	if err := c.Target.Validate(); err != nil {
		return err
	}
	if c.Engine.Concurrency <= 0 {
		return &ConfigurationError{Field: "engine.concurrency", Reason: "must be a positive integer"}
	}
	if c.Browser.LaunchTimeout <= 0 {
		return &ConfigurationError{Field: "browser.launch_timeout", Reason: "must be a positive duration"}
	}
	if c.Explore.MaxLinks < 0 {
		return &ConfigurationError{Field: "explore.max_links", Reason: "must not be negative"}
	}
	if c.Explore.RateLimit <= 0 {
		return &ConfigurationError{Field: "explore.rate_limit", Reason: "must be positive"}
	}
	for _, p := range c.References.Priorities {
		switch strings.ToLower(p) {
		case "high", "medium", "low":
		default:
			return &ConfigurationError{Field: "references.priorities", Reason: fmt.Sprintf("unknown priority %q", p)}
		}
	}
	for _, f := range c.Output.Formats {
		if !isKnownFormat(f) {
			return &ConfigurationError{Field: "output.formats", Reason: fmt.Sprintf("unknown format %q", f)}
		}
	}
	return nil
}

// Validate checks the target description: base URL, routes and viewports.
func (t *TargetConfig) Validate() error {
	u, err := url.Parse(t.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigurationError{Field: "target.base_url", Reason: fmt.Sprintf("%q is not an absolute http(s) URL", t.BaseURL)}
	}
	if len(t.Routes) == 0 {
		return &ConfigurationError{Field: "target.routes", Reason: "at least one route is required"}
	}
	seen := make(map[string]bool)
	for i, r := range t.Routes {
		field := fmt.Sprintf("target.routes[%d]", i)
		if r.Name == "" {
			return &ConfigurationError{Field: field + ".name", Reason: "is required"}
		}
		if seen[r.Name] {
			return &ConfigurationError{Field: field + ".name", Reason: fmt.Sprintf("duplicate route %q", r.Name)}
		}
		seen[r.Name] = true
		if !strings.HasPrefix(r.Path, "/") {
			return &ConfigurationError{Field: field + ".path", Reason: "must start with '/'"}
		}
		for j, in := range r.Interactions {
			if err := in.validate(); err != nil {
				return &ConfigurationError{Field: fmt.Sprintf("%s.interactions[%d]", field, j), Reason: err.Error()}
			}
		}
	}
	if len(t.Viewports) == 0 {
		return &ConfigurationError{Field: "target.viewports", Reason: "at least one viewport is required"}
	}
	seen = make(map[string]bool)
	for i, vp := range t.Viewports {
		field := fmt.Sprintf("target.viewports[%d]", i)
		if vp.Name == "" {
			return &ConfigurationError{Field: field + ".name", Reason: "is required"}
		}
		if seen[vp.Name] {
			return &ConfigurationError{Field: field + ".name", Reason: fmt.Sprintf("duplicate viewport %q", vp.Name)}
		}
		seen[vp.Name] = true
		if vp.Width <= 0 || vp.Height <= 0 {
			return &ConfigurationError{Field: field, Reason: "width and height must be positive"}
		}
	}
	if t.NavigationTimeout <= 0 {
		return &ConfigurationError{Field: "target.navigation_timeout", Reason: "must be a positive duration"}
	}
	if t.ReadinessTimeout <= 0 {
		return &ConfigurationError{Field: "target.readiness_timeout", Reason: "must be a positive duration"}
	}
	if t.SettleTime < 0 {
		return &ConfigurationError{Field: "target.settle_time", Reason: "must not be negative"}
	}
	return nil
}

func (in Interaction) validate() error {
	switch in.Action {
	case ActionClick, ActionHover, ActionType, ActionSelect:
		if in.Selector == "" {
			return errors.New("selector is required")
		}
	case ActionWait:
		if in.Wait <= 0 && in.Selector == "" {
			return errors.New("wait needs a duration or a selector")
		}
	default:
		return fmt.Errorf("unknown action %q", in.Action)
	}
	return nil
}

// URLFor resolves a route path against the base URL.
func (t *TargetConfig) URLFor(r Route) (string, error) {
	base, err := url.Parse(t.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(r.Path)
	if err != nil {
		return "", fmt.Errorf("parse route path %q: %w", r.Path, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func isKnownFormat(f string) bool {
	for _, k := range KnownFormats {
		if k == f {
			return true
		}
	}
	return false
}
