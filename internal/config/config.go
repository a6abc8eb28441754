// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/uxprobe/api/schemas"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Audit() AuditConfig
	Browser() BrowserConfig
	Devices() []schemas.Device
	Tests() TestsConfig
	Thresholds() ThresholdsConfig
	Output() OutputConfig
	Notifications() NotificationsConfig
	Accessibility() AccessibilityConfig
	Responsive() ResponsiveConfig
	GitHub() GitHubConfig

	SetAuditURL(u string)
	SetBrowserHeadless(b bool)
	SetNavigationTimeout(d time.Duration)
	SetOutputDir(dir string)
	SetOutputFormats(formats []string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg        LoggerConfig        `mapstructure:"logger" yaml:"logger"`
	AuditCfg         AuditConfig         `mapstructure:"audit" yaml:"audit"`
	BrowserCfg       BrowserConfig       `mapstructure:"browser" yaml:"browser"`
	DevicesCfg       []schemas.Device    `mapstructure:"devices" yaml:"devices"`
	TestsCfg         TestsConfig         `mapstructure:"tests" yaml:"tests"`
	ThresholdsCfg    ThresholdsConfig    `mapstructure:"thresholds" yaml:"thresholds"`
	OutputCfg        OutputConfig        `mapstructure:"output" yaml:"output"`
	NotificationsCfg NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	AccessibilityCfg AccessibilityConfig `mapstructure:"accessibility" yaml:"accessibility"`
	ResponsiveCfg    ResponsiveConfig    `mapstructure:"responsive" yaml:"responsive"`
	GitHubCfg        GitHubConfig        `mapstructure:"github" yaml:"github"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig               { return c.LoggerCfg }
func (c *Config) Audit() AuditConfig                 { return c.AuditCfg }
func (c *Config) Browser() BrowserConfig             { return c.BrowserCfg }
func (c *Config) Devices() []schemas.Device          { return c.DevicesCfg }
func (c *Config) Tests() TestsConfig                 { return c.TestsCfg }
func (c *Config) Thresholds() ThresholdsConfig       { return c.ThresholdsCfg }
func (c *Config) Output() OutputConfig               { return c.OutputCfg }
func (c *Config) Notifications() NotificationsConfig { return c.NotificationsCfg }
func (c *Config) Accessibility() AccessibilityConfig { return c.AccessibilityCfg }
func (c *Config) Responsive() ResponsiveConfig       { return c.ResponsiveCfg }
func (c *Config) GitHub() GitHubConfig               { return c.GitHubCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetAuditURL(u string)                 { c.AuditCfg.URL = u }
func (c *Config) SetBrowserHeadless(b bool)            { c.BrowserCfg.Headless = b }
func (c *Config) SetNavigationTimeout(d time.Duration) { c.AuditCfg.NavigationTimeout = d }
func (c *Config) SetOutputDir(dir string)              { c.OutputCfg.Dir = dir }
func (c *Config) SetOutputFormats(formats []string)    { c.OutputCfg.Formats = formats }

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

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// AuditConfig describes the page under test and the run's timing bounds.
type AuditConfig struct {
	URL               string        `mapstructure:"url" yaml:"url"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	// NetworkIdle is the quiet period that counts as a settled network.
	NetworkIdle time.Duration `mapstructure:"network_idle" yaml:"network_idle"`
	// SlowMo pauses after every page action. Useful with a visible browser.
	SlowMo time.Duration `mapstructure:"slow_mo" yaml:"slow_mo"`
}

// ViewportConfig is the desktop viewport of the main page.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath        string         `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent       string         `mapstructure:"user_agent" yaml:"user_agent"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
}

// TestsConfig toggles each probe category.
type TestsConfig struct {
	Performance         bool `mapstructure:"performance" yaml:"performance"`
	VisualHierarchy     bool `mapstructure:"visual_hierarchy" yaml:"visual_hierarchy"`
	ColorContrast       bool `mapstructure:"color_contrast" yaml:"color_contrast"`
	Navigation          bool `mapstructure:"navigation" yaml:"navigation"`
	Readability         bool `mapstructure:"readability" yaml:"readability"`
	CTA                 bool `mapstructure:"cta" yaml:"cta"`
	Forms               bool `mapstructure:"forms" yaml:"forms"`
	InteractiveElements bool `mapstructure:"interactive_elements" yaml:"interactive_elements"`
	KeyboardNavigation  bool `mapstructure:"keyboard_navigation" yaml:"keyboard_navigation"`
	SEO                 bool `mapstructure:"seo" yaml:"seo"`
	Responsive          bool `mapstructure:"responsive" yaml:"responsive"`
	Accessibility       bool `mapstructure:"accessibility" yaml:"accessibility"`
}

// Enabled looks a probe up by its registered name. Unknown names are enabled.
func (t TestsConfig) Enabled(name string) bool {
	switch name {
	case "performance":
		return t.Performance
	case "visual_hierarchy":
		return t.VisualHierarchy
	case "color_contrast":
		return t.ColorContrast
	case "navigation":
		return t.Navigation
	case "readability":
		return t.Readability
	case "cta":
		return t.CTA
	case "forms":
		return t.Forms
	case "interactive_elements":
		return t.InteractiveElements
	case "keyboard_navigation":
		return t.KeyboardNavigation
	case "seo":
		return t.SEO
	case "responsive":
		return t.Responsive
	case "accessibility":
		return t.Accessibility
	default:
		return true
	}
}

// ThresholdsConfig holds the pass/fail limits a CI gate applies to a report.
// The audit itself never enforces them.
type ThresholdsConfig struct {
	MinOverallScore   int           `mapstructure:"min_overall_score" yaml:"min_overall_score"`
	MaxLoadTime       time.Duration `mapstructure:"max_load_time" yaml:"max_load_time"`
	MaxLCP            time.Duration `mapstructure:"max_lcp" yaml:"max_lcp"`
	MaxCriticalIssues int           `mapstructure:"max_critical_issues" yaml:"max_critical_issues"`
	MaxSeriousIssues  int           `mapstructure:"max_serious_issues" yaml:"max_serious_issues"`
}

// OutputConfig controls where artifacts land.
type OutputConfig struct {
	Dir           string   `mapstructure:"dir" yaml:"dir"`
	ScreenshotDir string   `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
	Formats       []string `mapstructure:"formats" yaml:"formats"`
	Screenshots   bool     `mapstructure:"screenshots" yaml:"screenshots"`
}

// NotificationsConfig carries notification settings for downstream tooling.
type NotificationsConfig struct {
	Enabled    bool     `mapstructure:"enabled" yaml:"enabled"`
	WebhookURL string   `mapstructure:"webhook_url" yaml:"webhook_url"`
	Channel    string   `mapstructure:"channel" yaml:"channel"`
	Recipients []string `mapstructure:"recipients" yaml:"recipients"`
	OnlyOnFail bool     `mapstructure:"only_on_fail" yaml:"only_on_fail"`
}

// AccessibilityConfig locates the rule engine script.
type AccessibilityConfig struct {
	EnginePath  string        `mapstructure:"engine_path" yaml:"engine_path"`
	EngineURL   string        `mapstructure:"engine_url" yaml:"engine_url"`
	LoadTimeout time.Duration `mapstructure:"load_timeout" yaml:"load_timeout"`
	FocusSteps  int           `mapstructure:"focus_steps" yaml:"focus_steps"`
}

// ResponsiveConfig tunes the per-device probe.
type ResponsiveConfig struct {
	// Concurrency is the number of device contexts evaluated at once. 1 keeps it sequential.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// GitHubConfig defines the configuration for issue filing.
type GitHubConfig struct {
	Token         string   `mapstructure:"token" yaml:"-"`
	Owner         string   `mapstructure:"owner" yaml:"owner"`
	Repo          string   `mapstructure:"repo" yaml:"repo"`
	Labels        []string `mapstructure:"labels" yaml:"labels"`
	RatePerMinute int      `mapstructure:"rate_per_minute" yaml:"rate_per_minute"`
	MaxIssues     int      `mapstructure:"max_issues" yaml:"max_issues"`
}

// DefaultDevices is the device matrix used when none is configured.
var DefaultDevices = []schemas.Device{
	{Name: "Mobile", Width: 375, Height: 667},
	{Name: "Tablet", Width: 768, Height: 1024},
	{Name: "Desktop", Width: 1920, Height: 1080},
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
	v.SetDefault("logger.service_name", "uxprobe")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Audit --
	v.SetDefault("audit.url", "")
	v.SetDefault("audit.navigation_timeout", "30s")
	v.SetDefault("audit.default_timeout", "10s")
	v.SetDefault("audit.network_idle", "500ms")
	v.SetDefault("audit.slow_mo", "0s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.viewport.width", 1920)
	v.SetDefault("browser.viewport.height", 1080)

	// -- Devices --
	devices := make([]map[string]interface{}, 0, len(DefaultDevices))
	for _, d := range DefaultDevices {
		devices = append(devices, map[string]interface{}{"name": d.Name, "width": d.Width, "height": d.Height})
	}
	v.SetDefault("devices", devices)

	// -- Tests --
	for _, name := range []string{
		"performance", "visual_hierarchy", "color_contrast", "navigation", "readability", "cta",
		"forms", "interactive_elements", "keyboard_navigation", "seo", "responsive", "accessibility",
	} {
		v.SetDefault("tests."+name, true)
	}

	// -- Thresholds --
	v.SetDefault("thresholds.min_overall_score", 70)
	v.SetDefault("thresholds.max_load_time", "3s")
	v.SetDefault("thresholds.max_lcp", "2500ms")
	v.SetDefault("thresholds.max_critical_issues", 0)
	v.SetDefault("thresholds.max_serious_issues", 5)

	// -- Output --
	v.SetDefault("output.dir", "reports")
	v.SetDefault("output.screenshot_dir", "reports/screenshots")
	v.SetDefault("output.formats", []string{"json", "html"})
	v.SetDefault("output.screenshots", true)

	// -- Notifications --
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.only_on_fail", true)

	// -- Accessibility --
	v.SetDefault("accessibility.engine_path", "assets/axe.min.js")
	v.SetDefault("accessibility.engine_url", "https://cdnjs.cloudflare.com/ajax/libs/axe-core/4.10.2/axe.min.js")
	v.SetDefault("accessibility.load_timeout", "15s")
	v.SetDefault("accessibility.focus_steps", 20)

	// -- Responsive --
	v.SetDefault("responsive.concurrency", 1)

	// -- GitHub --
	v.SetDefault("github.owner", "")
	v.SetDefault("github.repo", "")
	v.SetDefault("github.labels", []string{"ux-audit"})
	v.SetDefault("github.rate_per_minute", 20)
	v.SetDefault("github.max_issues", 10)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("github.token", "UXPROBE_GITHUB_TOKEN", "GITHUB_TOKEN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every filesystem path setting.
func (c *Config) expandPaths() error {
	paths := []*string{
		&c.OutputCfg.Dir,
		&c.OutputCfg.ScreenshotDir,
		&c.AccessibilityCfg.EnginePath,
		&c.LoggerCfg.LogFile,
		&c.BrowserCfg.ExecPath,
	}
	for _, p := range paths {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
// The audit URL is checked separately by ValidateTarget because commands such
// as `report` never need one.
func (c *Config) Validate() error {
	if c.AuditCfg.NavigationTimeout <= 0 {
		return fmt.Errorf("audit.navigation_timeout must be a positive duration")
	}
	if c.BrowserCfg.Viewport.Width <= 0 || c.BrowserCfg.Viewport.Height <= 0 {
		return fmt.Errorf("browser.viewport width and height must be positive")
	}
	for i, d := range c.DevicesCfg {
		if d.Name == "" {
			return fmt.Errorf("devices[%d].name is required", i)
		}
		if d.Width <= 0 || d.Height <= 0 {
			return fmt.Errorf("devices[%d] (%s) must have a positive width and height", i, d.Name)
		}
	}
	if c.ResponsiveCfg.Concurrency < 1 {
		return fmt.Errorf("responsive.concurrency must be at least 1")
	}
	if c.ThresholdsCfg.MinOverallScore < 0 || c.ThresholdsCfg.MinOverallScore > 100 {
		return fmt.Errorf("thresholds.min_overall_score must be between 0 and 100")
	}
	for _, f := range c.OutputCfg.Formats {
		switch strings.ToLower(f) {
		case "json", "html", "sarif", "junit":
		default:
			return fmt.Errorf("unsupported output format: %s", f)
		}
	}
	return nil
}

// ValidateTarget checks that the audit URL is an absolute http(s) URL.
func (c *Config) ValidateTarget() error {
	if c.AuditCfg.URL == "" {
		return fmt.Errorf("audit.url is required")
	}
	u, err := url.Parse(c.AuditCfg.URL)
	if err != nil {
		return fmt.Errorf("audit.url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file" {
		return fmt.Errorf("audit.url must use http, https or file scheme, got %q", u.Scheme)
	}
	return nil
}
