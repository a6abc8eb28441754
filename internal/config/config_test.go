// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uxprobe/api/schemas"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, 1920, cfg.Browser().Viewport.Width)
	assert.Equal(t, 1080, cfg.Browser().Viewport.Height)
	assert.Equal(t, 30*time.Second, cfg.Audit().NavigationTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Audit().NetworkIdle)
	assert.Equal(t, 1, cfg.Responsive().Concurrency)
	assert.Equal(t, 20, cfg.Accessibility().FocusSteps)
	assert.Equal(t, []string{"json", "html"}, cfg.Output().Formats)
	assert.Equal(t, 70, cfg.Thresholds().MinOverallScore)
	assert.Equal(t, 3*time.Second, cfg.Thresholds().MaxLoadTime)
	assert.Equal(t, DefaultDevices, cfg.Devices())
	assert.True(t, cfg.Tests().Accessibility)
	assert.True(t, cfg.Tests().Enabled("keyboard_navigation"))

	require.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"zero navigation timeout", func(c *Config) { c.AuditCfg.NavigationTimeout = 0 }, "audit.navigation_timeout"},
		{"bad viewport", func(c *Config) { c.BrowserCfg.Viewport.Width = 0 }, "browser.viewport"},
		{"unnamed device", func(c *Config) {
			c.DevicesCfg = []schemas.Device{{Width: 10, Height: 10}}
		}, "devices[0].name"},
		{"zero-width device", func(c *Config) {
			c.DevicesCfg = []schemas.Device{{Name: "Watch", Width: 0, Height: 10}}
		}, "devices[0] (Watch)"},
		{"concurrency below one", func(c *Config) { c.ResponsiveCfg.Concurrency = 0 }, "responsive.concurrency"},
		{"score out of range", func(c *Config) { c.ThresholdsCfg.MinOverallScore = 101 }, "min_overall_score"},
		{"unknown format", func(c *Config) { c.OutputCfg.Formats = []string{"json", "pdf"} }, "unsupported output format: pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateTarget(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.ErrorContains(t, cfg.ValidateTarget(), "audit.url is required")

	cfg.SetAuditURL("ftp://example.com")
	assert.ErrorContains(t, cfg.ValidateTarget(), "http, https or file")

	cfg.SetAuditURL("https://example.com/pricing")
	assert.NoError(t, cfg.ValidateTarget())
}

func TestTestsConfigEnabled(t *testing.T) {
	tc := TestsConfig{SEO: true}
	assert.True(t, tc.Enabled("seo"))
	assert.False(t, tc.Enabled("forms"))
	assert.True(t, tc.Enabled("custom_probe"), "unknown probes default to enabled")
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
audit:
  url: "https://example.com"
  navigation_timeout: 45s
devices:
  - name: Phone
    width: 360
    height: 640
tests:
  seo: false
responsive:
  concurrency: 3
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "https://example.com", cfg.Audit().URL)
		assert.Equal(t, 45*time.Second, cfg.Audit().NavigationTimeout)
		assert.Equal(t, []schemas.Device{{Name: "Phone", Width: 360, Height: 640}}, cfg.Devices())
		assert.False(t, cfg.Tests().SEO)
		assert.True(t, cfg.Tests().Forms, "untouched toggles keep their default")
		assert.Equal(t, 3, cfg.Responsive().Concurrency)
		assert.Equal(t, "info", cfg.Logger().Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("responsive.concurrency", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "responsive.concurrency must be at least 1")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		t.Setenv("UXPROBE_GITHUB_TOKEN", "ghp_env_var_token_456")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "ghp_env_var_token_456", cfg.GitHub().Token)
	})

	t.Run("Home directory expansion", func(t *testing.T) {
		t.Setenv("HOME", "/home/tester")
		homedir.DisableCache = true
		t.Cleanup(func() { homedir.DisableCache = false })
		v := viper.New()
		SetDefaults(v)
		v.Set("output.dir", "~/ux-reports")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "/home/tester/ux-reports", cfg.Output().Dir)
	})
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetBrowserHeadless(false)
	cfg.SetNavigationTimeout(5 * time.Second)
	cfg.SetOutputDir("/tmp/out")
	cfg.SetOutputFormats([]string{"sarif"})

	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, 5*time.Second, cfg.Audit().NavigationTimeout)
	assert.Equal(t, "/tmp/out", cfg.Output().Dir)
	assert.Equal(t, []string{"sarif"}, cfg.Output().Formats)
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.GitHubCfg.Token = "ghp_secret"
	cfg.GitHubCfg.Owner = "acme"

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))
	assert.NotContains(t, buf.String(), "ghp_secret")
	assert.Contains(t, buf.String(), "navigation_timeout: 30s")

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(&buf))
	loaded, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, cfg.Audit(), loaded.Audit())
	assert.Equal(t, cfg.Thresholds(), loaded.Thresholds())
	assert.Equal(t, cfg.Devices(), loaded.Devices())
	assert.Equal(t, "acme", loaded.GitHub().Owner)
}
