// internal/browser/default_allocator_options_test.go
package browser

import (
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/uxprobe/internal/config"
)

func flagValue(flags []chromeFlag, name string) (interface{}, bool) {
	var (
		value interface{}
		found bool
	)
	// Later flags win, as they do on the allocator.
	for _, f := range flags {
		if f.name == name {
			value, found = f.value, true
		}
	}
	return value, found
}

func TestChromeFlags(t *testing.T) {
	t.Run("Headless", func(t *testing.T) {
		flags := chromeFlags(Options{Headless: true})
		v, ok := flagValue(flags, "headless")
		assert.True(t, ok)
		assert.Equal(t, true, v)
		_, ok = flagValue(flags, "ignore-certificate-errors")
		assert.False(t, ok)
	})

	t.Run("Headful", func(t *testing.T) {
		v, _ := flagValue(chromeFlags(Options{Headless: false}), "headless")
		assert.Equal(t, false, v)
	})

	t.Run("IgnoreTLSErrors", func(t *testing.T) {
		flags := chromeFlags(Options{IgnoreTLSErrors: true})
		_, ok := flagValue(flags, "ignore-certificate-errors")
		assert.True(t, ok)
		_, ok = flagValue(flags, "allow-insecure-localhost")
		assert.True(t, ok)
	})

	t.Run("WithCustomArgs", func(t *testing.T) {
		flags := chromeFlags(Options{Args: []string{"--custom-arg1", "--lang=de-DE", "--"}})
		v, ok := flagValue(flags, "custom-arg1")
		assert.True(t, ok)
		assert.Equal(t, true, v)
		v, _ = flagValue(flags, "lang")
		assert.Equal(t, "de-DE", v)
		_, ok = flagValue(flags, "")
		assert.False(t, ok)
	})

	t.Run("CustomArgsOverrideDefaults", func(t *testing.T) {
		v, _ := flagValue(chromeFlags(Options{Headless: true, Args: []string{"--mute-audio=false"}}), "mute-audio")
		assert.Equal(t, "false", v)
	})
}

func TestAllocatorOptions(t *testing.T) {
	plain := AllocatorOptions(Options{Headless: true})
	assert.Greater(t, len(plain), len(chromedp.DefaultExecAllocatorOptions))

	withPath := AllocatorOptions(Options{Headless: true, ExecPath: "/usr/bin/chromium", UserAgent: "uxprobe"})
	assert.Len(t, withPath, len(plain)+2)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.AuditCfg.SlowMo = 250 * time.Millisecond
	cfg.BrowserCfg.Args = []string{"--lang=en-US"}

	opts := OptionsFromConfig(cfg)
	assert.True(t, opts.Headless)
	assert.Equal(t, 30*time.Second, opts.NavigationTimeout)
	assert.Equal(t, 500*time.Millisecond, opts.NetworkIdle)
	assert.Equal(t, 250*time.Millisecond, opts.SlowMo)
	assert.Equal(t, []string{"--lang=en-US"}, opts.Args)
}
