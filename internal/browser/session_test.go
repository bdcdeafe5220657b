package browser

import (
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/study-extract/internal/config"
)

func TestNewLauncher_Flags(t *testing.T) {
	l := newLauncher(Options{Headless: true, UserDataDir: "/tmp/profile"})

	assert.True(t, l.Has(flags.Headless))
	assert.Equal(t, "AutomationControlled", l.Get("disable-blink-features"))
	assert.Equal(t, "/tmp/profile", l.Get(flags.UserDataDir))
	assert.False(t, l.Has("enable-automation"))
}

func TestNewLauncher_Headful(t *testing.T) {
	l := newLauncher(Options{})
	assert.False(t, l.Has(flags.Headless))
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(
		config.BrowserConfig{Bin: "/usr/bin/chromium", UserDataDir: "profile", RemoteURL: "ws://x", Headless: true},
		config.AgentConfig{FileChooserTimeout: time.Minute},
	)
	assert.Equal(t, Options{
		Bin:                "/usr/bin/chromium",
		UserDataDir:        "profile",
		RemoteURL:          "ws://x",
		Headless:           true,
		FileChooserTimeout: time.Minute,
	}, opts)
}
