package shopping

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBrowserProvider_Defaults(t *testing.T) {
	p := NewBrowserProvider(BrowserConfig{})

	assert.Equal(t, DefaultHomeURL, p.cfg.HomeURL)
	assert.Equal(t, 20*time.Second, p.cfg.Timeout)
	assert.Equal(t, time.Second, p.cfg.PollInterval)
	assert.Equal(t, ".yyJm8b", p.cfg.Selectors.SearchBox)
}

func TestLauncherFor_Flags(t *testing.T) {
	l := launcherFor(BrowserConfig{Headless: true, Bin: "/usr/bin/chromium"})

	assert.Equal(t, "pt-BR", l.Get("lang"))
	assert.Equal(t, "1366,768", l.Get("window-size"))
	assert.True(t, l.Has("incognito"))
	assert.True(t, l.Has("headless"))
}

func TestBrowserProvider_CloseWithoutLaunch(t *testing.T) {
	p := NewBrowserProvider(BrowserConfig{})
	assert.NoError(t, p.Close())
}

type fakeBrowserProcess struct {
	controlURL string
	launchErr  error
	killed     int
}

func (f *fakeBrowserProcess) Launch() (string, error) { return f.controlURL, f.launchErr }
func (f *fakeBrowserProcess) Kill()                   { f.killed++ }

func TestEnsureBrowser_KillsProcessWhenConnectFails(t *testing.T) {
	process := &fakeBrowserProcess{controlURL: "ws://127.0.0.1:9222/devtools/browser/x"}
	origProcess, origConnect := newBrowserProcess, connectBrowser
	t.Cleanup(func() { newBrowserProcess, connectBrowser = origProcess, origConnect })

	newBrowserProcess = func(BrowserConfig) browserProcess { return process }
	connectBrowser = func(controlURL string) (*rod.Browser, error) {
		assert.Equal(t, process.controlURL, controlURL)
		return nil, errors.New("connection refused")
	}

	p := NewBrowserProvider(BrowserConfig{})
	_, err := p.FetchFragments(context.Background(), "mouse")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to browser")
	assert.Equal(t, 1, process.killed)
	assert.Nil(t, p.browser)
}

func TestEnsureBrowser_LaunchFailureKillsNothing(t *testing.T) {
	process := &fakeBrowserProcess{launchErr: errors.New("no chromium")}
	origProcess := newBrowserProcess
	t.Cleanup(func() { newBrowserProcess = origProcess })
	newBrowserProcess = func(BrowserConfig) browserProcess { return process }

	p := NewBrowserProvider(BrowserConfig{})
	_, err := p.FetchFragments(context.Background(), "mouse")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to launch browser")
	assert.Zero(t, process.killed)
}

// Needs a local Chromium; set PRICESHEET_BROWSER_TEST=1 to run.
func TestBrowserProvider_Live(t *testing.T) {
	if os.Getenv("PRICESHEET_BROWSER_TEST") == "" {
		t.Skip("PRICESHEET_BROWSER_TEST not set")
	}

	p := NewBrowserProvider(BrowserConfig{Headless: true})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, err := p.FetchFragments(ctx, "mouse gamer")
	require.NoError(t, err)
}
