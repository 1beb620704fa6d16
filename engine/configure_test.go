package engine

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/h2scrape/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func boolPtr(b bool) *bool { return &b }

func newTestConfigurator(t *testing.T, env config.Environment, browser config.BrowserConfig) *Configurator {
	t.Helper()
	c := NewConfigurator(env, browser, discardLogger())
	tmp := t.TempDir()
	c.mkdirTemp = func(_, pattern string) (string, error) {
		return os.MkdirTemp(tmp, pattern)
	}
	return c
}

var (
	localEnv  = config.Environment{}
	dockerEnv = config.Environment{RunningInDocker: "true"}
	ciEnv     = config.Environment{GitHubActions: "true"}
)

func TestBuild_CommonSwitches(t *testing.T) {
	c := newTestConfigurator(t, localEnv, config.BrowserConfig{})

	opts, _, err := c.Build(nil)
	require.NoError(t, err)

	assert.False(t, opts.Headless)
	assert.Equal(t, []string{"--window-size=1920,1080", "--log-level=3"}, opts.Strings())
	assert.Equal(t, []string{"enable-logging"}, opts.ExcludeSwitches)
	assert.Empty(t, opts.UserDataDir)
	assert.Empty(t, opts.BrowserBin)
}

func TestBuild_HeadlessSwitches(t *testing.T) {
	c := newTestConfigurator(t, dockerEnv, config.BrowserConfig{})

	opts, _, err := c.Build(nil)
	require.NoError(t, err)

	require.True(t, opts.Headless)
	require.NotEmpty(t, opts.UserDataDir)
	assert.DirExists(t, opts.UserDataDir)
	assert.Equal(t, []string{
		"--window-size=1920,1080",
		"--log-level=3",
		"--headless=new",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-gpu",
		"--user-data-dir=" + opts.UserDataDir,
	}, opts.Strings())
}

func TestBuild_OverrideWins(t *testing.T) {
	envs := map[string]config.Environment{"local": localEnv, "docker": dockerEnv, "ci": ciEnv}

	for name, env := range envs {
		t.Run(name, func(t *testing.T) {
			c := newTestConfigurator(t, env, config.BrowserConfig{})

			on, _, err := c.Build(boolPtr(true))
			require.NoError(t, err)
			assert.True(t, on.Headless)
			_, hasHeadless := on.Arg("headless")
			assert.True(t, hasHeadless)

			off, _, err := c.Build(boolPtr(false))
			require.NoError(t, err)
			assert.False(t, off.Headless)
			_, hasHeadless = off.Arg("headless")
			assert.False(t, hasHeadless)

			derived, _, err := c.Build(nil)
			require.NoError(t, err)
			assert.Equal(t, env.IsContainerized(), derived.Headless)
		})
	}
}

func TestBuild_FreshUserDataDirPerCall(t *testing.T) {
	c := newTestConfigurator(t, localEnv, config.BrowserConfig{})

	first, _, err := c.Build(boolPtr(true))
	require.NoError(t, err)
	second, _, err := c.Build(boolPtr(true))
	require.NoError(t, err)

	assert.NotEqual(t, first.UserDataDir, second.UserDataDir)
}

func TestBuild_BrowserBinOnlyWhenHeadless(t *testing.T) {
	c := newTestConfigurator(t, localEnv, config.BrowserConfig{BrowserBin: "/opt/chrome/chrome"})

	headless, _, err := c.Build(boolPtr(true))
	require.NoError(t, err)
	assert.Equal(t, "/opt/chrome/chrome", headless.BrowserBin)

	visible, _, err := c.Build(boolPtr(false))
	require.NoError(t, err)
	assert.Empty(t, visible.BrowserBin)
}

func TestBuild_ServiceFollowsEnvironment(t *testing.T) {
	browser := config.BrowserConfig{
		DriverPath:    config.DefaultDriverPath,
		DriverLogPath: config.DefaultDriverLogPath,
	}

	t.Run("containerized ignores override", func(t *testing.T) {
		c := newTestConfigurator(t, ciEnv, browser)
		_, svc, err := c.Build(boolPtr(false))
		require.NoError(t, err)
		assert.False(t, svc.AutoDiscover())
		assert.Equal(t, &Service{
			ExecutablePath: config.DefaultDriverPath,
			LogPath:        config.DefaultDriverLogPath,
		}, svc)
	})

	t.Run("local auto-discovers", func(t *testing.T) {
		c := newTestConfigurator(t, localEnv, browser)
		_, svc, err := c.Build(boolPtr(true))
		require.NoError(t, err)
		assert.True(t, svc.AutoDiscover())
		assert.Empty(t, svc.LogPath)
	})

	t.Run("containerized without driver path auto-discovers", func(t *testing.T) {
		c := newTestConfigurator(t, dockerEnv, config.BrowserConfig{})
		_, svc, err := c.Build(nil)
		require.NoError(t, err)
		assert.True(t, svc.AutoDiscover())
	})
}

func TestBuild_TempDirFailure(t *testing.T) {
	c := NewConfigurator(dockerEnv, config.BrowserConfig{}, discardLogger())
	c.mkdirTemp = func(string, string) (string, error) {
		return "", errors.New("read-only file system")
	}

	_, _, err := c.Build(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only file system")
}

func TestArgString(t *testing.T) {
	assert.Equal(t, "--no-sandbox", Arg{Name: "no-sandbox"}.String())
	assert.Equal(t, "--headless=new", Arg{Name: "headless", Values: []string{"new"}}.String())
}

func TestNew_SelectsEngine(t *testing.T) {
	rod, err := New(config.EngineRod, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "rod", rod.Name())

	static, err := New(config.EngineHTTP, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "http", static.Name())

	_, err = New("selenium", discardLogger())
	assert.Error(t, err)
}
