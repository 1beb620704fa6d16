package engine

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/use-agent/h2scrape/config"
)

// Switches applied to every session.
var (
	argWindowSize = Arg{Name: "window-size", Values: []string{"1920", "1080"}}
	argLogLevel   = Arg{Name: "log-level", Values: []string{"3"}}

	excludedSwitches = []string{"enable-logging"}
)

// userDataDirPattern names the per-session profile directory.
const userDataDirPattern = "h2scrape-profile-*"

// Configurator builds LaunchOptions and the Service for a session.
type Configurator struct {
	env     config.Environment
	browser config.BrowserConfig
	logger  *slog.Logger

	// mkdirTemp is os.MkdirTemp, replaceable in tests.
	mkdirTemp func(dir, pattern string) (string, error)
}

// NewConfigurator creates a Configurator for the given runtime environment.
func NewConfigurator(env config.Environment, browser config.BrowserConfig, logger *slog.Logger) *Configurator {
	return &Configurator{
		env:       env,
		browser:   browser,
		logger:    logger,
		mkdirTemp: os.MkdirTemp,
	}
}

// Build returns the launch options and service descriptor.
//
// A non-nil headless wins over the environment classification. The service
// descriptor always follows the classification: containerized runs use the
// configured executable and log paths, local runs auto-discover.
//
// Every headless call allocates a fresh profile directory. Removing it is
// the caller's job.
func (c *Configurator) Build(headless *bool) (*LaunchOptions, *Service, error) {
	containerized := c.env.IsContainerized()

	runHeadless := containerized
	if headless != nil {
		runHeadless = *headless
	}

	opts := &LaunchOptions{
		Headless:         runHeadless,
		Args:             []Arg{argWindowSize, argLogLevel},
		ExcludeSwitches:  append([]string(nil), excludedSwitches...),
		Stealth:          c.browser.Stealth,
		Headers:          c.browser.Headers,
		BlockedResources: c.browser.BlockedResources,
		KeepUserDataDir:  c.browser.KeepUserDataDir,
	}

	if runHeadless {
		c.logger.Info("applying headless browser options")

		dir, err := c.mkdirTemp("", userDataDirPattern)
		if err != nil {
			return nil, nil, fmt.Errorf("create user data dir: %w", err)
		}

		opts.UserDataDir = dir
		opts.Args = append(opts.Args,
			Arg{Name: "headless", Values: []string{"new"}},
			Arg{Name: "no-sandbox"},
			Arg{Name: "disable-dev-shm-usage"},
			Arg{Name: "disable-gpu"},
			Arg{Name: "user-data-dir", Values: []string{dir}},
		)
		opts.BrowserBin = c.browser.BrowserBin
	} else {
		c.logger.Info("applying non-headless browser options")
	}

	svc := DefaultService()
	if containerized && c.browser.DriverPath != "" {
		svc = &Service{
			ExecutablePath: c.browser.DriverPath,
			LogPath:        c.browser.DriverLogPath,
		}
		c.logger.Info("using explicit browser executable",
			"path", svc.ExecutablePath,
			"log", svc.LogPath,
		)
	} else {
		c.logger.Info("browser executable will be discovered on the search path")
	}

	return opts, svc, nil
}
