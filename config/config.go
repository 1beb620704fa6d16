package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration. It is built once at process
// start and passed down explicitly.
type Config struct {
	Environment Environment
	Browser     BrowserConfig
	Log         LogConfig
}

// BrowserConfig controls how the browser session is launched.
type BrowserConfig struct {
	// Engine selects the session backend: "rod" or "http".
	Engine string // default: "rod"

	// HeadlessOverride forces headless on or off. Nil defers to the
	// environment classification.
	HeadlessOverride *bool

	// BrowserBin pins the browser binary used in headless mode.
	BrowserBin string

	// DriverPath is the executable launched when containerized.
	DriverPath string // default: "/usr/bin/chromium"

	// DriverLogPath receives the browser process output when containerized.
	DriverLogPath string // default: "/tmp/h2scrape-browser.log"

	// KeepUserDataDir leaves the per-session profile directory on disk.
	KeepUserDataDir bool // default: false

	// Stealth injects the stealth script before navigation.
	Stealth bool // default: false

	// Headers are sent with every request of the session.
	Headers map[string]string

	// BlockedResources lists resource types the browser skips.
	// default: ["Image", "Font", "Media"]
	BlockedResources []string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

const (
	EngineRod  = "rod"
	EngineHTTP = "http"

	DefaultDriverPath    = "/usr/bin/chromium"
	DefaultDriverLogPath = "/tmp/h2scrape-browser.log"
)

// Load reads configuration from the process environment with sane defaults.
func Load() *Config {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration through getenv.
func LoadFrom(getenv func(string) string) *Config {
	e := env{getenv: getenv}
	return &Config{
		Environment: Environment{
			RunningInDocker: getenv("RUNNING_IN_DOCKER"),
			GitHubActions:   getenv("GITHUB_ACTIONS"),
		},
		Browser: BrowserConfig{
			Engine:           strings.ToLower(e.or("H2SCRAPE_ENGINE", EngineRod)),
			HeadlessOverride: e.optionalBool("H2SCRAPE_HEADLESS"),
			BrowserBin:       getenv("H2SCRAPE_BROWSER_BIN"),
			DriverPath:       e.or("H2SCRAPE_DRIVER_PATH", DefaultDriverPath),
			DriverLogPath:    e.or("H2SCRAPE_DRIVER_LOG", DefaultDriverLogPath),
			KeepUserDataDir:  e.boolOr("H2SCRAPE_KEEP_USER_DATA", false),
			Stealth:          e.boolOr("H2SCRAPE_STEALTH", false),
			Headers:          e.headers("H2SCRAPE_HEADERS"),
			BlockedResources: e.sliceOr("H2SCRAPE_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Log: LogConfig{
			Level:  e.or("H2SCRAPE_LOG_LEVEL", "info"),
			Format: e.or("H2SCRAPE_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

type env struct {
	getenv func(string) string
}

func (e env) or(key, fallback string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return fallback
}

func (e env) boolOr(key string, fallback bool) bool {
	if b := e.optionalBool(key); b != nil {
		return *b
	}
	return fallback
}

func (e env) optionalBool(key string) *bool {
	if v := e.getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return &b
		}
	}
	return nil
}

func (e env) sliceOr(key string, fallback []string) []string {
	if v := e.getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

// headers parses "Name: value, Other: value" pairs. Malformed pairs are skipped.
func (e env) headers(key string) map[string]string {
	v := e.getenv(key)
	if v == "" {
		return nil
	}
	result := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		name, value, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		result[name] = strings.TrimSpace(value)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
