package engine

import "strings"

// Arg is a single browser command-line switch.
type Arg struct {
	Name   string
	Values []string
}

// String renders the switch the way Chromium expects it, e.g.
// "--window-size=1920,1080".
func (a Arg) String() string {
	if len(a.Values) == 0 {
		return "--" + a.Name
	}
	return "--" + a.Name + "=" + strings.Join(a.Values, ",")
}

// LaunchOptions is the browser configuration for one session. It is not
// modified after Configurator.Build returns it.
type LaunchOptions struct {
	// Headless reports whether the headless switch set was applied.
	Headless bool

	// Args are the switches passed to the browser, in order.
	Args []Arg

	// ExcludeSwitches are default switches removed before launch.
	ExcludeSwitches []string

	// UserDataDir is the per-session profile directory. Empty when not
	// headless.
	UserDataDir string

	// KeepUserDataDir leaves UserDataDir on disk after Quit.
	KeepUserDataDir bool

	// BrowserBin pins the browser binary. Empty means resolve it.
	BrowserBin string

	// Stealth injects the stealth script into every new document.
	Stealth bool

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// BlockedResources lists resource types the browser must not load.
	BlockedResources []string
}

// Arg returns the switch named name, if present.
func (o *LaunchOptions) Arg(name string) (Arg, bool) {
	for _, a := range o.Args {
		if a.Name == name {
			return a, true
		}
	}
	return Arg{}, false
}

// Strings renders all switches.
func (o *LaunchOptions) Strings() []string {
	out := make([]string, len(o.Args))
	for i, a := range o.Args {
		out[i] = a.String()
	}
	return out
}

// Service describes how the browser executable is located and where its
// output goes.
type Service struct {
	// ExecutablePath is the explicit executable. Empty means auto-discovery
	// on the search path.
	ExecutablePath string

	// LogPath receives the executable's output. Empty discards it.
	LogPath string
}

// DefaultService is the sentinel asking the engine to discover the
// executable itself.
func DefaultService() *Service {
	return &Service{}
}

// AutoDiscover reports whether the engine must find the executable itself.
func (s *Service) AutoDiscover() bool {
	return s == nil || s.ExecutablePath == ""
}
