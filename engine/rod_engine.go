package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/h2scrape/config"
	"github.com/ysmood/gson"
)

var rodHeadlessDefaults = []flags.Flag{flags.NoSandbox, "disable-dev-shm-usage"}

// RodEngine launches a local Chromium through the rod launcher and drives it
// over the DevTools protocol.
type RodEngine struct {
	logger *slog.Logger
}

// NewRodEngine creates a RodEngine.
func NewRodEngine(logger *slog.Logger) *RodEngine {
	return &RodEngine{logger: logger}
}

func (e *RodEngine) Name() string { return config.EngineRod }

// NewSession launches the browser, connects to it and opens one page.
// On failure everything started so far is torn down before returning.
func (e *RodEngine) NewSession(ctx context.Context, opts *LaunchOptions, svc *Service) (Session, error) {
	l, logFile, err := e.newLauncher(ctx, opts, svc)
	if err != nil {
		return nil, err
	}

	s := &rodSession{
		launcher:    l,
		logFile:     logFile,
		keepDataDir: opts.KeepUserDataDir,
		logger:      e.logger,
	}

	controlURL, err := l.Launch()
	if err != nil {
		_ = s.Quit()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	s.launched = true
	e.logger.Info("browser launched", "controlURL", controlURL)

	s.browser = rod.New().Context(ctx).ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		_ = s.Quit()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	s.page, err = s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Quit()
		return nil, fmt.Errorf("open page: %w", err)
	}

	if opts.Stealth {
		if _, evalErr := s.page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			e.logger.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	s.router = setupHijack(s.page, opts.BlockedResources)

	if len(opts.Headers) > 0 {
		if err := (proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(opts.Headers),
		}).Call(s.page); err != nil {
			e.logger.Warn("failed to set extra headers", "error", err)
		}
	}

	return s, nil
}

// newLauncher maps the launch options onto rod launcher flags.
func (e *RodEngine) newLauncher(ctx context.Context, opts *LaunchOptions, svc *Service) (*launcher.Launcher, *os.File, error) {
	l := launcher.New().Context(ctx).Headless(opts.Headless)

	switch {
	case opts.BrowserBin != "":
		l = l.Bin(opts.BrowserBin)
	case !svc.AutoDiscover():
		l = l.Bin(svc.ExecutablePath)
	default:
		if path, has := launcher.LookPath(); has {
			l = l.Bin(path)
		} else {
			e.logger.Info("no browser found on the search path, rod will download one")
		}
	}

	// rod adds these by default; only the headless set asks for them.
	for _, name := range rodHeadlessDefaults {
		if _, ok := opts.Arg(string(name)); !ok {
			l = l.Delete(name)
		}
	}
	for _, a := range opts.Args {
		l = l.Set(flags.Flag(a.Name), a.Values...)
	}
	// rod never sets these itself, so this only guards against a future
	// default.
	for _, name := range opts.ExcludeSwitches {
		l = l.Delete(flags.Flag(name))
	}

	var logFile *os.File
	if svc != nil && svc.LogPath != "" {
		f, err := os.OpenFile(svc.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open browser log %s: %w", svc.LogPath, err)
		}
		logFile = f
		l = l.Logger(f)
	} else {
		l = l.Logger(io.Discard)
	}

	e.logger.Debug("browser launch flags", "args", l.FormatArgs())
	return l, logFile, nil
}

type rodSession struct {
	launcher    *launcher.Launcher
	browser     *rod.Browser
	page        *rod.Page
	router      *rod.HijackRouter
	launched    bool
	keepDataDir bool
	logFile     *os.File
	logger      *slog.Logger
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait for load: %w", err)
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		s.logger.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", err,
		)
	}
	return nil
}

func (s *rodSession) Title(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (s *rodSession) ElementsByTag(ctx context.Context, tag string) ([]Element, error) {
	els, err := s.page.Context(ctx).Elements(tag)
	if err != nil {
		return nil, err
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}

// Quit closes the browser, kills the process and, unless the profile is
// kept, removes the launcher's profile directory. All steps run even when an
// earlier one fails.
func (s *rodSession) Quit() error {
	var errs []error
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop hijack router: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	// Cleanup blocks until the process exits, so it only runs after a
	// successful Launch.
	if s.launched {
		s.launcher.Kill()
		if !s.keepDataDir {
			s.launcher.Cleanup()
		}
	}
	if s.logFile != nil {
		if err := s.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser log: %w", err))
		}
	}
	return errors.Join(errs...)
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
