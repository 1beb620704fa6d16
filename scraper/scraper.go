package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/use-agent/h2scrape/config"
	"github.com/use-agent/h2scrape/engine"
	"github.com/use-agent/h2scrape/models"
)

// TargetURL is the page scraped by every run.
const TargetURL = "https://webscraper.io/test-sites/tables"

const headingTag = "h2"

// Scraper runs one scrape against TargetURL. A Scraper is not safe for
// concurrent use; create one per run.
type Scraper struct {
	engine engine.Engine
	cfg    *config.Config
	logger *slog.Logger

	configurator *engine.Configurator
	targetURL    string
	state        State
	reached      State
}

// New creates a Scraper that acquires its session from eng.
func New(eng engine.Engine, cfg *config.Config, logger *slog.Logger) *Scraper {
	return &Scraper{
		engine:       eng,
		cfg:          cfg,
		logger:       logger,
		configurator: engine.NewConfigurator(cfg.Environment, cfg.Browser, logger),
		targetURL:    TargetURL,
		state:        StateIdle,
		reached:      StateIdle,
	}
}

// State returns the current state. Once a Run has left StateIdle it always
// ends in StateTornDown; use Reached for the state before teardown.
func (s *Scraper) State() State {
	return s.state
}

// Reached returns the furthest state the last Run got to before teardown:
// StateDone on success, otherwise the last step that completed.
func (s *Scraper) Reached() State {
	return s.reached
}

// Run scrapes the h2 headings of TargetURL and returns them as
// {"h2_tags": [...]}.
//
// Lifecycle:
//
//  1. Classify          – log docker/local
//  2. Configure         – build launch options and service descriptor
//  3. Acquire session   – launch and connect
//  4. DEFER: teardown   – quit session, remove profile dir (every exit path)
//  5. Navigate          – load TargetURL
//  6. Extract           – all h2 elements, trimmed, document order
//  7. Encode            – JSON document
//
// Every failure is returned as a *models.ScrapingError wrapping the cause.
// Teardown errors are logged and never replace the result or the pending
// error.
func (s *Scraper) Run(ctx context.Context) (out string, err error) {
	var (
		opts    *engine.LaunchOptions
		session engine.Session
	)

	defer func() {
		if r := recover(); r != nil {
			err = models.NewScrapingError(models.ErrCodeInternal,
				"failed to scrape h2 tags due to an internal error",
				fmt.Errorf("panic: %v", r),
			)
			out = ""
		}
		if err != nil {
			var se *models.ScrapingError
			if !errors.As(err, &se) {
				err = models.NewScrapingError(models.ErrCodeInternal,
					"failed to scrape h2 tags due to an internal error", err)
			}
			s.logger.Error("scraping failed", "error", err)
		}
		s.teardown(session, opts)
	}()

	// ── 1. Classify ───────────────────────────────────────────────────
	s.logger.Info("determined runtime environment",
		"environment", s.cfg.Environment.Name(),
	)

	// ── 2. Configure ──────────────────────────────────────────────────
	s.transition(StateConfiguring)
	opts, svc, err := s.configurator.Build(s.cfg.Browser.HeadlessOverride)
	if err != nil {
		return "", models.NewScrapingError(models.ErrCodeConfiguration,
			"failed to build browser configuration", err)
	}

	// ── 3. Acquire session ────────────────────────────────────────────
	s.logger.Info("starting browser session",
		"engine", s.engine.Name(),
		"headless", opts.Headless,
	)
	session, err = s.engine.NewSession(ctx, opts, svc)
	if err != nil {
		return "", models.NewScrapingError(models.ErrCodeBrowserLaunch,
			"failed to start browser session", err)
	}
	s.transition(StateSessionAcquired)
	s.logger.Info("browser session ready")

	// ── 5. Navigate ───────────────────────────────────────────────────
	s.logger.Info("navigating", "url", s.targetURL)
	if err := session.Navigate(ctx, s.targetURL); err != nil {
		return "", categorizeError(err, models.ErrCodeNavigation, "navigation to target URL failed")
	}
	s.transition(StateNavigated)

	if title, titleErr := session.Title(ctx); titleErr == nil {
		s.logger.Info("page loaded", "title", title)
	} else {
		s.logger.Debug("could not read page title", "error", titleErr)
	}

	// ── 6. Extract ────────────────────────────────────────────────────
	tags, err := s.extract(ctx, session)
	if err != nil {
		return "", err
	}
	s.transition(StateExtracted)

	// ── 7. Encode ─────────────────────────────────────────────────────
	out, err = models.EncodeResult(models.ScrapeResult{H2Tags: tags})
	if err != nil {
		return "", models.NewScrapingError(models.ErrCodeSerialization,
			"failed to encode result", err)
	}
	s.transition(StateDone)
	return out, nil
}

func (s *Scraper) extract(ctx context.Context, session engine.Session) ([]string, error) {
	elements, err := session.ElementsByTag(ctx, headingTag)
	if err != nil {
		return nil, categorizeError(err, models.ErrCodeExtraction, "failed to find h2 elements")
	}
	s.logger.Info("found h2 elements", "count", len(elements))

	tags := make([]string, 0, len(elements))
	for i, el := range elements {
		text, err := el.Text()
		if err != nil {
			return nil, categorizeError(err, models.ErrCodeExtraction,
				fmt.Sprintf("failed to read text of h2 element %d", i+1))
		}
		text = strings.TrimSpace(text)
		s.logger.Info("h2", "index", i+1, "text", text)
		tags = append(tags, text)
	}
	return tags, nil
}

// teardown releases the session and the profile directory. It runs on
// every exit path of Run.
func (s *Scraper) teardown(session engine.Session, opts *engine.LaunchOptions) {
	if s.state == StateIdle {
		return
	}

	if session != nil {
		s.logger.Info("closing browser session")
		if err := session.Quit(); err != nil {
			s.logger.Warn("failed to close browser session", "error", err)
		} else {
			s.logger.Info("browser session closed")
		}
	}

	if opts != nil && opts.UserDataDir != "" {
		if opts.KeepUserDataDir {
			s.logger.Debug("keeping user data dir", "dir", opts.UserDataDir)
		} else if err := os.RemoveAll(opts.UserDataDir); err != nil {
			s.logger.Warn("failed to remove user data dir",
				"dir", opts.UserDataDir,
				"error", err,
			)
		}
	}

	s.transition(StateTornDown)
}

func (s *Scraper) transition(next State) {
	s.logger.Debug("scrape state", "from", s.state, "to", next)
	s.state = next
	if next != StateTornDown {
		s.reached = next
	}
}

// categorizeError wraps raw errors into ScrapingErrors, mapping context
// expiry to a timeout code.
func categorizeError(err error, code, msg string) *models.ScrapingError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapingError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapingError(models.ErrCodeTimeout, "scrape canceled", err)
	default:
		return models.NewScrapingError(code, msg, err)
	}
}
