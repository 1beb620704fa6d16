package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/use-agent/h2scrape/config"
)

// Engine is the interface that all session backends must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "rod", "http").
	Name() string

	// NewSession acquires one exclusively owned session configured by opts
	// and launched as described by svc.
	NewSession(ctx context.Context, opts *LaunchOptions, svc *Service) (Session, error)
}

// Session is one live browser connection.
type Session interface {
	// Navigate loads url and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// Title returns the current document title.
	Title(ctx context.Context) (string, error)

	// ElementsByTag returns all elements with the given tag name in
	// document order.
	ElementsByTag(ctx context.Context, tag string) ([]Element, error)

	// Quit ends the session and releases its process and files.
	Quit() error
}

// Element is a DOM element returned by a Session.
type Element interface {
	// Text returns the rendered text of the element.
	Text() (string, error)
}

// New returns the engine registered under name.
func New(name string, logger *slog.Logger) (Engine, error) {
	switch name {
	case config.EngineRod, "":
		return NewRodEngine(logger), nil
	case config.EngineHTTP:
		return NewHTTPEngine(logger), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}
