package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/h2scrape/config"
	"github.com/use-agent/h2scrape/engine"
)

type stubElement string

func (e stubElement) Text() (string, error) { return string(e), nil }

type stubSession struct {
	elements    []engine.Element
	navigateErr error
	quitCalls   int
}

func (s *stubSession) Navigate(context.Context, string) error { return s.navigateErr }

func (s *stubSession) Title(context.Context) (string, error) { return "", nil }

func (s *stubSession) ElementsByTag(context.Context, string) ([]engine.Element, error) {
	return s.elements, nil
}

func (s *stubSession) Quit() error {
	s.quitCalls++
	return nil
}

type stubEngine struct {
	session    *stubSession
	sessionErr error
	panicMsg   string
}

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) NewSession(context.Context, *engine.LaunchOptions, *engine.Service) (engine.Session, error) {
	if e.panicMsg != "" {
		panic(e.panicMsg)
	}
	if e.sessionErr != nil {
		return nil, e.sessionErr
	}
	return e.session, nil
}

func factory(eng engine.Engine) engineFactory {
	return func(string, *slog.Logger) (engine.Engine, error) { return eng, nil }
}

func unsetEnv() *config.Config {
	return config.LoadFrom(func(string) string { return "" })
}

func TestRun_Success(t *testing.T) {
	sess := &stubSession{elements: []engine.Element{
		stubElement(" Alpha"), stubElement("Beta "), stubElement("Gamma"),
	}}
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), &stdout, &stderr, unsetEnv(), factory(&stubEngine{session: sess}))

	assert.Equal(t, 0, code)
	assert.Equal(t, "{\"h2_tags\": [\"Alpha\", \"Beta\", \"Gamma\"]}\n", stdout.String())
	assert.Equal(t, 1, sess.quitCalls)
}

func TestRun_SessionFailure(t *testing.T) {
	var stdout, stderr bytes.Buffer
	eng := &stubEngine{sessionErr: errors.New("chrome executable not found")}

	code := run(context.Background(), &stdout, &stderr, unsetEnv(), factory(eng))

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "level=ERROR")
	assert.Contains(t, stderr.String(), "chrome executable not found")
}

func TestRun_NavigationFailureCleansUp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	sess := &stubSession{navigateErr: errors.New("net::ERR_INTERNET_DISCONNECTED")}

	code := run(context.Background(), &stdout, &stderr, unsetEnv(), factory(&stubEngine{session: sess}))

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Equal(t, 1, sess.quitCalls)
	assert.Contains(t, stderr.String(), "NAVIGATION_FAILED")
	assert.Contains(t, stderr.String(), "net::ERR_INTERNET_DISCONNECTED")
}

func TestRun_UnknownEngineIsCritical(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cfg := unsetEnv()
	cfg.Browser.Engine = "selenium"

	code := run(context.Background(), &stdout, &stderr, cfg, engine.New)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "level=CRITICAL")
	assert.Contains(t, stderr.String(), `unknown engine \"selenium\"`)
}

func TestRun_PanicInFactoryIsCritical(t *testing.T) {
	var stdout, stderr bytes.Buffer
	boom := func(string, *slog.Logger) (engine.Engine, error) { panic("factory exploded") }

	code := run(context.Background(), &stdout, &stderr, unsetEnv(), boom)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "level=CRITICAL")
	assert.Contains(t, stderr.String(), "factory exploded")
}

func TestRun_PanicInSessionIsScrapingError(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), &stdout, &stderr, unsetEnv(), factory(&stubEngine{panicMsg: "driver crashed"}))

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "INTERNAL_ERROR")
	assert.Contains(t, stderr.String(), "driver crashed")
}

func TestNewLogger_JSONCritical(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LogConfig{Level: "error", Format: "json"})

	logger.Info("hidden")
	logger.Log(context.Background(), LevelCritical, "boom")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"level":"CRITICAL"`)
	assert.Contains(t, out, `"msg":"boom"`)
}
