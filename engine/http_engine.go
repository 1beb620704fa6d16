package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/h2scrape/config"
	"golang.org/x/net/html"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBody caps the fetched document to prevent unbounded memory use.
const maxBody = 10 << 20

var errNotNavigated = errors.New("http_engine: no document loaded")

// HTTPEngine is a lightweight engine that uses pure net/http with a
// Chrome-like TLS fingerprint. It does not run JavaScript, so it only sees
// headings present in the served HTML. Element text is the node's full text
// content, so it includes hidden elements and <script> children rather than
// only the rendered text.
type HTTPEngine struct {
	logger *slog.Logger
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// NewHTTPEngine creates an HTTPEngine.
func NewHTTPEngine(logger *slog.Logger) *HTTPEngine {
	return &HTTPEngine{logger: logger}
}

func (e *HTTPEngine) Name() string { return config.EngineHTTP }

// NewSession creates a session with its own client. Browser switches have no
// effect here and are only logged; the service descriptor is ignored.
func (e *HTTPEngine) NewSession(_ context.Context, opts *LaunchOptions, _ *Service) (Session, error) {
	e.logger.Debug("http engine ignores browser switches", "args", opts.Strings())
	return &httpSession{
		client:  newChromeClient(),
		headers: opts.Headers,
	}, nil
}

func newChromeClient() *http.Client {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
}

type httpSession struct {
	client  *http.Client
	headers map[string]string
	doc     *goquery.Document
}

func (s *httpSession) Navigate(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("http_engine: build request: %w", err)
	}

	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http_engine: do request: %w", err)
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode >= 400 || !isHTMLContentType(ct) {
		return fmt.Errorf("http_engine: non-html or error status %d (content-type: %s)", resp.StatusCode, ct)
	}

	root, err := html.Parse(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("http_engine: parse document: %w", err)
	}
	s.doc = goquery.NewDocumentFromNode(root)
	return nil
}

func (s *httpSession) Title(context.Context) (string, error) {
	if s.doc == nil {
		return "", errNotNavigated
	}
	return strings.TrimSpace(s.doc.Find("title").First().Text()), nil
}

func (s *httpSession) ElementsByTag(_ context.Context, tag string) ([]Element, error) {
	if s.doc == nil {
		return nil, errNotNavigated
	}
	sel, err := cascadia.Compile(tag)
	if err != nil {
		return nil, fmt.Errorf("http_engine: compile selector %q: %w", tag, err)
	}

	matches := s.doc.FindMatcher(sel)
	out := make([]Element, 0, matches.Length())
	matches.Each(func(_ int, el *goquery.Selection) {
		out = append(out, selectionElement{el})
	})
	return out, nil
}

func (s *httpSession) Quit() error {
	s.client.CloseIdleConnections()
	s.doc = nil
	return nil
}

type selectionElement struct {
	sel *goquery.Selection
}

func (e selectionElement) Text() (string, error) {
	return e.sel.Text(), nil
}

// isHTMLContentType returns true if the content-type header looks like HTML.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
