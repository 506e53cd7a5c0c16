package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/net/http2"

	"github.com/maxvaer/webprobe/internal/cookie"
	"github.com/maxvaer/webprobe/internal/page"
	"github.com/maxvaer/webprobe/internal/rawhttp"
	"github.com/maxvaer/webprobe/internal/target"
	"github.com/maxvaer/webprobe/internal/transport"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxRedirects = 10
)

// Result is the outcome of one completed probe.
type Result struct {
	Host              string
	URL               string // final URL after redirects
	Title             string
	HTTP2Supported    bool
	Cookies           *cookie.Jar
	PasswordProtected bool
	Hops              int // redirects followed
}

// TooManyRedirectsError is returned when a redirect chain is longer than
// the configured limit.
type TooManyRedirectsError struct {
	Limit int
	Chain []string
}

func (e *TooManyRedirectsError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("stopped after %d redirects", e.Limit)
	}
	return fmt.Sprintf("stopped after %d redirects (last: %s)", e.Limit, e.Chain[len(e.Chain)-1])
}

// Prober runs the fetch/redirect/capability pipeline for a single URL.
// Every connection it opens is closed before the next one is made.
type Prober struct {
	Dialer       *transport.Dialer
	MaxRedirects int

	// Ports used by the HTTP/2 capability check. They are the canonical
	// 80/443 regardless of the port in the probed URL.
	HTTPPort  int
	HTTPSPort int

	Logger *zap.Logger
}

// New returns a Prober with canonical ports and the given limits.
func New(timeout time.Duration, maxRedirects int, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		Dialer:       &transport.Dialer{Timeout: timeout},
		MaxRedirects: maxRedirects,
		HTTPPort:     target.DefaultHTTPPort,
		HTTPSPort:    target.DefaultHTTPSPort,
		Logger:       logger,
	}
}

// Probe fetches rawURL, following Location headers up to MaxRedirects
// times, then checks HTTP/2 support for the final host and extracts
// cookies and the authentication marker from the final response.
func (p *Prober) Probe(ctx context.Context, rawURL string) (*Result, error) {
	u, err := target.Normalize(rawURL)
	if err != nil {
		return nil, err
	}

	chain := []string{u.String()}
	for hops := 0; ; hops++ {
		p.Logger.Debug("fetching", zap.String("url", u.String()), zap.Int("hop", hops))

		resp, err := p.Fetch(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", u, err)
		}
		p.Logger.Debug("response",
			zap.String("status", rawhttp.StatusLine(resp.HeaderBlock)),
			zap.Int("body_bytes", len(resp.Body)),
		)

		location, ok := rawhttp.FindRedirect(resp.HeaderBlock)
		if !ok {
			return p.result(ctx, u, resp, hops), nil
		}
		if hops >= p.MaxRedirects {
			return nil, &TooManyRedirectsError{Limit: p.MaxRedirects, Chain: chain}
		}

		next, err := u.Resolve(location)
		if err != nil {
			return nil, fmt.Errorf("following redirect from %s: %w", u, err)
		}
		p.Logger.Debug("redirect", zap.String("location", location), zap.String("next", next.String()))
		u = next
		chain = append(chain, u.String())
	}
}

// Fetch performs one GET of u over a fresh connection.
func (p *Prober) Fetch(ctx context.Context, u target.ParsedURL) (rawhttp.Response, error) {
	conn, err := p.Dialer.Connect(ctx, u.Host, u.Port, u.Scheme, []string{"http/1.1"})
	if err != nil {
		return rawhttp.Response{}, err
	}
	defer conn.Close()

	return exchange(conn, u.HostHeader(), u.Path)
}

// stream is the part of a transport.Conn the exchange needs.
type stream interface {
	io.Reader
	Send(p []byte) error
}

// exchange sends one GET and reads until the peer closes the stream.
func exchange(conn stream, host, path string) (rawhttp.Response, error) {
	req := rawhttp.BuildGet(path,
		rawhttp.Header{Name: "Host", Value: host},
		rawhttp.Header{Name: "Connection", Value: "close"},
	)
	if err := conn.Send(req); err != nil {
		return rawhttp.Response{}, err
	}
	text, err := rawhttp.ReadAll(conn)
	if err != nil {
		return rawhttp.Response{}, err
	}
	return rawhttp.Split(text), nil
}

func (p *Prober) result(ctx context.Context, u target.ParsedURL, resp rawhttp.Response, hops int) *Result {
	return &Result{
		Host:              u.Host,
		URL:               u.String(),
		Title:             page.Title(resp.Body),
		HTTP2Supported:    p.ProbeHTTP2(ctx, u.Host, u.Scheme),
		Cookies:           cookie.Extract(resp.HeaderBlock),
		PasswordProtected: rawhttp.IsPasswordProtected(resp.HeaderBlock),
		Hops:              hops,
	}
}

// ProbeHTTP2 reports whether host speaks HTTP/2: via ALPN on HTTPSPort for
// https, via an h2c upgrade request on HTTPPort otherwise. Failures of any
// kind mean false.
func (p *Prober) ProbeHTTP2(ctx context.Context, host, scheme string) bool {
	if scheme == "https" {
		return p.probeALPN(ctx, host)
	}
	return p.probeUpgrade(ctx, host)
}

func (p *Prober) probeALPN(ctx context.Context, host string) bool {
	conn, err := p.Dialer.Connect(ctx, host, p.HTTPSPort, "https", []string{http2.NextProtoTLS, "http/1.1"})
	if err != nil {
		p.Logger.Debug("alpn probe failed", zap.String("host", host), zap.Error(err))
		return false
	}
	defer conn.Close()

	proto, _ := conn.NegotiatedProtocol()
	p.Logger.Debug("alpn negotiated", zap.String("host", host), zap.String("protocol", proto))
	if proto != http2.NextProtoTLS {
		return false
	}
	if p.Logger.Core().Enabled(zapcore.DebugLevel) {
		p.traceSettings(conn, host)
	}
	return true
}

// traceSettings opens the HTTP/2 session and logs the SETTINGS frame the
// peer answers with. The result of the ALPN check does not depend on it.
func (p *Prober) traceSettings(conn *transport.Conn, host string) {
	var out bytes.Buffer
	out.WriteString(http2.ClientPreface)
	fr := http2.NewFramer(&out, conn)
	if err := fr.WriteSettings(); err != nil {
		return
	}
	if err := conn.Send(out.Bytes()); err != nil {
		p.Logger.Debug("h2 preface failed", zap.String("host", host), zap.Error(err))
		return
	}

	f, err := fr.ReadFrame()
	if err != nil {
		p.Logger.Debug("h2 settings unreadable", zap.String("host", host), zap.Error(err))
		return
	}
	sf, ok := f.(*http2.SettingsFrame)
	if !ok || sf.IsAck() {
		p.Logger.Debug("h2 peer did not open with SETTINGS", zap.String("host", host), zap.Stringer("frame", f.Header()))
		return
	}
	fields := []zap.Field{zap.String("host", host)}
	_ = sf.ForeachSetting(func(s http2.Setting) error {
		fields = append(fields, zap.Uint32(s.ID.String(), s.Val))
		return nil
	})
	p.Logger.Debug("h2 peer settings", fields...)
}

func (p *Prober) probeUpgrade(ctx context.Context, host string) bool {
	conn, err := p.Dialer.Connect(ctx, host, p.HTTPPort, "http", nil)
	if err != nil {
		p.Logger.Debug("h2c probe failed", zap.String("host", host), zap.Error(err))
		return false
	}
	defer conn.Close()

	hostHeader := target.ParsedURL{Scheme: "http", Host: host, Port: p.HTTPPort}.HostHeader()
	req := rawhttp.BuildGet("/",
		rawhttp.Header{Name: "Host", Value: hostHeader},
		rawhttp.Header{Name: "Connection", Value: "Upgrade, HTTP2-Settings, close"},
		rawhttp.Header{Name: "Upgrade", Value: "h2c"},
		rawhttp.Header{Name: "HTTP2-Settings", Value: ""},
	)
	if err := conn.Send(req); err != nil {
		p.Logger.Debug("h2c probe failed", zap.String("host", host), zap.Error(err))
		return false
	}

	// A server that accepts the upgrade switches to binary framing and
	// may hold the stream open, so a read error after some bytes arrived
	// still leaves a usable answer.
	text, err := rawhttp.ReadAll(conn)
	if err != nil {
		p.Logger.Debug("h2c probe read ended early", zap.String("host", host), zap.Int("bytes", len(text)), zap.Error(err))
		if text == "" {
			return false
		}
	}
	return strings.Contains(text, "101 Switching Protocols") || strings.Contains(text, "Upgrade: h2c")
}
