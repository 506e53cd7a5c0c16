package target

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// Default ports per scheme.
const (
	DefaultHTTPPort  = 80
	DefaultHTTPSPort = 443
)

// hostProfile maps internationalized host names to their ASCII form.
// Underscores are common in real host names, so STD3 rules are relaxed.
var hostProfile = idna.New(idna.MapForLookup(), idna.StrictDomainName(false))

// ParsedURL is a normalized probe target.
type ParsedURL struct {
	Scheme string // "http" or "https"
	Host   string // ASCII host name or IP literal, without brackets
	Port   int
	Path   string // request target, query string included
}

// InvalidURLError is returned when the input does not have the
// [scheme://]host[:port][path] shape.
type InvalidURLError struct {
	Input  string
	Reason string
	Err    error
}

func (e *InvalidURLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid URL %q: %s: %v", e.Input, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid URL %q: %s", e.Input, e.Reason)
}

func (e *InvalidURLError) Unwrap() error { return e.Err }

// Normalize parses raw into a ParsedURL. The scheme defaults to http, the
// port to the scheme's default and the path to "/".
func Normalize(raw string) (ParsedURL, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ParsedURL{}, &InvalidURLError{Input: raw, Reason: "empty input"}
	}

	scheme := "http"
	if i := strings.Index(s, "://"); i > 0 && isSchemeToken(s[:i]) {
		scheme = strings.ToLower(s[:i])
		if scheme != "http" && scheme != "https" {
			return ParsedURL{}, &InvalidURLError{Input: raw, Reason: fmt.Sprintf("unsupported scheme %q", scheme)}
		}
		s = s[i+3:]
	}

	// The authority ends at the first path or query character. A
	// fragment is never sent on the wire, so it is dropped.
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	authority, path := s, ""
	if i := strings.IndexAny(s, "/?"); i >= 0 {
		authority, path = s[:i], s[i:]
	}
	if strings.HasPrefix(path, "?") {
		path = "/" + path
	}
	if path == "" {
		path = "/"
	}

	host, portStr, err := splitAuthority(authority)
	if err != nil {
		return ParsedURL{}, &InvalidURLError{Input: raw, Reason: err.Error()}
	}

	port := DefaultHTTPPort
	if scheme == "https" {
		port = DefaultHTTPSPort
	}
	if portStr != "" {
		n, err := parsePort(portStr)
		if err != nil {
			return ParsedURL{}, &InvalidURLError{Input: raw, Reason: "bad port", Err: err}
		}
		port = n
	}

	if net.ParseIP(host) == nil {
		ascii, err := hostProfile.ToASCII(host)
		if err != nil {
			return ParsedURL{}, &InvalidURLError{Input: raw, Reason: "bad host", Err: err}
		}
		host = ascii
	}

	return ParsedURL{Scheme: scheme, Host: host, Port: port, Path: path}, nil
}

// Resolve returns the target a Location value points to. Absolute values
// go through Normalize unchanged; "/path" and "//host/path" forms are
// resolved against u.
func (u ParsedURL) Resolve(location string) (ParsedURL, error) {
	loc := strings.TrimSpace(location)
	switch {
	case strings.HasPrefix(loc, "//"):
		return Normalize(u.Scheme + ":" + loc)
	case strings.HasPrefix(loc, "/"):
		return Normalize(u.Scheme + "://" + u.authority(true) + loc)
	default:
		return Normalize(loc)
	}
}

// Addr returns the host:port pair to dial.
func (u ParsedURL) Addr() string {
	return net.JoinHostPort(u.Host, strconv.Itoa(u.Port))
}

// HostHeader returns the value for the Host request header. The port is
// left out when it is the scheme default.
func (u ParsedURL) HostHeader() string {
	return u.authority(false)
}

// String renders the URL with the default port omitted.
func (u ParsedURL) String() string {
	return u.Scheme + "://" + u.authority(false) + u.Path
}

// IsDefaultPort reports whether Port is the default for Scheme.
func (u ParsedURL) IsDefaultPort() bool {
	return (u.Scheme == "https" && u.Port == DefaultHTTPSPort) ||
		(u.Scheme == "http" && u.Port == DefaultHTTPPort)
}

func (u ParsedURL) authority(withPort bool) string {
	host := u.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if withPort || !u.IsDefaultPort() {
		host += ":" + strconv.Itoa(u.Port)
	}
	return host
}

func splitAuthority(authority string) (host, port string, err error) {
	if authority == "" {
		return "", "", fmt.Errorf("missing host")
	}

	// [v6-literal]:port
	if strings.HasPrefix(authority, "[") {
		end := strings.IndexByte(authority, ']')
		if end < 0 {
			return "", "", fmt.Errorf("unterminated IPv6 literal")
		}
		host = authority[1:end]
		if ip := net.ParseIP(host); ip == nil || ip.To4() != nil {
			return "", "", fmt.Errorf("bad IPv6 literal %q", host)
		}
		rest := authority[end+1:]
		if rest == "" {
			return host, "", nil
		}
		if !strings.HasPrefix(rest, ":") {
			return "", "", fmt.Errorf("unexpected %q after IPv6 literal", rest)
		}
		if rest == ":" {
			return "", "", fmt.Errorf("empty port")
		}
		return host, rest[1:], nil
	}

	host, port, hasPort := strings.Cut(authority, ":")
	if host == "" {
		return "", "", fmt.Errorf("missing host")
	}
	if hasPort && port == "" {
		return "", "", fmt.Errorf("empty port")
	}
	for i := 0; i < len(host); i++ {
		if !isHostByte(host[i]) {
			return "", "", fmt.Errorf("illegal character %q in host", host[i])
		}
	}
	return host, port, nil
}

func parsePort(s string) (int, error) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%q is not a decimal number", s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n > 65535 {
		return 0, fmt.Errorf("%d out of range", n)
	}
	return n, nil
}

func isSchemeToken(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		isAlpha := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !isAlpha && (i == 0 || !(c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.')) {
			return false
		}
	}
	return true
}

// isHostByte accepts the bytes a host name may carry before IDNA mapping.
// Bytes >= 0x80 belong to UTF-8 encoded labels.
func isHostByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_':
		return true
	case c >= 0x80:
		return true
	}
	return false
}
