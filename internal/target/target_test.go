package target

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ParsedURL
	}{
		{
			name:  "full url",
			input: "https://example.com:8443/a/b",
			want:  ParsedURL{Scheme: "https", Host: "example.com", Port: 8443, Path: "/a/b"},
		},
		{
			name:  "bare host",
			input: "example.com",
			want:  ParsedURL{Scheme: "http", Host: "example.com", Port: 80, Path: "/"},
		},
		{
			name:  "bare host with port",
			input: "example.com:8080",
			want:  ParsedURL{Scheme: "http", Host: "example.com", Port: 8080, Path: "/"},
		},
		{
			name:  "https default port",
			input: "https://example.com",
			want:  ParsedURL{Scheme: "https", Host: "example.com", Port: 443, Path: "/"},
		},
		{
			name:  "scheme is case-insensitive",
			input: "HTTPS://example.com/x",
			want:  ParsedURL{Scheme: "https", Host: "example.com", Port: 443, Path: "/x"},
		},
		{
			name:  "query string kept verbatim",
			input: "http://example.com/search?q=a+b&x=1",
			want:  ParsedURL{Scheme: "http", Host: "example.com", Port: 80, Path: "/search?q=a+b&x=1"},
		},
		{
			name:  "query without path",
			input: "example.com?x=1",
			want:  ParsedURL{Scheme: "http", Host: "example.com", Port: 80, Path: "/?x=1"},
		},
		{
			name:  "fragment dropped",
			input: "http://example.com/page#top",
			want:  ParsedURL{Scheme: "http", Host: "example.com", Port: 80, Path: "/page"},
		},
		{
			name:  "url inside query is not a scheme",
			input: "example.com/go?to=http://other.com",
			want:  ParsedURL{Scheme: "http", Host: "example.com", Port: 80, Path: "/go?to=http://other.com"},
		},
		{
			name:  "ipv4 literal",
			input: "127.0.0.1:9000/health",
			want:  ParsedURL{Scheme: "http", Host: "127.0.0.1", Port: 9000, Path: "/health"},
		},
		{
			name:  "ipv6 literal",
			input: "https://[::1]:8443/",
			want:  ParsedURL{Scheme: "https", Host: "::1", Port: 8443, Path: "/"},
		},
		{
			name:  "host lowercased",
			input: "WWW.Example.COM",
			want:  ParsedURL{Scheme: "http", Host: "www.example.com", Port: 80, Path: "/"},
		},
		{
			name:  "idn host converted to punycode",
			input: "http://bücher.example/",
			want:  ParsedURL{Scheme: "http", Host: "xn--bcher-kva.example", Port: 80, Path: "/"},
		},
		{
			name:  "port zero is a valid literal",
			input: "example.com:0",
			want:  ParsedURL{Scheme: "http", Host: "example.com", Port: 0, Path: "/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if err != nil {
				t.Fatalf("Normalize(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Defaults(t *testing.T) {
	for _, in := range []string{"a.com", "a.com/", "a.com:81", "b.org/x/y"} {
		u, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		if u.Scheme != "http" {
			t.Errorf("Normalize(%q).Scheme = %q, want http", in, u.Scheme)
		}
	}
	for _, in := range []string{"http://a.com", "https://a.com", "a.com/path"} {
		u, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		want := 80
		if u.Scheme == "https" {
			want = 443
		}
		if u.Port != want {
			t.Errorf("Normalize(%q).Port = %d, want %d", in, u.Port, want)
		}
	}
	for _, in := range []string{"a.com", "https://a.com", "a.com:8080"} {
		u, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		if u.Path != "/" {
			t.Errorf("Normalize(%q).Path = %q, want /", in, u.Path)
		}
	}
}

func TestNormalize_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"ftp://example.com",
		"http://",
		"http:///path",
		"example.com:",
		"example.com:-1",
		"example.com:80a",
		"example.com:99999",
		"user@example.com",
		"exa mple.com",
		"[::1",
		"[not-an-ip]:80",
		"[::1]x",
		":8080",
	}
	for _, in := range inputs {
		_, err := Normalize(in)
		if err == nil {
			t.Errorf("Normalize(%q): expected error", in)
			continue
		}
		var urlErr *InvalidURLError
		if !errors.As(err, &urlErr) {
			t.Errorf("Normalize(%q): error %v is not *InvalidURLError", in, err)
		}
	}
}

func TestParsedURL_Rendering(t *testing.T) {
	tests := []struct {
		u          ParsedURL
		str        string
		addr       string
		hostHeader string
	}{
		{
			u:          ParsedURL{Scheme: "http", Host: "example.com", Port: 80, Path: "/"},
			str:        "http://example.com/",
			addr:       "example.com:80",
			hostHeader: "example.com",
		},
		{
			u:          ParsedURL{Scheme: "https", Host: "example.com", Port: 8443, Path: "/a?b=c"},
			str:        "https://example.com:8443/a?b=c",
			addr:       "example.com:8443",
			hostHeader: "example.com:8443",
		},
		{
			u:          ParsedURL{Scheme: "https", Host: "::1", Port: 443, Path: "/"},
			str:        "https://[::1]/",
			addr:       "[::1]:443",
			hostHeader: "[::1]",
		},
	}
	for _, tt := range tests {
		if got := tt.u.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
		if got := tt.u.Addr(); got != tt.addr {
			t.Errorf("Addr() = %q, want %q", got, tt.addr)
		}
		if got := tt.u.HostHeader(); got != tt.hostHeader {
			t.Errorf("HostHeader() = %q, want %q", got, tt.hostHeader)
		}
	}
}

func TestParsedURL_RoundTrip(t *testing.T) {
	for _, in := range []string{
		"https://example.com:8443/a/b",
		"http://example.com/",
		"http://127.0.0.1:8080/x?y=z",
	} {
		u, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		again, err := Normalize(u.String())
		if err != nil {
			t.Fatalf("Normalize(%q): %v", u.String(), err)
		}
		if again != u {
			t.Errorf("round trip of %q: %+v != %+v", in, again, u)
		}
	}
}

func TestResolve(t *testing.T) {
	base := ParsedURL{Scheme: "https", Host: "example.com", Port: 8443, Path: "/old"}

	tests := []struct {
		location string
		want     ParsedURL
	}{
		{"https://other.com/new", ParsedURL{Scheme: "https", Host: "other.com", Port: 443, Path: "/new"}},
		{"http://other.com", ParsedURL{Scheme: "http", Host: "other.com", Port: 80, Path: "/"}},
		{"/new?x=1", ParsedURL{Scheme: "https", Host: "example.com", Port: 8443, Path: "/new?x=1"}},
		{"//cdn.example.com/a", ParsedURL{Scheme: "https", Host: "cdn.example.com", Port: 443, Path: "/a"}},
		{"  https://spaced.com/  ", ParsedURL{Scheme: "https", Host: "spaced.com", Port: 443, Path: "/"}},
	}
	for _, tt := range tests {
		got, err := base.Resolve(tt.location)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tt.location, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %+v, want %+v", tt.location, got, tt.want)
		}
	}
}
