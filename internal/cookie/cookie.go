package cookie

import (
	"strings"

	"github.com/maxvaer/webprobe/internal/rawhttp"
)

// Cookie holds the attributes extracted from one Set-Cookie header line.
// Attributes the server did not send are nil.
type Cookie struct {
	Name    string
	Value   string
	Domain  *string
	Expires *string
	Path    *string
}

// Jar is an insertion-ordered set of cookies keyed by name. Setting a name
// that is already present replaces its value but keeps its position.
type Jar struct {
	names  []string
	byName map[string]Cookie
}

// NewJar returns an empty jar.
func NewJar() *Jar {
	return &Jar{byName: make(map[string]Cookie)}
}

// Set stores c under c.Name.
func (j *Jar) Set(c Cookie) {
	if _, ok := j.byName[c.Name]; !ok {
		j.names = append(j.names, c.Name)
	}
	j.byName[c.Name] = c
}

// Get returns the cookie stored under name.
func (j *Jar) Get(name string) (Cookie, bool) {
	if j == nil {
		return Cookie{}, false
	}
	c, ok := j.byName[name]
	return c, ok
}

// Len returns the number of distinct cookie names. A nil jar is empty.
func (j *Jar) Len() int {
	if j == nil {
		return 0
	}
	return len(j.names)
}

// All returns the cookies in insertion order.
func (j *Jar) All() []Cookie {
	if j == nil {
		return nil
	}
	out := make([]Cookie, 0, len(j.names))
	for _, n := range j.names {
		out = append(out, j.byName[n])
	}
	return out
}

// Extract parses every Set-Cookie line of a response header block. When a
// name repeats, the later line wins.
func Extract(headerBlock string) *Jar {
	jar := NewJar()
	for _, line := range rawhttp.Lines(headerBlock) {
		name, value, ok := rawhttp.Field(line)
		if !ok || !strings.EqualFold(name, "Set-Cookie") {
			continue
		}
		if c, ok := parse(value); ok {
			jar.Set(c)
		}
	}
	return jar
}

// parse reads "name=value; attr=x; ...". Only domain, expires and path are
// kept; the first occurrence of each wins.
func parse(header string) (Cookie, bool) {
	pair, rest, _ := strings.Cut(header, ";")
	name, value, found := strings.Cut(pair, "=")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return Cookie{}, false
	}

	c := Cookie{Name: name, Value: strings.TrimSpace(value)}
	for _, attr := range strings.Split(rest, ";") {
		key, val, found := strings.Cut(attr, "=")
		if !found {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "domain":
			setOnce(&c.Domain, val)
		case "expires":
			setOnce(&c.Expires, val)
		case "path":
			setOnce(&c.Path, val)
		}
	}
	return c, true
}

func setOnce(dst **string, v string) {
	if *dst == nil {
		*dst = &v
	}
}
