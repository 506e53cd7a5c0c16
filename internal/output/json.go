package output

import (
	"encoding/json"
	"io"

	"github.com/maxvaer/webprobe/internal/probe"
)

// CookieJSON is the serialized form of one cookie. Absent attributes are
// omitted.
type CookieJSON struct {
	Name    string  `json:"name"`
	Value   string  `json:"value"`
	Domain  *string `json:"domain,omitempty"`
	Expires *string `json:"expires,omitempty"`
	Path    *string `json:"path,omitempty"`
}

// ResultJSON is the serialized form of a probe result, shared by the JSON
// writer and the result hook.
type ResultJSON struct {
	Host              string       `json:"host"`
	URL               string       `json:"url"`
	Title             string       `json:"title,omitempty"`
	HTTP2             bool         `json:"http2"`
	PasswordProtected bool         `json:"password_protected"`
	Redirects         int          `json:"redirects"`
	Cookies           []CookieJSON `json:"cookies"`
}

// NewResultJSON converts result, keeping cookie order.
func NewResultJSON(result *probe.Result) ResultJSON {
	r := ResultJSON{
		Host:              result.Host,
		URL:               result.URL,
		Title:             result.Title,
		HTTP2:             result.HTTP2Supported,
		PasswordProtected: result.PasswordProtected,
		Redirects:         result.Hops,
		Cookies:           []CookieJSON{},
	}
	for _, c := range result.Cookies.All() {
		r.Cookies = append(r.Cookies, CookieJSON{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  c.Domain,
			Expires: c.Expires,
			Path:    c.Path,
		})
	}
	return r
}

// JSONWriter writes the result as an indented JSON object.
type JSONWriter struct {
	w      io.Writer
	closer io.Closer
}

// NewJSONWriter creates a JSON output writer.
func NewJSONWriter(outputFile string) (*JSONWriter, error) {
	w, closer, err := openTarget(outputFile)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{w: w, closer: closer}, nil
}

func (j *JSONWriter) WriteResult(result *probe.Result) error {
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewResultJSON(result))
}

func (j *JSONWriter) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
