package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/maxvaer/webprobe/internal/probe"
)

// ANSI color codes.
const (
	colorReset = "\033[0m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorDim   = "\033[2m"
)

// TextWriter renders a result as the numbered console report.
type TextWriter struct {
	w       io.Writer
	closer  io.Closer
	noColor bool
}

// NewTextWriter creates a text output writer. If outputFile is empty, stdout
// is used. noColor disables ANSI escape codes.
func NewTextWriter(outputFile string, noColor bool) (*TextWriter, error) {
	w, closer, err := openTarget(outputFile)
	if err != nil {
		return nil, err
	}
	return &TextWriter{w: w, closer: closer, noColor: noColor}, nil
}

func (t *TextWriter) WriteResult(result *probe.Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\nwebsite: %s\n", result.Host)
	if result.Title != "" {
		fmt.Fprintf(&b, "%spage title: %s%s\n", t.dim(), result.Title, t.reset())
	}
	fmt.Fprintf(&b, "1. Supports http2: %s\n", t.yesNo(result.HTTP2Supported))
	b.WriteString("2. List of Cookies:\n")

	cookies := result.Cookies.All()
	if len(cookies) == 0 {
		b.WriteString("No cookies found.\n")
	}
	for _, c := range cookies {
		fmt.Fprintf(&b, "cookie name: %s", c.Name)
		if c.Expires != nil && *c.Expires != "" {
			fmt.Fprintf(&b, ", expires time: %s", *c.Expires)
		}
		if c.Domain != nil && *c.Domain != "" {
			fmt.Fprintf(&b, "; domain name: %s", *c.Domain)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "3. Password-protected: %s\n\n", t.yesNo(result.PasswordProtected))

	_, err := io.WriteString(t.w, b.String())
	return err
}

func (t *TextWriter) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

func (t *TextWriter) yesNo(v bool) string {
	word, color := "no", colorRed
	if v {
		word, color = "yes", colorGreen
	}
	if t.noColor {
		return word
	}
	return color + word + colorReset
}

func (t *TextWriter) dim() string {
	if t.noColor {
		return ""
	}
	return colorDim
}

func (t *TextWriter) reset() string {
	if t.noColor {
		return ""
	}
	return colorReset
}
