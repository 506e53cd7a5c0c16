package output

import (
	"encoding/csv"
	"io"

	"github.com/maxvaer/webprobe/internal/probe"
)

// CSVWriter writes one row per cookie.
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSVWriter creates a CSV output writer.
func NewCSVWriter(outputFile string) (*CSVWriter, error) {
	w, closer, err := openTarget(outputFile)
	if err != nil {
		return nil, err
	}
	return &CSVWriter{w: csv.NewWriter(w), closer: closer}, nil
}

func (c *CSVWriter) WriteResult(result *probe.Result) error {
	if err := c.w.Write([]string{"host", "name", "value", "domain", "expires", "path"}); err != nil {
		return err
	}
	for _, ck := range result.Cookies.All() {
		row := []string{result.Host, ck.Name, ck.Value, str(ck.Domain), str(ck.Expires), str(ck.Path)}
		if err := c.w.Write(row); err != nil {
			return err
		}
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
