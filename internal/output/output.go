package output

import (
	"io"
	"os"

	"github.com/maxvaer/webprobe/internal/probe"
)

// Writer is implemented by each output format.
type Writer interface {
	WriteResult(result *probe.Result) error
	Close() error
}

// openTarget returns stdout, or the created file when outputFile is set.
// closer is nil for stdout.
func openTarget(outputFile string) (w io.Writer, closer io.Closer, err error) {
	if outputFile == "" {
		return os.Stdout, nil, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}
