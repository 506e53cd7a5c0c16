package runner

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/maxvaer/webprobe/internal/config"
	"github.com/maxvaer/webprobe/internal/hook"
	"github.com/maxvaer/webprobe/internal/output"
	"github.com/maxvaer/webprobe/internal/probe"
)

// Run probes opts.URL and writes the report. Any failure aborts before
// output is produced, so a partial report is never written.
func Run(ctx context.Context, opts *config.Options) error {
	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	p := probe.New(opts.Timeout, opts.MaxRedirects, logger)

	if !opts.Quiet {
		fmt.Fprintf(os.Stderr, "[*] Probing %s ...\n", opts.URL)
	}
	res, err := p.Probe(ctx, opts.URL)
	if err != nil {
		return err
	}
	if !opts.Quiet && res.Hops > 0 {
		fmt.Fprintf(os.Stderr, "[+] Followed %d redirect(s) to %s\n", res.Hops, res.URL)
	}

	out, err := createWriter(opts)
	if err != nil {
		return fmt.Errorf("creating output writer: %w", err)
	}
	defer out.Close()

	if err := out.WriteResult(res); err != nil {
		return err
	}

	// Hook failures are reported but do not fail the probe.
	if opts.OnResultCmd != "" {
		if _, err := hook.NewRunner(opts.OnResultCmd, opts.Quiet).Run(ctx, res); err != nil && !opts.Quiet {
			fmt.Fprintf(os.Stderr, "[!] %v\n", err)
		}
	}
	return nil
}

func createWriter(opts *config.Options) (output.Writer, error) {
	switch opts.OutputFormat {
	case "json":
		return output.NewJSONWriter(opts.OutputFile)
	case "csv":
		return output.NewCSVWriter(opts.OutputFile)
	default:
		return output.NewTextWriter(opts.OutputFile, opts.NoColor)
	}
}

// newLogger returns a development console logger on stderr in verbose
// mode and a no-op logger otherwise.
func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	return cfg.Build()
}
