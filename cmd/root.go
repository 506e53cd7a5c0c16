package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/maxvaer/webprobe/internal/config"
	"github.com/maxvaer/webprobe/internal/probe"
	"github.com/maxvaer/webprobe/internal/runner"
	"github.com/maxvaer/webprobe/pkg/version"
)

var opts config.Options

type flagGroup struct {
	title string
	flags []string
}

// helpGroups orders the custom help output. Every registered flag must
// appear in exactly one group.
var helpGroups = []flagGroup{
	// Limits applied to every connection and to the redirect chain.
	{"NETWORK", []string{"timeout", "max-redirects"}},
	// Report destination, format and terminal behaviour.
	{"OUTPUT", []string{"output", "format", "quiet", "no-color", "verbose"}},
	// Commands run once the report is written.
	{"HOOKS", []string{"on-result"}},
}

var validFormats = []string{"text", "json", "csv"}

var rootCmd = &cobra.Command{
	Use:     "webprobe <url> [flags]",
	Short:   "Probe a website for HTTP/2 support, cookies and password protection",
	Version: version.Version,
	Long: `webprobe connects to a single URL, follows its redirects and reports
whether the host speaks HTTP/2, which cookies it sets and whether the
final response asks for authentication.`,
	Example: `  webprobe www.example.com
  webprobe https://www.example.com/login
  webprobe http://[::1]:8080/ --max-redirects 3
  webprobe https://example.com -o result.json --format json
  webprobe https://example.com --on-result "notify-send {host} {http2}"`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		opts.URL = strings.TrimSpace(args[0])
		if opts.URL == "" {
			return fmt.Errorf("target URL must not be empty")
		}
		if !isValidFormat(opts.OutputFormat) {
			return fmt.Errorf("--format must be one of: %s", strings.Join(validFormats, ", "))
		}
		if opts.MaxRedirects < 0 {
			return fmt.Errorf("--max-redirects must not be negative")
		}
		if opts.Timeout <= 0 {
			return fmt.Errorf("--timeout must be positive")
		}
		// Escape codes only make sense on an interactive stdout.
		if opts.OutputFile != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
			opts.NoColor = true
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runner.Run(ctx, &opts)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.Flags()

	// Network
	f.DurationVar(&opts.Timeout, "timeout", probe.DefaultTimeout, "Timeout for each connect, handshake, read and write")
	f.IntVar(&opts.MaxRedirects, "max-redirects", probe.DefaultMaxRedirects, "Maximum number of redirects to follow")

	// Output
	f.StringVarP(&opts.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	f.StringVar(&opts.OutputFormat, "format", "text", "Output format: text, json, csv")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "Minimal output")
	f.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Trace every connection and redirect on stderr")

	// Hooks
	f.StringVar(&opts.OnResultCmd, "on-result", "", "Shell command to run with the result (JSON on stdin, {url} {host} {http2} {protected} {cookies} placeholders)")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		w := os.Stderr
		fmt.Fprint(w, helpBanner(cmd.Version))
		fmt.Fprintf(w, "%s\n\nUsage:\n  %s\n", cmd.Long, cmd.UseLine())
		fmt.Fprintf(w, "\nExamples:\n%s\n", cmd.Example)
		fmt.Fprintf(w, "\nFlags:\n")
		for _, g := range helpGroups {
			fmt.Fprintf(w, "\n%s:\n", g.title)
			for _, name := range g.flags {
				if f := cmd.Flags().Lookup(name); f != nil {
					fmt.Fprintln(w, formatFlag(f))
				}
			}
		}
		fmt.Fprintln(w)
	})
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func isValidFormat(s string) bool {
	for _, v := range validFormats {
		if s == v {
			return true
		}
	}
	return false
}

// zeroDefaults are DefValue renderings that are not worth printing.
var zeroDefaults = map[string]bool{"": true, "false": true, "0": true, "0s": true}

// formatFlag renders one help line: names and value type in a fixed
// column, then usage and any non-zero default.
func formatFlag(f *pflag.Flag) string {
	names := "    --" + f.Name
	if f.Shorthand != "" {
		names = "-" + f.Shorthand + ", --" + f.Name
	}
	if typ := f.Value.Type(); typ != "bool" {
		names += " " + typ
	}

	usage := f.Usage
	if !zeroDefaults[f.DefValue] {
		usage += " (default " + f.DefValue + ")"
	}
	return fmt.Sprintf("   %-32s%s", names, usage)
}

func helpBanner(ver string) string {
	switch {
	case ver == "":
		ver = "dev"
	case ver != "dev" && !strings.HasPrefix(ver, "v"):
		ver = "v" + ver
	}
	return fmt.Sprintf(`
                 __
 _      _____  / /_  ____  _________  / /_  ___
| | /| / / _ \/ __ \/ __ \/ ___/ __ \/ __ \/ _ \
| |/ |/ /  __/ /_/ / /_/ / /  / /_/ / /_/ /  __/
|__/|__/\___/_.___/ .___/_/   \____/_.___/\___/   %s
                 /_/

`, ver)
}
