package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/maxvaer/webprobe/internal/output"
	"github.com/maxvaer/webprobe/internal/probe"
)

// Runner executes a shell command once the probe result is known.
type Runner struct {
	cmd     string
	quiet   bool
	timeout time.Duration
}

// NewRunner creates a hook runner. cmd is the shell command to execute.
func NewRunner(cmd string, quiet bool) *Runner {
	return &Runner{cmd: cmd, quiet: quiet, timeout: 30 * time.Second}
}

// Run executes the hook command with the result as JSON on stdin and
// returns what the command printed. The result fields are exported as
// WEBPROBE_URL, WEBPROBE_HOST, WEBPROBE_HTTP2, WEBPROBE_PROTECTED and
// WEBPROBE_COOKIES. Placeholders {url}, {host}, {http2}, {protected} and
// {cookies} in the command are rewritten to references to those variables,
// so values sent by the server are never parsed by the shell.
func (r *Runner) Run(ctx context.Context, result *probe.Result) ([]byte, error) {
	data, err := json.Marshal(output.NewResultJSON(result))
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	shell, args, ref := shellCommand()
	expanded := r.cmd
	for _, p := range placeholders {
		expanded = strings.ReplaceAll(expanded, p.token, ref(p.env))
	}

	cmd := exec.CommandContext(ctx, shell, append(args, expanded)...)
	cmd.Env = append(os.Environ(), environ(result)...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("hook %q: %w", r.cmd, err)
	}
	if len(out) > 0 && !r.quiet {
		fmt.Fprintf(os.Stderr, "[hook] %s", out)
	}
	return out, nil
}

var placeholders = []struct {
	token string
	env   string
}{
	{"{url}", "WEBPROBE_URL"},
	{"{host}", "WEBPROBE_HOST"},
	{"{http2}", "WEBPROBE_HTTP2"},
	{"{protected}", "WEBPROBE_PROTECTED"},
	{"{cookies}", "WEBPROBE_COOKIES"},
}

func environ(result *probe.Result) []string {
	return []string{
		"WEBPROBE_URL=" + result.URL,
		"WEBPROBE_HOST=" + result.Host,
		"WEBPROBE_HTTP2=" + strconv.FormatBool(result.HTTP2Supported),
		"WEBPROBE_PROTECTED=" + strconv.FormatBool(result.PasswordProtected),
		"WEBPROBE_COOKIES=" + strconv.Itoa(result.Cookies.Len()),
	}
}

// shellCommand returns the shell, its arguments and how a variable is
// referenced in it. cmd.exe expands !VAR! after parsing the line only
// with delayed expansion enabled.
func shellCommand() (string, []string, func(string) string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/V:ON", "/C"}, func(v string) string { return "!" + v + "!" }
	}
	return "sh", []string{"-c"}, func(v string) string { return `"$` + v + `"` }
}
