package output

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maxvaer/webprobe/internal/cookie"
	"github.com/maxvaer/webprobe/internal/probe"
)

func sampleResult() *probe.Result {
	jar := cookie.Extract("HTTP/1.1 200 OK\r\n" +
		"Set-Cookie: sid=abc; expires=Thu, 01 Jan 2030 00:00:00 GMT; domain=example.com; path=/\r\n" +
		"Set-Cookie: pref=dark\r\n" +
		"Set-Cookie: lang=en; domain=.example.com\r\n")
	return &probe.Result{
		Host:           "example.com",
		URL:            "https://example.com/",
		Title:          "Example Domain",
		HTTP2Supported: true,
		Cookies:        jar,
		Hops:           1,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestTextWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	w, err := NewTextWriter(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteResult(sampleResult()); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	want := "\nwebsite: example.com\n" +
		"page title: Example Domain\n" +
		"1. Supports http2: yes\n" +
		"2. List of Cookies:\n" +
		"cookie name: sid, expires time: Thu, 01 Jan 2030 00:00:00 GMT; domain name: example.com\n" +
		"cookie name: pref\n" +
		"cookie name: lang; domain name: .example.com\n" +
		"3. Password-protected: no\n\n"
	if got := readFile(t, path); got != want {
		t.Errorf("text output mismatch\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestTextWriter_NoCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	w, err := NewTextWriter(path, true)
	if err != nil {
		t.Fatal(err)
	}
	res := &probe.Result{Host: "example.org", Cookies: cookie.NewJar(), PasswordProtected: true}
	if err := w.WriteResult(res); err != nil {
		t.Fatal(err)
	}
	w.Close()

	out := readFile(t, path)
	for _, want := range []string{
		"website: example.org\n",
		"1. Supports http2: no\n",
		"No cookies found.\n",
		"3. Password-protected: yes\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "page title") {
		t.Error("page title line printed for a result without a title")
	}
}

func TestTextWriter_Color(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	w, err := NewTextWriter(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteResult(sampleResult()); err != nil {
		t.Fatal(err)
	}
	w.Close()

	out := readFile(t, path)
	if !strings.Contains(out, "Supports http2: "+colorGreen+"yes"+colorReset) {
		t.Errorf("expected colored yes, got:\n%q", out)
	}
	if !strings.Contains(out, "Password-protected: "+colorRed+"no"+colorReset) {
		t.Errorf("expected colored no, got:\n%q", out)
	}
}

func TestJSONWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteResult(sampleResult()); err != nil {
		t.Fatal(err)
	}
	w.Close()

	var got ResultJSON
	if err := json.Unmarshal([]byte(readFile(t, path)), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Host != "example.com" || !got.HTTP2 || got.PasswordProtected || got.Redirects != 1 {
		t.Errorf("unexpected result: %+v", got)
	}
	if len(got.Cookies) != 3 {
		t.Fatalf("expected 3 cookies, got %d", len(got.Cookies))
	}
	if got.Cookies[0].Name != "sid" || got.Cookies[1].Name != "pref" || got.Cookies[2].Name != "lang" {
		t.Errorf("cookie order = %s, %s, %s", got.Cookies[0].Name, got.Cookies[1].Name, got.Cookies[2].Name)
	}
	if got.Cookies[1].Domain != nil || got.Cookies[1].Path != nil {
		t.Error("absent attributes must stay absent")
	}
}

func TestJSONWriter_EmptyCookiesIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteResult(&probe.Result{Host: "a.com", Cookies: cookie.NewJar()}); err != nil {
		t.Fatal(err)
	}
	w.Close()

	if out := readFile(t, path); !strings.Contains(out, `"cookies": []`) {
		t.Errorf("expected empty cookie array, got:\n%s", out)
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteResult(sampleResult()); err != nil {
		t.Fatal(err)
	}
	w.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	want := []string{"example.com", "sid", "abc", "example.com", "Thu, 01 Jan 2030 00:00:00 GMT", "/"}
	for i := range want {
		if rows[1][i] != want[i] {
			t.Errorf("row 1 col %d = %q, want %q", i, rows[1][i], want[i])
		}
	}
}

func TestWriters_ResultWithoutJar(t *testing.T) {
	res := &probe.Result{Host: "example.net"}
	dir := t.TempDir()

	text, err := NewTextWriter(filepath.Join(dir, "out.txt"), true)
	if err != nil {
		t.Fatal(err)
	}
	if err := text.WriteResult(res); err != nil {
		t.Fatal(err)
	}
	text.Close()
	if out := readFile(t, filepath.Join(dir, "out.txt")); !strings.Contains(out, "No cookies found.") {
		t.Errorf("text output:\n%s", out)
	}

	js, err := NewJSONWriter(filepath.Join(dir, "out.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := js.WriteResult(res); err != nil {
		t.Fatal(err)
	}
	js.Close()
	if out := readFile(t, filepath.Join(dir, "out.json")); !strings.Contains(out, `"cookies": []`) {
		t.Errorf("json output:\n%s", out)
	}

	cw, err := NewCSVWriter(filepath.Join(dir, "out.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if err := cw.WriteResult(res); err != nil {
		t.Fatal(err)
	}
	cw.Close()
}
