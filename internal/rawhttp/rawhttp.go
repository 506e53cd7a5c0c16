// Package rawhttp builds HTTP/1.1 requests and inspects raw response text
// without relying on any message framing other than stream closure.
package rawhttp

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

const (
	// Delimiter separates the header block from the body.
	Delimiter = "\r\n\r\n"

	readChunk = 4096

	// unauthorizedMarker is matched as a plain substring of the header
	// block; the status line is not parsed.
	unauthorizedMarker = "401 Unauthorized"
)

// Header is a single request header field.
type Header struct {
	Name  string
	Value string
}

// Response is the accumulated response text split at the first Delimiter.
// Without a delimiter the whole text is the header block and Body is empty.
type Response struct {
	HeaderBlock string
	Body        string
}

// BuildGet renders a GET request for path with the given headers, in
// order, and no body.
func BuildGet(path string, headers ...Header) []byte {
	var b bytes.Buffer
	b.WriteString("GET ")
	b.WriteString(path)
	b.WriteString(" HTTP/1.1\r\n")
	for _, h := range headers {
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

// ReadAll reads r until it reports end of stream and decodes the bytes as
// UTF-8, replacing invalid sequences with U+FFFD. A zero-length read is
// treated as end of stream. On a read error the text received so far is
// returned together with the error.
func ReadAll(r io.Reader) (string, error) {
	var data []byte
	buf := make([]byte, readChunk)
	for {
		n, err := r.Read(buf)
		data = append(data, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return decode(data), err
		}
		if n == 0 {
			break
		}
	}
	return decode(data), nil
}

func decode(data []byte) string {
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

// Split divides the response text at the first header/body delimiter.
func Split(text string) Response {
	head, body, found := strings.Cut(text, Delimiter)
	if !found {
		return Response{HeaderBlock: text}
	}
	return Response{HeaderBlock: head, Body: body}
}

// Lines splits a header block into lines with line terminators removed.
func Lines(headerBlock string) []string {
	lines := strings.Split(headerBlock, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Field splits a header line into its field name and value. ok is false
// for lines that are not "Name: value" shaped, such as the status line.
func Field(line string) (name, value string, ok bool) {
	name, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, " \t") {
		return "", "", false
	}
	return name, strings.TrimSpace(value), true
}

// StatusLine returns the first line of the header block.
func StatusLine(headerBlock string) string {
	line, _, _ := strings.Cut(headerBlock, "\n")
	return strings.TrimSuffix(line, "\r")
}

// FindRedirect returns the value of the first non-empty Location header.
// The value is returned verbatim; it is not resolved against any base.
func FindRedirect(headerBlock string) (string, bool) {
	for _, line := range Lines(headerBlock) {
		name, value, ok := Field(line)
		if ok && strings.EqualFold(name, "Location") && value != "" {
			return value, true
		}
	}
	return "", false
}

// IsPasswordProtected reports whether the literal "401 Unauthorized" occurs
// anywhere in the header block. This is a substring heuristic: a reason
// phrase other than "Unauthorized" on a 401 is not recognised, and the
// marker inside any header value counts.
func IsPasswordProtected(headerBlock string) bool {
	return strings.Contains(headerBlock, unauthorizedMarker)
}
