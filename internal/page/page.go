// Package page extracts document metadata from a fetched response body.
package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Title returns the text of the first <title> element with runs of
// whitespace collapsed, or "" when the body has none or is not HTML.
func Title(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}
