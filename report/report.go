// Package report renders advisor answers, which are markdown, to sanitized
// HTML and extracts the cited source URLs.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// Report is a rendered answer.
type Report struct {
	HTML      string
	Citations []string
}

// Render converts markdown to sanitized HTML and collects its citations.
func Render(md string) (*Report, error) {
	body := RenderHTML(md)
	cites, err := Citations(body)
	if err != nil {
		return nil, err
	}
	return &Report{HTML: body, Citations: cites}, nil
}

// RenderHTML converts markdown to HTML. Bare URLs become links and the output
// is sanitized with the UGC policy.
func RenderHTML(md string) string {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	out := markdown.Render(doc, renderer)

	return string(bluemonday.UGCPolicy().SanitizeBytes(out))
}

// Citations returns the distinct http(s) link targets of an HTML fragment in
// document order.
func Citations(fragment string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	seen := make(map[string]bool)
	out := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimRight(strings.TrimSpace(href), ".,;)")
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			return
		}
		if seen[href] {
			return
		}
		seen[href] = true
		out = append(out, href)
	})
	return out, nil
}

// Page wraps a rendered answer in a standalone HTML document.
func Page(title string, r *Report) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	sb.WriteString(bluemonday.StrictPolicy().Sanitize(title))
	sb.WriteString("</title>\n</head>\n<body>\n")
	sb.WriteString(r.HTML)
	if len(r.Citations) > 0 {
		sb.WriteString("<hr>\n<ol class=\"citations\">\n")
		for _, c := range r.Citations {
			fmt.Fprintf(&sb, "<li><a href=\"%s\" target=\"_blank\" rel=\"noopener\">%s</a></li>\n", c, c)
		}
		sb.WriteString("</ol>\n")
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}
