package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// MaxImportBytes caps fetched and uploaded documents.
const MaxImportBytes = 2 << 20

// ErrTooLarge reports a document over MaxImportBytes. Oversize input is
// rejected rather than cut short.
var ErrTooLarge = errors.New("document exceeds the 2 MiB import limit")

func readLimited(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxImportBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > MaxImportBytes {
		return nil, ErrTooLarge
	}
	return b, nil
}

var (
	multiNewline = regexp.MustCompile(`\n{3,}`)
	multiSpace   = regexp.MustCompile(`[ \t]{2,}`)
)

// FromHTML returns the visible text of an HTML document. Scripts and styles
// are dropped, block elements start new lines and list items become "- "
// bullets.
func FromHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	var sb strings.Builder
	walkText(doc, &sb)
	return cleanText(sb.String()), nil
}

func walkText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template", "svg", "iframe":
			return
		case "br":
			sb.WriteString("\n")
		case "li":
			sb.WriteString("\n- ")
		case "p", "div", "section", "article", "header", "footer", "blockquote", "pre",
			"h1", "h2", "h3", "h4", "h5", "h6", "tr", "ul", "ol", "table", "title":
			sb.WriteString("\n")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, sb)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "section", "article", "header", "footer", "blockquote", "pre",
			"h1", "h2", "h3", "h4", "h5", "h6", "tr", "ul", "ol", "table", "title", "li":
			sb.WriteString("\n")
		}
	}
}

func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(multiSpace.ReplaceAllString(l, " "))
	}
	s = strings.Join(lines, "\n")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// FromPDF returns the plain text of a PDF document.
func FromPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	text, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	b, err := readLimited(text)
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return cleanText(string(b)), nil
}

// FetchURL downloads url and returns its text. HTML is stripped; plain text
// and markdown are returned as they are.
func FetchURL(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := readLimited(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}

	ct := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(ct, "text/plain"), strings.Contains(ct, "text/markdown"):
		return strings.TrimSpace(string(body)), nil
	case strings.Contains(ct, "application/pdf"):
		return FromPDF(body)
	}
	return FromHTML(bytes.NewReader(body))
}
