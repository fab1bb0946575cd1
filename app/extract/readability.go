package extract

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

type readable struct {
	Title  string
	Byline string
	Text   string
}

// readableContent runs the readability heuristic over a full page.
func readableContent(html string, pageURL *url.URL) (*readable, error) {
	if html == "" {
		return nil, fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	if strings.TrimSpace(article.TextContent) == "" {
		return nil, fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Readability content extracted",
		"title", article.Title,
		"content_length", len(article.TextContent))

	return &readable{
		Title:  article.Title,
		Byline: article.Byline,
		Text:   article.TextContent,
	}, nil
}
