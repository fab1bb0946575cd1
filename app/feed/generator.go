package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/lysyi3m/news-comb/app/document"
)

// Channel describes the RSS channel wrapping a list of documents.
type Channel struct {
	Name        string
	Title       string
	Description string
}

type Generator struct {
	baseURL string
	version string
}

func NewGenerator(baseURL, version string) *Generator {
	return &Generator{baseURL: strings.TrimSuffix(baseURL, "/"), version: version}
}

func (g *Generator) Run(channel Channel, docs []document.Enriched) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	selfLink := fmt.Sprintf("%s/rss/%s", g.baseURL, channel.Name)

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", cmp.Or(g.baseURL, selfLink), 4)
	description := channel.Description
	if description == "" {
		description = fmt.Sprintf("Rewritten %s news", channel.Title)
	}
	g.writeElement(&buf, "description", description, 4)

	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now()
	if len(docs) > 0 {
		lastBuildDate = cmp.Or(docs[0].PublishDate, docs[0].Enrichment.Timestamp, lastBuildDate)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("News-Comb/%s", g.version), 4)

	for _, doc := range docs {
		g.writeItem(&buf, doc)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, doc document.Enriched) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(doc.ID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", doc.Title, 6)
	g.writeElement(buf, "link", doc.URL, 6)
	g.writeElement(buf, "description", cmp.Or(doc.Summary, "No description available"), 6)

	if doc.Body != "" {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(strings.ReplaceAll(doc.Body, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	if !doc.PublishDate.IsZero() {
		g.writeElement(buf, "pubDate", doc.PublishDate.Format(time.RFC1123Z), 6)
	}

	g.writeElement(buf, "author", doc.Author, 6)
	g.writeElement(buf, "category", string(doc.Category), 6)
	for _, tag := range doc.Tags {
		g.writeElement(buf, "category", tag, 6)
	}

	// RSS 2.0 allows a single enclosure per item.
	if len(doc.ImageURLs) > 0 {
		if mimeType := imageType(doc.ImageURLs[0]); mimeType != "" {
			buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"0\" type=\"%s\" />\n",
				html.EscapeString(doc.ImageURLs[0]),
				html.EscapeString(mimeType)))
		}
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func imageType(imageURL string) string {
	if i := strings.IndexAny(imageURL, "?#"); i >= 0 {
		imageURL = imageURL[:i]
	}
	mimeType := mime.TypeByExtension(strings.ToLower(path.Ext(imageURL)))
	if !strings.HasPrefix(mimeType, "image/") {
		return ""
	}
	return mimeType
}
