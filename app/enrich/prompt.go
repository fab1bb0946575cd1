package enrich

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/news-comb/app/document"
)

const SystemInstruction = `You are a news editor. You rewrite source articles into original, well-structured
articles without adding facts that are not present in the source. You always answer
with valid JSON and nothing else.`

const promptBodyRunes = 6000

var rewriteRules = fmt.Sprintf(`Rules for every article:
- "title": a clear headline of at least 10 characters.
- "body": an expanded rewrite of at least 200 words that stays within the facts of the source.
- "summary": two or three sentences, at least 50 characters.
- "category": exactly one of %s.
- "tags": 5 to 7 short topical tags.
- "imageUrls": copy the source image URLs verbatim, in the same order. Never invent, drop or edit them.`, categoryList())

func categoryList() string {
	names := make([]string, len(document.Categories))
	for i, c := range document.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// BatchPrompt asks for a JSON array with one object per source article.
func BatchPrompt(raws []document.Raw) string {
	var b strings.Builder
	b.WriteString("Rewrite each of the following source articles.\n\n")
	b.WriteString(rewriteRules)
	b.WriteString("\n\nRespond with a JSON array. Each element is an object with the fields ")
	b.WriteString(`"index", "title", "body", "summary", "category", "tags", "imageUrls", `)
	b.WriteString(`where "index" is the number of the source article it rewrites.`)
	b.WriteString("\n\n")

	for i, raw := range raws {
		fmt.Fprintf(&b, "### Article %d\n", i)
		writeSource(&b, raw)
	}
	return b.String()
}

// SinglePrompt asks for one JSON object for a single source article.
func SinglePrompt(raw document.Raw) string {
	var b strings.Builder
	b.WriteString("Rewrite the following source article.\n\n")
	b.WriteString(rewriteRules)
	b.WriteString("\n\nRespond with a single JSON object with the fields ")
	b.WriteString(`"title", "body", "summary", "category", "tags", "imageUrls".`)
	b.WriteString("\n\n### Article\n")
	writeSource(&b, raw)
	return b.String()
}

func writeSource(b *strings.Builder, raw document.Raw) {
	fmt.Fprintf(b, "Title: %s\n", raw.Title)
	if raw.Category != "" {
		fmt.Fprintf(b, "Section: %s\n", raw.Category)
	}
	if len(raw.ImageURLs) > 0 {
		b.WriteString("Image URLs:\n")
		for _, u := range raw.ImageURLs {
			fmt.Fprintf(b, "- %s\n", u)
		}
	}
	fmt.Fprintf(b, "Body:\n%s\n\n", document.Truncate(raw.Body, promptBodyRunes))
}
