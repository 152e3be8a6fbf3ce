// Package search builds the site search index and scores queries against it.
package search

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/starford/grimoire/internal/models"
)

// MaxContent is the number of content characters kept per record when the
// index is serialized.
const MaxContent = 500

// Record is one searchable page.
type Record struct {
	Title       string              `json:"title"`
	Path        string              `json:"path"`
	Category    string              `json:"category"`
	Content     string              `json:"content"`
	Frontmatter *models.Frontmatter `json:"frontmatter"`
	Aliases     []string            `json:"aliases,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
}

// NewRecord builds a record for a page, lifting aliases and tags out of the
// frontmatter.
func NewRecord(title, relPath, category, content string, fm *models.Frontmatter) Record {
	if fm == nil {
		fm = models.NewFrontmatter()
	}
	return Record{
		Title:       title,
		Path:        relPath,
		Category:    category,
		Content:     content,
		Frontmatter: fm,
		Aliases:     fm.List("aliases"),
		Tags:        fm.List("tags"),
	}
}

// PlainText strips tags from an HTML fragment, decodes entities and
// collapses whitespace runs to single spaces.
func PlainText(fragment string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		default:
			b.WriteByte(' ')
		}
	}
}

// Truncate shortens s to MaxContent characters plus "..." when longer.
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxContent {
		return s
	}
	r := []rune(s)
	return string(r[:MaxContent]) + "..."
}

// Encode writes records as an indented JSON array with truncated content.
func Encode(w io.Writer, records []Record) error {
	out := make([]Record, len(records))
	for i, r := range records {
		r.Content = Truncate(r.Content)
		if r.Frontmatter == nil {
			r.Frontmatter = models.NewFrontmatter()
		}
		out[i] = r
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("search: encode index: %w", err)
	}
	return nil
}

// Load reads a serialized index.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("search: read index: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("search: decode index %s: %w", path, err)
	}
	return records, nil
}
