// Package markdown turns vault Markdown into HTML: it rewrites image embeds
// and wiki-links into standard Markdown and renders the result with goldmark.
package markdown

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/starford/grimoire/internal/links"
	"github.com/starford/grimoire/internal/models"
)

var (
	embedRe    = regexp.MustCompile(`!\[\[([^\]]+)\]\]`)
	wikilinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
)

// ImagesDir is the site-root folder that holds copied vault images.
const ImagesDir = "images"

// Rendered is the result of transforming one note body.
type Rendered struct {
	HTML string
	// Links holds the site-relative pages (no fragment) of every wiki-link
	// that resolved to a known note, in order of first appearance.
	Links []string
}

// Transformer rewrites and renders note bodies against a link table.
type Transformer struct {
	table    *links.Table
	renderer *Renderer
}

// NewTransformer returns a Transformer resolving wiki-links through table.
func NewTransformer(table *links.Table) *Transformer {
	return &Transformer{table: table, renderer: NewRenderer()}
}

// Transform rewrites body for the page at relPath and renders it to HTML.
func (t *Transformer) Transform(body, relPath string) (*Rendered, error) {
	src, targets := t.Rewrite(body, relPath)
	html, err := t.renderer.Render([]byte(src))
	if err != nil {
		return nil, fmt.Errorf("markdown: render %s: %w", relPath, err)
	}
	return &Rendered{HTML: html, Links: targets}, nil
}

// Rewrite converts image embeds and wiki-links in body into standard
// Markdown relative to the page at relPath. It returns the rewritten source
// and the resolved pages of known link targets.
func (t *Transformer) Rewrite(body, relPath string) (string, []string) {
	up := models.UpLevels(models.Depth(relPath))
	out := RewriteEmbeds(body, up)

	var targets []string
	seen := make(map[string]struct{})
	out = wikilinkRe.ReplaceAllStringFunc(out, func(m string) string {
		inner := wikilinkRe.FindStringSubmatch(m)[1]
		target, display := splitAlias(inner)
		name, fragment := links.SplitFragment(target)

		if name == "" {
			return fmt.Sprintf("[%s](#%s)", display, links.Slugify(fragment))
		}
		if p, ok := t.table.Lookup(name); ok {
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				targets = append(targets, p)
			}
		}
		return fmt.Sprintf("[%s](<%s>)", display, EncodeLinkPath(up+t.table.Resolve(target)))
	})
	return out, targets
}

// RewriteEmbeds turns ![[name|align|size]] into ![align|size](<up>images/name).
func RewriteEmbeds(body, up string) string {
	return embedRe.ReplaceAllStringFunc(body, func(m string) string {
		parts := strings.Split(embedRe.FindStringSubmatch(m)[1], "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		var align, size string
		if len(parts) > 1 {
			align = parts[1]
		}
		if len(parts) > 2 {
			size = parts[2]
		}
		return fmt.Sprintf("![%s|%s](<%s%s/%s>)", align, size, up, ImagesDir, parts[0])
	})
}

// splitAlias separates "Target|Display" (or the table-safe "Target\|Display").
// Without an alias the whole text is displayed.
func splitAlias(inner string) (target, display string) {
	if i := strings.Index(inner, "|"); i >= 0 {
		target = strings.TrimSuffix(inner[:i], `\`)
		return strings.TrimSpace(target), strings.TrimSpace(inner[i+1:])
	}
	return inner, inner
}

// EncodeLinkPath percent-encodes the filename segment of a relative link,
// leaving directory separators and any "#fragment" untouched.
func EncodeLinkPath(p string) string {
	pathPart, fragment, hasFragment := strings.Cut(p, "#")
	dir, file := "", pathPart
	if i := strings.LastIndex(pathPart, "/"); i >= 0 {
		dir, file = pathPart[:i+1], pathPart[i+1:]
	}
	out := dir + url.PathEscape(file)
	if hasFragment {
		out += "#" + fragment
	}
	return out
}
