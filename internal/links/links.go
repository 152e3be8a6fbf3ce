// Package links resolves wiki-link targets to site-relative HTML paths.
package links

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	slugStripRe  = regexp.MustCompile(`[^\w\s-]`)
	hyphenRunRe  = regexp.MustCompile(`-+`)
)

// Table maps normalized note names to output paths ("folder/sub/Name.html").
// It is built once per build and only read afterwards.
type Table struct {
	paths map[string]string
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{paths: make(map[string]string)}
}

// BuildTable scans every folder under vaultRoot for Markdown files and
// registers each note under its exact, lowercase and hyphenated-lowercase
// names. Folders that do not exist and dot-prefixed entries are skipped. When two notes share a key
// the later one wins and a warning is logged.
func BuildTable(vaultRoot string, folders []string, logger *slog.Logger) (*Table, error) {
	t := NewTable()
	for _, folder := range folders {
		dir := filepath.Join(vaultRoot, folder)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			hidden := p != dir && strings.HasPrefix(d.Name(), ".")
			if d.IsDir() {
				if hidden {
					return filepath.SkipDir
				}
				return nil
			}
			if hidden || !strings.HasSuffix(d.Name(), ".md") {
				return nil
			}
			rel, err := filepath.Rel(vaultRoot, p)
			if err != nil {
				return err
			}
			t.Add(strings.TrimSuffix(d.Name(), ".md"), OutputPath(rel), logger)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("links: scan %s: %w", folder, err)
		}
	}
	return t, nil
}

// OutputPath converts a vault-relative note path to its site-relative page
// path.
func OutputPath(rel string) string {
	return strings.TrimSuffix(filepath.ToSlash(rel), ".md") + ".html"
}

// Add registers a note name under all of its lookup keys.
func (t *Table) Add(name, outPath string, logger *slog.Logger) {
	for _, key := range []string{name, strings.ToLower(name), Hyphenate(name)} {
		if prev, ok := t.paths[key]; ok && prev != outPath && logger != nil {
			logger.Warn("links: name collision",
				slog.String("key", key),
				slog.String("previous", prev),
				slog.String("path", outPath))
		}
		t.paths[key] = outPath
	}
}

// Len returns the number of registered keys.
func (t *Table) Len() int {
	return len(t.paths)
}

// Lookup tries the exact, lowercase and hyphenated-lowercase forms of name.
func (t *Table) Lookup(name string) (string, bool) {
	for _, key := range []string{name, strings.ToLower(name), Hyphenate(name)} {
		if p, ok := t.paths[key]; ok {
			return p, true
		}
	}
	return "", false
}

// Resolve maps link text such as "Strahd" or "Vallaki#The Blue Water Inn"
// to a site-relative path with an optional slugified fragment. Unknown
// names resolve to "<hyphenated-name>.html".
func (t *Table) Resolve(linkText string) string {
	name, fragment := SplitFragment(linkText)
	if fragment != "" {
		fragment = "#" + Slugify(fragment)
	}
	if p, ok := t.Lookup(name); ok {
		return p + fragment
	}
	return Hyphenate(name) + ".html" + fragment
}

// SplitFragment splits "Name#Heading" into its name and raw heading parts.
func SplitFragment(linkText string) (name, fragment string) {
	name, fragment, _ = strings.Cut(linkText, "#")
	return name, fragment
}

// Hyphenate lowercases s and replaces whitespace runs with single hyphens.
func Hyphenate(s string) string {
	return strings.ToLower(whitespaceRe.ReplaceAllString(s, "-"))
}

// Slugify derives a heading identifier: lowercase, only word characters,
// whitespace and hyphens kept, whitespace runs and hyphen runs collapsed to
// one hyphen, no leading or trailing hyphen. Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = slugStripRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, "-")
	s = hyphenRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
