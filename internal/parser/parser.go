// Package parser splits a note into its frontmatter header and Markdown body.
//
// The header grammar is a deliberately small YAML subset:
//
//	block := line*
//	line  := blank | item | pair | other
//	pair  := key ":" value        (non-empty value: scalar, closes any open list)
//	       | key ":"              (opens a list under key)
//	item  := "- " text            (appended to the open list; ignored otherwise)
//	other := anything else        (ignored)
//
// Lines are trimmed before matching. Nested maps, quoting, multi-line
// scalars and flow collections are not interpreted: their text is kept
// verbatim as a scalar value.
package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/starford/grimoire/internal/models"
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter *models.Frontmatter
	Body        string
}

var headerFormat = frontmatter.NewFormat("---", "---", unmarshalHeader)

// Parse extracts the frontmatter and body from raw Markdown bytes. A note
// without a well-formed header block is returned whole as body with nil
// frontmatter.
func Parse(data []byte) *Result {
	fm := models.NewFrontmatter()
	body, err := frontmatter.Parse(bytes.NewReader(data), fm, headerFormat)
	if err != nil || len(body) == len(data) {
		return &Result{Body: string(data)}
	}
	return &Result{Frontmatter: fm, Body: string(body)}
}

func unmarshalHeader(data []byte, v any) error {
	fm, ok := v.(*models.Frontmatter)
	if !ok {
		return fmt.Errorf("parser: unsupported header target %T", v)
	}
	return ParseHeader(data, fm)
}

// ParseHeader applies the header grammar to the lines of data, recording
// values into fm.
func ParseHeader(data []byte, fm *models.Frontmatter) error {
	var listKey string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "- "):
			if listKey != "" {
				fm.Append(listKey, line[2:])
			}
		case strings.Contains(line, ":"):
			i := strings.Index(line, ":")
			key := strings.TrimSpace(line[:i])
			value := strings.TrimSpace(line[i+1:])
			if value == "" {
				listKey = key
				continue
			}
			fm.Set(key, value)
			listKey = ""
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("parser: scan header: %w", err)
	}
	return nil
}
