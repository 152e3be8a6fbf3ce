// Package models defines the domain types for grimoire.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Note represents a parsed Markdown file in the vault.
type Note struct {
	SourcePath  string       // absolute path of the .md file
	RelPath     string       // output path relative to the site root, e.g. "3_Characters/Strahd.html"
	Name        string       // base name without extension, the canonical link target
	Frontmatter *Frontmatter // nil when the note has no header block
	Body        string
}

// Depth returns how many folders deep the note's output page lives.
func (n *Note) Depth() int {
	return Depth(n.RelPath)
}

// Depth returns the folder depth of a site-relative path: "a.html" is 0,
// "x/a.html" is 1.
func Depth(relPath string) int {
	dir := path.Dir(relPath)
	if dir == "." || dir == "" {
		return 0
	}
	return strings.Count(dir, "/") + 1
}

// UpLevels returns the "../" prefix that leads from a page at the given
// depth back to the site root.
func UpLevels(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat("../", depth)
}

// Frontmatter is the ordered key/value header of a note. Values are either a
// string or a list of strings.
type Frontmatter struct {
	keys   []string
	values map[string]any
}

// NewFrontmatter returns an empty Frontmatter.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{values: make(map[string]any)}
}

// Set assigns a scalar value. Re-setting a key keeps its original position.
func (f *Frontmatter) Set(key, value string) {
	f.put(key, value)
}

// Append adds item to the list stored under key, turning a missing or scalar
// value into a list.
func (f *Frontmatter) Append(key, item string) {
	if list, ok := f.values[key].([]string); ok {
		f.values[key] = append(list, item)
		return
	}
	f.put(key, []string{item})
}

func (f *Frontmatter) put(key string, v any) {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v
}

// Keys returns the keys in order of appearance.
func (f *Frontmatter) Keys() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.keys...)
}

// Get returns the raw value (string or []string) stored under key.
func (f *Frontmatter) Get(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

// String returns the scalar value of key, or "" when absent or a list.
func (f *Frontmatter) String(key string) string {
	v, _ := f.Get(key)
	s, _ := v.(string)
	return s
}

// List returns the value of key as a list. A scalar becomes a one-element
// list; an absent key yields nil.
func (f *Frontmatter) List(key string) []string {
	v, ok := f.Get(key)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case string:
		return []string{t}
	}
	return nil
}

// Len returns the number of keys.
func (f *Frontmatter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// MarshalJSON encodes the frontmatter as a JSON object in key order.
// A nil Frontmatter encodes as {}.
func (f *Frontmatter) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if f != nil {
		for i, k := range f.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			vb, err := json.Marshal(f.values[k])
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			buf.Write(vb)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object of string or string-list values, keeping
// key order. Other value types are stored in their JSON text form.
func (f *Frontmatter) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("models: frontmatter: expected object, got %v", tok)
	}
	*f = Frontmatter{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var s string
		if json.Unmarshal(raw, &s) == nil {
			f.Set(key, s)
			continue
		}
		var list []string
		if json.Unmarshal(raw, &list) == nil {
			f.put(key, list)
			continue
		}
		f.Set(key, string(raw))
	}
	_, err = dec.Token()
	return err
}
