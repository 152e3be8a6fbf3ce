// Package render produces the site's HTML documents from embedded templates.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/grimoire/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// Section is one top-level vault folder as it appears in navigation.
type Section struct {
	Folder string
	Title  string
	Home   bool // listed as a card on the homepage
}

// Options configure a Renderer for one build.
type Options struct {
	SiteTitle string
	Sections  []Section
	// Content reports per folder whether it produced any pages. Folders
	// missing from the map are treated as having content.
	Content    map[string]bool
	LiveReload bool
}

// Renderer renders pages, folder indexes and the homepage.
type Renderer struct {
	opts Options
}

// New returns a Renderer.
func New(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// Page is a rendered note.
type Page struct {
	Title      string
	RelPath    string // site-relative output path, e.g. "3_Characters/Strahd.html"
	Properties template.HTML
	Body       template.HTML
}

// Entry is one line of a folder listing.
type Entry struct {
	Href  string
	Label string
}

// Folder is a folder index page.
type Folder struct {
	Title   string
	RelPath string // site-relative path of the index.html
	Entries []Entry
}

type layout struct {
	SiteTitle  string
	Base       string
	Nav        []Section
	LiveReload bool
}

type pageData struct {
	layout
	Page
}

type folderData struct {
	layout
	Folder
}

type homeData struct {
	layout
	Cards []Section
}

// Page renders a note page.
func (r *Renderer) Page(p Page) ([]byte, error) {
	return r.execute("page.html", pageData{layout: r.layout(p.RelPath), Page: p})
}

// FolderIndex renders the listing page of a folder.
func (r *Renderer) FolderIndex(f Folder) ([]byte, error) {
	return r.execute("folder.html", folderData{layout: r.layout(f.RelPath), Folder: f})
}

// Home renders the site root index.html.
func (r *Renderer) Home() ([]byte, error) {
	data := homeData{layout: r.layout("index.html")}
	for _, s := range data.Nav {
		if s.Home {
			data.Cards = append(data.Cards, s)
		}
	}
	return r.execute("home.html", data)
}

// Nav returns the sections shown in navigation: every configured section
// except folders known to have no content.
func (r *Renderer) Nav() []Section {
	var out []Section
	for _, s := range r.opts.Sections {
		if has, ok := r.opts.Content[s.Folder]; ok && !has {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (r *Renderer) layout(relPath string) layout {
	return layout{
		SiteTitle:  r.opts.SiteTitle,
		Base:       models.UpLevels(models.Depth(relPath)),
		Nav:        r.Nav(),
		LiveReload: r.opts.LiveReload,
	}
}

func (r *Renderer) execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render: %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

type property struct {
	Key   string
	Value string
}

// Properties renders the frontmatter block shown above a note. Keys get an
// upper-cased first letter and list values are joined with ", ". A nil or
// empty frontmatter renders nothing.
func Properties(fm *models.Frontmatter) template.HTML {
	if fm.Len() == 0 {
		return ""
	}
	props := make([]property, 0, fm.Len())
	for _, k := range fm.Keys() {
		props = append(props, property{Key: capitalize(k), Value: strings.Join(fm.List(k), ", ")})
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "properties", props); err != nil {
		return ""
	}
	return template.HTML(buf.String())
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
