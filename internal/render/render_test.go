package render

import (
	"strings"
	"testing"

	"github.com/starford/grimoire/internal/models"
)

func testSections() []Section {
	return []Section{
		{Folder: "1_SessionNotes", Title: "Session Notes", Home: true},
		{Folder: "3_Characters", Title: "Characters", Home: true},
		{Folder: "8_Custom", Title: "Custom"},
	}
}

func TestNav_FiltersFoldersWithoutContent(t *testing.T) {
	r := New(Options{
		Sections: testSections(),
		Content:  map[string]bool{"1_SessionNotes": true, "3_Characters": false},
	})
	nav := r.Nav()
	if len(nav) != 2 {
		t.Fatalf("nav = %+v, want 2 sections", nav)
	}
	if nav[0].Folder != "1_SessionNotes" || nav[1].Folder != "8_Custom" {
		t.Errorf("nav folders = %q, %q", nav[0].Folder, nav[1].Folder)
	}
}

func TestPage_RelativeAssetPaths(t *testing.T) {
	r := New(Options{SiteTitle: "Curse of Strahd Campaign", Sections: testSections()})
	out, err := r.Page(Page{
		Title:   "Strahd",
		RelPath: "3_Characters/NPCs/Strahd.html",
		Body:    "<p>The <em>count</em>.</p>",
	})
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	html := string(out)
	for _, want := range []string{
		"<title>Strahd - Curse of Strahd Campaign</title>",
		`href="../../styles.css"`,
		`src="../../search.js"`,
		`href="../../images/background.jpeg"`,
		`<a href="../../3_Characters/index.html">Characters</a>`,
		"<p>The <em>count</em>.</p>",
		"<h1>Strahd</h1>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(html, "EventSource") {
		t.Error("live reload script rendered without LiveReload")
	}
}

func TestPage_EscapesTitle(t *testing.T) {
	r := New(Options{SiteTitle: "Site"})
	out, err := r.Page(Page{Title: "<b>Bold</b>", RelPath: "a.html"})
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if !strings.Contains(string(out), "<h1>&lt;b&gt;Bold&lt;/b&gt;</h1>") {
		t.Errorf("title not escaped: %s", out)
	}
}

func TestPage_LiveReload(t *testing.T) {
	r := New(Options{SiteTitle: "Site", LiveReload: true})
	out, err := r.Page(Page{Title: "A", RelPath: "a.html"})
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if !strings.Contains(string(out), "site.rebuilt") {
		t.Error("live reload script missing")
	}
}

func TestFolderIndex(t *testing.T) {
	r := New(Options{SiteTitle: "Site", Sections: testSections()})
	out, err := r.FolderIndex(Folder{
		Title:   "Characters",
		RelPath: "3_Characters/index.html",
		Entries: []Entry{
			{Href: "NPCs/index.html", Label: "NPCs"},
			{Href: "Ireena%20Kolyana.html", Label: "Ireena Kolyana"},
		},
	})
	if err != nil {
		t.Fatalf("FolderIndex: %v", err)
	}
	html := string(out)
	sub := strings.Index(html, `<a href="NPCs/index.html">NPCs</a>`)
	file := strings.Index(html, `<a href="Ireena%20Kolyana.html">Ireena Kolyana</a>`)
	if sub < 0 || file < 0 {
		t.Fatalf("listing entries missing:\n%s", html)
	}
	if sub > file {
		t.Error("entries rendered out of order")
	}
	if !strings.Contains(html, `href="../styles.css"`) {
		t.Error("folder index should link styles one level up")
	}
}

func TestHome_CardsOnlyForHomeSections(t *testing.T) {
	r := New(Options{SiteTitle: "Curse of Strahd Campaign", Sections: testSections()})
	out, err := r.Home()
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	html := string(out)
	if got := strings.Count(html, `class="section-card-link"`); got != 2 {
		t.Errorf("cards = %d, want 2", got)
	}
	if !strings.Contains(html, `<a href="8_Custom/index.html">Custom</a>`) {
		t.Error("nav should still list Custom")
	}
	if !strings.Contains(html, "<title>Curse of Strahd Campaign</title>") {
		t.Error("home title missing")
	}
}

func TestProperties(t *testing.T) {
	fm := models.NewFrontmatter()
	fm.Set("status", "alive")
	fm.Append("aliases", "The Devil")
	fm.Append("aliases", "Count <Strahd>")

	got := string(Properties(fm))
	for _, want := range []string{
		`<div class="note-properties">`,
		`<li><span class="property-key">Status:</span> <span class="property-value">alive</span></li>`,
		`<span class="property-key">Aliases:</span> <span class="property-value">The Devil, Count &lt;Strahd&gt;</span>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Properties missing %q in %s", want, got)
		}
	}
	if strings.Index(got, "Status") > strings.Index(got, "Aliases") {
		t.Error("properties should keep frontmatter order")
	}
}

func TestProperties_Empty(t *testing.T) {
	if got := Properties(nil); got != "" {
		t.Errorf("Properties(nil) = %q, want empty", got)
	}
	if got := Properties(models.NewFrontmatter()); got != "" {
		t.Errorf("Properties(empty) = %q, want empty", got)
	}
}
