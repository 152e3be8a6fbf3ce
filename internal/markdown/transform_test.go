package markdown

import (
	"strings"
	"testing"

	"github.com/starford/grimoire/internal/links"
)

func testTable() *links.Table {
	t := links.NewTable()
	t.Add("Strahd von Zarovich", "3_Characters/Strahd von Zarovich.html", nil)
	t.Add("Vallaki", "2_Locations/Vallaki/Vallaki.html", nil)
	t.Add("Session 1", "1_SessionNotes/Session 1.html", nil)
	return t
}

func TestTransform_CenteredSizedImageAtDepthOne(t *testing.T) {
	tr := NewTransformer(testTable())
	out, err := tr.Transform("![[pic.jpg|center|300]]", "2_Locations/Vallaki.html")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	for _, want := range []string{`src="../images/pic.jpg"`, "margin: 1rem auto", "max-width: 300px", `alt=""`} {
		if !strings.Contains(out.HTML, want) {
			t.Errorf("html %q missing %q", out.HTML, want)
		}
	}
}

func TestRewriteEmbeds(t *testing.T) {
	cases := []struct {
		in, up, want string
	}{
		{"![[map.png]]", "", "![|](<images/map.png>)"},
		{"![[map.png|left]]", "../", "![left|](<../images/map.png>)"},
		{"![[ map.png | 400 | center ]]", "../../", "![400|center](<../../images/map.png>)"},
	}
	for _, c := range cases {
		if got := RewriteEmbeds(c.in, c.up); got != c.want {
			t.Errorf("RewriteEmbeds(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestImageStyle(t *testing.T) {
	cases := map[string]string{
		"left|":      "float: left; margin: 0 1rem 1rem 0",
		"center|300": "display: block; margin: 1rem auto; max-width: 300px !important",
		"300|center": "display: block; margin: 1rem auto; max-width: 300px !important",
		"250":        "max-width: 250px !important",
		"right|200":  "max-width: 200px !important",
		"|":          "",
		"a|b":        "",
		"100|200":    "",
		"":           "",
	}
	for in, want := range cases {
		if got := ImageStyle(in); got != want {
			t.Errorf("ImageStyle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRewrite_WikiLinks(t *testing.T) {
	tr := NewTransformer(testTable())
	body := "Met [[Strahd von Zarovich|the Count]] in [[Vallaki#Blue Water Inn]]. See [[Unknown Place]] and [[#Loot]]."
	got, targets := tr.Rewrite(body, "1_SessionNotes/Session 2.html")

	wants := []string{
		"[the Count](<../3_Characters/Strahd%20von%20Zarovich.html>)",
		"[Vallaki#Blue Water Inn](<../2_Locations/Vallaki/Vallaki.html#blue-water-inn>)",
		"[Unknown Place](<../unknown-place.html>)",
		"[#Loot](#loot)",
	}
	for _, w := range wants {
		if !strings.Contains(got, w) {
			t.Errorf("rewrite %q missing %q", got, w)
		}
	}
	if len(targets) != 2 || targets[0] != "3_Characters/Strahd von Zarovich.html" || targets[1] != "2_Locations/Vallaki/Vallaki.html" {
		t.Errorf("targets = %v", targets)
	}
}

func TestRewrite_TableEscapedAlias(t *testing.T) {
	tr := NewTransformer(testTable())
	got, _ := tr.Rewrite("| who |\n|---|\n| [[Vallaki\\|town]] |", "index.html")
	if !strings.Contains(got, "[town](<2_Locations/Vallaki/Vallaki.html>)") {
		t.Errorf("rewrite = %q", got)
	}
}

func TestTransform_RootPageLinksHaveNoUpLevels(t *testing.T) {
	tr := NewTransformer(testTable())
	out, err := tr.Transform("[[Session 1]]", "index.html")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.HTML, `href="1_SessionNotes/Session%201.html"`) {
		t.Errorf("html = %q", out.HTML)
	}
}

func TestTransform_HeadingIDsMatchFragments(t *testing.T) {
	tr := NewTransformer(testTable())
	out, err := tr.Transform("# Blue Water Inn\n\n## Loot!\n\n## Loot!\n", "2_Locations/Vallaki/Vallaki.html")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`id="blue-water-inn"`, `id="loot"`, `id="loot-1"`} {
		if !strings.Contains(out.HTML, want) {
			t.Errorf("html %q missing %q", out.HTML, want)
		}
	}
}

func TestTransform_RawHTMLPassesThrough(t *testing.T) {
	tr := NewTransformer(testTable())
	out, err := tr.Transform(`<div class="statblock">AC 16</div>`, "x.html")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.HTML, `<div class="statblock">AC 16</div>`) {
		t.Errorf("html = %q", out.HTML)
	}
}

func TestEncodeLinkPath(t *testing.T) {
	cases := map[string]string{
		"../3_Characters/Strahd von Zarovich.html": "../3_Characters/Strahd%20von%20Zarovich.html",
		"2_Locations/Old Town/Inn.html#the bar":    "2_Locations/Old Town/Inn.html#the bar",
		"plain.html":                               "plain.html",

		// sub-delimiters stay literal; they are valid inside a path segment
		"4_Items/Tom & Jerry: A+B=C@x.html": "4_Items/Tom%20&%20Jerry:%20A+B=C@x.html",
		"4_Items/Who? Me.html":              "4_Items/Who%3F%20Me.html",
	}
	for in, want := range cases {
		if got := EncodeLinkPath(in); got != want {
			t.Errorf("EncodeLinkPath(%q) = %q, want %q", in, got, want)
		}
	}
}
