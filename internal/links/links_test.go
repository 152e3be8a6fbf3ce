package links

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeNote(t *testing.T, root, rel string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("# note"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildTable_ResolvesIndexedNotes(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "3_Characters/Strahd von Zarovich.md")
	writeNote(t, root, "2_Locations/Barovia/Blue Water Inn.md")
	writeNote(t, root, "_images/not-a-note.md")

	table, err := BuildTable(root, []string{"2_Locations", "3_Characters", "9_Missing"}, nil)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	cases := map[string]string{
		"Strahd von Zarovich":    "3_Characters/Strahd von Zarovich.html",
		"strahd von zarovich":    "3_Characters/Strahd von Zarovich.html",
		"strahd-von-zarovich":    "3_Characters/Strahd von Zarovich.html",
		"Blue Water Inn":         "2_Locations/Barovia/Blue Water Inn.html",
		"Blue Water Inn#Rooms":   "2_Locations/Barovia/Blue Water Inn.html#rooms",
		"BLUE WATER INN#The Bar": "2_Locations/Barovia/Blue Water Inn.html#the-bar",
	}
	for in, want := range cases {
		if got := table.Resolve(in); got != want {
			t.Errorf("Resolve(%q) = %q, want %q", in, got, want)
		}
	}
	if _, ok := table.Lookup("not-a-note"); ok {
		t.Error("notes outside configured folders must not be indexed")
	}
}

func TestBuildTable_SkipsHiddenEntries(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "3_Characters/Ismark.md")
	writeNote(t, root, "3_Characters/.drafts/Ireena.md")
	writeNote(t, root, "3_Characters/.scratch.md")
	writeNote(t, root, "4_Items/.trash/Ismark.md")

	table, err := BuildTable(root, []string{"3_Characters", "4_Items"}, nil)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	for _, name := range []string{"Ireena", ".scratch"} {
		if p, ok := table.Lookup(name); ok {
			t.Errorf("Lookup(%q) = %q, want miss", name, p)
		}
	}
	if got := table.Resolve("Ismark"); got != "3_Characters/Ismark.html" {
		t.Errorf("Resolve(Ismark) = %q, want the visible note", got)
	}
}

func TestResolve_FallbackSlug(t *testing.T) {
	table := NewTable()
	cases := map[string]string{
		"Madam Eva":          "madam-eva.html",
		"Old  Bonegrinder":   "old-bonegrinder.html",
		"Tser Pool#Fortune!": "tser-pool.html#fortune",
		"Amber Temple#":      "amber-temple.html",
	}
	for in, want := range cases {
		if got := table.Resolve(in); got != want {
			t.Errorf("Resolve(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"The Blue Water Inn":        "the-blue-water-inn",
		"  Session 1: Death House ": "session-1-death-house",
		"a -- b":                    "a-b",
		"--Edge--":                  "edge",
		"Ünïcode & Friends":         "ncode-friends",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	inputs := []string{"Hello World", "Session 10 — Argynvostholt", "x_y z", "--a--b--", "", "?!"}
	for _, in := range inputs {
		once := Slugify(in)
		if twice := Slugify(once); twice != once {
			t.Errorf("Slugify not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestAdd_CollisionLaterWinsAndWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	table := NewTable()
	table.Add("Ireena", "3_Characters/Ireena.html", logger)
	table.Add("ireena", "8_Custom/ireena.html", logger)

	if got := table.Resolve("Ireena"); got != "3_Characters/Ireena.html" {
		t.Errorf("exact key should still hit first note, got %q", got)
	}
	if got := table.Resolve("ireena"); got != "8_Custom/ireena.html" {
		t.Errorf("colliding key should map to later note, got %q", got)
	}
	if !strings.Contains(buf.String(), "links: name collision") {
		t.Errorf("expected collision warning, log = %s", buf.String())
	}
}

func TestAdd_SameNoteNoWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	table := NewTable()
	table.Add("strahd", "3_Characters/strahd.html", logger)
	if buf.Len() != 0 {
		t.Errorf("unexpected warning: %s", buf.String())
	}
	if table.Len() != 1 {
		t.Errorf("Len = %d, want 1", table.Len())
	}
}
