package site

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/grimoire/internal/catalog"
	"github.com/starford/grimoire/internal/links"
	"github.com/starford/grimoire/internal/mapview"
	"github.com/starford/grimoire/internal/models"
	"github.com/starford/grimoire/internal/parser"
	"github.com/starford/grimoire/internal/render"
	"github.com/starford/grimoire/internal/search"
)

// harvest is what a walk returns: the search records and catalog entries of
// every page it wrote.
type harvest struct {
	records []search.Record
	entries []catalog.Entry
}

func (h *harvest) merge(o harvest) {
	h.records = append(h.records, o.records...)
	h.entries = append(h.entries, o.entries...)
}

// walkFolder processes one configured top-level folder.
func (b *Builder) walkFolder(ctx context.Context, run *buildRun, folder string) (harvest, error) {
	src := filepath.Join(b.cfg.VaultPath, folder)
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		b.logger.Warn("build: source folder does not exist", slog.String("folder", folder))
		return harvest{}, nil
	}
	if !run.content[folder] {
		b.logger.Info("build: folder has no notes, skipping", slog.String("folder", folder))
		return harvest{}, nil
	}
	b.logger.Info("build: processing folder", slog.String("folder", folder))
	return b.walkDir(ctx, run, src, folder)
}

// walkDir renders every note below srcDir, recursing only into
// subdirectories that contain Markdown somewhere beneath them, and writes
// the directory's index page when it lists anything.
func (b *Builder) walkDir(ctx context.Context, run *buildRun, srcDir, relDir string) (harvest, error) {
	items, err := os.ReadDir(srcDir)
	if err != nil {
		return harvest{}, fmt.Errorf("site: read dir %s: %w", relDir, err)
	}

	var (
		h       harvest
		files   []string
		subdirs []string
	)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return harvest{}, err
		}
		name := item.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		srcPath := filepath.Join(srcDir, name)
		relPath := path.Join(relDir, name)

		switch {
		case item.IsDir():
			if !HasMarkdown(srcPath) {
				continue
			}
			subdirs = append(subdirs, name)
			sub, err := b.walkDir(ctx, run, srcPath, relPath)
			if err != nil {
				return harvest{}, err
			}
			h.merge(sub)

		case strings.HasSuffix(name, ".md"):
			files = append(files, name)
			rec, entry, err := b.renderNote(run, srcPath, relPath)
			if err != nil {
				return harvest{}, err
			}
			h.records = append(h.records, rec)
			h.entries = append(h.entries, entry)
		}
	}

	if len(files) == 0 && len(subdirs) == 0 {
		return h, nil
	}
	if err := b.writeFolderIndex(run, relDir, files, subdirs); err != nil {
		return harvest{}, err
	}
	return h, nil
}

// renderNote converts one note into its page and returns the page's search
// record and catalog entry.
func (b *Builder) renderNote(run *buildRun, srcPath, relPath string) (search.Record, catalog.Entry, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return search.Record{}, catalog.Entry{}, fmt.Errorf("site: read note %s: %w", relPath, err)
	}
	note := newNote(srcPath, relPath, data)
	outRel, name := note.RelPath, note.Name

	var (
		title   = name
		body    string
		content string
		targets []string
	)
	if b.cfg.Map.Note != "" && name == b.cfg.Map.Note {
		body, err = mapview.Render(b.cfg.Map.View, outRel, run.table, b.logger)
		if err != nil {
			return search.Record{}, catalog.Entry{}, fmt.Errorf("site: map %s: %w", relPath, err)
		}
		title = b.cfg.Map.Title
		content = b.cfg.Map.Description
	} else {
		rendered, err := run.transformer.Transform(note.Body, outRel)
		if err != nil {
			return search.Record{}, catalog.Entry{}, fmt.Errorf("site: %w", err)
		}
		body = rendered.HTML
		content = search.PlainText(rendered.HTML)
		targets = rendered.Links
	}

	page, err := run.renderer.Page(render.Page{
		Title:      title,
		RelPath:    outRel,
		Properties: render.Properties(note.Frontmatter),
		Body:       template.HTML(body),
	})
	if err != nil {
		return search.Record{}, catalog.Entry{}, fmt.Errorf("site: render page %s: %w", outRel, err)
	}
	if err := b.out.Write(outRel, page); err != nil {
		return search.Record{}, catalog.Entry{}, fmt.Errorf("site: write page %s: %w", outRel, err)
	}
	run.pages++
	b.logger.Debug("build: wrote page",
		slog.String("path", outRel),
		slog.Int("depth", note.Depth()))

	category := b.category(relPath)
	rec := search.NewRecord(title, outRel, category, content, note.Frontmatter)
	entry := catalog.Entry{
		Row: catalog.NoteRow{
			Path:     outRel,
			Title:    title,
			Category: category,
			Checksum: catalog.SourceChecksum(data),
			Tags:     rec.Tags,
		},
		Body:  content,
		Links: targets,
	}
	return rec, entry, nil
}

// newNote parses a note's source into its domain form.
func newNote(srcPath, relPath string, data []byte) *models.Note {
	parsed := parser.Parse(data)
	return &models.Note{
		SourcePath:  srcPath,
		RelPath:     links.OutputPath(relPath),
		Name:        strings.TrimSuffix(path.Base(relPath), ".md"),
		Frontmatter: parsed.Frontmatter,
		Body:        parsed.Body,
	}
}

func (b *Builder) writeFolderIndex(run *buildRun, relDir string, files, subdirs []string) error {
	SortListing(files)

	entries := make([]render.Entry, 0, len(subdirs)+len(files))
	for _, sub := range subdirs {
		entries = append(entries, render.Entry{
			Href:  url.PathEscape(sub) + "/index.html",
			Label: DisplayName(sub),
		})
	}
	for _, f := range files {
		base := strings.TrimSuffix(f, ".md")
		entries = append(entries, render.Entry{
			Href:  url.PathEscape(base + ".html"),
			Label: base,
		})
	}

	indexRel := path.Join(relDir, "index.html")
	page, err := run.renderer.FolderIndex(render.Folder{
		Title:   FolderTitle(path.Base(relDir)),
		RelPath: indexRel,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("site: render index %s: %w", indexRel, err)
	}
	if err := b.out.Write(indexRel, page); err != nil {
		return fmt.Errorf("site: write index %s: %w", indexRel, err)
	}
	return nil
}

// category returns the search label of the note's top-level folder.
func (b *Builder) category(relPath string) string {
	top, _, _ := strings.Cut(relPath, "/")
	if c, ok := b.cfg.Categories[top]; ok {
		return c
	}
	return DefaultCategory
}

// HasMarkdown reports whether dir contains a .md file at any depth.
func HasMarkdown(dir string) bool {
	found := false
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".md") {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// ContentFlags reports for each folder whether it exists and holds notes.
func ContentFlags(vaultPath string, folders []string) map[string]bool {
	flags := make(map[string]bool, len(folders))
	for _, f := range folders {
		flags[f] = HasMarkdown(filepath.Join(vaultPath, f))
	}
	return flags
}
