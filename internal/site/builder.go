// Package site generates the static site from a vault: it walks the
// configured folders, renders every note and folder index, and writes the
// homepage, assets, search index and optional catalog.
package site

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/starford/grimoire/internal/assets"
	"github.com/starford/grimoire/internal/catalog"
	"github.com/starford/grimoire/internal/links"
	"github.com/starford/grimoire/internal/mapview"
	"github.com/starford/grimoire/internal/markdown"
	"github.com/starford/grimoire/internal/render"
	"github.com/starford/grimoire/internal/search"
	"github.com/starford/grimoire/internal/storage"
)

// DefaultCategory labels notes outside any categorized folder.
const DefaultCategory = "Other"

// SearchIndexFile is the site-root name of the serialized search index.
const SearchIndexFile = "search-index.json"

// Config is everything a build needs to know about the vault and the site.
type Config struct {
	VaultPath    string
	ImagesFolder string
	AssetsDir    string
	SiteTitle    string
	LiveReload   bool
	Sections     []render.Section  // configured top-level folders, in order
	Categories   map[string]string // folder → search category
	Map          MapConfig
}

// MapConfig selects the note rendered as the interactive map.
type MapConfig struct {
	Note        string // base name of the map note; empty disables the map
	Title       string
	Description string
	View        mapview.Config
}

// Result summarizes a finished build.
type Result struct {
	Pages    int
	Records  []search.Record
	Duration time.Duration
}

// Builder runs builds. A Builder is not safe for concurrent Build calls.
type Builder struct {
	cfg     Config
	out     storage.Provider
	catalog catalog.Store // nil disables the catalog
	logger  *slog.Logger
}

// New returns a Builder writing into out. cat may be nil.
func New(cfg Config, out storage.Provider, cat catalog.Store, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{cfg: cfg, out: out, catalog: cat, logger: logger}
}

// buildRun carries the per-build state shared by the walk.
type buildRun struct {
	table       *links.Table
	transformer *markdown.Transformer
	renderer    *render.Renderer
	content     map[string]bool
	pages       int
}

// Build regenerates the whole site. ctx is checked between files so a
// shutdown can abandon a build midway.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	b.logger.Info("build: starting", slog.String("vault", b.cfg.VaultPath))

	if err := b.out.Reset(); err != nil {
		return nil, fmt.Errorf("site: reset output: %w", err)
	}

	folders := b.folderNames()
	table, err := links.BuildTable(b.cfg.VaultPath, folders, b.logger)
	if err != nil {
		return nil, fmt.Errorf("site: build link table: %w", err)
	}
	b.logger.Info("build: link table ready", slog.Int("keys", table.Len()))

	n, err := b.out.CopyDir(filepath.Join(b.cfg.VaultPath, b.cfg.ImagesFolder), markdown.ImagesDir)
	if err != nil {
		return nil, fmt.Errorf("site: copy images: %w", err)
	}
	b.logger.Info("build: copied images", slog.Int("count", n))

	content := ContentFlags(b.cfg.VaultPath, folders)
	run := &buildRun{
		table:       table,
		transformer: markdown.NewTransformer(table),
		renderer: render.New(render.Options{
			SiteTitle:  b.cfg.SiteTitle,
			Sections:   b.cfg.Sections,
			Content:    content,
			LiveReload: b.cfg.LiveReload,
		}),
		content: content,
	}

	var all harvest
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h, err := b.walkFolder(ctx, run, folder)
		if err != nil {
			return nil, err
		}
		all.merge(h)
	}

	home, err := run.renderer.Home()
	if err != nil {
		return nil, fmt.Errorf("site: render home: %w", err)
	}
	if err := b.out.Write("index.html", home); err != nil {
		return nil, fmt.Errorf("site: write home: %w", err)
	}

	if n, err := assets.Install(b.out, b.cfg.AssetsDir, markdown.ImagesDir); err != nil {
		return nil, fmt.Errorf("site: %w", err)
	} else if n > 0 {
		b.logger.Info("build: copied asset images", slog.Int("count", n))
	}

	var buf bytes.Buffer
	if err := search.Encode(&buf, all.records); err != nil {
		return nil, fmt.Errorf("site: %w", err)
	}
	if err := b.out.Write(SearchIndexFile, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("site: write search index: %w", err)
	}
	b.logger.Info("build: generated search index", slog.Int("items", len(all.records)))

	if b.catalog != nil {
		if err := b.catalog.ReplaceAll(all.entries); err != nil {
			return nil, fmt.Errorf("site: %w", err)
		}
		b.logger.Info("build: catalog updated", slog.Int("notes", len(all.entries)))
	}

	res := &Result{Pages: run.pages, Records: all.records, Duration: time.Since(start)}
	b.logger.Info("build: complete",
		slog.Int("pages", res.Pages),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func (b *Builder) folderNames() []string {
	out := make([]string, len(b.cfg.Sections))
	for i, s := range b.cfg.Sections {
		out[i] = s.Folder
	}
	return out
}
