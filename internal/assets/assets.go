// Package assets bundles the site stylesheet and the client search script.
package assets

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed static/styles.css static/search.js
var static embed.FS

// Names of the bundled files at the site root.
const (
	Stylesheet   = "styles.css"
	SearchScript = "search.js"
)

// Writer receives site files.
type Writer interface {
	Write(path string, content []byte) error
	CopyDir(srcDir, dstDir string) (int, error)
}

// Install writes the bundled assets into the site root. When overrideDir is
// set, a styles.css or search.js found there replaces the bundled copy and
// its images/ folder is copied into the site images folder. It returns the
// number of override images copied.
func Install(w Writer, overrideDir, imagesDir string) (int, error) {
	for _, name := range []string{Stylesheet, SearchScript} {
		data, err := Read(name)
		if err != nil {
			return 0, err
		}
		if overrideDir != "" {
			custom, err := os.ReadFile(filepath.Join(overrideDir, name))
			switch {
			case err == nil:
				data = custom
			case !errors.Is(err, os.ErrNotExist):
				return 0, fmt.Errorf("assets: read override %s: %w", name, err)
			}
		}
		if err := w.Write(name, data); err != nil {
			return 0, fmt.Errorf("assets: write %s: %w", name, err)
		}
	}
	if overrideDir == "" {
		return 0, nil
	}
	n, err := w.CopyDir(filepath.Join(overrideDir, "images"), imagesDir)
	if err != nil {
		return n, fmt.Errorf("assets: copy images: %w", err)
	}
	return n, nil
}

// Read returns a bundled asset by name.
func Read(name string) ([]byte, error) {
	data, err := fs.ReadFile(static, "static/"+name)
	if err != nil {
		return nil, fmt.Errorf("assets: %s: %w", name, err)
	}
	return data, nil
}
