// Package mapview renders the interactive Leaflet map page from the data file
// kept by the vault's Leaflet plugin.
package mapview

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"

	"github.com/starford/grimoire/internal/links"
	"github.com/starford/grimoire/internal/markdown"
	"github.com/starford/grimoire/internal/models"
)

// Fixed bodies for pages whose map cannot be built.
const (
	MsgDataNotFound = "<p>Map data not found.</p>"
	MsgMapNotFound  = "<p>Leaflet map data not found.</p>"
)

//go:embed templates/map.html
var templatesFS embed.FS

var viewTmpl = template.Must(template.ParseFS(templatesFS, "templates/map.html"))

// Config locates the plugin data and describes the background image.
type Config struct {
	DataPath string // absolute path of the plugin data.json
	MapID    string
	Image    string // file name inside the site images folder
	Width    int
	Height   int
}

type pluginData struct {
	MapMarkers    []mapMarkers `json:"mapMarkers"`
	MarkerIcons   []markerIcon `json:"markerIcons"`
	DefaultMarker markerIcon   `json:"defaultMarker"`
}

type mapMarkers struct {
	ID      string         `json:"id"`
	Markers []sourceMarker `json:"markers"`
}

type sourceMarker struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Percent     []float64 `json:"percent"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Tooltip     string    `json:"tooltip"`
}

type markerIcon struct {
	Type      string `json:"type"`
	IconName  string `json:"iconName"`
	Color     string `json:"color"`
	Transform struct {
		Size float64 `json:"size"`
	} `json:"transform"`
}

// Icon is the client-side description of one marker type.
type Icon struct {
	IconName string  `json:"iconName"`
	Color    string  `json:"color"`
	Size     float64 `json:"size"`
}

// Marker is a marker placed in image pixel space. Loc is [y, x], the order
// Leaflet's simple CRS expects.
type Marker struct {
	ID               string     `json:"id"`
	Type             string     `json:"type"`
	Loc              [2]float64 `json:"loc"`
	Link             string     `json:"link,omitempty"`
	ResolvedLinkPath string     `json:"resolvedLinkPath,omitempty"`
	Description      string     `json:"description,omitempty"`
	Tooltip          string     `json:"tooltip,omitempty"`
}

type view struct {
	ImageURL string
	Width    int
	Height   int
	Icons    map[string]Icon
	Markers  []Marker
}

// Render builds the map HTML for the page at relPath. A missing data file or
// map id yields the matching fixed message rather than an error; only a
// malformed data file fails.
func Render(cfg Config, relPath string, table *links.Table, logger *slog.Logger) (string, error) {
	raw, err := os.ReadFile(cfg.DataPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("map: data file not found", slog.String("path", cfg.DataPath))
		return MsgDataNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("mapview: read data: %w", err)
	}

	var data pluginData
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("mapview: decode data: %w", err)
	}

	var selected *mapMarkers
	for i := range data.MapMarkers {
		if data.MapMarkers[i].ID == cfg.MapID {
			selected = &data.MapMarkers[i]
			break
		}
	}
	if selected == nil {
		logger.Warn("map: map id not found", slog.String("id", cfg.MapID))
		return MsgMapNotFound, nil
	}

	up := models.UpLevels(models.Depth(relPath))
	v := view{
		ImageURL: up + markdown.ImagesDir + "/" + cfg.Image,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Icons:    Icons(data.MarkerIcons, data.DefaultMarker),
		Markers:  make([]Marker, 0, len(selected.Markers)),
	}

	for _, m := range selected.Markers {
		if len(m.Percent) < 2 {
			logger.Warn("map: marker missing percent coordinates, skipping",
				slog.String("id", m.ID),
				slog.String("link", m.Link),
				slog.String("hint", "move the marker slightly in the vault to record its percent coordinates"))
			continue
		}
		out := Marker{
			ID:          m.ID,
			Type:        m.Type,
			Loc:         PixelLoc(m.Percent[0], m.Percent[1], cfg.Width, cfg.Height),
			Link:        m.Link,
			Description: m.Description,
			Tooltip:     m.Tooltip,
		}
		if m.Link != "" {
			out.ResolvedLinkPath = markdown.EncodeLinkPath(up + table.Resolve(m.Link))
		}
		v.Markers = append(v.Markers, out)
	}

	var buf bytes.Buffer
	if err := viewTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("mapview: execute template: %w", err)
	}
	return buf.String(), nil
}

// PixelLoc converts plugin percent coordinates into a Leaflet [y, x] pair.
// The plugin measures y from the bottom edge, so it is flipped.
func PixelLoc(px, py float64, width, height int) [2]float64 {
	x := px * float64(width)
	y := (1 - py) * float64(height)
	return [2]float64{y, x}
}

// Icons indexes the plugin's marker icons by type and adds the default icon
// under "default".
func Icons(icons []markerIcon, def markerIcon) map[string]Icon {
	out := make(map[string]Icon, len(icons)+1)
	for _, ic := range icons {
		out[ic.Type] = Icon{IconName: ic.IconName, Color: ic.Color, Size: ic.Transform.Size}
	}
	out["default"] = Icon{IconName: def.IconName, Color: def.Color, Size: def.Transform.Size}
	return out
}
