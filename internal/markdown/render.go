package markdown

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/starford/grimoire/internal/links"
)

// Renderer converts Markdown to HTML. Raw HTML in notes is passed through,
// headings get IDs from links.Slugify, and images are rendered by
// imageRenderer. A Renderer is safe for sequential reuse.
type Renderer struct {
	engine goldmark.Markdown
}

// NewRenderer builds a GFM goldmark engine with the image override.
func NewRenderer() *Renderer {
	return &Renderer{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(
				html.WithUnsafe(),
				renderer.WithNodeRenderers(util.Prioritized(&imageRenderer{}, 100)),
			),
		),
	}
}

// Render converts src to an HTML fragment.
func (r *Renderer) Render(src []byte) (string, error) {
	var buf bytes.Buffer
	ctx := parser.NewContext(parser.WithIDs(newHeadingIDs()))
	if err := r.engine.Convert(src, &buf, parser.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return buf.String(), nil
}

// headingIDs generates heading anchors with the same slug rules used for
// wiki-link fragments; repeats get a numeric suffix.
type headingIDs struct {
	seen map[string]struct{}
}

func newHeadingIDs() *headingIDs {
	return &headingIDs{seen: make(map[string]struct{})}
}

func (h *headingIDs) Generate(value []byte, kind ast.NodeKind) []byte {
	id := links.Slugify(string(value))
	if id == "" {
		id = "heading"
	}
	candidate := id
	for i := 1; ; i++ {
		if _, ok := h.seen[candidate]; !ok {
			break
		}
		candidate = id + "-" + strconv.Itoa(i)
	}
	h.seen[candidate] = struct{}{}
	return []byte(candidate)
}

func (h *headingIDs) Put(value []byte) {
	h.seen[string(value)] = struct{}{}
}

// imageRenderer emits a bare <img> whose style comes from the alt text
// ("align|size"). The alt text itself is not kept.
type imageRenderer struct{}

func (r *imageRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindImage, r.renderImage)
}

func (r *imageRenderer) renderImage(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.Image)
	_, _ = w.WriteString(`<img src="`)
	_, _ = w.Write(util.EscapeHTML(util.URLEscape(n.Destination, true)))
	_, _ = w.WriteString(`" alt=""`)
	if style := ImageStyle(plainText(n, source)); style != "" {
		_, _ = w.WriteString(` style="`)
		_, _ = w.WriteString(style)
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
	return ast.WalkSkipChildren, nil
}

// ImageStyle parses "align|size" alt text. A lone numeric token is a size, a
// lone other token an alignment; two tokens may come in either order.
// Only "left" and "center" produce alignment rules.
func ImageStyle(alt string) string {
	var parts []string
	for _, p := range strings.Split(alt, "|") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	var align, size string
	switch len(parts) {
	case 1:
		if isNumber(parts[0]) {
			size = parts[0]
		} else {
			align = parts[0]
		}
	case 2:
		switch {
		case isNumber(parts[0]) && !isNumber(parts[1]):
			size, align = parts[0], parts[1]
		case !isNumber(parts[0]) && isNumber(parts[1]):
			align, size = parts[0], parts[1]
		}
	}

	var styles []string
	switch align {
	case "left":
		styles = append(styles, "float: left", "margin: 0 1rem 1rem 0")
	case "center":
		styles = append(styles, "display: block", "margin: 1rem auto")
	}
	if size != "" {
		styles = append(styles, "max-width: "+size+"px !important")
	}
	return strings.Join(styles, "; ")
}

func isNumber(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
