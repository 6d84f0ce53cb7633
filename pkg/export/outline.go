package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/taxa/pkg/hierarchy"
)

// OutlineOptions controls outline rendering.
type OutlineOptions struct {
	Path   string // output path; format inferred from extension when Format empty
	Format Format
	Title  string
	// MaxDepth stops the outline below this many levels. Zero draws all.
	MaxDepth int
}

type outlineNode struct {
	Name   string
	Rank   string
	Level  int
	Count  int
	X, Y   float64
	W, H   float64
	Parent int // index into Nodes, -1 for roots
}

// Outline is a laid-out tree ready for rendering.
type Outline struct {
	Title  string
	Nodes  []outlineNode
	Width  int
	Height int
	Header float64
	Total  int
}

const (
	outlineMargin = 24.0
	outlineIndent = 36.0
	outlineRowH   = 30.0
	outlineNodeH  = 24.0
	outlineNodeW  = 320.0
	outlineHeader = 72.0
)

var (
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}

	// One fill per level, cycling for deep trees.
	levelColors = []color.RGBA{
		{0xc8, 0xe6, 0xc9, 0xff},
		{0xbb, 0xde, 0xfb, 0xff},
		{0xff, 0xf3, 0xe0, 0xff},
		{0xf8, 0xbb, 0xd0, 0xff},
		{0xd1, 0xc4, 0xe9, 0xff},
		{0xcf, 0xd8, 0xdc, 0xff},
	}
)

func levelColor(level int) color.RGBA {
	return levelColors[level%len(levelColors)]
}

// BuildOutline lays t out as an indented list of boxes, one row per node in
// preorder.
func BuildOutline(t *hierarchy.Tree, opts OutlineOptions) Outline {
	o := Outline{Title: opts.Title, Header: outlineHeader, Total: t.Total()}
	if o.Title == "" {
		o.Title = "Taxonomy outline"
	}
	index := make(map[*hierarchy.Node]int)
	maxLevel := 0
	t.Walk(func(n *hierarchy.Node) bool {
		if opts.MaxDepth > 0 && n.Level >= opts.MaxDepth {
			return false
		}
		parent := -1
		if n.Parent != nil {
			parent = index[n.Parent]
		}
		row := len(o.Nodes)
		index[n] = row
		o.Nodes = append(o.Nodes, outlineNode{
			Name:   n.DisplayLabel(),
			Rank:   n.Rank,
			Level:  n.Level,
			Count:  n.Count,
			X:      outlineMargin + float64(n.Level)*outlineIndent,
			Y:      outlineHeader + outlineMargin + float64(row)*outlineRowH,
			W:      outlineNodeW,
			H:      outlineNodeH,
			Parent: parent,
		})
		maxLevel = max(maxLevel, n.Level)
		return true
	})
	o.Width = int(2*outlineMargin + float64(maxLevel)*outlineIndent + outlineNodeW)
	o.Width = max(o.Width, 480)
	o.Height = int(outlineHeader + 2*outlineMargin + float64(len(o.Nodes))*outlineRowH)
	return o
}

// SaveOutline renders t to opts.Path as SVG or PNG.
func SaveOutline(t *hierarchy.Tree, opts OutlineOptions) error {
	if t.Len() == 0 {
		return fmt.Errorf("no taxa to export")
	}
	format := opts.Format
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = FormatPNG
		default:
			format = FormatSVG
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path += ".svg"
			}
		}
	}
	if format != FormatSVG && format != FormatPNG {
		return fmt.Errorf("unsupported outline format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	outline := BuildOutline(t, opts)
	if format == FormatPNG {
		return renderOutlinePNG(opts.Path, outline)
	}
	f, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return RenderOutlineSVG(f, outline)
}

// RenderOutlineSVG writes o as an SVG document.
func RenderOutlineSVG(w io.Writer, o Outline) error {
	canvas := svg.New(w)
	canvas.Start(o.Width, o.Height)
	canvas.Rect(0, 0, o.Width, o.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, o.Width-32, int(o.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(32, 42, o.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 60, fmt.Sprintf("taxa: %d  records: %d", len(o.Nodes), o.Total),
		fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))

	edge := fmt.Sprintf("stroke:%s;stroke-width:1.5;fill:none", css(colorEdge))
	for _, n := range o.Nodes {
		if n.Parent < 0 {
			continue
		}
		p := o.Nodes[n.Parent]
		x := int(p.X + outlineIndent/2)
		canvas.Polyline(
			[]int{x, x, int(n.X)},
			[]int{int(p.Y + p.H), int(n.Y + n.H/2), int(n.Y + n.H/2)},
			edge,
		)
	}

	for _, n := range o.Nodes {
		x, y := int(n.X), int(n.Y)
		canvas.Roundrect(x, y, int(n.W), int(n.H), 6, 6,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(levelColor(n.Level)), css(colorStroke)))
		canvas.Text(x+8, y+16, truncate(n.Name, 34), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorText)))
		canvas.Text(x+int(n.W)-8, y+16, fmt.Sprintf("%s %d", n.Rank, n.Count),
			fmt.Sprintf("fill:%s;font-size:10px;font-family:monospace;text-anchor:end", css(colorSubtle)))
	}
	canvas.End()
	return nil
}

func renderOutlinePNG(path string, o Outline) error {
	dc := gg.NewContext(o.Width, o.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(o.Width)-32, o.Header-24, 10)
	dc.Fill()
	dc.SetColor(colorText)
	dc.DrawStringAnchored(o.Title, 32, 38, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("taxa: %d  records: %d", len(o.Nodes), o.Total), 32, 56, 0, 0.5)

	dc.SetColor(colorEdge)
	dc.SetLineWidth(1.5)
	for _, n := range o.Nodes {
		if n.Parent < 0 {
			continue
		}
		p := o.Nodes[n.Parent]
		x := p.X + outlineIndent/2
		dc.MoveTo(x, p.Y+p.H)
		dc.LineTo(x, n.Y+n.H/2)
		dc.LineTo(n.X, n.Y+n.H/2)
		dc.Stroke()
	}

	for _, n := range o.Nodes {
		dc.SetColor(levelColor(n.Level))
		dc.DrawRoundedRectangle(n.X, n.Y, n.W, n.H, 6)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1)
		dc.DrawRoundedRectangle(n.X, n.Y, n.W, n.H, 6)
		dc.Stroke()

		dc.SetColor(colorText)
		dc.DrawStringAnchored(truncate(n.Name, 34), n.X+8, n.Y+n.H/2, 0, 0.5)
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(fmt.Sprintf("%s %d", n.Rank, n.Count), n.X+n.W-8, n.Y+n.H/2, 1, 0.5)
	}
	return dc.SavePNG(path)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
