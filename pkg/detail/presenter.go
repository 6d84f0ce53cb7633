// Package detail renders a single listing record for the detail pane.
package detail

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/taxa/pkg/listing"
	"github.com/vanderheijden86/taxa/pkg/model"
)

// clipboardWrite is swapped out in tests.
var clipboardWrite = clipboard.WriteAll

// Presenter turns a RecordSummary into terminal-rendered markdown.
type Presenter struct {
	width    int
	style    string
	renderer *glamour.TermRenderer
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithStyle forces a glamour style ("dark", "light", "notty") instead of
// detecting one from the terminal.
func WithStyle(style string) Option {
	return func(p *Presenter) { p.style = style }
}

// New returns a presenter wrapping text at width columns.
func New(width int, opts ...Option) (*Presenter, error) {
	p := &Presenter{}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.SetWidth(width); err != nil {
		return nil, err
	}
	return p, nil
}

// SetWidth rebuilds the renderer for a new pane width.
func (p *Presenter) SetWidth(width int) error {
	if width < 20 {
		width = 20
	}
	if width == p.width && p.renderer != nil {
		return nil
	}
	styleOpt := glamour.WithAutoStyle()
	if p.style != "" {
		styleOpt = glamour.WithStandardStyle(p.style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	p.width = width
	p.renderer = r
	return nil
}

// Markdown builds the detail document for rec.
func Markdown(rec model.RecordSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# *%s*\n\n", rec.ScientificName)
	if rec.CommonName != "" {
		fmt.Fprintf(&b, "**%s**\n\n", rec.CommonName)
	}
	if rec.OtherNames != "" {
		fmt.Fprintf(&b, "Other common names: %s\n\n", rec.OtherNames)
	}
	if rec.Status != model.StatusUnknown {
		label := rec.Status.Label()
		if en := rec.Status.LabelEn(); en != label {
			label += " / " + en
		}
		fmt.Fprintf(&b, "Status: `%s` %s\n\n", rec.Status.Badge(), label)
	}
	if len(rec.Path) > 0 {
		b.WriteString("## Classification\n\n")
		for i, rv := range rec.Path {
			name := rv.Name
			if rv.NameZh != "" {
				name += " (" + rv.NameZh + ")"
			}
			fmt.Fprintf(&b, "%s- %s\n", strings.Repeat("  ", i), name)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "---\nid `%s`\n", rec.ID)
	return b.String()
}

// Render renders rec as styled terminal text.
func (p *Presenter) Render(rec model.RecordSummary) (string, error) {
	out, err := p.renderer.Render(Markdown(rec))
	if err != nil {
		return "", fmt.Errorf("rendering record %s: %w", rec.ID, err)
	}
	return out, nil
}

// Resolve finds id on the gateway's current page, then enriches it with
// the taxonomy path when the source can fetch single records. A failed
// enrichment falls back to the page row.
func Resolve(ctx context.Context, g *listing.Gateway, id string) (model.RecordSummary, error) {
	rec, ok := g.Lookup(id)
	if !ok {
		return model.RecordSummary{}, fmt.Errorf("%s: %w", id, listing.ErrNotFound)
	}
	getter, ok := g.Source().(listing.ItemGetter)
	if !ok || len(rec.Path) > 0 {
		return rec, nil
	}
	full, err := getter.Item(ctx, id)
	if err != nil {
		return rec, nil
	}
	return full, nil
}

// CopyName places the scientific name on the system clipboard.
func CopyName(rec model.RecordSummary) error {
	if rec.ScientificName == "" {
		return fmt.Errorf("record %s has no name to copy", rec.ID)
	}
	if err := clipboardWrite(rec.ScientificName); err != nil {
		return fmt.Errorf("copying to clipboard: %w", err)
	}
	return nil
}
