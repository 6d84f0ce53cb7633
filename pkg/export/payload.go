// Package export writes a taxonomy in the formats other tools consume: the
// nested collections payload the listing service serves, a flat record list
// with paths, JSON Lines, a per-rank statistics report and a rendered outline.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/loader"
	"github.com/vanderheijden86/taxa/pkg/model"
)

// Format is an export output format.
type Format string

const (
	FormatCollections Format = "json"
	FormatFlat        Format = "flat"
	FormatJSONL       Format = "jsonl"
	FormatStats       Format = "stats"
	FormatSVG         Format = "svg"
	FormatPNG         Format = "png"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatCollections, FormatFlat, FormatJSONL, FormatStats, FormatSVG, FormatPNG}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(s, ".")))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// CollectionsPayload converts t into the nested payload. Nodes without a
// remote id are numbered in preorder from 1, matching the store.
func CollectionsPayload(t *hierarchy.Tree) []model.CollectionNode {
	next := int64(0)
	var convert func(n *hierarchy.Node) model.CollectionNode
	convert = func(n *hierarchy.Node) model.CollectionNode {
		next++
		id := n.CollectionID
		if id == 0 {
			id = next
		}
		count := n.Count
		c := model.CollectionNode{ID: id, Name: n.Name, NameZh: n.NameZh, Level: n.Rank, Count: &count}
		for _, child := range n.Children {
			c.Children = append(c.Children, convert(child))
		}
		return c
	}
	out := make([]model.CollectionNode, 0, len(t.Roots))
	for _, r := range t.Roots {
		out = append(out, convert(r))
	}
	return out
}

// FlatEntry is one record with its path, as written by WriteFlat.
type FlatEntry struct {
	ID             string            `json:"id"`
	ScientificName string            `json:"name"`
	CommonName     string            `json:"name_zh,omitempty"`
	OtherNames     []string          `json:"name_zh_other,omitempty"`
	Status         model.Status      `json:"status_id,omitempty"`
	StatusLabel    string            `json:"status,omitempty"`
	Path           []model.RankValue `json:"path"`
	PathIDs        []string          `json:"path_ids"`
}

// Flat lists the records of t with their rank paths.
func Flat(t *hierarchy.Tree) []FlatEntry {
	flat := t.Flatten()
	out := make([]FlatEntry, 0, len(flat))
	for _, f := range flat {
		r := f.Record
		entry := FlatEntry{
			ID:             r.ID,
			ScientificName: r.ScientificName,
			CommonName:     r.CommonName,
			OtherNames:     r.OtherCommonNames,
			Status:         r.Status,
			PathIDs:        f.PathIDs,
		}
		if r.Status.Known() {
			entry.StatusLabel = r.Status.LabelEn()
		}
		for _, id := range f.PathIDs {
			n := t.Find(id)
			entry.Path = append(entry.Path, model.RankValue{Name: n.Name, NameZh: n.NameZh})
		}
		out = append(out, entry)
	}
	return out
}

// Write renders t to w in one of the text formats. SVG and PNG go through
// SaveOutline instead.
func Write(w io.Writer, t *hierarchy.Tree, format Format) error {
	switch format {
	case FormatCollections:
		return encode(w, CollectionsPayload(t))
	case FormatFlat:
		return encode(w, Flat(t))
	case FormatJSONL:
		var records []model.ClassifiedRecord
		for _, f := range t.Flatten() {
			records = append(records, f.Record)
		}
		return loader.WriteJSONL(w, records)
	case FormatStats:
		return encode(w, BuildReport(t))
	case FormatSVG:
		return RenderOutlineSVG(w, BuildOutline(t, OutlineOptions{}))
	}
	return fmt.Errorf("format %q cannot be written as text", format)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}
