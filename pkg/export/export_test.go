package export

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/loader"
	"github.com/vanderheijden86/taxa/pkg/model"
)

func record(id, name string, status model.Status, ranks ...string) model.ClassifiedRecord {
	r := model.ClassifiedRecord{ID: id, ScientificName: name, Status: status}
	for _, rank := range ranks {
		r.Ranks = append(r.Ranks, model.RankValue{Name: rank, NameZh: rank + "_zh"})
	}
	return r
}

func sampleTree(t *testing.T) *hierarchy.Tree {
	t.Helper()
	tree, warnings := hierarchy.Build([]model.ClassifiedRecord{
		record("1", "Canis lupus", model.StatusCurrent, "Animalia", "Chordata", "Mammalia", "Carnivora", "Canidae", "Caninae"),
		record("2", "Felis catus", model.StatusJuniorSynonym, "Animalia", "Chordata", "Mammalia", "Carnivora", "Felidae", "Felinae"),
		record("3", "Vulpes vulpes", model.StatusCurrent, "Animalia", "Chordata", "Mammalia", "Carnivora", "Canidae", "Caninae"),
	})
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	return tree
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatCollections, false},
		{".SVG", FormatSVG, false},
		{"flat", FormatFlat, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestCollectionsPayloadPreorderIDs(t *testing.T) {
	payload := CollectionsPayload(sampleTree(t))
	if len(payload) != 1 {
		t.Fatalf("expected 1 root, got %d", len(payload))
	}
	root := payload[0]
	if root.ID != 1 || *root.Count != 3 || root.Level != model.RankKingdom {
		t.Errorf("unexpected root %+v", root)
	}
	order := root.Children[0].Children[0].Children[0]
	if order.ID != 4 {
		t.Errorf("expected Carnivora id 4, got %d", order.ID)
	}
	canidae, felidae := order.Children[0], order.Children[1]
	if canidae.ID != 5 || felidae.ID != 7 {
		t.Errorf("expected family ids 5 and 7, got %d and %d", canidae.ID, felidae.ID)
	}

	// The payload rebuilds into an equivalent tree.
	rebuilt := hierarchy.FromCollections(payload)
	if rebuilt.Total() != 3 || rebuilt.Len() != 8 {
		t.Errorf("expected 8 nodes and 3 records, got %d and %d", rebuilt.Len(), rebuilt.Total())
	}
}

func TestFlat(t *testing.T) {
	flat := Flat(sampleTree(t))
	if len(flat) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(flat))
	}
	// Records are grouped by leaf, leaves in tree order.
	if flat[0].ID != "1" || flat[1].ID != "3" || flat[2].ID != "2" {
		t.Errorf("unexpected order %s %s %s", flat[0].ID, flat[1].ID, flat[2].ID)
	}
	if len(flat[2].Path) != 6 || flat[2].Path[4].Name != "Felidae" || flat[2].Path[4].NameZh != "Felidae_zh" {
		t.Errorf("unexpected path %+v", flat[2].Path)
	}
	if flat[2].StatusLabel == "" {
		t.Error("expected a status label for a known status")
	}
}

func TestWriteJSONFormats(t *testing.T) {
	tree := sampleTree(t)
	for _, f := range []Format{FormatCollections, FormatFlat, FormatStats} {
		var buf bytes.Buffer
		if err := Write(&buf, tree, f); err != nil {
			t.Fatalf("Write(%s) failed: %v", f, err)
		}
		var v any
		if err := json.Unmarshal(buf.Bytes(), &v); err != nil {
			t.Errorf("Write(%s) produced invalid JSON: %v", f, err)
		}
	}
}

func TestWriteJSONLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleTree(t), FormatJSONL); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	records, err := loader.ParseJSONL(&buf, loader.ParseOptions{})
	if err != nil {
		t.Fatalf("ParseJSONL failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[2].Rank(4).Name != "Felidae" {
		t.Errorf("expected Felidae, got %q", records[2].Rank(4).Name)
	}
}

func TestWritePNGRejected(t *testing.T) {
	if err := Write(&bytes.Buffer{}, sampleTree(t), FormatPNG); err == nil {
		t.Error("expected an error writing png as text")
	}
}

func TestBuildReport(t *testing.T) {
	r := BuildReport(sampleTree(t))
	if r.TotalRecords != 3 || r.TotalNodes != 8 {
		t.Errorf("expected 3 records and 8 nodes, got %d and %d", r.TotalRecords, r.TotalNodes)
	}
	if len(r.Ranks) != 6 {
		t.Fatalf("expected 6 ranks, got %d", len(r.Ranks))
	}
	order := r.Ranks[3]
	if order.Rank != model.RankOrder || order.Nodes != 1 || order.Branching != 2 {
		t.Errorf("unexpected order report %+v", order)
	}
	family := r.Ranks[4]
	if family.Largest != "Canidae" || family.LargestCount != 2 {
		t.Errorf("expected Canidae as largest family, got %s (%d)", family.Largest, family.LargestCount)
	}
	if family.MedianRecords != 1 {
		t.Errorf("expected median 1, got %v", family.MedianRecords)
	}
	leaves := r.Ranks[5]
	if leaves.Branching != 0 || leaves.BranchingStdDev != 0 {
		t.Errorf("expected no branching at the last level, got %+v", leaves)
	}
}

func TestOutlineSVG(t *testing.T) {
	var buf bytes.Buffer
	outline := BuildOutline(sampleTree(t), OutlineOptions{Title: "Carnivores"})
	if len(outline.Nodes) != 8 {
		t.Fatalf("expected 8 rows, got %d", len(outline.Nodes))
	}
	if err := RenderOutlineSVG(&buf, outline); err != nil {
		t.Fatalf("RenderOutlineSVG failed: %v", err)
	}
	var doc any
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("SVG is not valid XML: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"<svg", "Carnivores", "Canidae (Canidae_zh)", "<polyline"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected SVG to contain %q", want)
		}
	}
	if got := strings.Count(out, "<polyline"); got != 7 {
		t.Errorf("expected 7 connectors, got %d", got)
	}
}

func TestOutlineMaxDepth(t *testing.T) {
	outline := BuildOutline(sampleTree(t), OutlineOptions{MaxDepth: 2})
	if len(outline.Nodes) != 2 {
		t.Errorf("expected 2 rows, got %d", len(outline.Nodes))
	}
}

func TestSaveOutlineFiles(t *testing.T) {
	dir := t.TempDir()
	tree := sampleTree(t)

	svgPath := filepath.Join(dir, "out", "tree")
	if err := SaveOutline(tree, OutlineOptions{Path: svgPath}); err != nil {
		t.Fatalf("SaveOutline svg failed: %v", err)
	}
	if _, err := os.Stat(svgPath + ".svg"); err != nil {
		t.Errorf("expected .svg to be appended: %v", err)
	}

	pngPath := filepath.Join(dir, "tree.png")
	if err := SaveOutline(tree, OutlineOptions{Path: pngPath}); err != nil {
		t.Fatalf("SaveOutline png failed: %v", err)
	}
	data, err := os.ReadFile(pngPath)
	if err != nil {
		t.Fatalf("read png: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("expected a PNG signature")
	}

	if err := SaveOutline(tree, OutlineOptions{Path: filepath.Join(dir, "x"), Format: FormatJSONL}); err == nil {
		t.Error("expected an error for a non-image format")
	}
}
