// Package testutil provides deterministic checklist fixtures for tests and
// benchmarks. The same seed always yields the same records.
package testutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/vanderheijden86/taxa/pkg/loader"
	"github.com/vanderheijden86/taxa/pkg/model"
)

// GeneratorConfig controls record generation.
type GeneratorConfig struct {
	Seed     int64    // Random seed for determinism (0 = 42)
	IDPrefix string   // Prefix for record IDs (default: "t")
	Levels   []string // Rank names (default: model.DefaultRanks)
	// Branching is the number of children per interior taxon.
	Branching int
	// SpeciesPerLeaf is the number of records under each leaf taxon of a
	// balanced checklist.
	SpeciesPerLeaf int
	StatusMix      []model.Status // Status distribution (nil = all current)
	LocalNames     bool           // Generate localized names
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:           42,
		IDPrefix:       "t",
		Levels:         model.DefaultRanks,
		Branching:      2,
		SpeciesPerLeaf: 3,
		StatusMix:      []model.Status{model.StatusCurrent},
		LocalNames:     true,
	}
}

// Generator creates checklist fixtures.
type Generator struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	next int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "t"
	}
	if len(cfg.Levels) == 0 {
		cfg.Levels = model.DefaultRanks
	}
	if cfg.Branching <= 0 {
		cfg.Branching = 2
	}
	if cfg.SpeciesPerLeaf <= 0 {
		cfg.SpeciesPerLeaf = 1
	}
	if len(cfg.StatusMix) == 0 {
		cfg.StatusMix = []model.Status{model.StatusCurrent}
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Levels returns the rank names records are generated for.
func (g *Generator) Levels() []string {
	return g.cfg.Levels
}

// ============================================================================
// Checklist shapes
// ============================================================================

// Balanced returns a full tree: every interior taxon has Branching
// children and every leaf taxon SpeciesPerLeaf records. The record count is
// Branching^len(Levels) * SpeciesPerLeaf.
func (g *Generator) Balanced() []model.ClassifiedRecord {
	var out []model.ClassifiedRecord
	var walk func(level, index int, chain []model.RankValue)
	walk = func(level, index int, chain []model.RankValue) {
		if level == len(g.cfg.Levels) {
			for s := 0; s < g.cfg.SpeciesPerLeaf; s++ {
				out = append(out, g.record(chain, s))
			}
			return
		}
		for c := 0; c < g.cfg.Branching; c++ {
			child := index*g.cfg.Branching + c
			next := append(append([]model.RankValue(nil), chain...), g.taxon(level, child))
			walk(level+1, child, next)
		}
	}
	walk(0, 0, nil)
	return out
}

// Random returns n records whose rank chains pick one of Branching
// children at every level at random, so subtrees have uneven sizes.
func (g *Generator) Random(n int) []model.ClassifiedRecord {
	out := make([]model.ClassifiedRecord, 0, n)
	for i := 0; i < n; i++ {
		chain := make([]model.RankValue, len(g.cfg.Levels))
		index := 0
		for level := range g.cfg.Levels {
			index = index*g.cfg.Branching + g.rng.Intn(g.cfg.Branching)
			chain[level] = g.taxon(level, index)
		}
		out = append(out, g.record(chain, i))
	}
	return out
}

// Chain returns n records that share a single lineage.
func (g *Generator) Chain(n int) []model.ClassifiedRecord {
	chain := make([]model.RankValue, len(g.cfg.Levels))
	for level := range g.cfg.Levels {
		chain[level] = g.taxon(level, 0)
	}
	out := make([]model.ClassifiedRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.record(chain, i))
	}
	return out
}

// ============================================================================
// Naming
// ============================================================================

var syllables = []string{"ca", "lo", "mi", "ra", "te", "vu", "pe", "si", "no", "ga", "lu", "ba"}

// Latin-looking suffixes per rank position.
var rankSuffixes = []string{"ia", "ota", "ida", "ales", "idae", "inae"}

var localSyllables = []string{"山", "水", "林", "花", "石", "雲", "草", "風", "月", "海", "谷", "星"}

// stem spells index in base len(syllables) so distinct indexes never
// collide.
func stem(index int, alphabet []string) string {
	var parts []string
	for {
		parts = append(parts, alphabet[index%len(alphabet)])
		index /= len(alphabet)
		if index == 0 {
			break
		}
	}
	return strings.Join(parts, "")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (g *Generator) taxon(level, index int) model.RankValue {
	suffix := rankSuffixes[level%len(rankSuffixes)]
	rv := model.RankValue{Name: capitalize(stem(index, syllables)+"n") + suffix}
	if level >= len(rankSuffixes) {
		rv.Name += strconv.Itoa(level)
	}
	if g.cfg.LocalNames {
		rv.NameZh = stem(index, localSyllables) + "類"
	}
	return rv
}

func (g *Generator) record(chain []model.RankValue, n int) model.ClassifiedRecord {
	g.next++
	genus := capitalize(strings.TrimSuffix(strings.ToLower(chain[len(chain)-1].Name), "inae"))
	rec := model.ClassifiedRecord{
		ID:             fmt.Sprintf("%s%d", g.cfg.IDPrefix, g.next),
		ScientificName: fmt.Sprintf("%s %s%s", genus, stem(n, syllables), "us"),
		Ranks:          append([]model.RankValue(nil), chain...),
		Status:         g.cfg.StatusMix[g.rng.Intn(len(g.cfg.StatusMix))],
	}
	if g.cfg.LocalNames {
		rec.CommonName = stem(g.next, localSyllables) + "種"
		if g.rng.Intn(3) == 0 {
			rec.OtherCommonNames = []string{stem(g.next+1, localSyllables) + "仔"}
		}
	}
	return rec
}

// ============================================================================
// Serialization
// ============================================================================

// ToCSV renders records in the column layout cols describes, the format
// `taxa import` reads.
func ToCSV(records []model.ClassifiedRecord, cols loader.Columns) string {
	header := []string{cols.ID, cols.Name, cols.NameZh, cols.OtherZh, cols.StatusID}
	for _, r := range cols.Ranks {
		header = append(header, r.Field, r.FieldZh)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(header)
	for _, rec := range records {
		status := ""
		if rec.Status != model.StatusUnknown {
			status = strconv.Itoa(int(rec.Status))
		}
		row := []string{rec.ID, rec.ScientificName, rec.CommonName, strings.Join(rec.OtherCommonNames, ";"), status}
		for i := range cols.Ranks {
			rv := rec.Rank(i)
			row = append(row, rv.Name, rv.NameZh)
		}
		_ = w.Write(row)
	}
	w.Flush()
	return buf.String()
}

// ToJSONL renders records one per line.
func ToJSONL(records []model.ClassifiedRecord) string {
	var buf bytes.Buffer
	if err := loader.WriteJSONL(&buf, records); err != nil {
		panic(err)
	}
	return buf.String()
}
