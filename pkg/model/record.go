// Package model defines the taxonomy records shared by every taxa component.
package model

import (
	"strings"
)

// Default rank names, root first. The last level groups the species records.
const (
	RankKingdom   = "kingdom"
	RankPhylum    = "phylum"
	RankClass     = "class"
	RankOrder     = "order"
	RankFamily    = "family"
	RankSubfamily = "subfamily"
)

// DefaultRanks is the six-level classification used when nothing else is
// configured.
var DefaultRanks = []string{RankKingdom, RankPhylum, RankClass, RankOrder, RankFamily, RankSubfamily}

// RankValue is a rank name plus its optional localized name.
type RankValue struct {
	Name   string `json:"name"`
	NameZh string `json:"name_zh,omitempty"`
}

// Empty reports whether the rank carries no value.
func (r RankValue) Empty() bool {
	return strings.TrimSpace(r.Name) == ""
}

// Label renders "name name_zh", the text the tree filter matches against.
func (r RankValue) Label() string {
	if r.NameZh == "" {
		return r.Name
	}
	return r.Name + " " + r.NameZh
}

// ClassifiedRecord is one species record with its full rank chain.
// Records are read-only once loaded.
type ClassifiedRecord struct {
	ID               string      `json:"id"`
	ScientificName   string      `json:"name"`
	CommonName       string      `json:"name_zh,omitempty"`
	OtherCommonNames []string    `json:"name_zh_other,omitempty"`
	Ranks            []RankValue `json:"ranks"`
	Status           Status      `json:"status_id,omitempty"`
}

// Rank returns the value at level i, or an empty RankValue when absent.
func (r ClassifiedRecord) Rank(i int) RankValue {
	if i < 0 || i >= len(r.Ranks) {
		return RankValue{}
	}
	return r.Ranks[i]
}

// Summary projects the record into the listing row shape.
func (r ClassifiedRecord) Summary() RecordSummary {
	return RecordSummary{
		ID:             r.ID,
		ScientificName: r.ScientificName,
		CommonName:     r.CommonName,
		OtherNames:     strings.Join(r.OtherCommonNames, ", "),
		Status:         r.Status,
	}
}

// SplitOtherNames splits a comma or semicolon separated list of alternative
// common names, dropping blanks and "N/A" markers.
func SplitOtherNames(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '、' || r == '，'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = CleanLocalName(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// CleanLocalName trims a localized name and maps spreadsheet "not
// available" markers to the empty string.
func CleanLocalName(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "#N/A", "N/A", "NA", "NULL":
		return ""
	}
	return s
}
