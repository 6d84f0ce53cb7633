// Package loader reads classified records from local CSV and JSONL files.
package loader

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/taxa/pkg/config"
	"github.com/vanderheijden86/taxa/pkg/model"
)

// Columns maps source column names onto record fields.
type Columns struct {
	ID       string
	Name     string
	NameZh   string
	OtherZh  string
	StatusID string
	Ranks    []config.RankColumn
}

// ColumnsFromConfig returns the mapping configured under import.
func ColumnsFromConfig(c config.ImportConfig) Columns {
	return Columns{
		ID:       c.IDField,
		Name:     c.NameField,
		NameZh:   c.NameZhField,
		OtherZh:  c.OtherZhField,
		StatusID: c.StatusIDField,
		Ranks:    c.Ranks,
	}
}

// DefaultColumns is the mapping of the default configuration.
func DefaultColumns() Columns {
	return ColumnsFromConfig(config.DefaultConfig().Import)
}

// RankNames returns the rank names in order.
func (c Columns) RankNames() []string {
	names := make([]string, len(c.Ranks))
	for i, r := range c.Ranks {
		names[i] = r.Name
	}
	return names
}

// required lists the columns a header must contain.
func (c Columns) required() []string {
	req := []string{c.ID, c.Name}
	for _, r := range c.Ranks {
		req = append(req, r.Field)
	}
	return req
}

// record builds a ClassifiedRecord from one row given as column lookups.
func (c Columns) record(get func(col string) string) (model.ClassifiedRecord, error) {
	rec := model.ClassifiedRecord{
		ID:               strings.TrimSpace(get(c.ID)),
		ScientificName:   strings.TrimSpace(get(c.Name)),
		CommonName:       model.CleanLocalName(get(c.NameZh)),
		OtherCommonNames: model.SplitOtherNames(get(c.OtherZh)),
		Ranks:            make([]model.RankValue, len(c.Ranks)),
	}
	for i, r := range c.Ranks {
		rec.Ranks[i] = model.RankValue{
			Name:   strings.TrimSpace(get(r.Field)),
			NameZh: model.CleanLocalName(get(r.FieldZh)),
		}
	}
	if rec.ID == "" {
		return rec, fmt.Errorf("missing %s", c.ID)
	}
	if c.StatusID != "" {
		st, err := model.ParseStatus(strings.TrimSpace(get(c.StatusID)))
		if err != nil {
			return rec, err
		}
		rec.Status = st
	}
	return rec, nil
}
