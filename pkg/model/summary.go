package model

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// RecordSummary is one row of the listing. It decodes both the camelCase
// and the snake_case field spellings the listing service has used.
type RecordSummary struct {
	ID             string `json:"id"`
	ScientificName string `json:"name"`
	CommonName     string `json:"name_zh,omitempty"`
	OtherNames     string `json:"name_zh_other,omitempty"`
	Status         Status `json:"status_id,omitempty"`
	// Path is the rank chain, root first, when the source provides it.
	Path []RankValue `json:"path,omitempty"`
}

type summaryWire struct {
	ID              json.RawMessage `json:"id"`
	Name            *string         `json:"name"`
	ScientificName  *string         `json:"scientificName"`
	NameZh          *string         `json:"name_zh"`
	CommonName      *string         `json:"commonName"`
	NameZhOther     *string         `json:"name_zh_other"`
	OtherCommonName *string         `json:"otherCommonName"`
	Status          Status          `json:"status_id"`
	Path            []RankValue     `json:"path"`
}

func firstOf(vals ...*string) string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RecordSummary) UnmarshalJSON(data []byte) error {
	var w summaryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id, err := decodeID(w.ID)
	if err != nil {
		return err
	}
	*r = RecordSummary{
		ID:             id,
		ScientificName: firstOf(w.ScientificName, w.Name),
		CommonName:     CleanLocalName(firstOf(w.CommonName, w.NameZh)),
		OtherNames:     CleanLocalName(firstOf(w.OtherCommonName, w.NameZhOther)),
		Status:         w.Status,
		Path:           w.Path,
	}
	return nil
}

// decodeID accepts a JSON string or number.
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	if _, err := strconv.ParseFloat(string(raw), 64); err != nil {
		return "", fmt.Errorf("id: %w", err)
	}
	return string(raw), nil
}

// DisplayName is the scientific name followed by the localized name.
func (r RecordSummary) DisplayName() string {
	if r.CommonName == "" {
		return r.ScientificName
	}
	return r.ScientificName + " (" + r.CommonName + ")"
}

// ResultPage is one page of listing results plus the unpaged total.
type ResultPage struct {
	Items []RecordSummary `json:"items"`
	Total int             `json:"total"`
}

// Find returns the row with the given id.
func (p ResultPage) Find(id string) (RecordSummary, bool) {
	for _, it := range p.Items {
		if it.ID == id {
			return it, true
		}
	}
	return RecordSummary{}, false
}

// CollectionNode is one node of the remote taxonomy payload.
type CollectionNode struct {
	ID       int64            `json:"id"`
	Name     string           `json:"name"`
	NameZh   string           `json:"name_zh,omitempty"`
	Level    string           `json:"level"`
	Count    *int             `json:"count,omitempty"`
	Children []CollectionNode `json:"children,omitempty"`
}

// IDString renders the numeric id the way query parameters carry it.
func (c CollectionNode) IDString() string {
	return strconv.FormatInt(c.ID, 10)
}
