package model

import (
	"bytes"
	"fmt"
	"strconv"
)

// Status is the nomenclatural status code of a record.
type Status int

// Known status codes. 6 and 10 are unassigned.
const (
	StatusUnknown             Status = 0
	StatusCurrent             Status = 1
	StatusOriginalSpecies     Status = 2
	StatusMisspelling         Status = 3
	StatusPreviousAccepted    Status = 4
	StatusJuniorSynonym       Status = 5
	StatusMisidentification   Status = 7
	StatusNewRecord           Status = 8
	StatusNewSpecies          Status = 9
	StatusOriginalCombination Status = 11
	StatusIllegitimateVariant Status = 12
	StatusSynonymPreviousName Status = 13
	StatusPreviousNameSynonym Status = 14
)

type statusLabel struct {
	zh string
	en string
}

var statusLabels = map[Status]statusLabel{
	StatusCurrent:             {"現用有效學名", "Current combination"},
	StatusOriginalSpecies:     {"臺灣產亞種之種級原始組合名", "Original combination of species"},
	StatusMisspelling:         {"誤拼", "Misspelling"},
	StatusPreviousAccepted:    {"過去使用學名", "Previous accepted name"},
	StatusJuniorSynonym:       {"同物異名", "Junior synonym"},
	StatusMisidentification:   {"誤鑑定", "Misidentification"},
	StatusNewRecord:           {"新紀錄種", ""},
	StatusNewSpecies:          {"新種", ""},
	StatusOriginalCombination: {"原始組合名", "Original combination"},
	StatusIllegitimateVariant: {"非合法名變異種", ""},
	StatusSynonymPreviousName: {"過去使用學名之同物異名", ""},
	StatusPreviousNameSynonym: {"同物異名過去使用學名", ""},
}

// Known reports whether s is a code in the status table.
func (s Status) Known() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the localized label, or the bare number for unknown codes.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l.zh
	}
	if s == StatusUnknown {
		return ""
	}
	return strconv.Itoa(int(s))
}

// LabelEn returns the English label, falling back to Label.
func (s Status) LabelEn() string {
	if l, ok := statusLabels[s]; ok && l.en != "" {
		return l.en
	}
	return s.Label()
}

// Badge classifies the status for display: only current names are common.
func (s Status) Badge() string {
	if s == StatusCurrent {
		return "common"
	}
	return "rare"
}

func (s Status) String() string {
	return s.LabelEn()
}

// UnmarshalJSON accepts a number, a numeric string, or null.
func (s *Status) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		*s = StatusUnknown
		return nil
	}
	data = bytes.Trim(data, `"`)
	if len(data) == 0 {
		*s = StatusUnknown
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("status_id: %w", err)
	}
	*s = Status(n)
	return nil
}

// ParseStatus parses a status code from CSV text. Blank means unknown.
func ParseStatus(s string) (Status, error) {
	var st Status
	if err := st.UnmarshalJSON([]byte(s)); err != nil {
		return StatusUnknown, err
	}
	return st, nil
}
