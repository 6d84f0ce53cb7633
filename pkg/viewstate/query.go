// Package viewstate owns the listing query of a browse session and decides
// when a change warrants a remote reload.
package viewstate

import (
	"fmt"
	"strconv"
	"strings"
)

// SortDirection orders listing rows.
type SortDirection int

const (
	SortAscending SortDirection = iota
	SortDescending
)

func (d SortDirection) String() string {
	if d == SortDescending {
		return "desc"
	}
	return "asc"
}

// Sortable listing columns.
const (
	SortByName   = "name"
	SortByNameZh = "name_zh"
	SortByStatus = "status_id"
)

// SortSpec is an optional listing order.
type SortSpec struct {
	Field     string
	Direction SortDirection
}

// Toggled returns the spec for the next press on field: a new field starts
// ascending, the same field flips direction.
func (s *SortSpec) Toggled(field string) *SortSpec {
	if s == nil || s.Field != field {
		return &SortSpec{Field: field, Direction: SortAscending}
	}
	dir := SortDescending
	if s.Direction == SortDescending {
		dir = SortAscending
	}
	return &SortSpec{Field: field, Direction: dir}
}

// QueryState is the committed listing query.
type QueryState struct {
	FreeText     string
	CollectionID *int64
	Page         int
	PageSize     int
	Sort         *SortSpec
}

// Offset is the first row of the current page.
func (q QueryState) Offset() int {
	return q.Page * q.PageSize
}

// HasFilter reports whether free text or a collection narrows the listing.
func (q QueryState) HasFilter() bool {
	return q.FreeText != "" || q.CollectionID != nil
}

// Signature identifies the remote result set the query asks for. Two
// queries with equal signatures fetch the same page.
func (q QueryState) Signature() string {
	var b strings.Builder
	b.WriteString(strconv.Quote(q.FreeText))
	b.WriteByte('|')
	if q.CollectionID != nil {
		b.WriteString(strconv.FormatInt(*q.CollectionID, 10))
	}
	fmt.Fprintf(&b, "|%d|%d|", q.Page, q.PageSize)
	if q.Sort != nil {
		b.WriteString(q.Sort.Field)
		b.WriteByte(':')
		b.WriteString(q.Sort.Direction.String())
	}
	return b.String()
}

// PageCount returns the number of pages needed for total rows.
func (q QueryState) PageCount(total int) int {
	if q.PageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + q.PageSize - 1) / q.PageSize
}

// Collection is the taxonomy node a listing can be narrowed to.
type Collection struct {
	ID     int64
	Name   string
	NameZh string
}

// Label renders "name (localized)" or just the name.
func (c Collection) Label() string {
	if c.NameZh == "" {
		return c.Name
	}
	return c.Name + " (" + c.NameZh + ")"
}
