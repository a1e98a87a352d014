package ingest

import (
	"fmt"
	"strings"
)

// Field is a semantic column of the PIC list.
type Field string

const (
	FieldPIC          Field = "pic"
	FieldPropertyName Field = "property_name"
	FieldRegion       Field = "region"
	FieldLGA          Field = "lga"
	FieldActive       Field = "active"
	FieldBMP          Field = "bmp"
)

// HeaderRule maps header keywords to a field. Keywords are upper case and
// match anywhere in the upper-cased header text.
type HeaderRule struct {
	Field    Field
	Keywords []string
}

// DefaultHeaderRules is the rule table for the jurisdiction PIC lists, in
// evaluation order.
var DefaultHeaderRules = []HeaderRule{
	{Field: FieldPIC, Keywords: []string{"PIC"}},
	{Field: FieldPropertyName, Keywords: []string{"PROPERTY", "NAME"}},
	{Field: FieldRegion, Keywords: []string{"REGION"}},
	{Field: FieldLGA, Keywords: []string{"LGA", "LOCAL GOVERNMENT"}},
	{Field: FieldActive, Keywords: []string{"ACTIVE"}},
	{Field: FieldBMP, Keywords: []string{"BMP"}},
}

// ColumnMap holds the column index of every mapped field.
type ColumnMap map[Field]int

// Index returns the column of f and whether f was mapped.
func (m ColumnMap) Index(f Field) (int, bool) {
	i, ok := m[f]
	return i, ok
}

// String renders the mapping in rule order, e.g. "pic=0 property_name=1 region=-".
func (m ColumnMap) String() string {
	parts := make([]string, 0, len(DefaultHeaderRules))
	for _, r := range DefaultHeaderRules {
		if i, ok := m[r.Field]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", r.Field, i))
		} else {
			parts = append(parts, fmt.Sprintf("%s=-", r.Field))
		}
	}
	return strings.Join(parts, " ")
}

// MapHeaders assigns header columns to fields using DefaultHeaderRules.
func MapHeaders(headers []string) ColumnMap {
	return MapHeadersWith(DefaultHeaderRules, headers)
}

// MapHeadersWith assigns each header cell to the first rule, in rule order,
// that has a keyword contained in the header and whose field is still
// unmapped. Once a field is mapped, later headers matching it are ignored.
// Headers matching no rule are left out.
func MapHeadersWith(rules []HeaderRule, headers []string) ColumnMap {
	m := make(ColumnMap, len(rules))
	for col, raw := range headers {
		h := strings.ToUpper(cleanCell(raw))
		if h == "" {
			continue
		}
		for _, rule := range rules {
			if _, taken := m[rule.Field]; taken {
				continue
			}
			if containsAny(h, rule.Keywords) {
				m[rule.Field] = col
				break
			}
		}
	}
	return m
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
