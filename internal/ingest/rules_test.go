package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/picregistry/internal/document"
)

const holdingRules = `
rules:
  - field: pic
    keywords: ["holding code", PIC]
  - field: property_name
    keywords: [" holding name "]
  - field: Region
    keywords: [district]
`

func TestParseHeaderRules(t *testing.T) {
	rules, err := ParseHeaderRules([]byte(holdingRules))

	require.NoError(t, err)
	assert.Equal(t, []HeaderRule{
		{Field: FieldPIC, Keywords: []string{"HOLDING CODE", "PIC"}},
		{Field: FieldPropertyName, Keywords: []string{"HOLDING NAME"}},
		{Field: FieldRegion, Keywords: []string{"DISTRICT"}},
	}, rules)

	got := MapHeadersWith(rules, []string{"District", "Holding Name", "Holding Code"})
	assert.Equal(t, ColumnMap{FieldRegion: 0, FieldPropertyName: 1, FieldPIC: 2}, got)
}

func TestParseHeaderRules_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"not yaml", "rules: [", "unmarshaling header rules"},
		{"empty", "rules: []", "no header rules defined"},
		{"unknown field", "rules:\n  - field: owner\n    keywords: [OWNER]\n", `unknown field "owner"`},
		{"no keywords", "rules:\n  - field: pic\n    keywords: [\" \"]\n", "at least one keyword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeaderRules([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadHeaderRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(holdingRules), 0o600))

	rules, err := LoadHeaderRules(path)
	require.NoError(t, err)
	assert.Len(t, rules, 3)

	_, err = LoadHeaderRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPrepareWith_CustomRules(t *testing.T) {
	rows := [][]string{{"Holding Code", "Holding Name"}}
	for i := 0; i < 11; i++ {
		rows = append(rows, []string{"NT1", "Farm"})
	}
	rules, err := ParseHeaderRules([]byte(holdingRules))
	require.NoError(t, err)

	plan, err := PrepareWith([]document.Table{{Rows: rows}}, DefaultTableMinRows, rules)
	require.NoError(t, err)
	assert.Equal(t, ColumnMap{FieldPIC: 0, FieldPropertyName: 1}, plan.Columns)

	// The built-in rules only see "Holding Name" as the property name.
	plan, err = PrepareWith([]document.Table{{Rows: rows}}, DefaultTableMinRows, nil)
	require.NoError(t, err)
	assert.Equal(t, ColumnMap{FieldPropertyName: 1}, plan.Columns)
}
