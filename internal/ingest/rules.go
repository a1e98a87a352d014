package ingest

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// headerRulesFile is the on-disk form of a header rule table:
//
//	rules:
//	  - field: pic
//	    keywords: [PIC, "HOLDING CODE"]
//	  - field: property_name
//	    keywords: [PROPERTY, NAME]
type headerRulesFile struct {
	Rules []struct {
		Field    string   `yaml:"field"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"rules"`
}

// knownFields lists the fields a rule may target.
var knownFields = map[Field]bool{
	FieldPIC:          true,
	FieldPropertyName: true,
	FieldRegion:       true,
	FieldLGA:          true,
	FieldActive:       true,
	FieldBMP:          true,
}

// LoadHeaderRules reads a YAML rule table from path.
func LoadHeaderRules(path string) ([]HeaderRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read header rules: %w", err)
	}
	rules, err := ParseHeaderRules(data)
	if err != nil {
		return nil, fmt.Errorf("header rules %s: %w", path, err)
	}
	return rules, nil
}

// ParseHeaderRules decodes a YAML rule table. Keywords are upper-cased and
// trimmed. Rule order is kept: it is the evaluation order.
func ParseHeaderRules(data []byte) ([]HeaderRule, error) {
	var f headerRulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshaling header rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("no header rules defined")
	}

	rules := make([]HeaderRule, 0, len(f.Rules))
	for i, r := range f.Rules {
		field := Field(strings.ToLower(strings.TrimSpace(r.Field)))
		if !knownFields[field] {
			return nil, fmt.Errorf("rule %d: unknown field %q", i, r.Field)
		}
		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("rule %d (%s): at least one keyword is required", i, field)
		}
		rules = append(rules, HeaderRule{Field: field, Keywords: keywords})
	}
	return rules, nil
}
