package models

import (
	"regexp"
	"testing"
)

var picPattern = regexp.MustCompile(`^[A-Z0-9]{1,8}$`)

func TestIsValidPICCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"NT1234AB", true},
		{"A", true},
		{"12345678", true},
		{"QABC0001", true},
		{"", false},
		{"NT1234ABC", false},
		{"nt1234ab", false},
		{"NT-1234", false},
		{"NT 1234", false},
		{"NT_1234", false},
		{"NTÉ1234", false},
		{"١٢٣", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := IsValidPICCode(tt.code); got != tt.want {
				t.Errorf("IsValidPICCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestIsValidPICCode_AgreesWithPattern(t *testing.T) {
	alphabet := "AZaz09-_ .é"
	// Every string up to length 3 over a mixed alphabet, plus long ones.
	var inputs []string
	var build func(prefix string, depth int)
	build = func(prefix string, depth int) {
		inputs = append(inputs, prefix)
		if depth == 0 {
			return
		}
		for _, r := range alphabet {
			build(prefix+string(r), depth-1)
		}
	}
	build("", 3)
	inputs = append(inputs, "ABCDEFGH", "ABCDEFGHI", "0000000Z", "0000000z")

	for _, in := range inputs {
		if got, want := IsValidPICCode(in), picPattern.MatchString(in); got != want {
			t.Errorf("IsValidPICCode(%q) = %v, pattern says %v", in, got, want)
		}
	}
}

func TestPICRecordTableName(t *testing.T) {
	if got := (PICRecord{}).TableName(); got != "pic_registry" {
		t.Errorf("TableName() = %s, want pic_registry", got)
	}
}
