package models

import (
	"time"
)

// MaxPICLength is the longest property identification code any jurisdiction issues.
const MaxPICLength = 8

// PICRecord is one livestock property in the PIC registry.
// Nullable descriptive fields use pointers to distinguish between empty and NULL.
type PICRecord struct {
	SourceVersionDate time.Time `json:"sourceVersionDate"`
	IngestedAt        time.Time `json:"ingestedAt"`
	PropertyName      *string   `json:"propertyName,omitempty"`
	Region            *string   `json:"region,omitempty"`
	LGA               *string   `json:"lga,omitempty"`
	PICCode           string    `json:"picCode"`
	Jurisdiction      string    `json:"jurisdiction"`
	IsActive          bool      `json:"isActive"`
	HasBMP            bool      `json:"hasBmp"`
}

// TableName is the registry table the records are stored in.
func (PICRecord) TableName() string {
	return "pic_registry"
}

// IsValidPICCode reports whether code is 1..MaxPICLength characters of A-Z and 0-9.
// The code must already be upper-cased; lower-case letters are rejected.
func IsValidPICCode(code string) bool {
	if code == "" || len(code) > MaxPICLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
