// Package mapper proposes column mappings from uploaded file headers onto an
// import template's target fields.
//
// Matching runs per target field, in template order:
//  1. case-insensitive exact match against an unclaimed source header
//  2. alias-dictionary match against an unclaimed source header
//  3. otherwise the field stays unmapped
//
// Each source header can be claimed by at most one target field. Ambiguity
// is resolved by target-field iteration order (first-claimed-wins), not by
// the order of the source headers. The proposal is advisory: the user can
// override any assignment before confirming.
package mapper

import (
	"strings"

	"github.com/lindale-isd/districtops/internal/registry"
)

// Confidence classifies how a source header was matched to a target field.
type Confidence string

const (
	// ConfidenceExact means the source header equals the target field name,
	// case-insensitively.
	ConfidenceExact Confidence = "exact"

	// ConfidenceAlias means the source header matched via the template's
	// alias dictionary.
	ConfidenceAlias Confidence = "alias"

	// ConfidenceNone means the target field is unmapped.
	ConfidenceNone Confidence = "none"
)

// ColumnMapping assigns target fields to source headers for one upload.
// A target field absent from Columns is unmapped.
type ColumnMapping struct {
	Columns    map[string]string     `json:"columns"`    // target field -> source header
	Confidence map[string]Confidence `json:"confidence"` // target field -> match confidence
}

// Mapped returns the source header mapped to a target field, or "" when the
// field is unmapped.
func (m ColumnMapping) Mapped(field string) string {
	return m.Columns[field]
}

// MappedCount returns the number of mapped target fields.
func (m ColumnMapping) MappedCount() int {
	return len(m.Columns)
}

// normalizeHeader lower-cases and trims a header for comparison.
func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// Propose builds an advisory mapping from source headers to the template's
// target fields.
func Propose(sourceHeaders []string, tpl registry.ImportTemplate) ColumnMapping {
	mapping := ColumnMapping{
		Columns:    make(map[string]string),
		Confidence: make(map[string]Confidence),
	}

	claimed := make(map[int]bool, len(sourceHeaders))

	// Pass per target field in template order; exact beats alias for the
	// same field, and earlier fields win contested headers.
	for _, field := range tpl.Fields {
		idx := findExact(sourceHeaders, claimed, field.Name)
		if idx >= 0 {
			claimed[idx] = true
			mapping.Columns[field.Name] = sourceHeaders[idx]
			mapping.Confidence[field.Name] = ConfidenceExact
			continue
		}

		idx = findAlias(sourceHeaders, claimed, field.Aliases)
		if idx >= 0 {
			claimed[idx] = true
			mapping.Columns[field.Name] = sourceHeaders[idx]
			mapping.Confidence[field.Name] = ConfidenceAlias
			continue
		}

		mapping.Confidence[field.Name] = ConfidenceNone
	}

	return mapping
}

// findExact returns the index of the first unclaimed source header that
// case-insensitively equals the target field name, or -1.
func findExact(headers []string, claimed map[int]bool, target string) int {
	for i, h := range headers {
		if claimed[i] {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(h), target) {
			return i
		}
	}
	return -1
}

// findAlias returns the index of the first unclaimed source header whose
// normalized value appears in the alias list, or -1.
func findAlias(headers []string, claimed map[int]bool, aliases []string) int {
	if len(aliases) == 0 {
		return -1
	}
	for i, h := range headers {
		if claimed[i] {
			continue
		}
		norm := normalizeHeader(h)
		for _, a := range aliases {
			if norm == a {
				return i
			}
		}
	}
	return -1
}

// DetectConfidence recomputes per-field confidence for an edited mapping,
// independent of how the mapping was produced: exact when the assigned
// header equals the field name case-insensitively, alias for any other
// assignment, none when unmapped.
func DetectConfidence(tpl registry.ImportTemplate, columns map[string]string) map[string]Confidence {
	result := make(map[string]Confidence, len(tpl.Fields))

	for _, field := range tpl.Fields {
		header, ok := columns[field.Name]
		if !ok || strings.TrimSpace(header) == "" {
			result[field.Name] = ConfidenceNone
			continue
		}

		if strings.EqualFold(strings.TrimSpace(header), field.Name) {
			result[field.Name] = ConfidenceExact
			continue
		}

		// Any mapped header that is not an exact name match reports alias
		// confidence, whether it came from the dictionary or a manual
		// override.
		result[field.Name] = ConfidenceAlias
	}

	return result
}

// MissingRequired returns required target fields left unmapped, in template
// order.
func MissingRequired(tpl registry.ImportTemplate, mapping ColumnMapping) []string {
	var missing []string
	for _, f := range tpl.Fields {
		if f.Required && mapping.Columns[f.Name] == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
