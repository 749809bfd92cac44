// Package entities defines the medication data model shared by the
// terminology parser, the catalog container and the search service.
package entities

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Categories groups a medication into a broad therapeutic class and a more
// specific one when the heuristics can tell them apart.
type Categories struct {
	Broad    string `json:"broad,omitempty"`
	Specific string `json:"specific,omitempty"`
}

// Flags marks regulatory and safety properties derived from the display name.
type Flags struct {
	IsControlled       bool `json:"isControlled"`
	IsPsychotropic     bool `json:"isPsychotropic"`
	IsNarcotic         bool `json:"isNarcotic"`
	RequiresMonitoring bool `json:"requiresMonitoring"`
}

// Medication is a single searchable catalog entry. Instances are immutable
// after the catalog build; refreshes replace the whole slice.
type Medication struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	GenericName string      `json:"genericName,omitempty"`
	BrandNames  []string    `json:"brandNames,omitempty"`
	Categories  *Categories `json:"categories,omitempty"`
	Flags       Flags       `json:"flags"`
}

// Match is a ranked catalog entry as served to clients. IsStartsWith
// distinguishes prefix matches from mid-string matches; SingleStartsWith is
// set on every entry of a result when the query has exactly one prefix match
// in the catalog, which lets callers auto-accept an unambiguous result.
type Match struct {
	Medication
	IsStartsWith     bool `json:"isStartsWith"`
	SingleStartsWith bool `json:"singleStartsWith"`
}

// MedicationID derives the stable identifier for a medication name.
// It is an FNV-1a hash of the lower-cased name, so the same catalog entry
// keeps the same id (and therefore the same cache identity) across restarts.
func MedicationID(name string) string {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(name)))
	return fmt.Sprintf("%016x", h.Sum64())
}
