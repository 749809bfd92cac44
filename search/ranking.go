package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/openrx/medsearch-api/terminology"
	"github.com/openrx/medsearch-api/terminology/entities"
)

// shortQueryLimit is the query length at or below which only prefix matches
// qualify. Substring matching on one or two characters over-matches badly.
const shortQueryLimit = 2

// Match is a ranked catalog entry. Matches carry their prefix flags from the
// ranking pass, so cached results keep the flags they were computed with.
type Match = entities.Match

// rank matches query against the catalog and returns an ordered, tagged,
// truncated match list. The ordering is a pure function of catalog and
// query: prefix matches first, then contains-only matches, each group
// alphabetical by name. SingleStartsWith reflects the size of the full
// prefix partition, before the limit is applied. The query must already be
// normalized.
func rank(catalog []entities.Medication, query string, limit int, includeGenerics bool) []Match {
	var startsWith, containsOnly []entities.Medication

	short := utf8.RuneCountInString(query) <= shortQueryLimit
	for i := range catalog {
		med := catalog[i]
		name := terminology.Normalize(med.Name)
		generic := terminology.Normalize(med.GenericName)

		prefix := strings.HasPrefix(name, query) || (generic != "" && strings.HasPrefix(generic, query))
		if short {
			if prefix {
				startsWith = append(startsWith, med)
			}
			continue
		}

		if !matchesContains(med, name, generic, query) {
			continue
		}
		if prefix {
			startsWith = append(startsWith, med)
		} else {
			containsOnly = append(containsOnly, med)
		}
	}

	sortByName(startsWith)
	sortByName(containsOnly)

	single := len(startsWith) == 1
	ranked := make([]Match, 0, len(startsWith)+len(containsOnly))
	for _, med := range startsWith {
		ranked = append(ranked, Match{Medication: med, IsStartsWith: true, SingleStartsWith: single})
	}
	for _, med := range containsOnly {
		ranked = append(ranked, Match{Medication: med, SingleStartsWith: single})
	}

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	if !includeGenerics {
		ranked = filterGenericOnly(ranked, query)
	}

	return ranked
}

// matchesContains reports whether the query appears anywhere in the name,
// generic name, or any brand name.
func matchesContains(med entities.Medication, name, generic, query string) bool {
	if strings.Contains(name, query) {
		return true
	}
	if generic != "" && strings.Contains(generic, query) {
		return true
	}
	for _, brand := range med.BrandNames {
		if strings.Contains(terminology.Normalize(brand), query) {
			return true
		}
	}
	return false
}

// filterGenericOnly drops entries that match the query through their generic
// name alone. The name or a brand name must match.
func filterGenericOnly(matches []Match, query string) []Match {
	filtered := matches[:0:0]
	for i := range matches {
		m := matches[i]
		if strings.Contains(terminology.Normalize(m.Name), query) {
			filtered = append(filtered, m)
			continue
		}
		for _, brand := range m.BrandNames {
			if strings.Contains(terminology.Normalize(brand), query) {
				filtered = append(filtered, m)
				break
			}
		}
	}
	return filtered
}

func sortByName(medications []entities.Medication) {
	sort.Slice(medications, func(i, j int) bool {
		a := terminology.Normalize(medications[i].Name)
		b := terminology.Normalize(medications[j].Name)
		if a != b {
			return a < b
		}
		return medications[i].Name < medications[j].Name
	})
}
