package mapping

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// SuggestClosestField returns the public name of the field closest to name.
// Container (nested) fields are never suggested. ok is false when nothing is close enough.
func (m *Mapping) SuggestClosestField(name string) (suggestion string, ok bool) {
	name = PublicName(InternalName(name))
	maxDist := len(name) / 3
	if maxDist < 2 {
		maxDist = 2
	}

	bestDist := -1
	for _, f := range m.fields {
		if f.fieldType == Nested {
			continue
		}
		candidate := f.PublicCode()
		if candidate == name {
			continue
		}

		d := levenshtein.ComputeDistance(name, candidate)
		affix := len(name) >= 3 && (strings.HasSuffix(candidate, name) || strings.HasPrefix(candidate, name))
		if d > maxDist && !affix {
			continue
		}
		if bestDist < 0 || d < bestDist || (d == bestDist && candidate < suggestion) {
			bestDist = d
			suggestion = candidate
		}
	}
	return suggestion, bestDist >= 0
}
