package reference

import "strings"

// minSubstringLen keeps very short fragments like "e" from matching names.
const minSubstringLen = 3

// ResolveAsset maps a caller-supplied reference (canonical key or display
// name, possibly imprecise) to an asset key. Lookup order:
//
//  1. exact canonical key
//  2. normalized equality with a display name or key
//  3. a known name contained in ref; the longest contained name wins
//  4. ref contained in exactly one asset's names
//
// Ties at any substring step leave the reference unresolved.
func (t *Table) ResolveAsset(ref string) (AssetKey, bool) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return "", false
	}
	if t.Has(AssetKey(trimmed)) {
		return AssetKey(trimmed), true
	}

	needle := normalize(trimmed)
	if needle == "" {
		return "", false
	}

	for _, key := range t.keys {
		for _, name := range t.aliases(key) {
			if name == needle {
				return key, true
			}
		}
	}

	if key, ok := t.longestContained(needle); ok {
		return key, true
	}

	if len(needle) < minSubstringLen {
		return "", false
	}
	var found AssetKey
	for _, key := range t.keys {
		for _, name := range t.aliases(key) {
			if strings.Contains(name, needle) {
				if found != "" && found != key {
					return "", false
				}
				found = key
				break
			}
		}
	}
	return found, found != ""
}

// longestContained finds the asset whose name is the longest substring of
// needle. Two different assets matching at the same length is ambiguous.
func (t *Table) longestContained(needle string) (AssetKey, bool) {
	var (
		best      AssetKey
		bestLen   int
		ambiguous bool
	)
	for _, key := range t.keys {
		for _, name := range t.aliases(key) {
			if !strings.Contains(needle, name) {
				continue
			}
			switch {
			case len(name) > bestLen:
				best, bestLen, ambiguous = key, len(name), false
			case len(name) == bestLen && key != best:
				ambiguous = true
			}
		}
	}
	if best == "" || ambiguous {
		return "", false
	}
	return best, true
}

func (t *Table) aliases(key AssetKey) []string {
	asset := t.assets[key]
	return []string{normalize(asset.Name), normalize(string(key))}
}

// normalize lower-cases s and folds separators and whitespace runs into
// single spaces, so "Real estate - core" and "real_estate_core" compare
// as "real estate core".
func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("-", " ", "_", " ", "/", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
