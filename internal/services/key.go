package services

import "sort"

// CanonicalKey returns the single document key for the unordered pair (a, b).
// Callers must reject a == b before calling.
func CanonicalKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "-" + b
}

func sortedPair(a, b string) []string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair
}
