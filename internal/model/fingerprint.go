package model

import "sort"

// FingerprintSet is an immutable, sorted set of pattern fingerprints.
// A nil *FingerprintSet means "no previous run" and is handled by the methods.
type FingerprintSet struct {
	values []string
}

// NewFingerprintSet builds a set from values, dropping duplicates and empty strings.
func NewFingerprintSet(values []string) *FingerprintSet {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return &FingerprintSet{values: out}
}

// Len returns the number of fingerprints.
func (f *FingerprintSet) Len() int {
	if f == nil {
		return 0
	}
	return len(f.values)
}

// Contains reports whether fp is in the set.
func (f *FingerprintSet) Contains(fp string) bool {
	if f == nil {
		return false
	}
	i := sort.SearchStrings(f.values, fp)
	return i < len(f.values) && f.values[i] == fp
}

// Values returns a sorted copy of the fingerprints.
func (f *FingerprintSet) Values() []string {
	if f == nil {
		return []string{}
	}
	out := make([]string, len(f.values))
	copy(out, f.values)
	return out
}

// Difference returns the fingerprints in f that are not in other.
// A nil other yields every fingerprint in f.
func (f *FingerprintSet) Difference(other *FingerprintSet) []string {
	out := []string{}
	if f == nil {
		return out
	}
	for _, v := range f.values {
		if !other.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}
