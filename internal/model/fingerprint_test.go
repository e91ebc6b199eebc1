package model

import "testing"

// TestFingerprintSet tests construction and lookups.
func TestFingerprintSet(t *testing.T) {
	t.Parallel()

	t.Run("deduplicates and sorts", func(t *testing.T) {
		t.Parallel()

		set := NewFingerprintSet([]string{"c", "a", "b", "a", ""})
		values := set.Values()
		expected := []string{"a", "b", "c"}
		if len(values) != len(expected) {
			t.Fatalf("expected %d values, got %d", len(expected), len(values))
		}
		for i := range expected {
			if values[i] != expected[i] {
				t.Errorf("position %d: got %q, expected %q", i, values[i], expected[i])
			}
		}
	})

	t.Run("nil set is empty", func(t *testing.T) {
		t.Parallel()

		var set *FingerprintSet
		if set.Len() != 0 {
			t.Errorf("expected 0, got %d", set.Len())
		}
		if set.Contains("a") {
			t.Error("nil set must not contain anything")
		}
		if len(set.Values()) != 0 {
			t.Error("expected no values")
		}
	})

	t.Run("values are a copy", func(t *testing.T) {
		t.Parallel()

		set := NewFingerprintSet([]string{"a"})
		values := set.Values()
		values[0] = "z"
		if !set.Contains("a") {
			t.Error("set was modified through Values")
		}
	})
}

// TestFingerprintSetDifference tests the delta used for new-pattern counting.
func TestFingerprintSetDifference(t *testing.T) {
	t.Parallel()

	t.Run("one new fingerprint", func(t *testing.T) {
		t.Parallel()

		previous := NewFingerprintSet([]string{"F1", "F2"})
		current := NewFingerprintSet([]string{"F1", "F2", "F3"})

		diff := current.Difference(previous)
		if len(diff) != 1 || diff[0] != "F3" {
			t.Errorf("expected [F3], got %v", diff)
		}
	})

	t.Run("absent previous set counts everything", func(t *testing.T) {
		t.Parallel()

		current := NewFingerprintSet([]string{"F1", "F2", "F3"})
		if got := len(current.Difference(nil)); got != 3 {
			t.Errorf("expected 3, got %d", got)
		}
	})

	t.Run("disappeared fingerprints are not new", func(t *testing.T) {
		t.Parallel()

		previous := NewFingerprintSet([]string{"F1", "F9"})
		current := NewFingerprintSet([]string{"F1"})
		if got := len(current.Difference(previous)); got != 0 {
			t.Errorf("expected 0, got %d", got)
		}
	})
}
