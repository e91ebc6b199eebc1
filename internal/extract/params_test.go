package extract

import (
	"reflect"
	"testing"
)

func TestSplitParameters(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", "  \t ", []string{}},
		{"plain flags", "-w hidden -nop", []string{"-w", "hidden", "-nop"}},
		{"double quoted", `-c "iex (irm x)"`, []string{"-c", "iex (irm x)"}},
		{"single quoted", `-c 'a b'`, []string{"-c", "a b"}},
		{"quote inside other quote", `-c "it's here"`, []string{"-c", "it's here"}},
		{"adjacent quote", `-File"C:\a b.ps1"`, []string{`-FileC:\a b.ps1`}},
		{"unterminated quote", `-c "never closed here`, []string{"-c", "never closed here"}},
		{"empty quotes", `-a "" -b`, []string{"-a", "", "-b"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := SplitParameters(tc.input); !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("SplitParameters(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		})
	}
}
