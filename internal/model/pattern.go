package model

import (
	"fmt"
	"strings"
)

// PatternKind tags every pattern a detector stage can emit.
// The set is closed; new detections must add a new kind here.
type PatternKind string

const (
	// PatternClipboardCopy is a copy-to-clipboard invocation such as
	// navigator.clipboard.writeText or document.execCommand("copy").
	PatternClipboardCopy PatternKind = "clipboard_copy"

	// PatternTemporaryElement is a throwaway textarea/input created as the copy source.
	PatternTemporaryElement PatternKind = "temporary_element"

	// PatternSelectionCopy is a text-selection step (select(), getSelection(),
	// createRange()) feeding a copy.
	PatternSelectionCopy PatternKind = "selection_copy"

	// PatternStagingCall is the call that hands the assembled command to the clipboard stager.
	PatternStagingCall PatternKind = "staging_call"

	// PatternCommandDeclaration is a declaration of the assembled-command variable.
	PatternCommandDeclaration PatternKind = "command_declaration"

	// PatternPathDeclaration is a declaration of the staging-path (flags) variable.
	PatternPathDeclaration PatternKind = "path_declaration"
)

// allPatternKinds lists every kind in display order.
var allPatternKinds = []PatternKind{
	PatternClipboardCopy,
	PatternTemporaryElement,
	PatternSelectionCopy,
	PatternStagingCall,
	PatternCommandDeclaration,
	PatternPathDeclaration,
}

// AllPatternKinds returns every pattern kind in display order.
func AllPatternKinds() []PatternKind {
	out := make([]PatternKind, len(allPatternKinds))
	copy(out, allPatternKinds)
	return out
}

// AllIdioms returns the clipboard idiom kinds in display order.
func AllIdioms() []PatternKind {
	return []PatternKind{PatternClipboardCopy, PatternTemporaryElement, PatternSelectionCopy}
}

// String returns the tag as written in reports.
func (k PatternKind) String() string {
	return string(k)
}

// Valid reports whether k belongs to the closed set.
func (k PatternKind) Valid() bool {
	for _, known := range allPatternKinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsIdiom reports whether k is one of the clipboard idioms.
func (k PatternKind) IsIdiom() bool {
	switch k {
	case PatternClipboardCopy, PatternTemporaryElement, PatternSelectionCopy:
		return true
	default:
		return false
	}
}

// Label returns a short human-readable label for reports.
func (k PatternKind) Label() string {
	switch k {
	case PatternClipboardCopy:
		return "Clipboard copy"
	case PatternTemporaryElement:
		return "Temporary element"
	case PatternSelectionCopy:
		return "Selection copy"
	case PatternStagingCall:
		return "Staging call"
	case PatternCommandDeclaration:
		return "Command declaration"
	case PatternPathDeclaration:
		return "Path declaration"
	default:
		return "Unknown"
	}
}

// ParsePatternKind converts a report tag back into a PatternKind.
// Matching ignores case and surrounding whitespace.
func ParsePatternKind(s string) (PatternKind, bool) {
	k := PatternKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", false
	}
	return k, true
}

// UnmarshalText accepts only tags of the closed set.
func (k *PatternKind) UnmarshalText(text []byte) error {
	parsed, ok := ParsePatternKind(string(text))
	if !ok {
		return fmt.Errorf("unknown pattern kind %q", text)
	}
	*k = parsed
	return nil
}
