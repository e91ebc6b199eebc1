package model

// ExtractedCommand is a command reconstructed from clipboard staging code.
type ExtractedCommand struct {
	// RawText is the assembled command string. Portions that could not be
	// resolved appear as <unresolved:...> placeholder tokens.
	RawText string `json:"raw_text"`

	// DecodedPayload is set only when a base64 fragment decoded to plausible text.
	DecodedPayload string `json:"decoded_payload,omitempty"`

	// Parameters are the tokens of the staging-path value, quoted segments kept whole.
	Parameters []string `json:"parameters"`

	// ContextWindow is the text around the staging call, for human review.
	ContextWindow string `json:"context_window"`

	// FullyResolved is false when RawText or PathValue contains a placeholder.
	FullyResolved bool `json:"fully_resolved"`

	// StagingCall is the callee that received the command.
	StagingCall string `json:"staging_call"`

	// PathValue is the resolved staging-path value, if one was declared.
	PathValue string `json:"path_value,omitempty"`

	// Patterns lists the pattern kinds that were observed while reconstructing
	// the command, in the order declaration, path, staging call.
	Patterns []PatternKind `json:"patterns"`

	// Alternatives holds the values of earlier declarations that were
	// superseded by the last one, kept for audit.
	Alternatives []string `json:"alternatives,omitempty"`
}

// HasDecodedPayload reports whether a payload was decoded.
func (c ExtractedCommand) HasDecodedPayload() bool {
	return c.DecodedPayload != ""
}

// Clone returns a deep copy of the command.
func (c ExtractedCommand) Clone() ExtractedCommand {
	out := c
	out.Parameters = append([]string{}, c.Parameters...)
	out.Patterns = append([]PatternKind{}, c.Patterns...)
	if c.Alternatives != nil {
		out.Alternatives = append([]string{}, c.Alternatives...)
	}
	return out
}
