package domain

import "strings"

// TranscriptNotFoundText is what a missing transcript renders as downstream.
const TranscriptNotFoundText = "Transcript not found"

// Transcript is either transcript text or the explicit "not found" sentinel.
// There is no partial state: blank text collapses to not found.
type Transcript struct {
	text  string
	found bool
}

// TranscriptText wraps acquired text.
func TranscriptText(text string) Transcript {
	if strings.TrimSpace(text) == "" {
		return TranscriptNotFound()
	}
	return Transcript{text: text, found: true}
}

// TranscriptNotFound returns the sentinel value.
func TranscriptNotFound() Transcript {
	return Transcript{}
}

// Found reports whether the transcript carries text.
func (t Transcript) Found() bool {
	return t.found
}

// Text returns the transcript text, or "" when not found.
func (t Transcript) Text() string {
	return t.text
}

// String renders the transcript for downstream consumers.
func (t Transcript) String() string {
	if !t.found {
		return TranscriptNotFoundText
	}
	return t.text
}
