package domain

import "testing"

func TestTranscript(t *testing.T) {
	found := TranscriptText("hello world")
	if !found.Found() || found.Text() != "hello world" || found.String() != "hello world" {
		t.Errorf("unexpected found transcript: %+v", found)
	}

	missing := TranscriptNotFound()
	if missing.Found() {
		t.Error("expected sentinel to report not found")
	}
	if missing.Text() != "" {
		t.Errorf("sentinel text = %q, want empty", missing.Text())
	}
	if missing.String() != TranscriptNotFoundText {
		t.Errorf("sentinel renders as %q, want %q", missing.String(), TranscriptNotFoundText)
	}

	// Blank text is never a partial transcript.
	if TranscriptText(" \n\t").Found() {
		t.Error("blank text must collapse to not found")
	}
}
