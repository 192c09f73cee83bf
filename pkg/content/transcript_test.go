package content

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// TestFindTranscriptURL_PDF verifies that a document link whose anchor text
// mentions the transcript wins over other links.
func TestFindTranscriptURL_PDF(t *testing.T) {
	htmlSnippet := `
<p>Transcript provided by We Edit Podcasts. Listeners can go to
<a href="https://weeditpodcasts.com/sed">weeditpodcasts.com/sed</a>
to get 20% off the first two months of audio editing and transcription services.
<a href="http://softwareengineeringdaily.com/wp-content/uploads/2019/01/SED754-TiDB.pdf">Please click here to view this show's transcript.</a>
</p>`

	got, err := FindTranscriptURL(htmlSnippet)
	if err != nil {
		t.Fatalf("FindTranscriptURL returned error: %v", err)
	}

	want := "http://softwareengineeringdaily.com/wp-content/uploads/2019/01/SED754-TiDB.pdf"
	if got != want {
		t.Fatalf("FindTranscriptURL = %q, want %q", got, want)
	}
}

func TestFindTranscriptURL_TXT(t *testing.T) {
	htmlSnippet := `
<p><a href="http://softwareengineeringdaily.com/wp-content/uploads/2025/10/SED1867-Cloudflare.txt">Please click here to see the transcript of this episode.</a></p>`

	got, err := FindTranscriptURL(htmlSnippet)
	if err != nil {
		t.Fatalf("FindTranscriptURL returned error: %v", err)
	}

	want := "http://softwareengineeringdaily.com/wp-content/uploads/2025/10/SED1867-Cloudflare.txt"
	if got != want {
		t.Fatalf("FindTranscriptURL = %q, want %q", got, want)
	}
}

func TestFindTranscriptURL_NoLink(t *testing.T) {
	if _, err := FindTranscriptURL(`<p><a href="/about">About</a></p>`); err == nil {
		t.Fatal("expected an error when no transcript link exists")
	}
	if _, err := FindTranscriptURL("   "); err == nil {
		t.Fatal("expected an error for empty HTML")
	}
}

func TestResolveTranscriptURL_Relative(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<a href="/files/ep-12.txt?dl=1">Transcript</a>`))
	if err != nil {
		t.Fatal(err)
	}

	got, err := ResolveTranscriptURL(doc, "https://example.com/episodes/12")
	if err != nil {
		t.Fatalf("ResolveTranscriptURL returned error: %v", err)
	}
	if got != "https://example.com/files/ep-12.txt?dl=1" {
		t.Errorf("ResolveTranscriptURL = %q", got)
	}
}

func TestDocumentText(t *testing.T) {
	text, err := DocumentText([]byte("hello"), "Jane Doe.txt?dl=1", "")
	if err != nil || text != "hello" {
		t.Errorf("txt: got %q, %v", text, err)
	}

	text, err = DocumentText([]byte("plain"), "download", "text/plain; charset=utf-8")
	if err != nil || text != "plain" {
		t.Errorf("content type fallback: got %q, %v", text, err)
	}

	if _, err := DocumentText([]byte("x"), "notes.docx", "application/octet-stream"); !errors.Is(err, ErrUnsupportedTranscript) {
		t.Errorf("expected ErrUnsupportedTranscript, got %v", err)
	}

	if _, err := DocumentText([]byte("not a pdf"), "broken.pdf", ""); err == nil {
		t.Error("expected an error for a corrupt pdf")
	}
}
