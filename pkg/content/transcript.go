package content

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	errEmptyHTML             = errors.New("empty HTML content")
	errNoTranscriptLink      = errors.New("no transcript link found in HTML")
	errFailedToParseHTML     = errors.New("failed to parse HTML for transcript link")
	ErrUnsupportedTranscript = errors.New("unsupported transcript type")
)

// FindTranscriptURL attempts to locate a transcript link (PDF, TXT, etc.) in the
// HTML content of a podcast episode page.
//
// The current strategy is:
//   - Parse the HTML with goquery
//   - Collect all <a> elements with an href
//   - Rank them by how much they look like a transcript link:
//     1) Anchor text mentions "transcript" and href looks like a document (.pdf/.txt)
//     2) href looks like a document (.pdf/.txt)
//     3) Anchor text mentions "transcript"
//   - Return the best-matching href, or an error if none are found.
//
// Use ResolveTranscriptURL when the page URL is known.
func FindTranscriptURL(html string) (string, error) {
	html = strings.TrimSpace(html)
	if html == "" {
		return "", errEmptyHTML
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", errors.Join(errFailedToParseHTML, err)
	}

	return FindTranscriptURLInDocument(doc)
}

// FindTranscriptURLInDocument ranks the anchors of an already parsed page.
func FindTranscriptURLInDocument(doc *goquery.Document) (string, error) {
	var (
		highPriority   []string // text mentions transcript AND href is document-like
		mediumPriority []string // href is document-like
		lowPriority    []string // text mentions transcript
	)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" {
			return
		}

		docLike := isDocumentLikeTranscriptHref(href)
		textMentionsTranscript := anchorTextMentionsTranscript(strings.TrimSpace(sel.Text()))

		switch {
		case docLike && textMentionsTranscript:
			highPriority = append(highPriority, href)
		case docLike:
			mediumPriority = append(mediumPriority, href)
		case textMentionsTranscript:
			lowPriority = append(lowPriority, href)
		}
	})

	for _, tier := range [][]string{highPriority, mediumPriority, lowPriority} {
		if len(tier) > 0 {
			return tier[0], nil
		}
	}

	return "", errNoTranscriptLink
}

// ResolveTranscriptURL finds the transcript link on a parsed page and
// resolves it against pageURL.
func ResolveTranscriptURL(doc *goquery.Document, pageURL string) (string, error) {
	href, err := FindTranscriptURLInDocument(doc)
	if err != nil {
		return "", err
	}
	return ResolveAgainst(pageURL, href)
}

// ResolveAgainst resolves a possibly relative href against base.
func ResolveAgainst(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// DocumentText converts a downloaded transcript document into plain text.
// The type is taken from the name's extension, then from the content type.
func DocumentText(body []byte, name, contentType string) (string, error) {
	switch strings.ToLower(path.Ext(documentPath(name))) {
	case ".txt":
		return string(body), nil
	case ".pdf":
		return ExtractTextFromPDFBytes(body)
	}

	lct := strings.ToLower(contentType)
	switch {
	case strings.Contains(lct, "text/plain"):
		return string(body), nil
	case strings.Contains(lct, "application/pdf"):
		return ExtractTextFromPDFBytes(body)
	default:
		return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedTranscript, name, contentType)
	}
}

// documentPath strips any query string so "a.txt?dl=1" keeps its extension.
func documentPath(name string) string {
	if parsed, err := url.Parse(name); err == nil && parsed.Path != "" {
		return parsed.Path
	}
	return name
}

// isDocumentLikeTranscriptHref returns true if the href looks like a transcript
// document we should try to fetch (e.g., .pdf or .txt).
func isDocumentLikeTranscriptHref(href string) bool {
	return HasTranscriptFileExtension(documentPath(href))
}

// HasTranscriptFileExtension reports whether p names a .pdf or .txt file.
func HasTranscriptFileExtension(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".pdf", ".txt":
		return true
	default:
		return false
	}
}

// anchorTextMentionsTranscript returns true if the anchor text clearly refers to
// a transcript link.
func anchorTextMentionsTranscript(text string) bool {
	if text == "" {
		return false
	}

	lower := strings.ToLower(text)
	return strings.Contains(lower, "transcript")
}
