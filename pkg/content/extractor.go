package content

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

var (
	blankLines = regexp.MustCompile(`\n{3,}`)
	runSpaces  = regexp.MustCompile(`[ \t]{2,}`)
)

// ExtractTitle extracts the page title from HTML content with fallback mechanisms
func ExtractTitle(htmlContent string) (string, error) {
	// Try readability first
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err == nil {
		title := strings.TrimSpace(article.Title)
		if title != "" {
			return title, nil
		}
	}

	// Fallback: Try parsing HTML directly with goquery
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	return TitleFromDocument(doc, nil)
}

// TitleFromDocument returns the first non-empty title found by the given
// selectors, then by the generic page title sources.
func TitleFromDocument(doc *goquery.Document, selectors []string) (string, error) {
	for _, sel := range selectors {
		if title := CleanText(doc.Find(sel).First().Text()); len(title) > 3 {
			return title, nil
		}
	}

	// Try meta property="og:title"
	if title, exists := doc.Find("meta[property='og:title']").Attr("content"); exists && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title), nil
	}

	// Try <h1> tag (often the main heading)
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title, nil
	}

	// Try <title> tag
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title, nil
	}

	return "", fmt.Errorf("title not found in HTML")
}

// ExtractSection returns the text following heading in pageText, cut at the
// first stop marker. ok is false when the heading is absent or the section is
// shorter than minLen.
func ExtractSection(pageText, heading string, stopMarkers []string, minLen int) (string, bool) {
	idx := strings.Index(pageText, heading)
	if heading == "" || idx < 0 {
		return "", false
	}

	section := pageText[idx+len(heading):]
	for _, marker := range stopMarkers {
		if marker == "" {
			continue
		}
		if cut := strings.Index(section, marker); cut >= 0 {
			section = section[:cut]
		}
	}

	section = CleanText(section)
	if len(section) < minLen {
		return "", false
	}
	return section, true
}

// ExtractBySelectors returns the text of the first selector whose content is
// at least minLen bytes long.
func ExtractBySelectors(doc *goquery.Document, selectors []string, minLen int) (string, bool) {
	for _, sel := range selectors {
		text := CleanText(doc.Find(sel).First().Text())
		if len(text) >= minLen {
			return text, true
		}
	}
	return "", false
}

// ExtractLongParagraphs joins the paragraphs under the main content area that
// are longer than minParagraph, returning ok only when the result reaches minTotal.
func ExtractLongParagraphs(doc *goquery.Document, minParagraph, minTotal int) (string, bool) {
	var parts []string
	doc.Find(`main, [role="main"]`).First().Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := CleanText(p.Text()); len(text) > minParagraph {
			parts = append(parts, text)
		}
	})

	combined := strings.Join(parts, "\n\n")
	if len(combined) < minTotal {
		return "", false
	}
	return combined, true
}

// CleanText collapses runs of blank lines and spaces and trims the result.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = runSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
