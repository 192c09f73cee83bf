// Package guests pulls guest names and profile links out of episode metadata.
// Everything here is best effort: only what the title or description states
// explicitly is extracted, and nothing is looked up externally.
package guests

import (
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"podcast-digest/pkg/domain"
)

var (
	linkedInPattern = regexp.MustCompile(`(?i)https?://(?:www\.)?linkedin\.com/in/[a-z0-9_-]+/?`)
	linkedInSlug    = regexp.MustCompile(`(?i)linkedin\.com/in/([a-z0-9-]+)`)
	withPattern     = regexp.MustCompile(`\b(?i:with|featuring|feat\.?|ft\.?)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`)
	colonPattern    = regexp.MustCompile(`^([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+):`)
	onPattern       = regexp.MustCompile(`^([A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,3})\s+on\s+\S`)
	digits          = regexp.MustCompile(`\d+`)

	// pipeStopWords mark a "X | Y" title whose first part is a topic, not a person.
	pipeStopWords = map[string]bool{"how": true, "what": true, "why": true, "the": true, "episode": true}
)

const maxDescriptionLen = 150

// Extract returns the guests named in an episode title, enriched with
// LinkedIn links and short descriptions found in the description HTML.
// When the title names nobody, guests are derived from LinkedIn profile slugs.
func Extract(title, descriptionHTML string) []domain.Guest {
	links := LinkedInURLs(descriptionHTML)
	plain := PlainText(descriptionHTML)

	var guests []domain.Guest
	for _, name := range NamesFromTitle(title) {
		guest := domain.Guest{Name: name, Description: Describe(name, plain)}

		parts := strings.Fields(strings.ToLower(name))
		for _, link := range links {
			lower := strings.ToLower(link)
			if containsAnyPart(lower, parts) {
				guest.LinkedInURL = link
				break
			}
		}
		guests = append(guests, guest)
	}

	if len(guests) > 0 {
		return guests
	}

	for _, link := range links {
		if name := NameFromLinkedIn(link); name != "" {
			guests = append(guests, domain.Guest{Name: name, LinkedInURL: link})
		}
	}
	return guests
}

// NamesFromTitle applies the common title conventions:
// "Name | Topic", "Topic with Name", "Name: Topic", "Name on Topic" and
// "feat./ft. Name".
func NamesFromTitle(title string) []string {
	if strings.TrimSpace(title) == "" {
		return nil
	}

	var names []string

	if strings.Contains(title, "|") {
		first := strings.TrimSpace(strings.SplitN(title, "|", 2)[0])
		if !hasStopWord(first) && looksLikeName(first) {
			names = append(names, first)
		}
	}

	for _, m := range withPattern.FindAllStringSubmatch(title, -1) {
		names = append(names, m[1])
	}

	if m := colonPattern.FindStringSubmatch(title); m != nil {
		names = append(names, m[1])
	}

	if m := onPattern.FindStringSubmatch(title); m != nil && !hasStopWord(m[1]) {
		names = append(names, m[1])
	}

	return dedupe(names)
}

// LinkedInURLs returns the distinct LinkedIn profile links in a description,
// from anchors first and then from bare text.
func LinkedInURLs(descriptionHTML string) []string {
	if strings.TrimSpace(descriptionHTML) == "" {
		return nil
	}

	var found []string
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(descriptionHTML)); err == nil {
		doc.Find(`a[href*="linkedin.com/in/"]`).Each(func(_ int, a *goquery.Selection) {
			if m := linkedInPattern.FindString(a.AttrOr("href", "")); m != "" {
				found = append(found, m)
			}
		})
	}
	found = append(found, linkedInPattern.FindAllString(descriptionHTML, -1)...)

	seen := make(map[string]bool, len(found))
	var unique []string
	for _, u := range found {
		key := strings.ToLower(strings.TrimRight(u, "/"))
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, u)
	}
	return unique
}

// NameFromLinkedIn turns a profile slug such as "jane-doe-42" into "Jane Doe".
func NameFromLinkedIn(profileURL string) string {
	m := linkedInSlug.FindStringSubmatch(profileURL)
	if m == nil {
		return ""
	}

	caser := cases.Title(language.English)
	var parts []string
	for _, part := range strings.Split(digits.ReplaceAllString(m[1], ""), "-") {
		if part != "" {
			parts = append(parts, caser.String(part))
		}
	}
	return strings.Join(parts, " ")
}

// Describe finds a short "Name is a ..." or "Name, role ..." phrase.
func Describe(name, text string) string {
	if name == "" || text == "" {
		return ""
	}

	quoted := regexp.QuoteMeta(name)
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)` + quoted + `\s+is\s+(?:a\s+|the\s+)?([^.]+)`),
		regexp.MustCompile(`(?i)` + quoted + `,\s+([^.,]+)`),
	}

	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			desc := strings.TrimSpace(m[1])
			if desc != "" && len(desc) < maxDescriptionLen {
				return desc
			}
		}
	}
	return ""
}

// PlainText strips markup from an HTML fragment and collapses whitespace.
func PlainText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// NameFromFilename guesses the guest from an archive file name such as
// "Lenny's Podcast - Jane Doe - Pricing.txt".
func NameFromFilename(filename string, prefixes []string) string {
	name := strings.TrimSuffix(filename, path.Ext(filename))
	for _, prefix := range prefixes {
		name = strings.TrimPrefix(name, prefix)
	}

	if strings.Contains(name, " - ") {
		parts := strings.Split(name, " - ")
		for _, part := range parts {
			if looksLikeName(strings.TrimSpace(part)) {
				return strings.TrimSpace(part)
			}
		}
		name = parts[0]
	}

	return strings.TrimSpace(name)
}

// MatchScore rates how well an archive file name matches a guest name.
// Zero means no match.
func MatchScore(guest, filename string) int {
	guest = strings.ToLower(strings.TrimSpace(guest))
	if guest == "" {
		return 0
	}
	stem := strings.ToLower(strings.TrimSuffix(filename, path.Ext(filename)))

	score := 0
	if strings.Contains(stem, guest) || (stem != "" && strings.Contains(guest, stem)) {
		score += 10
	}

	parts := strings.Fields(guest)
	matched := 0
	for _, part := range parts {
		if strings.Contains(stem, part) {
			matched++
		}
	}
	if matched == len(parts) {
		score += 5
	} else {
		score += matched
	}

	return score
}

// NamedIn reports whether most parts of a guest name appear in text.
func NamedIn(guest, text string) bool {
	parts := strings.Fields(strings.ToLower(guest))
	if len(parts) == 0 {
		return false
	}
	text = strings.ToLower(text)

	matched := 0
	for _, part := range parts {
		if strings.Contains(text, part) {
			matched++
		}
	}
	return matched >= len(parts)/2+1
}

// looksLikeName accepts one to five words that each start with an upper-case letter.
func looksLikeName(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > 5 {
		return false
	}
	for _, w := range words {
		r := []rune(w)[0]
		if !(r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

func hasStopWord(s string) bool {
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if pipeStopWords[w] {
			return true
		}
	}
	return false
}

func containsAnyPart(s string, parts []string) bool {
	for _, p := range parts {
		if len(p) > 2 && strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if len(n) <= 2 || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}
