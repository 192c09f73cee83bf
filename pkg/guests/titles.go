package guests

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var titleReplacer = strings.NewReplacer(
	"–", "-", "—", "-", "−", "-",
	"‘", "'", "’", "'", "“", `"`, "”", `"`,
)

var insignificant = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "with": true,
	"by": true, "for": true, "to": true, "of": true, "in": true, "on": true,
}

// NormalizeTitle folds compatibility characters, dashes and smart quotes,
// lower-cases and collapses whitespace.
func NormalizeTitle(s string) string {
	s = norm.NFKC.String(s)
	s = titleReplacer.Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// TitlesMatch is a loose comparison between a feed title and a link text on
// a show page: equal, contained, same first five words, or same first three
// significant words.
func TitlesMatch(a, b string) bool {
	ta, tb := NormalizeTitle(a), NormalizeTitle(b)
	if ta == "" || tb == "" {
		return false
	}
	if ta == tb || strings.Contains(ta, tb) || strings.Contains(tb, ta) {
		return true
	}

	wa, wb := strings.Fields(ta), strings.Fields(tb)
	if equalWords(firstN(wa, 5), firstN(wb, 5)) {
		return true
	}

	sa, sb := significant(wa, 3), significant(wb, 3)
	return len(sa) > 0 && equalWords(sa, sb)
}

func significant(words []string, n int) []string {
	var out []string
	for _, w := range words {
		if insignificant[w] {
			continue
		}
		out = append(out, w)
		if len(out) == n {
			break
		}
	}
	return out
}

func firstN(words []string, n int) []string {
	if len(words) > n {
		return words[:n]
	}
	return words
}

func equalWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
