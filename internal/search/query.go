package search

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// DefaultLimit is the number of results returned when no limit is given.
const DefaultLimit = 10

// Field weights.
const (
	titleWeight    = 3
	aliasWeight    = 2.5
	tagWeight      = 2
	categoryWeight = 2
	contentWeight  = 1
)

// Result is a scored record.
type Result struct {
	Record  Record   `json:"record"`
	Score   float64  `json:"score"`
	Matches []string `json:"matches"`
	Snippet string   `json:"snippet"`
}

// Words lowercases query and splits it on spaces, dropping empty words.
func Words(query string) []string {
	var words []string
	for _, w := range strings.Split(strings.ToLower(query), " ") {
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// Query scores every record against query and returns the best matches,
// highest score first, each with a content snippet around its first match.
// Records scoring zero are dropped. limit <= 0 means DefaultLimit.
func Query(records []Record, query string, limit int) []Result {
	if limit <= 0 {
		limit = DefaultLimit
	}
	words := Words(query)
	if len(words) == 0 {
		return nil
	}

	var results []Result
	for _, r := range records {
		res := Score(r, words)
		if res.Score > 0 {
			results = append(results, res)
		}
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Snippet = Snippet(results[i].Record.Content, results[i].Matches)
	}
	return results
}

// Score computes the weighted match score of one record for the given
// lowercased query words.
func Score(r Record, words []string) Result {
	m := &matcher{words: words, phrase: strings.Join(words, " ")}
	m.field(r.Title, titleWeight)
	for _, a := range r.Aliases {
		m.field(a, aliasWeight)
	}
	for _, tag := range r.Tags {
		m.field(tag, tagWeight)
	}
	m.field(r.Content, contentWeight)
	m.field(r.Category, categoryWeight)
	return Result{Record: r, Score: m.score, Matches: m.matched}
}

type matcher struct {
	words   []string
	phrase  string
	score   float64
	matched []string
}

// field adds 2w per word equal to a whole space-delimited token, w per
// substring-only hit, and 3w when the full phrase occurs.
func (m *matcher) field(text string, weight float64) {
	text = strings.ToLower(text)
	var tokens []string
	for _, word := range m.words {
		if !strings.Contains(text, word) {
			continue
		}
		if tokens == nil {
			tokens = strings.Split(text, " ")
		}
		if slices.Contains(tokens, word) {
			m.score += 2 * weight
		} else {
			m.score += weight
		}
		if !slices.Contains(m.matched, word) {
			m.matched = append(m.matched, word)
		}
	}
	if strings.Contains(text, m.phrase) {
		m.score += 3 * weight
	}
}

// Snippet returns up to 50 characters of context on each side of the first
// match in content, with "..." marking cut ends. Without a match it returns
// the first 100 characters.
func Snippet(content string, matches []string) string {
	r := []rune(content)
	head := func() string {
		if len(r) <= 100 {
			return content
		}
		return string(r[:100]) + "..."
	}
	if len(matches) == 0 {
		return head()
	}
	loc := regexp.MustCompile("(?i)" + regexp.QuoteMeta(matches[0])).FindStringIndex(content)
	if loc == nil {
		return head()
	}
	at := utf8.RuneCountInString(content[:loc[0]])
	n := utf8.RuneCountInString(content[loc[0]:loc[1]])
	start := max(0, at-50)
	end := min(len(r), at+n+50)

	s := string(r[start:end])
	if start > 0 {
		s = "..." + s
	}
	if end < len(r) {
		s += "..."
	}
	return s
}
