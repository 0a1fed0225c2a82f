package chat

import (
	"sort"
	"strings"
	"unicode"

	"github.com/coregx/ahocorasick"
	"github.com/orsinium-labs/stopwords"

	"github.com/kittclouds/chatsession/pkg/pool"
	"github.com/kittclouds/chatsession/pkg/response"
)

var englishStopwords = stopwords.MustGet("en")

// SearchHit is one chat matching a search.
type SearchHit struct {
	Chat    response.ChatSummary `json:"chat"`
	Matches int                  `json:"matches"`
	Terms   []string             `json:"terms"` // distinct query terms found, in query order
}

// Search finds active chats whose name or messages contain any query term.
// Terms are lower-cased words with English stopwords removed. Hits are
// ordered by match count, then by most recent update.
func (m *Manager) Search(query string) []SearchHit {
	terms := SearchTerms(query)
	if len(terms) == 0 {
		return nil
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(terms).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		m.log.Error().Err(err).Str("query", query).Msg("failed to build search automaton")
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	hay := pool.GetBuffer()
	defer pool.PutBuffer(hay)

	var hits []SearchHit
	for _, c := range m.active {
		hay.Reset()
		hay.WriteString(strings.ToLower(c.Name))
		for _, msg := range c.Messages {
			hay.WriteByte('\n')
			hay.WriteString(strings.ToLower(msg.Content))
		}

		matches := ac.FindAllOverlapping(hay.Bytes())
		if len(matches) == 0 {
			continue
		}

		found := make([]bool, len(terms))
		for _, match := range matches {
			if match.PatternID >= 0 && match.PatternID < len(terms) {
				found[match.PatternID] = true
			}
		}
		var matched []string
		for i, ok := range found {
			if ok {
				matched = append(matched, terms[i])
			}
		}

		hits = append(hits, SearchHit{
			Chat:    response.FromChat(c),
			Matches: len(matches),
			Terms:   matched,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Matches != hits[j].Matches {
			return hits[i].Matches > hits[j].Matches
		}
		return hits[i].Chat.UpdatedAt > hits[j].Chat.UpdatedAt
	})
	return hits
}

// SearchTerms splits a query into distinct lower-case words, dropping
// English stopwords.
func SearchTerms(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(words))
	var terms []string
	for _, w := range words {
		if seen[w] || englishStopwords.Contains(w) {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}
