package memory

import (
	"sort"
	"strings"
	"unicode"
)

// DefaultTopK is the number of records Query returns when asked for none.
const DefaultTopK = 5

// substringScore is the score of a record whose token stream contains the
// whole query token stream.
const substringScore = 2.0

var (
	lastQuestionPhrases = []string{"previous question", "last question"}
	lastFixPhrases      = []string{"last fix", "previous fix", "what fix"}
)

// Query returns up to max(1, topK) records relevant to text, most relevant
// first. Questions about "the last question" or "the last fix" return only
// the most recent record.
func (s *Store) Query(text string, topK int) []Record {
	records := s.All()
	if len(records) == 0 {
		return []Record{}
	}

	normalized := strings.ToLower(strings.TrimSpace(text))
	if containsAny(normalized, lastQuestionPhrases) || containsAny(normalized, lastFixPhrases) {
		return []Record{records[len(records)-1]}
	}

	type scored struct {
		score  float64
		record Record
	}
	ranked := make([]scored, len(records))
	for i, r := range records {
		ranked[i] = scored{score: Score(text, r.User+"\n"+r.Assistant), record: r}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if topK < 1 {
		topK = 1
	}
	if topK > len(ranked) {
		topK = len(ranked)
	}
	out := make([]Record, 0, topK)
	for _, r := range ranked[:topK] {
		if r.score > 0 {
			out = append(out, r.record)
		}
	}
	return out
}

// Score rates how well text matches query: 2.0 when the query's tokens
// appear contiguously in text, otherwise the fraction of distinct query
// tokens found in text.
func Score(query, text string) float64 {
	qTokens := Tokenize(query)
	tTokens := Tokenize(text)
	if len(qTokens) == 0 || len(tTokens) == 0 {
		return 0
	}
	if strings.Contains(strings.Join(tTokens, " "), strings.Join(qTokens, " ")) {
		return substringScore
	}

	tSet := make(map[string]struct{}, len(tTokens))
	for _, tok := range tTokens {
		tSet[tok] = struct{}{}
	}
	qSet := make(map[string]struct{}, len(qTokens))
	hits := 0
	for _, tok := range qTokens {
		if _, seen := qSet[tok]; seen {
			continue
		}
		qSet[tok] = struct{}{}
		if _, ok := tSet[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(qSet))
}

// Tokenize splits s into lowercase runs of letters and digits.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
