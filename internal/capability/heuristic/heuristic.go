// Package heuristic is the deterministic, fully offline capability backend.
// It trades model quality for reproducibility: same input, same scores, no
// network. It is the default backend and the one the test suite runs on.
package heuristic

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
	"unicode"

	"github.com/hiresense/hiresense/internal/capability"
	"github.com/hiresense/hiresense/internal/capability/linear"
	"github.com/hiresense/hiresense/internal/table"
)

const embeddingDims = 256

var wordRe = regexp.MustCompile(`\w+`)

// New returns a capability set backed entirely by local heuristics.
func New() *capability.Set {
	return &capability.Set{
		Embedder:   &Embedder{},
		Extractor:  &Extractor{},
		Sentiment:  &Sentiment{},
		Rephraser:  &Rephraser{},
		Attributor: linear.New(),
	}
}

// Embedder hashes tokens into a fixed-size bag-of-words vector. Cosine
// similarity over these vectors approximates lexical overlap.
type Embedder struct{}

func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, embeddingDims)
	for _, token := range wordRe.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%embeddingDims]++
	}
	return vec, nil
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "in": true,
	"is": true, "it": true, "of": true, "on": true, "or": true, "our": true,
	"the": true, "their": true, "this": true, "to": true, "we": true,
	"who": true, "will": true, "with": true, "you": true, "your": true,
}

var orgSuffixes = map[string]bool{
	"Inc": true, "Ltd": true, "LLC": true, "Corp": true, "GmbH": true,
}

// Extractor finds PERSON and ORG entities plus noun phrases. Person names are
// runs of two or more title-case tokens; the anonymization marker is all-caps
// and therefore never matches.
type Extractor struct{}

func (x *Extractor) ExtractEntities(_ context.Context, text string) (*capability.ExtractResult, error) {
	tokens := wordRe.FindAllString(text, -1)

	result := &capability.ExtractResult{}

	var run []string
	flush := func() {
		if len(run) >= 2 {
			result.Entities = append(result.Entities, table.Entity{
				Text:  strings.Join(run, " "),
				Label: "PERSON",
			})
		}
		run = nil
	}

	for _, token := range tokens {
		if orgSuffixes[token] && len(run) > 0 {
			result.Entities = append(result.Entities, table.Entity{
				Text:  strings.Join(append(run, token), " "),
				Label: "ORG",
			})
			run = nil
			continue
		}
		if titleCase(token) && !stopwords[strings.ToLower(token)] {
			run = append(run, token)
			continue
		}
		flush()
	}
	flush()

	result.NounPhrases = nounPhrases(tokens)
	return result, nil
}

func titleCase(token string) bool {
	runes := []rune(token)
	if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !unicode.IsLower(r) {
			return false
		}
	}
	return true
}

// nounPhrases returns lowercase runs of two or more content words.
func nounPhrases(tokens []string) []string {
	var phrases []string
	var run []string
	flush := func() {
		if len(run) >= 2 {
			phrases = append(phrases, strings.Join(run, " "))
		}
		run = nil
	}

	for _, token := range tokens {
		lower := strings.ToLower(token)
		if stopwords[lower] {
			flush()
			continue
		}
		run = append(run, lower)
	}
	flush()
	return phrases
}

var positiveWords = map[string]bool{
	"accomplished": true, "collaborative": true, "creative": true,
	"dedicated": true, "excellent": true, "experienced": true,
	"enthusiastic": true, "great": true, "motivated": true, "passionate": true,
	"proactive": true, "reliable": true, "skilled": true, "strong": true,
	"successful": true,
}

var negativeWords = map[string]bool{
	"bad": true, "conflict": true, "failed": true, "lazy": true,
	"negative": true, "poor": true, "problem": true, "unreliable": true,
	"weak": true,
}

// Sentiment classifies by lexicon vote. No hits or a tie yields NEUTRAL,
// which downstream persona scoring treats as zero positive probability.
type Sentiment struct{}

func (s *Sentiment) ClassifySentiment(_ context.Context, text string) (*capability.Sentiment, error) {
	pos, neg := 0, 0
	for _, token := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if positiveWords[token] {
			pos++
		}
		if negativeWords[token] {
			neg++
		}
	}

	switch {
	case pos > neg:
		return &capability.Sentiment{Label: capability.LabelPositive, Score: float64(pos) / float64(pos+neg)}, nil
	case neg > pos:
		return &capability.Sentiment{Label: "NEGATIVE", Score: float64(neg) / float64(pos+neg)}, nil
	}
	return &capability.Sentiment{Label: "NEUTRAL", Score: 0.5}, nil
}

var fillerRe = regexp.MustCompile(`(?i)\b(very|really|extremely|highly|truly) `)

// Rephraser lowers the reading grade by dropping intensifiers and splitting
// semicolon-joined clauses into separate sentences.
type Rephraser struct{}

func (r *Rephraser) Rephrase(_ context.Context, text string) (string, error) {
	out := fillerRe.ReplaceAllString(text, "")
	out = strings.ReplaceAll(out, "; ", ". ")
	return strings.TrimSpace(out), nil
}
