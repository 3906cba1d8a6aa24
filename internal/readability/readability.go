// Package readability scores text with the Flesch-Kincaid grade level using a
// vowel-cluster syllable heuristic. The grade decides whether a job
// description is rewritten before it is used as the grading reference.
package readability

import (
	"regexp"
	"strings"
)

var (
	wordRe     = regexp.MustCompile(`\w+`)
	nonAlphaRe = regexp.MustCompile(`[^a-z]`)
	vowelRe    = regexp.MustCompile(`[aeiouy]+`)
	sentenceRe = regexp.MustCompile(`[.!?]+`)
)

// Syllables estimates the syllable count of a single word. Vowel clusters
// count as one syllable each; a trailing "e" drops one when more than one
// cluster was found. Words with any letters score at least 1.
func Syllables(word string) int {
	word = strings.ToLower(strings.TrimSpace(word))
	word = nonAlphaRe.ReplaceAllString(word, "")
	if word == "" {
		return 0
	}

	count := len(vowelRe.FindAllString(word, -1))
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

// Grade computes the Flesch-Kincaid grade level:
// 0.39*(words/sentences) + 11.8*(syllables/words) - 15.59.
func Grade(text string) float64 {
	sentences := 0
	for _, s := range sentenceRe.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}

	words := wordRe.FindAllString(text, -1)
	totalWords := len(words)
	if totalWords == 0 {
		totalWords = 1
	}

	syllables := 0
	for _, w := range words {
		syllables += Syllables(w)
	}

	return 0.39*(float64(totalWords)/float64(sentences)) + 11.8*(float64(syllables)/float64(totalWords)) - 15.59
}
