package rag

import (
	"strings"
	"unicode"
)

// titleHitWeight is added per query term that appears in the document title.
const titleHitWeight = 0.25

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"can": {}, "do": {}, "does": {}, "for": {}, "from": {}, "how": {}, "i": {}, "in": {}, "is": {},
	"it": {}, "my": {}, "of": {}, "on": {}, "or": {}, "the": {}, "to": {}, "what": {}, "when": {},
	"with": {},
}

// lexicalOverlap scores how much of the query a chunk covers: the fraction of distinct
// query terms present in the chunk text, plus titleHitWeight per term found in the title.
// It only orders results whose similarities are equal.
func lexicalOverlap(query, text, title string) float64 {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return 0
	}

	inText := termSet(text)
	inTitle := termSet(title)

	var textHits, titleHits int
	for term := range terms {
		if _, ok := inText[term]; ok {
			textHits++
		}
		if _, ok := inTitle[term]; ok {
			titleHits++
		}
	}
	return float64(textHits)/float64(len(terms)) + float64(titleHits)*titleHitWeight
}

// queryTerms returns the distinct non-stopword terms of q.
func queryTerms(q string) map[string]struct{} {
	terms := termSet(q)
	for term := range terms {
		if _, stop := stopwords[term]; stop {
			delete(terms, term)
		}
	}
	return terms
}

func termSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, term := range tokenize(text) {
		set[term] = struct{}{}
	}
	return set
}

// tokenize lowercases text and splits it on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
