package rag

import (
	"math"
	"testing"
)

func TestLexicalOverlap(t *testing.T) {
	tests := []struct {
		name  string
		query string
		text  string
		title string
		want  float64
	}{
		{
			name:  "all terms in text",
			query: "refund timeline",
			text:  "The refund timeline depends on the bank.",
			want:  1,
		},
		{
			name:  "half the terms",
			query: "refund timeline",
			text:  "Refund requests are reviewed daily.",
			want:  0.5,
		},
		{
			name:  "repeated terms count once",
			query: "refund refund",
			text:  "refund refund refund",
			want:  1,
		},
		{
			name:  "title bonus only",
			query: "shipping",
			text:  "General context without the keyword.",
			title: "International Shipping",
			want:  titleHitWeight,
		},
		{
			name:  "stopwords only",
			query: "how do I",
			text:  "how do I",
			want:  0,
		},
		{
			name:  "empty text",
			query: "invoice",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexicalOverlap(tt.query, tt.text, tt.title)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("lexicalOverlap(%q, %q, %q) = %f, want %f", tt.query, tt.text, tt.title, got, tt.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Hello, World! 5-7 days")
	want := []string{"hello", "world", "5", "7", "days"}
	if len(got) != len(want) {
		t.Fatalf("tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tokenize()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if len(tokenize("")) != 0 || len(tokenize("!!!")) != 0 {
		t.Error("tokenize() of empty or punctuation-only text should be empty")
	}
}

func TestSortResults(t *testing.T) {
	results := []SearchResult{
		{ChunkID: "c1", Text: "Shipping takes a week.", Similarity: 0.8},
		{ChunkID: "c4", Text: "Unrelated.", Similarity: 0.8},
		{ChunkID: "c3", Text: "Refund policy details.", Similarity: 0.8},
		{ChunkID: "c2", Text: "Anything.", Similarity: 0.9},
	}

	sortResults("refund", results)

	want := []string{"c2", "c3", "c1", "c4"}
	for i, id := range want {
		if results[i].ChunkID != id {
			t.Errorf("results[%d] = %s, want %s", i, results[i].ChunkID, id)
		}
	}
}
