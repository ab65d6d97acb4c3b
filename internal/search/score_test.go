package search

import "testing"

func TestFieldScore_Substring(t *testing.T) {
	score, ok := fieldScore("pyt", "Python Guide")
	if !ok {
		t.Fatal("expected substring match")
	}
	if score != 0 {
		t.Errorf("substring match should score 0, got %f", score)
	}
}

func TestFieldScore_EditDistance(t *testing.T) {
	score, ok := fieldScore("javascrpt", "javascript tips")
	if !ok {
		t.Fatal("expected fuzzy match")
	}
	if score <= 0 || score > queryTolerance {
		t.Errorf("one-character typo should score within tolerance, got %f", score)
	}
}

func TestFieldScore_EmptyField(t *testing.T) {
	if _, ok := fieldScore("query", ""); ok {
		t.Error("empty field must not match")
	}
}

func TestScoreDocument_TitleOutranksAuthor(t *testing.T) {
	byTitle := Document{Title: "deploy guide"}
	byAuthor := Document{Title: "release notes", Authors: "deploy team"}

	titleScore, ok := scoreDocument("deploy", byTitle, queryTolerance)
	if !ok {
		t.Fatal("expected title match")
	}
	authorScore, ok := scoreDocument("deploy", byAuthor, queryTolerance)
	if !ok {
		t.Fatal("expected author match")
	}
	if titleScore >= authorScore {
		t.Errorf("title match (%f) should outrank author match (%f) at equal distance", titleScore, authorScore)
	}
}

func TestScoreDocument_NoMatch(t *testing.T) {
	doc := Document{Title: "gardening", Content: "tomatoes and soil"}
	if _, ok := scoreDocument("kubernetes", doc, queryTolerance); ok {
		t.Error("unrelated document must not match")
	}
}

func TestScoreDocument_LooserToleranceMatchesMore(t *testing.T) {
	doc := Document{Title: "concurrency"}

	// "curry" is 6 edits from "concurrency" (normalized 0.55): too far
	// for the strict query bound, close enough for suggestions.
	if _, ok := scoreDocument("curry", doc, queryTolerance); ok {
		t.Error("distant match should fail the strict tolerance")
	}
	if _, ok := scoreDocument("curry", doc, suggestionTolerance); !ok {
		t.Error("distant match should pass the loose suggestion tolerance")
	}
}
