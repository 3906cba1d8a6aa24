package report

import (
	"strings"
	"testing"

	"github.com/hiresense/hiresense/internal/store"
)

func candidates() []store.Candidate {
	return []store.Candidate{
		{CandidateID: "b.txt", UpdatedScore: 0.50, GradeScore: 0.6, PersonaFitScore: 0.3, CVBiasFlags: `["ninja","guru"]`},
		{CandidateID: "a.txt", UpdatedScore: 0.50, GradeScore: 0.4, PersonaFitScore: 0.5, CVBiasFlags: `[]`},
		{CandidateID: "c.txt", UpdatedScore: 0.80, GradeScore: 0.9, PersonaFitScore: 0.7, CVBiasFlags: ""},
	}
}

func TestTopNOrderAndSize(t *testing.T) {
	entries := TopN(candidates(), 2)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Candidate != "c.txt" {
		t.Fatalf("best updated_score must rank first, got %s", entries[0].Candidate)
	}
	// Equal scores break ties by candidate id.
	if entries[1].Candidate != "a.txt" {
		t.Fatalf("expected a.txt on the tie, got %s", entries[1].Candidate)
	}
}

func TestTopNLargerThanSet(t *testing.T) {
	entries := TopN(candidates(), 10)
	if len(entries) != 3 {
		t.Fatalf("expected all 3 entries, got %d", len(entries))
	}
	if got := TopN(nil, 5); len(got) != 0 {
		t.Fatal("an empty set must project to an empty report")
	}
}

func TestScoreRescaling(t *testing.T) {
	entries := TopN(candidates(), 1)
	e := entries[0]
	if e.MatchScore != 80 || e.CVScore != 90 || e.PersonaScore != 70 {
		t.Fatalf("scores must be rescaled to 0-100, got %+v", e)
	}
}

func TestBiasFreeScore(t *testing.T) {
	cases := []struct {
		cell string
		want float64
	}{
		{`[]`, 100},
		{`["ninja","guru"]`, 80},
		{"", 100},
		{"not json", 100},
		{`["a","b","c","d","e","f","g","h","i","j","k"]`, -10},
	}
	for _, c := range cases {
		if got := biasFreeScore(c.cell); got != c.want {
			t.Fatalf("biasFreeScore(%q) = %v, want %v", c.cell, got, c.want)
		}
	}
}

func TestExportCSV(t *testing.T) {
	var b strings.Builder
	if err := Export(&b, TopN(candidates(), 3)); err != nil {
		t.Fatalf("export: %v", err)
	}

	out := b.String()
	if !strings.HasPrefix(out, "candidate,match_score,cv_score,persona_score,bias_free_score,explanation") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "c.txt") {
		t.Fatalf("export is missing candidates: %q", out)
	}
}
