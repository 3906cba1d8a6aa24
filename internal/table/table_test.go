package table

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRoundTripPreservesColumnsAndRows(t *testing.T) {
	tbl := New("candidate_id", "grade_score")
	if err := tbl.Append(Row{"candidate_id": "a.pdf", "grade_score": "0.5"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	var buf bytes.Buffer
	if err := tbl.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if len(got.Columns) != 2 || got.Columns[0] != "candidate_id" || got.Columns[1] != "grade_score" {
		t.Fatalf("unexpected columns: %v", got.Columns)
	}
	if got.Len() != 1 || got.Rows[0]["grade_score"] != "0.5" {
		t.Fatalf("unexpected rows: %v", got.Rows)
	}
}

func TestZeroRowTableKeepsHeader(t *testing.T) {
	tbl := New("candidate_id", "updated_score")

	var buf bytes.Buffer
	if err := tbl.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("expected zero rows, got %d", got.Len())
	}
	if !got.HasColumn("updated_score") {
		t.Fatalf("header lost on empty table: %v", got.Columns)
	}
}

func TestReadFileDecodesLatin1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.csv")
	// "Développeur" in ISO-8859-1: 0xE9 for é.
	data := []byte("job_title,job_description\nD\xe9veloppeur,Build services\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	tbl, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if got := tbl.Rows[0]["job_title"]; got != "Développeur" {
		t.Fatalf("latin-1 cell not decoded: %q", got)
	}
}

func TestAppendRejectsUndeclaredColumn(t *testing.T) {
	tbl := New("candidate_id")
	err := tbl.Append(Row{"candidate_id": "a", "sneaky": "x"})
	if err == nil || !strings.Contains(err.Error(), "undeclared") {
		t.Fatalf("expected undeclared column error, got %v", err)
	}
}

func TestAddColumnRejectsOverwrite(t *testing.T) {
	tbl := New("grade_score")
	if err := tbl.AddColumn("grade_score"); err == nil {
		t.Fatalf("expected duplicate column error")
	}
}

func TestContractValidate(t *testing.T) {
	c := Contract{Artifact: "jobs.csv", Requires: []string{"job_title", "job_description"}}

	ok := New("job_title", "job_description")
	if err := c.Validate(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := New("job_title")
	err := c.Validate(missing)
	var schemaErr *SchemaError
	if err == nil {
		t.Fatalf("expected schema error")
	}
	if !strings.Contains(err.Error(), "job_description") {
		t.Fatalf("error does not name the column: %v", err)
	}
	if ok := errors.As(err, &schemaErr); !ok || schemaErr.Column != "job_description" {
		t.Fatalf("expected *SchemaError for job_description, got %#v", err)
	}
}

func TestCheckEvolution(t *testing.T) {
	in := New("candidate_id", "grade_score")
	out := New("candidate_id", "grade_score", "persona_fit_score")

	if err := CheckEvolution(in, out, []string{"persona_fit_score"}, "persona_fit_results.csv"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dropped := New("candidate_id")
	if err := CheckEvolution(in, dropped, nil, "x.csv"); err == nil {
		t.Fatalf("expected dropped column error")
	}

	if err := CheckEvolution(in, out, []string{"grade_score"}, "x.csv"); err == nil {
		t.Fatalf("expected overwrite error")
	}
}

func TestDecodeCandidateRow(t *testing.T) {
	row := Row{
		"candidate_id":        "cv1.txt",
		"raw_text_preview":    "Experienced team leader",
		"extracted_entities":  `[{"text":"Acme","label":"ORG"}]`,
		"grade_score":         "0.8",
		"cv_bias_flags":       `["ninja"]`,
		"persona_fit_score":   "0.5",
		"composite_score":     "0.68",
		"feedback_adjustment": "-0.02",
		"updated_score":       "0.66",
	}

	rec, err := DecodeCandidate(row)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if rec.CandidateID != "cv1.txt" {
		t.Fatalf("unexpected candidate id: %q", rec.CandidateID)
	}
	if rec.GradeScore != 0.8 || rec.UpdatedScore != 0.66 {
		t.Fatalf("numeric cells not decoded: %+v", rec)
	}
	if len(rec.ExtractedEntities) != 1 || rec.ExtractedEntities[0].Label != "ORG" {
		t.Fatalf("entities not decoded: %+v", rec.ExtractedEntities)
	}
	if len(rec.CVBiasFlags) != 1 || rec.CVBiasFlags[0] != "ninja" {
		t.Fatalf("bias flags not decoded: %+v", rec.CVBiasFlags)
	}
}

func TestDecodeCandidateEmptyListCell(t *testing.T) {
	rec, err := DecodeCandidate(Row{"candidate_id": "a", "cv_bias_flags": ""})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rec.CVBiasFlags) != 0 {
		t.Fatalf("expected empty flag list, got %v", rec.CVBiasFlags)
	}
}

func TestListCellRoundTrip(t *testing.T) {
	cell, err := MarshalList([]string{"ninja", "guru"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := ParseStringList(cell)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 || got[0] != "ninja" || got[1] != "guru" {
		t.Fatalf("unexpected list: %v", got)
	}
}
