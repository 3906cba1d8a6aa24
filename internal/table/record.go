package table

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Canonical column names of the candidate and job tables.
const (
	ColJobTitle           = "job_title"
	ColJobDescription     = "job_description"
	ColOptimizedJD        = "optimized_jd"
	ColGradeLevel         = "grade_level"
	ColExtractedEntities  = "extracted_entities"
	ColJDBiasFlags        = "jd_bias_flags"
	ColJDAnonymized       = "jd_anonymized"
	ColCandidateID        = "candidate_id"
	ColRawTextPreview     = "raw_text_preview"
	ColGradeScore         = "grade_score"
	ColCVBiasFlags        = "cv_bias_flags"
	ColCVAnonymized       = "cv_anonymized"
	ColPersonaFitScore    = "persona_fit_score"
	ColExplanation        = "explanation"
	ColCompositeScore     = "composite_score"
	ColFeedbackAdjustment = "feedback_adjustment"
	ColUpdatedScore       = "updated_score"
)

// Entity is one extracted named entity.
type Entity struct {
	Text  string `json:"text" mapstructure:"text"`
	Label string `json:"label" mapstructure:"label"`
}

// CandidateRecord is the fully-annotated view of a candidate row. Columns
// absent at the row's pipeline position decode to zero values.
type CandidateRecord struct {
	CandidateID        string   `mapstructure:"candidate_id"`
	RawTextPreview     string   `mapstructure:"raw_text_preview"`
	ExtractedEntities  []Entity `mapstructure:"extracted_entities"`
	GradeScore         float64  `mapstructure:"grade_score"`
	CVBiasFlags        []string `mapstructure:"cv_bias_flags"`
	CVAnonymized       string   `mapstructure:"cv_anonymized"`
	PersonaFitScore    float64  `mapstructure:"persona_fit_score"`
	Explanation        string   `mapstructure:"explanation"`
	CompositeScore     float64  `mapstructure:"composite_score"`
	FeedbackAdjustment float64  `mapstructure:"feedback_adjustment"`
	UpdatedScore       float64  `mapstructure:"updated_score"`
}

// jsonCellHook decodes JSON list cells into slice-typed record fields.
func jsonCellHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}

	cell := data.(string)
	if cell == "" {
		return reflect.MakeSlice(to, 0, 0).Interface(), nil
	}

	out := reflect.New(to)
	if err := json.Unmarshal([]byte(cell), out.Interface()); err != nil {
		return nil, fmt.Errorf("decoding list cell: %w", err)
	}
	return out.Elem().Interface(), nil
}

// DecodeCandidate converts a row into a typed record. Numeric cells are
// decoded weakly (CSV carries everything as text), list cells as JSON.
func DecodeCandidate(row Row) (*CandidateRecord, error) {
	var record CandidateRecord

	cfg := &mapstructure.DecoderConfig{
		Result:           &record,
		WeaklyTypedInput: true,
		DecodeHook:       jsonCellHook,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("building row decoder: %w", err)
	}

	if err := decoder.Decode(map[string]string(row)); err != nil {
		return nil, fmt.Errorf("decoding candidate row: %w", err)
	}
	return &record, nil
}

// FormatScore renders a float cell with full precision.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
