// Package report projects persisted candidates into the ranked result list
// handed back to the caller.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/gocarina/gocsv"

	"github.com/hiresense/hiresense/internal/store"
)

// Entry is one ranked candidate. Scores are rescaled to 0-100 for
// presentation.
type Entry struct {
	Candidate     string  `csv:"candidate"`
	MatchScore    float64 `csv:"match_score"`
	CVScore       float64 `csv:"cv_score"`
	PersonaScore  float64 `csv:"persona_score"`
	BiasFreeScore float64 `csv:"bias_free_score"`
	Explanation   string  `csv:"explanation"`
}

// TopN projects the best n candidates, best first, ties broken by candidate
// id. Fewer than n candidates yields all of them.
func TopN(candidates []store.Candidate, n int) []Entry {
	ranked := make([]store.Candidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].UpdatedScore != ranked[j].UpdatedScore {
			return ranked[i].UpdatedScore > ranked[j].UpdatedScore
		}
		return ranked[i].CandidateID < ranked[j].CandidateID
	})

	if n > len(ranked) {
		n = len(ranked)
	}

	entries := make([]Entry, 0, n)
	for _, c := range ranked[:n] {
		entries = append(entries, Entry{
			Candidate:     c.CandidateID,
			MatchScore:    c.UpdatedScore * 100,
			CVScore:       c.GradeScore * 100,
			PersonaScore:  c.PersonaFitScore * 100,
			BiasFreeScore: biasFreeScore(c.CVBiasFlags),
			Explanation:   c.Explanation,
		})
	}
	return entries
}

// biasFreeScore derates 10 points per flagged term. An unparseable flag cell
// fails open to a clean score; heavy flagging may go negative.
func biasFreeScore(flagCell string) float64 {
	if flagCell == "" {
		return 100
	}

	var flags []string
	if err := json.Unmarshal([]byte(flagCell), &flags); err != nil {
		return 100
	}
	return (1 - float64(len(flags))/10) * 100
}

// Export writes the entries as CSV.
func Export(w io.Writer, entries []Entry) error {
	if err := gocsv.Marshal(&entries, w); err != nil {
		return fmt.Errorf("exporting report: %w", err)
	}
	return nil
}
