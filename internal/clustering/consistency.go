package clustering

import (
	"errors"
	"time"

	"github.com/DeafMist/news-verifier/internal/models"
	"github.com/DeafMist/news-verifier/internal/processing"
	"github.com/DeafMist/news-verifier/internal/similarity"
)

// ExcerptLength is the rune limit of contradiction excerpts.
const ExcerptLength = 100

// ErrEmptyCluster is returned by Analyze for a cluster without members.
var ErrEmptyCluster = errors.New("clustering: empty cluster")

// Report describes the agreement inside one cluster.
type Report struct {
	SourceCount     int
	UniqueSources   int
	Confirmed       bool
	Contradictions  []models.Contradiction
	CredibilityMean float64
	MostRecent      *time.Time
}

// Analyzer inspects clusters for source diversity and disagreement.
type Analyzer struct {
	scorer                 *similarity.Scorer
	minConfirmations       int
	contradictionThreshold float64
}

// NewAnalyzer builds an Analyzer. A cluster is confirmed once it holds at
// least minConfirmations reports; two summaries contradict when their
// similarity is below contradictionThreshold.
func NewAnalyzer(s *similarity.Scorer, minConfirmations int, contradictionThreshold float64) *Analyzer {
	return &Analyzer{
		scorer:                 s,
		minConfirmations:       minConfirmations,
		contradictionThreshold: contradictionThreshold,
	}
}

// Analyze builds the Report for members.
func (a *Analyzer) Analyze(members []models.VerifiedItem) (Report, error) {
	if len(members) == 0 {
		return Report{}, ErrEmptyCluster
	}

	r := Report{
		SourceCount:    len(members),
		Confirmed:      len(members) >= a.minConfirmations,
		Contradictions: []models.Contradiction{},
	}

	sources := make(map[string]struct{}, len(members))
	total := 0
	for _, m := range members {
		sources[m.SourceID] = struct{}{}
		total += m.Credibility

		if ts, ok := m.Published(); ok {
			if r.MostRecent == nil || ts.After(*r.MostRecent) {
				t := ts
				r.MostRecent = &t
			}
		}
	}
	r.UniqueSources = len(sources)
	r.CredibilityMean = float64(total) / float64(len(members))

	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			x, y := members[i], members[j]
			if !a.scorer.Comparable(x.Summary, x.Language) || !a.scorer.Comparable(y.Summary, y.Language) {
				continue
			}
			sim := a.scorer.TextSimilarity(x.Summary, x.Language, y.Summary, y.Language)
			if sim >= a.contradictionThreshold {
				continue
			}
			r.Contradictions = append(r.Contradictions, models.Contradiction{
				SourceA:    x.SourceID,
				SourceB:    y.SourceID,
				Similarity: sim,
				ExcerptA:   processing.Truncate(x.Summary, ExcerptLength),
				ExcerptB:   processing.Truncate(y.Summary, ExcerptLength),
			})
		}
	}

	return r, nil
}
