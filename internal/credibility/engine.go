package credibility

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/DeafMist/news-verifier/internal/clustering"
	applog "github.com/DeafMist/news-verifier/internal/logger"
	"github.com/DeafMist/news-verifier/internal/models"
	"github.com/DeafMist/news-verifier/internal/processing"
	"github.com/DeafMist/news-verifier/internal/similarity"
	"github.com/DeafMist/news-verifier/internal/trust"
)

// Engine runs the verification pipeline. It owns its memoization caches, so
// separate engines never share state. Verify is safe for concurrent use.
type Engine struct {
	cfg        Config
	registry   trust.Registry
	logger     *slog.Logger
	heuristics heuristics

	normalizer *processing.Normalizer
	keywords   *processing.KeywordExtractor
	builder    *clustering.Builder
	analyzer   *clustering.Analyzer
}

// New validates cfg and wires an Engine. A nil logger discards output.
func New(cfg Config, registry trust.Registry, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: nil trust registry", ErrInvalidConfig)
	}
	logger = applog.OrDiscard(logger)

	normalizer := processing.NewNormalizer(cfg.DefaultLanguage, cfg.CacheSize)
	keywords := processing.NewKeywordExtractor(normalizer, cfg.CacheSize)
	scorer := similarity.NewScorer(normalizer, keywords)

	return &Engine{
		cfg:        cfg,
		registry:   registry,
		logger:     logger,
		heuristics: newHeuristics(cfg),
		normalizer: normalizer,
		keywords:   keywords,
		builder:    clustering.NewBuilder(scorer, cfg.ParallelThreshold),
		analyzer:   clustering.NewAnalyzer(scorer, cfg.MinConfirmations, cfg.ContradictionThreshold),
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// ResetCaches drops every memoized normalization and keyword set.
func (e *Engine) ResetCaches() {
	e.normalizer.Reset()
	e.keywords.Reset()
}

// Baseline computes the pre-cluster score of one item. Registry errors are
// returned as is.
func (e *Engine) Baseline(ctx context.Context, item models.NewsItem) (models.VerifiedItem, error) {
	sourceTrust, err := e.registry.Trust(ctx, item.SourceID)
	if err != nil {
		return models.VerifiedItem{}, err
	}
	return e.heuristics.baseline(item, trust.Clamp(sourceTrust)), nil
}

// Verify annotates every item with its credibility and returns them sorted by
// credibility, newest first within equal scores, undated last. The input
// slice is not modified. ctx is only passed to the trust registry.
func (e *Engine) Verify(ctx context.Context, items []models.NewsItem) ([]models.VerifiedItem, error) {
	if len(items) == 0 {
		return []models.VerifiedItem{}, nil
	}

	baseline := make([]models.VerifiedItem, len(items))
	for i, item := range items {
		v, err := e.Baseline(ctx, item)
		if err != nil {
			return nil, err
		}
		baseline[i] = v
	}

	clusters := e.builder.Build(items, e.cfg.SimilarityThreshold)

	out := make([]models.VerifiedItem, 0, len(items))
	confirmed, contradicted := 0, 0
	for _, c := range clusters {
		members := make([]models.VerifiedItem, len(c.Members))
		for i, idx := range c.Members {
			members[i] = baseline[idx]
		}

		report, err := e.analyzer.Analyze(members)
		if err != nil {
			return nil, fmt.Errorf("analyze cluster %s: %w", c.ID, err)
		}
		if report.Confirmed {
			confirmed++
		}
		if len(report.Contradictions) > 0 {
			contradicted++
			e.logger.Debug("contradictions in cluster",
				slog.String("cluster_id", c.ID),
				slog.Int("count", len(report.Contradictions)),
			)
		}

		for _, m := range members {
			out = append(out, e.adjust(m, c.ID, report))
		}
	}

	sortVerified(out)

	e.logger.Debug("verified batch",
		slog.Int("items", len(items)),
		slog.Int("clusters", len(clusters)),
		slog.Int("confirmed_clusters", confirmed),
		slog.Int("contradicted_clusters", contradicted),
	)
	return out, nil
}

// adjust applies the cluster evidence to one baseline-scored member.
func (e *Engine) adjust(v models.VerifiedItem, clusterID string, r clustering.Report) models.VerifiedItem {
	bonus := max(0, r.UniqueSources-1) * e.cfg.BonusPerConfirmation
	penalty := ContradictionPenalty * len(r.Contradictions)

	var reasons []string
	switch {
	case bonus > 0:
		reasons = append(reasons, fmt.Sprintf("Confirmed by %d independent sources (+%d)", r.UniqueSources, bonus))
	case r.SourceCount == 1:
		reasons = append(reasons, "Unconfirmed: single report")
	default:
		reasons = append(reasons, fmt.Sprintf("Unconfirmed: %d reports from a single source", r.SourceCount))
	}
	if penalty > 0 {
		reasons = append(reasons, fmt.Sprintf("Contradictions across sources (-%d)", penalty))
	}

	out := v.WithReasons(reasons...)
	out.Credibility = clamp(v.CredibilityOriginal + bonus - penalty)
	out.Confident = out.Credibility >= e.cfg.ConfidentThreshold
	out.CrossReference = models.CrossReference{
		ClusterID:         clusterID,
		SourceCount:       r.SourceCount,
		UniqueSources:     r.UniqueSources,
		Confirmed:         r.Confirmed,
		HasContradictions: len(r.Contradictions) > 0,
	}
	return out
}

func sortVerified(items []models.VerifiedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Credibility != items[j].Credibility {
			return items[i].Credibility > items[j].Credibility
		}
		ti, okI := items[i].Published()
		tj, okJ := items[j].Published()
		switch {
		case okI && okJ:
			return ti.After(tj)
		case okI != okJ:
			return okI
		default:
			return false
		}
	})
}
