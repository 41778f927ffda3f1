package credibility_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/news-verifier/internal/credibility"
	"github.com/DeafMist/news-verifier/internal/models"
	"github.com/DeafMist/news-verifier/internal/trust"
)

func newEngine(t *testing.T, threshold float64, scores map[string]int) *credibility.Engine {
	t.Helper()
	registry, err := trust.NewStatic(trust.DefaultTrust, scores)
	require.NoError(t, err)

	cfg := credibility.DefaultConfig()
	cfg.SimilarityThreshold = threshold
	e, err := credibility.New(cfg, registry, nil)
	require.NoError(t, err)
	return e
}

func TestVerifyNearDuplicateTitlesConfirm(t *testing.T) {
	e := newEngine(t, 0.4, nil)
	items := []models.NewsItem{
		{Title: "Bitcoin hits $100k", SourceID: "coindesk", Language: "en"},
		{Title: "Bitcoin surpasses $100k", SourceID: "decrypt", Language: "en"},
	}

	out, err := e.Verify(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, out, 2)

	for _, v := range out {
		require.Equal(t, 4, v.CredibilityOriginal)
		require.Equal(t, 5, v.Credibility)
		require.True(t, v.CrossReference.Confirmed)
		require.Equal(t, 2, v.CrossReference.SourceCount)
		require.Equal(t, 2, v.CrossReference.UniqueSources)
		require.False(t, v.CrossReference.HasContradictions)
		require.Equal(t, []string{
			"Source trust: 5",
			"Missing publication date (-1)",
			"Confirmed by 2 independent sources (+1)",
		}, v.CredibilityReasons)
	}
	require.Equal(t, out[0].CrossReference.ClusterID, out[1].CrossReference.ClusterID)
}

func TestVerifyStrictThresholdKeepsNearDuplicatesApart(t *testing.T) {
	e := newEngine(t, credibility.DefaultConfig().SimilarityThreshold, nil)
	items := []models.NewsItem{
		{Title: "Bitcoin hits $100k", SourceID: "coindesk"},
		{Title: "Bitcoin surpasses $100k", SourceID: "decrypt"},
	}

	out, err := e.Verify(context.Background(), items)
	require.NoError(t, err)
	require.NotEqual(t, out[0].CrossReference.ClusterID, out[1].CrossReference.ClusterID)
	for _, v := range out {
		require.False(t, v.CrossReference.Confirmed)
	}
}

func TestVerifySensationalUnknownSource(t *testing.T) {
	e := newEngine(t, 0.4, nil)
	out, err := e.Verify(context.Background(), []models.NewsItem{
		{Title: "MIRACULOUS BITCOIN SCHEME GUARANTEED!!!", SourceID: "pumpgroup"},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	v := out[0]
	require.LessOrEqual(t, v.CredibilityOriginal, 10-2)
	require.Equal(t, 0, v.CredibilityOriginal)
	require.Equal(t, 0, v.Credibility)
	require.False(t, v.Confident)
	require.Equal(t, []string{
		"Source trust: 5",
		"Sensational language: guaranteed, miraculous (-2)",
		"Missing publication date (-1)",
		"Shouting headline (-2)",
		"Unconfirmed: single report",
	}, v.CredibilityReasons)
}

func TestVerifyContradictionsPenalizeEveryMember(t *testing.T) {
	e := newEngine(t, 0.4, nil)
	items := []models.NewsItem{
		{Title: "FTX halts withdrawals", Summary: "Hack wiped out 90% of reserves", SourceID: "coindesk", PublishedAt: "2022-11-08T10:00:00Z"},
		{Title: "FTX halts withdrawals", Summary: "Exchange shut down by police", SourceID: "decrypt", PublishedAt: "2022-11-08T11:00:00Z"},
		{Title: "FTX halts withdrawals", Summary: "Insolvent: billions missing", SourceID: "theblock", PublishedAt: "2022-11-08T12:00:00Z"},
	}

	out, err := e.Verify(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, out, 3)

	for _, v := range out {
		require.Equal(t, 3, v.CrossReference.SourceCount)
		require.True(t, v.CrossReference.HasContradictions)
		require.Equal(t, 5, v.CredibilityOriginal)
		// +2 for two extra sources, -2 for each of three contradicting pairs
		require.Equal(t, 1, v.Credibility)
		require.Contains(t, v.CredibilityReasons, "Contradictions across sources (-6)")
	}

	// equal scores: newest first
	require.Equal(t, "theblock", out[0].SourceID)
	require.Equal(t, "coindesk", out[2].SourceID)
}

func TestVerifySingleCleanItemKeepsBaseline(t *testing.T) {
	e := newEngine(t, 0.4, nil)
	out, err := e.Verify(context.Background(), []models.NewsItem{{
		Title:       "Ether rallies on ETF hopes",
		Summary:     "ETH gained ten percent overnight",
		SourceID:    "somesite",
		Link:        "https://somesite.example/ether",
		PublishedAt: "2024-05-20T09:00:00Z",
	}})
	require.NoError(t, err)

	v := out[0]
	require.Equal(t, 5, v.CredibilityOriginal)
	require.Equal(t, v.CredibilityOriginal, v.Credibility)
	require.False(t, v.CrossReference.Confirmed)
	require.Equal(t, []string{"Source trust: 5", "Unconfirmed: single report"}, v.CredibilityReasons)
}

func TestVerifyLowTrustDomain(t *testing.T) {
	e := newEngine(t, 0.4, map[string]int{"tipster": 8})

	tests := []struct {
		name string
		link string
		want int
	}{
		{name: "exact domain", link: "https://cryptopumpnews.com/a", want: 3},
		{name: "subdomain", link: "https://www.alerts.cryptopumpnews.com/a", want: 3},
		{name: "no scheme", link: "cryptopumpnews.com/a", want: 3},
		{name: "lookalike", link: "https://notcryptopumpnews.com/a", want: 8},
		{name: "empty", link: "", want: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := e.Baseline(context.Background(), models.NewsItem{
				Title:       "Solana outage resolved",
				SourceID:    "tipster",
				Link:        tt.link,
				PublishedAt: "2024-02-06",
			})
			require.NoError(t, err)
			require.Equal(t, tt.want, v.CredibilityOriginal)
		})
	}
}

func TestBaselineHeuristics(t *testing.T) {
	e := newEngine(t, 0.4, map[string]int{"coindesk": 9, "reuters": 10})

	tests := []struct {
		name string
		item models.NewsItem
		want int
	}{
		{name: "trusted and clean", item: models.NewsItem{Title: "SEC approves ETF", SourceID: "coindesk", PublishedAt: "2024-01-10T21:00:00Z"}, want: 9},
		{name: "malformed date counts as missing", item: models.NewsItem{Title: "SEC approves ETF", SourceID: "coindesk", PublishedAt: "yesterday"}, want: 8},
		{name: "double exclamation", item: models.NewsItem{Title: "Ether flips!! again!", SourceID: "coindesk", PublishedAt: "2024-01-10"}, want: 7},
		{name: "single exclamation is fine", item: models.NewsItem{Title: "Ether flips!", SourceID: "coindesk", PublishedAt: "2024-01-10"}, want: 9},
		{name: "all caps", item: models.NewsItem{Title: "SEC SUES BINANCE", SourceID: "coindesk", PublishedAt: "2024-01-10"}, want: 7},
		{name: "phrase in summary", item: models.NewsItem{Title: "Dogecoin moves", Summary: "Holders say it goes to the moon", SourceID: "coindesk", PublishedAt: "2024-01-10"}, want: 8},
		{name: "clamped at zero", item: models.NewsItem{Title: "SHOCKING SECRET: GET RICH, 100X GUARANTEED!!", Link: "https://t.me/pump", SourceID: "anon"}, want: 0},
		{name: "clamped at ten", item: models.NewsItem{Title: "Fed holds rates", SourceID: "reuters", PublishedAt: "2024-01-10"}, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := e.Baseline(context.Background(), tt.item)
			require.NoError(t, err)
			require.Equal(t, tt.want, v.CredibilityOriginal)
			require.Equal(t, tt.want, v.Credibility)
		})
	}
}

func TestVerifySameSourceIsNotIndependent(t *testing.T) {
	e := newEngine(t, 0.4, nil)
	item := models.NewsItem{Title: "Solana outage resolved", SourceID: "coindesk", PublishedAt: "2024-02-06"}

	out, err := e.Verify(context.Background(), []models.NewsItem{item, item})
	require.NoError(t, err)
	for _, v := range out {
		require.Equal(t, 2, v.CrossReference.SourceCount)
		require.Equal(t, 1, v.CrossReference.UniqueSources)
		require.Equal(t, v.CredibilityOriginal, v.Credibility)
		require.Contains(t, v.CredibilityReasons, "Unconfirmed: 2 reports from a single source")
	}
}

func TestVerifyMonotonicConfirmationBonus(t *testing.T) {
	e := newEngine(t, 0.4, nil)
	sources := []string{"a", "b", "c", "d", "e", "f"}

	previous := -1
	for k := 1; k <= len(sources); k++ {
		items := make([]models.NewsItem, 0, k)
		for _, s := range sources[:k] {
			items = append(items, models.NewsItem{Title: "Solana outage resolved", SourceID: s, PublishedAt: "2024-02-06"})
		}

		out, err := e.Verify(context.Background(), items)
		require.NoError(t, err)
		require.Equal(t, k, out[0].CrossReference.UniqueSources)
		require.GreaterOrEqual(t, out[0].Credibility, previous, "k=%d", k)
		previous = out[0].Credibility
	}
	require.Equal(t, 10, previous)
}

func sampleBatch() []models.NewsItem {
	titles := []string{
		"Bitcoin hits $100k", "Bitcoin surpasses $100k", "SEC sues Binance",
		"Binance sued by SEC", "Solana outage resolved", "SHOCKING dogecoin news!!",
		"Tether mints more USDT", "Ether rallies on ETF hopes",
	}
	items := make([]models.NewsItem, 0, 24)
	for i := 0; i < 24; i++ {
		item := models.NewsItem{
			Title:    titles[i%len(titles)],
			Summary:  fmt.Sprintf("Report number %d about the market", i%4),
			SourceID: fmt.Sprintf("source-%d", i%6),
			Link:     fmt.Sprintf("https://source-%d.example/%d", i%6, i),
		}
		if i%3 != 0 {
			item.PublishedAt = fmt.Sprintf("2024-03-%02dT10:00:00Z", 1+i%28)
		}
		items = append(items, item)
	}
	return items
}

func TestVerifyBoundsAndBaselinePreserved(t *testing.T) {
	e := newEngine(t, 0.4, map[string]int{"source-0": 10, "source-1": 0, "source-2": 9})
	items := sampleBatch()

	out, err := e.Verify(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, out, len(items))

	for _, v := range out {
		require.GreaterOrEqual(t, v.Credibility, 0)
		require.LessOrEqual(t, v.Credibility, 10)
		require.Equal(t, v.Credibility >= 6, v.Confident)

		base, err := e.Baseline(context.Background(), v.NewsItem)
		require.NoError(t, err)
		require.Equal(t, base.CredibilityOriginal, v.CredibilityOriginal)
		require.Equal(t, base.CredibilityReasons, v.CredibilityReasons[:len(base.CredibilityReasons)])
	}

	for i := 1; i < len(out); i++ {
		require.GreaterOrEqual(t, out[i-1].Credibility, out[i].Credibility)
	}
}

func TestVerifyIsDeterministic(t *testing.T) {
	items := sampleBatch()

	first, err := newEngine(t, 0.4, nil).Verify(context.Background(), items)
	require.NoError(t, err)

	e := newEngine(t, 0.4, nil)
	second, err := e.Verify(context.Background(), items)
	require.NoError(t, err)
	third, err := e.Verify(context.Background(), items)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, second, third)

	e.ResetCaches()
	fourth, err := e.Verify(context.Background(), items)
	require.NoError(t, err)
	require.Equal(t, first, fourth)
}

func TestVerifyDoesNotMutateInput(t *testing.T) {
	items := sampleBatch()
	snapshot := append([]models.NewsItem(nil), items...)

	_, err := newEngine(t, 0.4, nil).Verify(context.Background(), items)
	require.NoError(t, err)
	require.Equal(t, snapshot, items)
}

func TestVerifySortsNewestFirstThenUndated(t *testing.T) {
	e := newEngine(t, 0.4, map[string]int{"undated": 6})
	items := []models.NewsItem{
		{Title: "Solana outage resolved", SourceID: "undated"},
		{Title: "Tether mints more USDT", SourceID: "older", PublishedAt: "2024-01-01"},
		{Title: "Cardano upgrade ships", SourceID: "newer", PublishedAt: "2024-06-01T08:00:00Z"},
	}

	out, err := e.Verify(context.Background(), items)
	require.NoError(t, err)

	got := make([]string, len(out))
	for i, v := range out {
		require.Equal(t, 5, v.Credibility)
		got[i] = v.SourceID
	}
	require.Equal(t, []string{"newer", "older", "undated"}, got)
}

func TestVerifyEmptyInput(t *testing.T) {
	out, err := newEngine(t, 0.4, nil).Verify(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Empty(t, out)
}

type failingRegistry struct{ err error }

func (f failingRegistry) Trust(context.Context, string) (int, error) { return 0, f.err }

func TestVerifyPropagatesRegistryError(t *testing.T) {
	boom := errors.New("trust store unavailable")
	e, err := credibility.New(credibility.DefaultConfig(), failingRegistry{err: boom}, nil)
	require.NoError(t, err)

	out, err := e.Verify(context.Background(), []models.NewsItem{{Title: "x", SourceID: "y"}})
	require.Nil(t, out)
	require.Equal(t, boom, err)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	registry, err := trust.NewStatic(5, nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*credibility.Config)
	}{
		{name: "similarity above one", mutate: func(c *credibility.Config) { c.SimilarityThreshold = 1.5 }},
		{name: "negative contradiction", mutate: func(c *credibility.Config) { c.ContradictionThreshold = -0.1 }},
		{name: "negative confirmations", mutate: func(c *credibility.Config) { c.MinConfirmations = -1 }},
		{name: "negative bonus", mutate: func(c *credibility.Config) { c.BonusPerConfirmation = -2 }},
		{name: "confident out of range", mutate: func(c *credibility.Config) { c.ConfidentThreshold = 11 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := credibility.DefaultConfig()
			tt.mutate(&cfg)
			_, err := credibility.New(cfg, registry, nil)
			require.ErrorIs(t, err, credibility.ErrInvalidConfig)
		})
	}

	_, err = credibility.New(credibility.DefaultConfig(), nil, nil)
	require.ErrorIs(t, err, credibility.ErrInvalidConfig)
}
