// Package credibility scores news items from source trust, content red flags
// and cross-source corroboration.
package credibility

import (
	"errors"
	"fmt"

	"github.com/DeafMist/news-verifier/internal/processing"
	"github.com/DeafMist/news-verifier/internal/similarity"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 10
)

// ContradictionPenalty is subtracted per contradiction found in a cluster.
const ContradictionPenalty = 2

// ErrInvalidConfig is wrapped by Config.Validate failures.
var ErrInvalidConfig = errors.New("credibility: invalid config")

// Config tunes the engine.
type Config struct {
	// SimilarityThreshold is the combined similarity at which an item joins a cluster seed.
	SimilarityThreshold float64
	// MinConfirmations is the cluster size at which a story counts as confirmed.
	MinConfirmations int
	// BonusPerConfirmation is awarded per independent source beyond the first.
	BonusPerConfirmation int
	// ContradictionThreshold is the summary similarity below which two reports disagree.
	ContradictionThreshold float64
	// ConfidentThreshold is the minimum final score for Confident.
	ConfidentThreshold int
	CacheSize          int
	DefaultLanguage    string
	ParallelThreshold  int

	LowTrustDomains    []string
	SensationalPhrases []string
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:    0.7,
		MinConfirmations:       2,
		BonusPerConfirmation:   1,
		ContradictionThreshold: 0.3,
		ConfidentThreshold:     6,
		CacheSize:              processing.DefaultCacheSize,
		DefaultLanguage:        "en",
		ParallelThreshold:      similarity.DefaultParallelThreshold,
		LowTrustDomains: []string{
			"cryptopumpnews.com",
			"bitcoinwarrior.net",
			"coinspeaker.news",
			"moonshotdaily.io",
			"cryptofreedomnews.org",
			"beincrypto-signals.com",
			"t.me",
		},
		SensationalPhrases: []string{
			"guaranteed",
			"miraculous",
			"shocking",
			"you won't believe",
			"to the moon",
			"get rich",
			"secret",
			"explodes",
			"skyrocket",
			"100x",
			"once in a lifetime",
			"act now",
			"insane",
			"mind-blowing",
		},
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1:
		return fmt.Errorf("%w: similarity threshold %v outside [0,1]", ErrInvalidConfig, c.SimilarityThreshold)
	case c.ContradictionThreshold < 0 || c.ContradictionThreshold > 1:
		return fmt.Errorf("%w: contradiction threshold %v outside [0,1]", ErrInvalidConfig, c.ContradictionThreshold)
	case c.MinConfirmations < 0:
		return fmt.Errorf("%w: min confirmations %d is negative", ErrInvalidConfig, c.MinConfirmations)
	case c.BonusPerConfirmation < 0:
		return fmt.Errorf("%w: bonus per confirmation %d is negative", ErrInvalidConfig, c.BonusPerConfirmation)
	case c.ConfidentThreshold < MinScore || c.ConfidentThreshold > MaxScore:
		return fmt.Errorf("%w: confident threshold %d outside [%d,%d]", ErrInvalidConfig, c.ConfidentThreshold, MinScore, MaxScore)
	case c.CacheSize < 0:
		return fmt.Errorf("%w: cache size %d is negative", ErrInvalidConfig, c.CacheSize)
	}
	return nil
}
