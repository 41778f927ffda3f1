// Package trust provides the per-source trust prior used by the credibility engine.
package trust

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Trust bounds and the default for unknown sources.
const (
	MinTrust     = 0
	MaxTrust     = 10
	DefaultTrust = 5
)

// ErrOutOfRange is returned for a configured trust value outside [MinTrust, MaxTrust].
var ErrOutOfRange = errors.New("trust: value out of range")

// Registry resolves a source identifier to a trust score in [0,10]. Unknown
// identifiers yield the registry default, never an error.
type Registry interface {
	Trust(ctx context.Context, sourceID string) (int, error)
}

// Lookuper is implemented by registries that can tell a configured value
// apart from their default. Chain uses it to fall through.
type Lookuper interface {
	Lookup(ctx context.Context, sourceID string) (score int, found bool, err error)
}

// Static is an in-memory registry. Source IDs are case-insensitive.
type Static struct {
	def    int
	scores map[string]int
}

// NewStatic validates scores and builds a Static registry.
func NewStatic(def int, scores map[string]int) (*Static, error) {
	if def < MinTrust || def > MaxTrust {
		return nil, fmt.Errorf("default %d: %w", def, ErrOutOfRange)
	}

	normalized := make(map[string]int, len(scores))
	for id, v := range scores {
		if v < MinTrust || v > MaxTrust {
			return nil, fmt.Errorf("source %q = %d: %w", id, v, ErrOutOfRange)
		}
		normalized[normalizeID(id)] = v
	}

	return &Static{def: def, scores: normalized}, nil
}

// Trust returns the configured score for sourceID or the default.
func (s *Static) Trust(ctx context.Context, sourceID string) (int, error) {
	v, ok, _ := s.Lookup(ctx, sourceID)
	if !ok {
		return s.def, nil
	}
	return v, nil
}

// Lookup reports whether sourceID has a configured score.
func (s *Static) Lookup(_ context.Context, sourceID string) (int, bool, error) {
	v, ok := s.scores[normalizeID(sourceID)]
	return v, ok, nil
}

// Len returns the number of configured sources.
func (s *Static) Len() int { return len(s.scores) }

type fileConfig struct {
	Default *int           `yaml:"default"`
	Sources map[string]int `yaml:"sources"`
}

// LoadFile reads a YAML trust file:
//
//	default: 5
//	sources:
//	  coindesk: 9
//	  cryptoslate: 7
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trust file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("trust file %s: %w", path, err)
	}
	return s, nil
}

// Parse builds a Static registry from YAML. A missing default means DefaultTrust.
func Parse(data []byte) (*Static, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse trust yaml: %w", err)
	}

	def := DefaultTrust
	if cfg.Default != nil {
		def = *cfg.Default
	}
	return NewStatic(def, cfg.Sources)
}

// Chain consults registries in order and returns the first configured value.
// A registry that does not implement Lookuper ends the chain with its answer.
type Chain struct {
	def        int
	registries []Registry
}

// NewChain builds a Chain that falls back to def.
func NewChain(def int, registries ...Registry) *Chain {
	return &Chain{def: def, registries: registries}
}

// Trust implements Registry.
func (c *Chain) Trust(ctx context.Context, sourceID string) (int, error) {
	v, ok, err := c.Lookup(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return c.def, nil
	}
	return v, nil
}

// Lookup implements Lookuper so chains can nest.
func (c *Chain) Lookup(ctx context.Context, sourceID string) (int, bool, error) {
	for _, r := range c.registries {
		l, ok := r.(Lookuper)
		if !ok {
			v, err := r.Trust(ctx, sourceID)
			if err != nil {
				return 0, false, err
			}
			return v, true, nil
		}

		v, found, err := l.Lookup(ctx, sourceID)
		if err != nil {
			return 0, false, err
		}
		if found {
			return v, true, nil
		}
	}
	return 0, false, nil
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Clamp bounds v to [MinTrust, MaxTrust].
func Clamp(v int) int {
	if v < MinTrust {
		return MinTrust
	}
	if v > MaxTrust {
		return MaxTrust
	}
	return v
}
