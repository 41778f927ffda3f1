// Package clustering groups reports of the same event and checks each group
// for agreement.
package clustering

import (
	"sort"

	"github.com/google/uuid"

	"github.com/DeafMist/news-verifier/internal/models"
	"github.com/DeafMist/news-verifier/internal/processing"
	"github.com/DeafMist/news-verifier/internal/similarity"
)

// clusterNamespace scopes the deterministic cluster IDs.
var clusterNamespace = uuid.MustParse("6f1c2a9e-4b7d-4c55-9a0e-3d2b8f61c7a4")

// Cluster is a group of items believed to report the same event. Members
// are indices into the slice passed to Build, seed first.
type Cluster struct {
	ID      string
	Members []int
}

// Size returns the number of members.
func (c Cluster) Size() int { return len(c.Members) }

// Builder performs greedy seed-based clustering.
//
// The algorithm is order-sensitive: items are visited in input order, and
// every unassigned item whose similarity to the current seed reaches the
// threshold joins the seed's cluster. Candidates are never compared to each
// other, so a cluster need not be a clique of mutually similar items.
type Builder struct {
	scorer            *similarity.Scorer
	parallelThreshold int
}

// NewBuilder returns a Builder that scores pairs with s. parallelThreshold
// is forwarded to Scorer.Matrix.
func NewBuilder(s *similarity.Scorer, parallelThreshold int) *Builder {
	return &Builder{scorer: s, parallelThreshold: parallelThreshold}
}

// Build partitions items into clusters sorted by descending size; clusters
// of equal size keep discovery order.
func (b *Builder) Build(items []models.NewsItem, threshold float64) []Cluster {
	return Partition(items, b.scorer.Matrix(items, b.parallelThreshold), threshold)
}

// Partition runs the greedy clustering over a precomputed matrix.
func Partition(items []models.NewsItem, m *similarity.Matrix, threshold float64) []Cluster {
	n := len(items)
	assigned := make([]bool, n)
	clusters := make([]Cluster, 0, n)

	type candidate struct {
		idx int
		sim float64
	}

	for seed := 0; seed < n; seed++ {
		if assigned[seed] {
			continue
		}
		assigned[seed] = true
		members := []int{seed}

		candidates := make([]candidate, 0, n-seed-1)
		for j := seed + 1; j < n; j++ {
			if !assigned[j] {
				candidates = append(candidates, candidate{idx: j, sim: m.Combined(seed, j)})
			}
		}
		sort.SliceStable(candidates, func(x, y int) bool {
			return candidates[x].sim > candidates[y].sim
		})

		for _, c := range candidates {
			if c.sim < threshold {
				break
			}
			assigned[c.idx] = true
			members = append(members, c.idx)
		}

		clusters = append(clusters, Cluster{
			ID:      clusterID(items[seed]),
			Members: members,
		})
	}

	sort.SliceStable(clusters, func(x, y int) bool {
		return len(clusters[x].Members) > len(clusters[y].Members)
	})
	return clusters
}

// clusterID derives a stable ID from the seed so that re-verifying the same
// batch yields the same IDs.
func clusterID(seed models.NewsItem) string {
	key := seed.ID
	if key == "" {
		key = processing.BuildDocumentID(seed.SourceID, seed.Title, seed.Summary+"|"+seed.Link, models.ParseTimestamp(seed.PublishedAt))
	}
	return uuid.NewSHA1(clusterNamespace, []byte(key)).String()
}
