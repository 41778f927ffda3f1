package similarity

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/news-verifier/internal/models"
)

// DefaultParallelThreshold is the batch size from which rows are scored concurrently.
const DefaultParallelThreshold = 64

// Matrix is the symmetric table of pairwise results for one batch.
type Matrix struct {
	n       int
	results []Result // upper triangle, row-major, diagonal excluded
}

// Len returns the number of items the matrix was built from.
func (m *Matrix) Len() int { return m.n }

// At returns the result for items i and j. The diagonal is a perfect match.
func (m *Matrix) At(i, j int) Result {
	if i == j {
		return Result{TitleSim: 1, SummarySim: 1, KeywordSim: 1, Combined: 1}
	}
	if i > j {
		i, j = j, i
	}
	return m.results[m.offset(i, j)]
}

// Combined is shorthand for At(i, j).Combined.
func (m *Matrix) Combined(i, j int) float64 {
	return m.At(i, j).Combined
}

func (m *Matrix) offset(i, j int) int {
	// rows 0..i-1 hold (n-1)+(n-2)+...+(n-i) cells
	return i*(2*m.n-i-1)/2 + (j - i - 1)
}

// Matrix scores every unordered pair of items exactly once. Batches of at
// least parallelThreshold items are scored row-by-row across GOMAXPROCS
// goroutines; a threshold <= 0 disables the fan-out.
func (s *Scorer) Matrix(items []models.NewsItem, parallelThreshold int) *Matrix {
	n := len(items)
	m := &Matrix{n: n}
	if n < 2 {
		return m
	}
	m.results = make([]Result, n*(n-1)/2)

	row := func(i int) {
		for j := i + 1; j < n; j++ {
			m.results[m.offset(i, j)] = s.Score(items[i], items[j])
		}
	}

	if parallelThreshold <= 0 || n < parallelThreshold {
		for i := 0; i < n; i++ {
			row(i)
		}
		return m
	}

	// Each row writes a disjoint slice range; no locking needed.
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n-1; i++ {
		g.Go(func() error {
			row(i)
			return nil
		})
	}
	_ = g.Wait()
	return m
}
