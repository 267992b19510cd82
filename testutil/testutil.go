// Package testutil provides deterministic vector generators and an exact
// ground-truth search for index tests and benchmarks.
package testutil

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/rpforest/distance"
)

// SearchResult pairs an item id with its distance to a query.
type SearchResult struct {
	ID       int32
	Distance float32
}

// RNG encapsulates a seeded random number generator. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// UniformRangeVectors generates random vectors with values in [-1, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformRangeVectors(num, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := 0; i < num; i++ {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()*2 - 1
		}
		vectors[i] = vec
	}

	return vectors
}

// UnitVectors generates L2-normalized random vectors on the hypersphere,
// Gaussian-sampled for a uniform directional distribution.
func (r *RNG) UnitVectors(num, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := 0; i < num; i++ {
		vec := data[i*dimensions : (i+1)*dimensions]
		var norm float64
		for j := range vec {
			v := r.rand.NormFloat64()
			vec[j] = float32(v)
			norm += v * v
		}
		if norm == 0 {
			norm = 1
		}
		invNorm := float32(1.0 / math.Sqrt(norm))
		for j := range vec {
			vec[j] *= invNorm
		}
		vectors[i] = vec
	}

	return vectors
}

// BruteForceSearch performs exact search for ground truth under the given
// metric. Ties are broken by id, matching the index's ranking order.
func BruteForceSearch(m distance.Metric, vectors [][]float32, query []float32, k int) []SearchResult {
	policy, err := distance.For(m)
	if err != nil {
		panic(err)
	}

	results := make([]SearchResult, len(vectors))
	for i, v := range vectors {
		results[i] = SearchResult{
			ID:       int32(i),
			Distance: policy.Distance(query, v),
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	for i := range results {
		results[i].Distance = policy.NormalizedDistance(results[i].Distance)
	}
	return results
}

// ComputeRecall computes recall@k of approximate ids against ground truth.
func ComputeRecall(groundTruth []SearchResult, approximate []int32) float64 {
	if len(groundTruth) == 0 {
		return 1.0
	}

	truthSet := make(map[int32]struct{}, len(groundTruth))
	for _, r := range groundTruth {
		truthSet[r.ID] = struct{}{}
	}

	hits := 0
	for _, id := range approximate {
		if _, ok := truthSet[id]; ok {
			hits++
		}
	}

	return float64(hits) / float64(len(groundTruth))
}
