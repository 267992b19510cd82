package rpforest

import (
	"cmp"
	"context"
	"math"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/rpforest/internal/queue"
)

// NNsByItem returns the n approximate nearest neighbors of an already
// indexed item, together with their normalized distances. searchK bounds
// the number of candidates collected before ranking; pass DefaultSearchK
// for n times the number of trees.
func (idx *Index) NNsByItem(ctx context.Context, item int32, n, searchK int) ([]int32, []float32, error) {
	start := time.Now()
	ids, dists, err := idx.nnsByItem(ctx, item, n, searchK)
	idx.metrics.RecordSearch(n, time.Since(start), err)
	return ids, dists, err
}

func (idx *Index) nnsByItem(ctx context.Context, item int32, n, searchK int) ([]int32, []float32, error) {
	if item < 0 || item >= idx.nItems {
		return nil, nil, &ErrInvalidItemID{ID: item}
	}
	return idx.searchAll(ctx, idx.arena.View(item).Vector(), n, searchK)
}

// NNsByVector returns the n approximate nearest neighbors of an arbitrary
// query vector, together with their normalized distances.
func (idx *Index) NNsByVector(ctx context.Context, w []float32, n, searchK int) ([]int32, []float32, error) {
	start := time.Now()
	ids, dists, err := idx.searchAll(ctx, w, n, searchK)
	idx.metrics.RecordSearch(n, time.Since(start), err)
	return ids, dists, err
}

// NNsByVectors answers one query per input vector, fanning out across
// CPUs. The query path is read-only, so the fan-out is safe on any built or
// loaded index as long as no mutating operation overlaps.
func (idx *Index) NNsByVectors(ctx context.Context, queries [][]float32, n, searchK int) ([][]int32, [][]float32, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	ids := make([][]int32, len(queries))
	dists := make([][]float32, len(queries))
	for i, w := range queries {
		i, w := i, w
		g.Go(func() error {
			start := time.Now()
			r, d, err := idx.searchAll(ctx, w, n, searchK)
			idx.metrics.RecordSearch(n, time.Since(start), err)
			if err != nil {
				return err
			}
			ids[i] = r
			dists[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return ids, dists, nil
}

// searchAll runs the best-first traversal across all roots.
//
// The priority queue holds (bound, node id) pairs ordered by bound
// descending. A node's bound is the best signed margin still available on
// the path to its subtree; clamping child bounds with min keeps bounds
// monotone non-increasing along any root-to-leaf path, which makes the
// traversal a correct best-first search. Every root is seeded with an
// infinite bound so each tree contributes.
func (idx *Index) searchAll(ctx context.Context, v []float32, n, searchK int) ([]int32, []float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if n <= 0 {
		return nil, nil, ErrInvalidK
	}
	if len(v) != idx.f {
		return nil, nil, &ErrDimensionMismatch{Expected: idx.f, Actual: len(v)}
	}
	if searchK < 0 {
		searchK = n * len(idx.roots)
	}

	layout := idx.arena.Layout()

	q := queue.NewMax(len(idx.roots) + 16)
	for _, root := range idx.roots {
		q.Push(queue.Item{Priority: float32(math.Inf(1)), Node: root})
	}

	nns := make([]int32, 0, min(searchK, 1024))
	for len(nns) < searchK {
		top, ok := q.Pop()
		if !ok {
			break
		}
		d, i := top.Priority, top.Node
		nd := idx.arena.View(i)
		desc := nd.Descendants()
		switch {
		case desc == 1 && i < idx.nItems:
			nns = append(nns, i)
		case desc <= layout.K:
			nns = append(nns, nd.DescendantIDs(int(desc))...)
		default:
			margin := idx.policy.Margin(nd.Vector(), nd.PlaneOffset(), v)
			q.Push(queue.Item{Priority: minBound(d, +margin), Node: nd.Child(1)})
			q.Push(queue.Item{Priority: minBound(d, -margin), Node: nd.Child(0)})
		}
	}

	// The same item can surface from several trees; sort by id and skip
	// consecutive equals so each distance is computed once.
	slices.Sort(nns)

	type candidate struct {
		dist float32
		id   int32
	}
	cands := make([]candidate, 0, len(nns))
	last := int32(-1)
	for _, j := range nns {
		if j == last {
			continue
		}
		last = j
		cands = append(cands, candidate{
			dist: idx.policy.Distance(v, idx.arena.View(j).Vector()),
			id:   j,
		})
	}

	slices.SortFunc(cands, func(a, b candidate) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	p := min(n, len(cands))
	ids := make([]int32, p)
	dists := make([]float32, p)
	for i := 0; i < p; i++ {
		ids[i] = cands[i].id
		dists[i] = idx.policy.NormalizedDistance(cands[i].dist)
	}
	return ids, dists, nil
}

// minBound clamps a child's bound by its parent's. Mirrors std::min: a NaN
// margin (degenerate split planes can produce one) leaves the parent bound
// in place.
func minBound(parent, margin float32) float32 {
	if margin < parent {
		return margin
	}
	return parent
}
