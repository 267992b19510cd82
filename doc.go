// Package rpforest provides a memory-mapped approximate nearest-neighbor
// index over dense float32 vectors, built as a forest of random-projection
// trees.
//
// An index is populated and built offline, then persisted as a single
// headerless binary file of packed node records. Consumers memory-map the
// file read-only and query it concurrently without copying.
//
// # Quick Start
//
//	idx, _ := rpforest.New(128, distance.Angular)
//	for i, v := range vectors {
//	    _ = idx.AddItem(int32(i), v)
//	}
//	_ = idx.Build(ctx, 10)           // 10 trees
//	_ = idx.Save("vectors.ann")      // writes, then re-opens via mmap
//
//	ids, dists, _ := idx.NNsByVector(ctx, query, 10, rpforest.DefaultSearchK)
//
// # Trees and search_k
//
// The number of trees (Build's q) and the candidate budget (searchK) trade
// build size and query latency against recall. Neither affects correctness,
// only approximation quality. Passing q = -1 sizes the forest automatically
// at roughly twice the item count in nodes; passing
// rpforest.DefaultSearchK uses n times the number of trees.
//
// # Concurrency
//
// AddItem, Build, Unbuild, Save, Load, Unload and SetSeed are exclusive:
// callers must not overlap them with any other operation. Query operations
// (NNsByItem, NNsByVector, NNsByVectors, Distance, Item) are read-only and
// may run concurrently on a built or loaded index.
package rpforest
