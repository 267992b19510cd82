package rpforest

import (
	"context"
	"time"

	"github.com/hupe1980/rpforest/internal/node"
)

// Build constructs q random-projection trees over the items added so far.
// Passing q = -1 selects the size-bounded auto mode: trees are added until
// the node count reaches twice the item count. Forbidden on a loaded index.
//
// After Build the last len(roots) nodes of the arena are byte-for-byte
// copies of the root nodes; Load recovers the roots from this tail without
// a file header.
func (idx *Index) Build(ctx context.Context, q int) error {
	start := time.Now()
	err := idx.build(ctx, q)
	idx.metrics.RecordBuild(q, time.Since(start), err)
	return err
}

func (idx *Index) build(ctx context.Context, q int) error {
	if idx.loaded {
		idx.logf("You can't build a loaded index")
		return ErrImmutableIndex
	}

	idx.nNodes = idx.nItems
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if q == -1 && idx.nNodes >= idx.nItems*2 {
			break
		}
		if q != -1 && len(idx.roots) >= q {
			break
		}
		idx.logf("pass %d...", len(idx.roots))

		indices := make([]int32, idx.nItems)
		for i := range indices {
			indices[i] = int32(i)
		}

		before := idx.nNodes
		idx.roots = append(idx.roots, idx.makeTree(indices))
		if q == -1 && idx.nNodes == before {
			// A pass over a single item allocates nothing (the tree is the
			// leaf itself), so the auto-mode size bound can never fire; one
			// tree is all there is.
			break
		}
	}

	// Copy the roots into the last segment of the arena so loaders can
	// recover them by scanning backward from the file tail.
	idx.arena.EnsureCapacity(idx.nNodes + int32(len(idx.roots)))
	for i, root := range idx.roots {
		idx.arena.CopyNode(idx.nNodes+int32(i), root)
	}
	idx.nNodes += int32(len(idx.roots))

	idx.logf("has %d nodes", idx.nNodes)
	return nil
}

// Unbuild drops all non-leaf nodes and roots, returning the index to the
// populating state. Forbidden on a loaded index.
func (idx *Index) Unbuild() error {
	if idx.loaded {
		idx.logf("You can't unbuild a loaded index")
		return ErrImmutableIndex
	}
	idx.roots = idx.roots[:0]
	idx.nNodes = idx.nItems
	return nil
}

// makeTree recursively splits indices and returns the id of the subtree
// root. Node ids are assigned post-order, so an internal node's id is
// always greater than its children's; recursing into the smaller side
// first keeps the smaller subtree contiguous with its split parent.
func (idx *Index) makeTree(indices []int32) int32 {
	if len(indices) == 1 {
		return indices[0]
	}

	layout := idx.arena.Layout()

	if len(indices) <= int(layout.K) {
		idx.arena.EnsureCapacity(idx.nNodes + 1)
		item := idx.nNodes
		idx.nNodes++
		m := idx.arena.View(item)
		m.SetDescendants(int32(len(indices)))
		m.SetDescendantIDs(indices)
		return item
	}

	children := make([][]float32, len(indices))
	for i, j := range indices {
		children[i] = idx.arena.View(j).Vector()
	}

	// The split is prepared in a scratch record because the recursion below
	// grows the arena and would relocate any in-arena pointer.
	m := node.NewScratch(layout)
	normal, offset := idx.policy.CreateSplit(children, idx.f, idx.random)
	m.SetVector(normal)
	m.SetPlaneOffset(offset)

	var childIndices [2][]int32
	for _, j := range indices {
		v := idx.arena.View(j).Vector()
		s := sideIndex(idx.policy.Side(m.Vector(), m.PlaneOffset(), v, idx.random))
		childIndices[s] = append(childIndices[s], j)
	}

	// If we didn't find a hyperplane, just randomize sides as a last option.
	for len(childIndices[0]) == 0 || len(childIndices[1]) == 0 {
		if len(indices) > 100000 {
			idx.logf("Failed splitting %d items", len(indices))
		}

		childIndices[0] = childIndices[0][:0]
		childIndices[1] = childIndices[1][:0]

		vec := m.Vector()
		for z := range vec {
			vec[z] = 0
		}

		for _, j := range indices {
			s := sideIndex(idx.random.Flip())
			childIndices[s] = append(childIndices[s], j)
		}
	}

	flip := 0
	if len(childIndices[0]) > len(childIndices[1]) {
		flip = 1
	}

	m.SetDescendants(int32(len(indices)))
	for side := 0; side < 2; side++ {
		s := side ^ flip
		m.SetChild(s, idx.makeTree(childIndices[s]))
	}

	idx.arena.EnsureCapacity(idx.nNodes + 1)
	item := idx.nNodes
	idx.nNodes++
	idx.arena.View(item).CopyFrom(m)

	return item
}

func sideIndex(s bool) int {
	if s {
		return 1
	}
	return 0
}
