package rpforest

import (
	"os"
	"time"

	"github.com/hupe1980/rpforest/internal/mmap"
)

// Save writes the raw node arena to path and re-opens it through a
// read-only file mapping, so the same index instance transitions into mmap
// mode. The file carries no header: it is exactly nNodes packed records,
// with the root copies at the tail.
//
// If the write fails before the re-open, the heap index is left intact.
func (idx *Index) Save(path string) error {
	start := time.Now()
	err := idx.save(path)
	idx.metrics.RecordSave(time.Since(start), err)
	return err
}

func (idx *Index) save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(idx.arena.Bytes(idx.nNodes)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	idx.Unload()
	return idx.load(path)
}

// Load memory-maps the index file at path and recovers the tree roots by
// scanning the file tail. A failed load leaves the index in the empty
// initialized state.
func (idx *Index) Load(path string) error {
	start := time.Now()
	err := idx.load(path)
	idx.metrics.RecordLoad(time.Since(start), err)
	return err
}

func (idx *Index) load(path string) error {
	idx.reset()

	m, err := mmap.Open(path)
	if err != nil {
		return err
	}

	nodeSize := idx.arena.Layout().Size
	size := int64(len(m.Data))
	if size%int64(nodeSize) != 0 {
		m.Close()
		return &ErrMalformedFile{Path: path, Size: size, NodeSize: nodeSize}
	}

	idx.arena.AttachMapping(m)
	idx.nNodes = int32(size / int64(nodeSize))

	// Find the roots by scanning the end of the file and taking the run of
	// nodes sharing the same descendant count.
	degree := int32(-1)
	for i := idx.nNodes - 1; i >= 0; i-- {
		k := idx.arena.View(i).Descendants()
		if degree == -1 || k == degree {
			idx.roots = append(idx.roots, i)
			degree = k
		} else {
			break
		}
	}

	// The last real root precedes the appended copies and shares their
	// descendant count, so the scan counts it twice; drop it.
	if len(idx.roots) > 1 &&
		idx.arena.View(idx.roots[0]).Child(0) == idx.arena.View(idx.roots[len(idx.roots)-1]).Child(0) {
		idx.roots = idx.roots[:len(idx.roots)-1]
	}

	// The item count is taken from the roots' common descendant count, which
	// assumes every root spans all items.
	idx.loaded = true
	idx.nItems = degree
	if idx.nNodes == 0 {
		idx.nItems = 0
	}

	idx.logf("found %d roots with degree %d", len(idx.roots), degree)
	return nil
}

// Unload releases the file mapping or heap arena and restores the index to
// the empty initialized state.
func (idx *Index) Unload() {
	idx.reset()
	idx.logf("unloaded")
}

func (idx *Index) reset() {
	_ = idx.arena.Release()
	idx.loaded = false
	idx.nItems = 0
	idx.nNodes = 0
	idx.roots = idx.roots[:0]
}
