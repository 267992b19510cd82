// Package node implements the packed node records of the forest and the
// arena that stores them.
//
// Every node in an index occupies the same number of bytes. The record is
// byte-packed: the file size divided by the record size is exactly the node
// count, and the record layout is the on-disk format. Fields are accessed
// through computed offsets with host endianness; there is no serialization
// step between memory and disk.
//
// A record is one of three kinds, keyed by its descendant count:
//
//   - 1: a leaf; the vector region holds a data point.
//   - 2..K: a bucket; descendant ids are stored directly in the combined
//     children+vector region instead of a split plane.
//   - >K: an internal split; children are the two child node ids and the
//     vector region holds the split-plane normal (plus its offset for the
//     Minkowski layout).
package node

import (
	"math"
	"unsafe"

	"github.com/hupe1980/rpforest/internal/mmap"
)

const (
	idSize     = 4 // int32 node ids
	scalarSize = 4 // float32 coordinates
)

// Layout describes the packed record for one metric family. The Minkowski
// family carries the split-plane offset a between the descendant count and
// the children pair; the angular family does not.
type Layout struct {
	F         int   // vector dimensionality
	HasOffset bool  // record carries the plane offset a
	Size      int   // byte size of every record
	K         int32 // max descendant ids a bucket record can hold

	offChildren int
	offVector   int
}

// NewLayout computes the record layout for dimension f.
func NewLayout(f int, hasOffset bool) Layout {
	l := Layout{F: f, HasOffset: hasOffset}
	l.offChildren = idSize
	if hasOffset {
		l.offChildren += scalarSize
	}
	l.offVector = l.offChildren + 2*idSize
	l.Size = l.offVector + f*scalarSize
	l.K = int32((l.Size - l.offChildren) / idSize)
	return l
}

// View is a typed window onto one record. It aliases arena (or scratch)
// memory and is invalidated by any arena growth.
type View struct {
	b []byte
	l *Layout
}

// NewScratch allocates a standalone zeroed record outside any arena. The
// builder fills a scratch split node before committing it, because the
// arena may relocate while the subtrees are being built.
func NewScratch(l *Layout) View {
	return View{b: make([]byte, l.Size), l: l}
}

// Descendants returns the node's descendant count.
func (v View) Descendants() int32 {
	return *(*int32)(unsafe.Pointer(&v.b[0]))
}

// SetDescendants sets the node's descendant count.
func (v View) SetDescendants(n int32) {
	*(*int32)(unsafe.Pointer(&v.b[0])) = n
}

// PlaneOffset returns the split-plane offset a, or 0 for layouts without one.
func (v View) PlaneOffset() float32 {
	if !v.l.HasOffset {
		return 0
	}
	return *(*float32)(unsafe.Pointer(&v.b[idSize]))
}

// SetPlaneOffset sets the split-plane offset a. No-op for layouts without one.
func (v View) SetPlaneOffset(a float32) {
	if !v.l.HasOffset {
		return
	}
	*(*float32)(unsafe.Pointer(&v.b[idSize])) = a
}

// Child returns child node id i (0 or 1).
func (v View) Child(i int) int32 {
	return *(*int32)(unsafe.Pointer(&v.b[v.l.offChildren+i*idSize]))
}

// SetChild sets child node id i (0 or 1).
func (v View) SetChild(i int, id int32) {
	*(*int32)(unsafe.Pointer(&v.b[v.l.offChildren+i*idSize])) = id
}

// DescendantIDs returns the first n ids of the bucket region. The slice
// aliases the record; n must not exceed Layout.K.
func (v View) DescendantIDs(n int) []int32 {
	return unsafe.Slice((*int32)(unsafe.Pointer(&v.b[v.l.offChildren])), n)
}

// SetDescendantIDs copies ids into the bucket region.
func (v View) SetDescendantIDs(ids []int32) {
	copy(v.DescendantIDs(len(ids)), ids)
}

// Vector returns the record's vector region. The slice aliases the record.
func (v View) Vector() []float32 {
	return unsafe.Slice((*float32)(unsafe.Pointer(&v.b[v.l.offVector])), v.l.F)
}

// SetVector copies w into the record's vector region.
func (v View) SetVector(w []float32) {
	copy(v.Vector(), w)
}

// CopyFrom copies the full record from src.
func (v View) CopyFrom(src View) {
	copy(v.b, src.b)
}

// Bytes returns the raw record bytes.
func (v View) Bytes() []byte {
	return v.b
}

// Arena is the contiguous node store, addressed as record i at byte offset
// i*Layout.Size. It has two backing modes: an owned, growable heap buffer
// during build, and a read-only file mapping after load. Only one mode is
// live at a time.
type Arena struct {
	layout   Layout
	data     []byte // heap mode
	capacity int32  // records the backing can hold
	mapped   *mmap.File

	// OnGrow, if set, is invoked with the new capacity before the heap
	// buffer is reallocated.
	OnGrow func(newCap int32)
}

// NewArena returns an empty heap-mode arena.
func NewArena(l Layout) *Arena {
	return &Arena{layout: l}
}

// Layout returns the arena's record layout.
func (a *Arena) Layout() *Layout {
	return &a.layout
}

// Capacity returns the number of records the backing can hold.
func (a *Arena) Capacity() int32 {
	return a.capacity
}

// Mapped reports whether the arena is backed by a file mapping.
func (a *Arena) Mapped() bool {
	return a.mapped != nil
}

// EnsureCapacity grows the heap buffer so records [0, n) exist. Growth
// reallocates to max(n, ceil((capacity+1)*1.3)) records; new bytes are
// zeroed. Growth relocates the arena: every View taken earlier is invalid
// afterwards.
func (a *Arena) EnsureCapacity(n int32) {
	if n <= a.capacity {
		return
	}
	newCap := int32(math.Ceil(float64(a.capacity+1) * 1.3))
	if n > newCap {
		newCap = n
	}
	if a.OnGrow != nil {
		a.OnGrow(newCap)
	}
	buf := make([]byte, int(newCap)*a.layout.Size)
	copy(buf, a.data)
	a.data = buf
	a.capacity = newCap
}

// View returns a typed window onto record i.
func (a *Arena) View(i int32) View {
	off := int(i) * a.layout.Size
	return View{b: a.buf()[off : off+a.layout.Size], l: &a.layout}
}

// Bytes returns the raw bytes of the first n records.
func (a *Arena) Bytes(n int32) []byte {
	return a.buf()[:int(n)*a.layout.Size]
}

// CopyNode copies record src over record dst.
func (a *Arena) CopyNode(dst, src int32) {
	a.View(dst).CopyFrom(a.View(src))
}

// AttachMapping switches the arena to mmap mode over m. The heap buffer, if
// any, is dropped.
func (a *Arena) AttachMapping(m *mmap.File) {
	a.data = nil
	a.mapped = m
	a.capacity = int32(len(m.Data) / a.layout.Size)
}

// Release disposes whichever backing is live and resets the arena to the
// empty heap mode.
func (a *Arena) Release() error {
	var err error
	if a.mapped != nil {
		err = a.mapped.Close()
		a.mapped = nil
	}
	a.data = nil
	a.capacity = 0
	return err
}

func (a *Arena) buf() []byte {
	if a.mapped != nil {
		return a.mapped.Data
	}
	return a.data
}
