package rpforest

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hupe1980/rpforest/distance"
	"github.com/hupe1980/rpforest/internal/node"
	"github.com/hupe1980/rpforest/internal/rng"
)

// DefaultSearchK leaves the candidate budget of a query unspecified; the
// searcher then uses n times the number of trees.
const DefaultSearchK = -1

// Index is a random-projection forest over vectors of a fixed dimension.
//
// The zero value is not usable; construct with New. An Index is either
// heap-backed (populating/built) or mmap-backed (after Load or Save).
// Mutating operations are forbidden in mmap mode.
type Index struct {
	f       int
	metric  distance.Metric
	policy  distance.Policy
	arena   *node.Arena
	random  *rng.Kiss64
	nItems  int32
	nNodes  int32
	roots   []int32
	loaded  bool
	verbose atomic.Bool

	logger  *Logger
	metrics MetricsCollector
}

// New allocates an empty index of dimension f with the chosen metric.
func New(f int, metric distance.Metric, optFns ...Option) (*Index, error) {
	if f <= 0 {
		return nil, &ErrInvalidDimension{Dimension: f}
	}
	policy, err := distance.For(metric)
	if err != nil {
		return nil, &ErrInvalidMetric{Metric: metric, cause: err}
	}

	o := applyOptions(optFns)

	idx := &Index{
		f:       f,
		metric:  metric,
		policy:  policy,
		arena:   node.NewArena(node.NewLayout(f, policy.HasPlaneOffset())),
		random:  rng.NewKiss64(),
		logger:  o.logger,
		metrics: o.metricsCollector,
	}
	idx.arena.OnGrow = func(newCap int32) {
		idx.logf("Reallocating to %d nodes", newCap)
	}
	if o.seed != nil {
		idx.random.SetSeed(*o.seed)
	}
	return idx, nil
}

// F returns the vector dimension the index was created with.
func (idx *Index) F() int { return idx.f }

// Metric returns the distance metric the index was created with.
func (idx *Index) Metric() distance.Metric { return idx.metric }

// NItems returns the current item count.
func (idx *Index) NItems() int32 { return idx.nItems }

// Loaded reports whether the index is backed by a read-only file mapping.
func (idx *Index) Loaded() bool { return idx.loaded }

// SetSeed seeds the random source that drives tree construction. Builds
// with identical inputs and seeds produce bit-identical indexes.
func (idx *Index) SetSeed(seed uint64) {
	idx.random.SetSeed(seed)
}

// SetVerbose toggles advisory diagnostics on the index's logger.
func (idx *Index) SetVerbose(v bool) {
	idx.verbose.Store(v)
}

// AddItem stores vector w at id item, growing the id space to cover it.
// Forbidden after Load.
func (idx *Index) AddItem(item int32, w []float32) error {
	start := time.Now()
	err := idx.addItem(item, w)
	idx.metrics.RecordAddItem(time.Since(start), err)
	return err
}

func (idx *Index) addItem(item int32, w []float32) error {
	if idx.loaded {
		idx.logf("You can't add an item to a loaded index")
		return ErrImmutableIndex
	}
	if item < 0 {
		return &ErrInvalidItemID{ID: item}
	}
	if len(w) != idx.f {
		return &ErrDimensionMismatch{Expected: idx.f, Actual: len(w)}
	}

	idx.arena.EnsureCapacity(item + 1)
	n := idx.arena.View(item)
	n.SetChild(0, 0)
	n.SetChild(1, 0)
	n.SetDescendants(1)
	n.SetVector(w)

	if item >= idx.nItems {
		idx.nItems = item + 1
	}
	return nil
}

// Item copies the stored vector for the given id.
func (idx *Index) Item(item int32) ([]float32, error) {
	if item < 0 || item >= idx.nItems {
		return nil, &ErrInvalidItemID{ID: item}
	}
	return slices.Clone(idx.arena.View(item).Vector()), nil
}

// Distance returns the normalized distance between two stored items.
func (idx *Index) Distance(i, j int32) (float32, error) {
	if i < 0 || i >= idx.nItems {
		return 0, &ErrInvalidItemID{ID: i}
	}
	if j < 0 || j >= idx.nItems {
		return 0, &ErrInvalidItemID{ID: j}
	}
	x := idx.arena.View(i).Vector()
	y := idx.arena.View(j).Vector()
	return idx.policy.NormalizedDistance(idx.policy.Distance(x, y)), nil
}

// Close releases whichever arena backing is live. The index returns to the
// empty initialized state and may be repopulated.
func (idx *Index) Close() error {
	idx.Unload()
	return nil
}

func (idx *Index) logf(format string, args ...any) {
	if idx.verbose.Load() {
		idx.logger.Info(fmt.Sprintf(format, args...))
	}
}
