package distance

import (
	"fmt"
	"slices"

	"github.com/hupe1980/rpforest/internal/math32"
)

// Metric selects the distance family of an index. The choice also fixes the
// node record layout: Minkowski metrics carry a plane offset, angular does
// not.
type Metric int

const (
	Angular Metric = iota
	Euclidean
	Manhattan
)

func (m Metric) String() string {
	switch m {
	case Angular:
		return "angular"
	case Euclidean:
		return "euclidean"
	case Manhattan:
		return "manhattan"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// Source is the randomness the split heuristics consume.
type Source interface {
	// Index returns a uniform value in [0, n).
	Index(n int) int
	// Flip returns a uniform coin flip.
	Flip() bool
}

// Policy is a per-metric capability set. Distance is the internal ranking
// distance (squared for Euclidean); NormalizedDistance maps it to the
// user-facing value.
type Policy interface {
	Distance(x, y []float32) float32
	Margin(normal []float32, offset float32, y []float32) float32
	Side(normal []float32, offset float32, y []float32, r Source) bool
	CreateSplit(children [][]float32, f int, r Source) (normal []float32, offset float32)
	NormalizedDistance(d float32) float32
	HasPlaneOffset() bool
	Name() string
}

// For returns the policy for the given metric.
func For(m Metric) (Policy, error) {
	switch m {
	case Angular:
		return angular{}, nil
	case Euclidean:
		return euclidean{}, nil
	case Manhattan:
		return manhattan{}, nil
	default:
		return nil, fmt.Errorf("distance: unsupported metric: %v", m)
	}
}

// side turns a signed margin into a side. An exact zero margin is resolved
// by a coin flip so identical points still split.
func side(margin float32, r Source) bool {
	if margin != 0 {
		return margin > 0
	}
	return r.Flip()
}

type angular struct{}

// Distance is 2 - 2cos in its cheap form: if either norm is zero the
// cosine is treated as zero and the distance is 2.
func (angular) Distance(x, y []float32) float32 {
	pp := math32.Dot(x, x)
	qq := math32.Dot(y, y)
	pq := math32.Dot(x, y)
	ppqq := pp * qq
	if ppqq > 0 {
		return 2.0 - 2.0*pq/math32.Sqrt(ppqq)
	}
	return 2.0
}

func (angular) Margin(normal []float32, _ float32, y []float32) float32 {
	return math32.Dot(normal, y)
}

func (p angular) Side(normal []float32, offset float32, y []float32, r Source) bool {
	return side(p.Margin(normal, offset, y), r)
}

func (p angular) CreateSplit(children [][]float32, f int, r Source) ([]float32, float32) {
	iv, jv := twoMeans(p, children, f, true, r)
	normal := make([]float32, f)
	for z := 0; z < f; z++ {
		normal[z] = iv[z] - jv[z]
	}
	math32.Normalize(normal)
	return normal, 0
}

func (angular) NormalizedDistance(d float32) float32 {
	// The squared distance can come out as -0.0, so clamp before the root.
	return math32.Sqrt(max(d, 0))
}

func (angular) HasPlaneOffset() bool { return false }
func (angular) Name() string         { return "angular" }

// minkowski carries the margin and side shared by the Euclidean and
// Manhattan policies: the plane has an explicit offset term.
type minkowski struct{}

func (minkowski) Margin(normal []float32, offset float32, y []float32) float32 {
	return offset + math32.Dot(normal, y)
}

func (m minkowski) Side(normal []float32, offset float32, y []float32, r Source) bool {
	return side(m.Margin(normal, offset, y), r)
}

func (minkowski) HasPlaneOffset() bool { return true }

// minkowskiSplit builds a split plane through the midpoint of the two-means
// centroids: normal = iv - jv normalized, offset = -<normal, (iv+jv)/2>.
func minkowskiSplit(p Policy, children [][]float32, f int, r Source) ([]float32, float32) {
	iv, jv := twoMeans(p, children, f, false, r)
	normal := make([]float32, f)
	for z := 0; z < f; z++ {
		normal[z] = iv[z] - jv[z]
	}
	math32.Normalize(normal)
	var offset float32
	for z := 0; z < f; z++ {
		offset += -normal[z] * (iv[z] + jv[z]) / 2
	}
	return normal, offset
}

type euclidean struct{ minkowski }

func (euclidean) Distance(x, y []float32) float32 {
	return math32.SquaredL2(x, y)
}

func (p euclidean) CreateSplit(children [][]float32, f int, r Source) ([]float32, float32) {
	return minkowskiSplit(p, children, f, r)
}

func (euclidean) NormalizedDistance(d float32) float32 {
	return math32.Sqrt(max(d, 0))
}

func (euclidean) Name() string { return "euclidean" }

type manhattan struct{ minkowski }

func (manhattan) Distance(x, y []float32) float32 {
	return math32.L1(x, y)
}

func (p manhattan) CreateSplit(children [][]float32, f int, r Source) ([]float32, float32) {
	return minkowskiSplit(p, children, f, r)
}

func (manhattan) NormalizedDistance(d float32) float32 {
	return max(d, 0)
}

func (manhattan) Name() string { return "manhattan" }

const twoMeansIterations = 200

// twoMeans keeps two centroids seeded from distinct sample points and
// assigns further samples to whichever centroid is closer, weighting each
// centroid's distance by its cluster size. The weighting biases toward
// balanced partitions. In cosine mode the seed centroids and every incoming
// point are L2-normalized; the running means are not renormalized.
func twoMeans(p Policy, nodes [][]float32, f int, cosine bool, r Source) (iv, jv []float32) {
	count := len(nodes)

	i := r.Index(count)
	j := r.Index(count - 1)
	if j >= i { // ensure i != j
		j++
	}
	iv = slices.Clone(nodes[i])
	jv = slices.Clone(nodes[j])
	if cosine {
		math32.Normalize(iv)
		math32.Normalize(jv)
	}

	ic, jc := 1, 1
	for l := 0; l < twoMeansIterations; l++ {
		k := r.Index(count)
		di := float32(ic) * p.Distance(iv, nodes[k])
		dj := float32(jc) * p.Distance(jv, nodes[k])
		norm := float32(1)
		if cosine {
			norm = math32.Norm(nodes[k])
		}
		switch {
		case di < dj:
			for z := 0; z < f; z++ {
				iv[z] = (iv[z]*float32(ic) + nodes[k][z]/norm) / float32(ic+1)
			}
			ic++
		case dj < di:
			for z := 0; z < f; z++ {
				jv[z] = (jv[z]*float32(jc) + nodes[k][z]/norm) / float32(jc+1)
			}
			jc++
		}
		// exact tie: skip the sample
	}
	return iv, jv
}
