package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rpforest/internal/math32"
	"github.com/hupe1980/rpforest/internal/rng"
)

// scriptedSource replays fixed values; used to pin down tie handling.
type scriptedSource struct {
	indices []int
	flips   []bool
}

func (s *scriptedSource) Index(n int) int {
	v := s.indices[0] % n
	s.indices = s.indices[1:]
	return v
}

func (s *scriptedSource) Flip() bool {
	v := s.flips[0]
	s.flips = s.flips[1:]
	return v
}

func TestMetricString(t *testing.T) {
	assert.Equal(t, "angular", Angular.String())
	assert.Equal(t, "euclidean", Euclidean.String())
	assert.Equal(t, "manhattan", Manhattan.String())
	assert.Equal(t, "Unknown(99)", Metric(99).String())
}

func TestFor(t *testing.T) {
	for _, m := range []Metric{Angular, Euclidean, Manhattan} {
		p, err := For(m)
		require.NoError(t, err)
		assert.Equal(t, m.String(), p.Name())
	}

	_, err := For(Metric(99))
	assert.Error(t, err)
}

func TestAngular(t *testing.T) {
	p, err := For(Angular)
	require.NoError(t, err)

	t.Run("Distance", func(t *testing.T) {
		// 2 - 2cos: orthogonal unit vectors are 2 apart, opposite ones 4.
		assert.InDelta(t, 0.0, float64(p.Distance([]float32{1, 0}, []float32{2, 0})), 1e-6)
		assert.InDelta(t, 2.0, float64(p.Distance([]float32{1, 0}, []float32{0, 1})), 1e-6)
		assert.InDelta(t, 4.0, float64(p.Distance([]float32{1, 0}, []float32{-1, 0})), 1e-6)
	})

	t.Run("ZeroNormIsTwo", func(t *testing.T) {
		assert.Equal(t, float32(2.0), p.Distance([]float32{0, 0}, []float32{1, 0}))
		assert.Equal(t, float32(2.0), p.Distance([]float32{0, 0}, []float32{0, 0}))
	})

	t.Run("Margin", func(t *testing.T) {
		// Offset is ignored: the angular layout has none.
		assert.Equal(t, float32(3), p.Margin([]float32{1, 1}, 99, []float32{1, 2}))
	})

	t.Run("NormalizedDistance", func(t *testing.T) {
		assert.Equal(t, float32(2), p.NormalizedDistance(4))
		assert.Equal(t, float32(0), p.NormalizedDistance(float32(math.Copysign(0, -1))))
	})

	t.Run("HasPlaneOffset", func(t *testing.T) {
		assert.False(t, p.HasPlaneOffset())
	})

	t.Run("CreateSplitNormalIsUnit", func(t *testing.T) {
		r := rng.NewKiss64()
		children := [][]float32{{1, 0}, {0.9, 0.1}, {0, 1}, {0.1, 0.9}, {0.8, 0.2}}
		normal, offset := p.CreateSplit(children, 2, r)
		assert.InDelta(t, 1.0, float64(math32.Norm(normal)), 1e-5)
		assert.Equal(t, float32(0), offset)
	})
}

func TestEuclidean(t *testing.T) {
	p, err := For(Euclidean)
	require.NoError(t, err)

	t.Run("DistanceIsSquared", func(t *testing.T) {
		assert.Equal(t, float32(25), p.Distance([]float32{0, 0}, []float32{3, 4}))
	})

	t.Run("NormalizedDistance", func(t *testing.T) {
		assert.Equal(t, float32(5), p.NormalizedDistance(25))
		assert.Equal(t, float32(0), p.NormalizedDistance(-1))
	})

	t.Run("MarginIncludesOffset", func(t *testing.T) {
		assert.Equal(t, float32(1.5), p.Margin([]float32{1, 0}, 0.5, []float32{1, 7}))
	})

	t.Run("HasPlaneOffset", func(t *testing.T) {
		assert.True(t, p.HasPlaneOffset())
	})

	t.Run("CreateSplitSeparatesClusters", func(t *testing.T) {
		r := rng.NewKiss64()
		var children [][]float32
		for i := 0; i < 10; i++ {
			children = append(children, []float32{float32(i) * 0.01, 0})
		}
		for i := 0; i < 10; i++ {
			children = append(children, []float32{10 + float32(i)*0.01, 0})
		}

		normal, offset := p.CreateSplit(children, 2, r)
		require.InDelta(t, 1.0, float64(math32.Norm(normal)), 1e-5)

		// The plane must put the two clusters on opposite sides.
		left := p.Margin(normal, offset, children[0]) > 0
		for i := 1; i < 10; i++ {
			assert.Equal(t, left, p.Margin(normal, offset, children[i]) > 0)
		}
		for i := 10; i < 20; i++ {
			assert.Equal(t, !left, p.Margin(normal, offset, children[i]) > 0)
		}
	})
}

func TestManhattan(t *testing.T) {
	p, err := For(Manhattan)
	require.NoError(t, err)

	t.Run("Distance", func(t *testing.T) {
		assert.Equal(t, float32(7), p.Distance([]float32{0, 0}, []float32{3, -4}))
	})

	t.Run("NormalizedDistanceClampsOnly", func(t *testing.T) {
		assert.Equal(t, float32(7), p.NormalizedDistance(7))
		assert.Equal(t, float32(0), p.NormalizedDistance(-0.25))
	})
}

func TestSide(t *testing.T) {
	p, err := For(Euclidean)
	require.NoError(t, err)

	t.Run("SignOfMargin", func(t *testing.T) {
		r := rng.NewKiss64()
		assert.True(t, p.Side([]float32{1, 0}, 0, []float32{2, 0}, r))
		assert.False(t, p.Side([]float32{1, 0}, 0, []float32{-2, 0}, r))
	})

	t.Run("ZeroMarginFlips", func(t *testing.T) {
		s := &scriptedSource{flips: []bool{true, false}}
		assert.True(t, p.Side([]float32{0, 0}, 0, []float32{1, 1}, s))
		assert.False(t, p.Side([]float32{0, 0}, 0, []float32{1, 1}, s))
	})
}

func TestTwoMeansBalances(t *testing.T) {
	p, err := For(Euclidean)
	require.NoError(t, err)

	// Two tight, well-separated clusters: the centroids must end up in
	// different clusters regardless of which points seeded them.
	r := rng.NewKiss64()
	var children [][]float32
	for i := 0; i < 50; i++ {
		children = append(children, []float32{float32(i%5) * 0.001, 1})
	}
	for i := 0; i < 50; i++ {
		children = append(children, []float32{float32(i%5) * 0.001, -1})
	}

	iv, jv := twoMeans(p, children, 2, false, r)
	assert.NotEqual(t, iv[1] > 0, jv[1] > 0)
}
