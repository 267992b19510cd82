package math32

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	assert.Equal(t, float32(0), Dot([]float32{1, 0}, []float32{0, 1}))
	assert.Equal(t, float32(11), Dot([]float32{1, 2}, []float32{3, 4}))

	r := rand.New(rand.NewSource(1))
	a := make([]float32, 131)
	b := make([]float32, 131)
	var want float64
	for i := range a {
		a[i] = r.Float32() - 0.5
		b[i] = r.Float32() - 0.5
		want += float64(a[i]) * float64(b[i])
	}
	assert.InDelta(t, want, float64(Dot(a, b)), 1e-3)
}

func TestSquaredL2(t *testing.T) {
	assert.Equal(t, float32(0), SquaredL2([]float32{1, 2, 3}, []float32{1, 2, 3}))
	assert.Equal(t, float32(25), SquaredL2([]float32{0, 0}, []float32{3, 4}))
}

func TestL1(t *testing.T) {
	assert.Equal(t, float32(0), L1([]float32{1, 2}, []float32{1, 2}))
	assert.Equal(t, float32(7), L1([]float32{0, 0}, []float32{3, -4}))
}

func TestAbs(t *testing.T) {
	assert.Equal(t, float32(1.5), Abs(-1.5))
	assert.Equal(t, float32(1.5), Abs(1.5))
	assert.Equal(t, float32(0), Abs(float32(math.Copysign(0, -1))))
}

func TestNorm(t *testing.T) {
	assert.Equal(t, float32(5), Norm([]float32{3, 4}))
	assert.Equal(t, float32(0), Norm([]float32{0, 0}))
}

func TestNormalize(t *testing.T) {
	t.Run("UnitNorm", func(t *testing.T) {
		v := []float32{3, 4}
		Normalize(v)
		require.InDelta(t, 1.0, float64(Norm(v)), 1e-6)
		assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
		assert.InDelta(t, 0.8, float64(v[1]), 1e-6)
	})

	t.Run("ZeroVectorYieldsNaN", func(t *testing.T) {
		v := []float32{0, 0}
		Normalize(v)
		assert.True(t, math.IsNaN(float64(v[0])))
		assert.True(t, math.IsNaN(float64(v[1])))
	})
}
