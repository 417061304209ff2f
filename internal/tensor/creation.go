package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](Shape{3, 4}, backend)
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err) // Shape validation should prevent this
	}
	return New[T, B](raw, b)
}

// RandnFrom creates a tensor with standard normal values drawn from rng.
// Uses the Box-Muller transform; only float types are supported.
// The same seed always produces the same tensor.
func RandnFrom[T DType, B Backend](rng *rand.Rand, shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	n := t.NumElements()

	next := boxMuller(rng)
	switch data := any(t.Data()).(type) {
	case []float32:
		for i := 0; i < n; i++ {
			data[i] = float32(next())
		}
	case []float64:
		for i := 0; i < n; i++ {
			data[i] = next()
		}
	default:
		panic("Randn only supports float32 and float64 types")
	}
	return t
}

// RandnBytes draws standard normal values and converts them to uint8 on b
// with truncation and wrap-around, so most elements are 0, 1 or 255.
//
// Example:
//
//	bits := tensor.RandnBytes(rng, Shape{3, 4}, b).Mod(2) // 0/1 data
func RandnBytes[B Backend](rng *rand.Rand, shape Shape, b B) *Tensor[uint8, B] {
	return Cast[uint8](RandnFrom[float32, B](rng, shape, b))
}

// boxMuller returns a generator of standard normal samples. Each pair of
// uniforms yields two samples.
func boxMuller(rng *rand.Rand) func() float64 {
	var spare float64
	hasSpare := false
	return func() float64 {
		if hasSpare {
			hasSpare = false
			return spare
		}
		u1 := rng.Float64()
		for u1 == 0 {
			u1 = rng.Float64()
		}
		u2 := rng.Float64()
		r := math.Sqrt(-2.0 * math.Log(u1))
		spare = r * math.Sin(2.0*math.Pi*u2)
		hasSpare = true
		return r * math.Cos(2.0*math.Pi*u2)
	}
}
