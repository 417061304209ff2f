package webgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/born-ml/devparity/internal/tensor"
)

// Every element lives on the GPU as one 32-bit word: f32 and i32 keep their
// bit pattern, uint8 and bool are widened to u32.

// wordType returns the WGSL scalar type used to store dtype.
func wordType(dtype tensor.DataType) (string, error) {
	switch dtype {
	case tensor.Float32:
		return "f32", nil
	case tensor.Int32:
		return "i32", nil
	case tensor.Uint8, tensor.Bool:
		return "u32", nil
	default:
		return "", fmt.Errorf("webgpu: dtype %s has no 32-bit GPU representation", dtype)
	}
}

// encodeWords packs x into a little-endian word buffer.
func encodeWords(x *tensor.RawTensor) ([]byte, error) {
	switch x.DType() {
	case tensor.Float32, tensor.Int32:
		out := make([]byte, x.ByteSize())
		copy(out, x.Data())
		return out, nil
	case tensor.Uint8, tensor.Bool:
		src := x.Data()
		out := make([]byte, 4*len(src))
		for i, v := range src {
			binary.LittleEndian.PutUint32(out[4*i:], uint32(v))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("webgpu: dtype %s has no 32-bit GPU representation", x.DType())
	}
}

// decodeWords unpacks a word buffer into a new tensor on device.
// Widened words are narrowed back by truncation; bool is any non-zero word.
func decodeWords(words []byte, shape tensor.Shape, dtype tensor.DataType, device tensor.Device) (*tensor.RawTensor, error) {
	out, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		return nil, err
	}
	n := out.NumElements()
	if len(words) < 4*n {
		return nil, fmt.Errorf("webgpu: read %d bytes, need %d", len(words), 4*n)
	}
	switch dtype {
	case tensor.Float32, tensor.Int32:
		copy(out.Data(), words[:4*n])
	case tensor.Uint8:
		dst := out.AsUint8()
		for i := range dst {
			dst[i] = uint8(binary.LittleEndian.Uint32(words[4*i:])) //nolint:gosec // G115: kernels mask to 8 bits
		}
	case tensor.Bool:
		dst := out.AsBool()
		for i := range dst {
			dst[i] = binary.LittleEndian.Uint32(words[4*i:]) != 0
		}
	default:
		return nil, fmt.Errorf("webgpu: dtype %s has no 32-bit GPU representation", dtype)
	}
	return out, nil
}

// padBytes rounds data up to a whole number of words for raw transfers.
func padBytes(data []byte) []byte {
	size := (len(data) + 3) &^ 3
	if size == len(data) {
		return data
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}

// uniform encodes kernel parameters as 32-bit words padded to 16 bytes.
// Negative values keep their two's complement bits for i32 fields.
func uniform(values ...int) []byte {
	size := (4*len(values) + 15) &^ 15
	out := make([]byte, size)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], uint32(int32(v))) //nolint:gosec // G115: fields are 32-bit
	}
	return out
}

// uniformF32 appends float parameters after integer ones.
func uniformF32(ints []int, floats ...float32) []byte {
	words := make([]uint32, 0, len(ints)+len(floats))
	for _, v := range ints {
		words = append(words, uint32(v)) //nolint:gosec // G115: shapes and offsets are non-negative
	}
	for _, f := range floats {
		words = append(words, math.Float32bits(f))
	}
	size := (4*len(words) + 15) &^ 15
	out := make([]byte, size)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}

// tapTable flattens per-axis tap tables into one buffer of
// {i0: u32, i1: u32, l0: f32, l1: f32} records and returns each axis offset
// in records.
func tapTable(axes [3]tensor.LinearAxis) ([]byte, [3]int) {
	var offsets [3]int
	total := 0
	for k, a := range axes {
		offsets[k] = total
		total += a.Out
	}
	out := make([]byte, 16*total)
	for k, a := range axes {
		for o := 0; o < a.Out; o++ {
			rec := out[16*(offsets[k]+o):]
			binary.LittleEndian.PutUint32(rec[0:], uint32(a.I0[o])) //nolint:gosec // G115: indices are non-negative
			binary.LittleEndian.PutUint32(rec[4:], uint32(a.I1[o])) //nolint:gosec // G115: indices are non-negative
			binary.LittleEndian.PutUint32(rec[8:], math.Float32bits(a.L0[o]))
			binary.LittleEndian.PutUint32(rec[12:], math.Float32bits(a.L1[o]))
		}
	}
	return out, offsets
}

// rangeTable flattens the reader ranges of each input index into
// {start: u32, end: u32} records and returns each axis offset in records.
func rangeTable(axes [3]tensor.LinearAxis) ([]byte, [3]int) {
	var offsets [3]int
	total := 0
	for k, a := range axes {
		offsets[k] = total
		total += a.In
	}
	out := make([]byte, 8*total)
	for k, a := range axes {
		for i := 0; i < a.In; i++ {
			rec := out[8*(offsets[k]+i):]
			binary.LittleEndian.PutUint32(rec[0:], uint32(a.Start[i])) //nolint:gosec // G115: indices are non-negative
			binary.LittleEndian.PutUint32(rec[4:], uint32(a.End[i]))   //nolint:gosec // G115: indices are non-negative
		}
	}
	return out, offsets
}

// stridesTable packs a gather layout as u32 words: ndim, the output
// strides, then the source strides.
func stridesTable(outStrides, src []int) []byte {
	words := make([]byte, 4*(1+2*len(outStrides)))
	binary.LittleEndian.PutUint32(words, uint32(len(outStrides))) //nolint:gosec // G115: rank is small
	for d := range outStrides {
		binary.LittleEndian.PutUint32(words[4*(1+d):], uint32(outStrides[d]))          //nolint:gosec // G115: strides are non-negative
		binary.LittleEndian.PutUint32(words[4*(1+len(outStrides)+d):], uint32(src[d])) //nolint:gosec // G115: strides are non-negative
	}
	return words
}

// endsTable packs repeat_interleave running sums as u32 words. The output
// index space must fit in i32.
func endsTable(ends []int64) ([]byte, error) {
	if total := ends[len(ends)-1]; total > math.MaxInt32 || len(ends) > math.MaxInt32 {
		return nil, fmt.Errorf("repeat_interleave of %d inputs into %d outputs exceeds the i32 index range", len(ends), total)
	}
	words := make([]byte, 4*len(ends))
	for i, e := range ends {
		binary.LittleEndian.PutUint32(words[4*i:], uint32(e)) //nolint:gosec // G115: bounded above
	}
	return words, nil
}

// widenInt32 converts a decoded i32 index tensor to int64.
func widenInt32(x *tensor.RawTensor) *tensor.RawTensor {
	out := tensor.MustRaw(x.Shape(), tensor.Int64, x.Device())
	dst := out.AsInt64()
	for i, v := range x.AsInt32() {
		dst[i] = int64(v)
	}
	return out
}

// paddedAxes views a 1-3 axis interpolation as three axes (D, H, W).
func paddedAxes(cfg tensor.InterpolateConfig, input tensor.Shape) ([3]tensor.LinearAxis, error) {
	var axes [3]tensor.LinearAxis
	tables, err := cfg.LinearTables(input)
	if err != nil {
		return axes, err
	}
	pad := 3 - len(tables)
	for k := 0; k < pad; k++ {
		axes[k] = tensor.LinearAxis{
			In: 1, Out: 1,
			I0: []int{0}, I1: []int{0},
			L0: []float32{1}, L1: []float32{0},
			Start: []int{0}, End: []int{1},
		}
	}
	copy(axes[pad:], tables)
	return axes, nil
}

// Pooled buffers are rounded up to a power of two no smaller than minBucketSize.
const minBucketSize = 256

// sizeClass returns the bucket index and capacity for a requested size.
func sizeClass(size uint64) (class int, capacity uint64) {
	if size <= minBucketSize {
		size = minBucketSize
	}
	class = bits.Len64(size - 1)
	return class, 1 << class
}

func sameLayout(a, b *tensor.RawTensor) error {
	if !a.Shape().Equal(b.Shape()) {
		return fmt.Errorf("shape mismatch: %v vs %v", a.Shape(), b.Shape())
	}
	if a.DType() != b.DType() {
		return fmt.Errorf("dtype mismatch: %s vs %s", a.DType(), b.DType())
	}
	return nil
}

func allResultType(dt tensor.DataType) tensor.DataType {
	if dt == tensor.Uint8 {
		return tensor.Uint8
	}
	return tensor.Bool
}

// intDivisor validates a remainder divisor for integer tensors.
func intDivisor(divisor float64) (int, error) {
	if divisor != math.Trunc(divisor) || math.IsInf(divisor, 0) {
		return 0, fmt.Errorf("integer tensor needs an integral divisor, got %v", divisor)
	}
	if divisor == 0 {
		return 0, errors.New("integer division by zero")
	}
	if divisor > math.MaxInt32 || divisor < math.MinInt32 {
		return 0, fmt.Errorf("divisor %v does not fit in i32", divisor)
	}
	return int(divisor), nil
}
