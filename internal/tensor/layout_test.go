package tensor

import (
	"strings"
	"testing"
)

func TestMatMulShapes(t *testing.T) {
	out, err := MatMulShape(Shape{4, 3}, Shape{3, 5})
	if err != nil {
		t.Fatal(err)
	}
	assertEqualShape(t, Shape{4, 5}, out, "mm")

	if _, err := MatMulShape(Shape{4, 3}, Shape{4, 5}); err == nil {
		t.Error("inner size mismatch should fail")
	}
	if _, err := MatMulShape(Shape{2, 4, 3}, Shape{3, 5}); err == nil {
		t.Error("3D operand should fail for mm")
	}

	out, err = BatchMatMulShape(Shape{2, 4, 3}, Shape{2, 3, 5})
	if err != nil {
		t.Fatal(err)
	}
	assertEqualShape(t, Shape{2, 4, 5}, out, "bmm")
	if _, err := BatchMatMulShape(Shape{2, 4, 3}, Shape{3, 3, 5}); err == nil {
		t.Error("batch mismatch should fail")
	}
}

func TestTransposeLayout(t *testing.T) {
	out, src, err := TransposeLayout(Shape{2, 3, 4}, SwapLast(3))
	if err != nil {
		t.Fatal(err)
	}
	assertEqualShape(t, Shape{2, 4, 3}, out, "swap last")
	want := []int{12, 1, 4}
	for i := range want {
		if src[i] != want[i] {
			t.Fatalf("source strides = %v, want %v", src, want)
		}
	}

	out, _, err = TransposeLayout(Shape{2, 3, 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertEqualShape(t, Shape{4, 3, 2}, out, "reverse")

	if _, _, err := TransposeLayout(Shape{2, 3}, []int{0, 0}); err == nil {
		t.Error("repeated axis should fail")
	}
	if _, _, err := TransposeLayout(Shape{2, 3}, []int{0}); err == nil {
		t.Error("short permutation should fail")
	}
}

func TestTransposeIndexing(t *testing.T) {
	// out[i][j] = in[j][i] for a 2x3 input.
	out, src, err := TransposeLayout(Shape{2, 3}, []int{1, 0})
	if err != nil {
		t.Fatal(err)
	}
	outStrides := out.ComputeStrides()
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			got := StridedIndex(i*2+j, outStrides, src)
			if want := j*3 + i; got != want {
				t.Errorf("out[%d][%d] reads %d, want %d", i, j, got, want)
			}
		}
	}
}

func TestExpandStrides(t *testing.T) {
	src, err := ExpandStrides(Shape{3, 1}, Shape{2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 1, 0}
	for i := range want {
		if src[i] != want[i] {
			t.Fatalf("strides = %v, want %v", src, want)
		}
	}

	if _, err := ExpandStrides(Shape{3, 2}, Shape{3, 4}); err == nil {
		t.Error("non-singleton mismatch should fail")
	}
	if _, err := ExpandStrides(Shape{1, 3, 4}, Shape{3, 4}); err == nil {
		t.Error("expanding to fewer dims should fail")
	}
}

func TestRepeatOffsets(t *testing.T) {
	r := MustRaw(Shape{4}, Int64, CPU)
	copy(r.AsInt64(), []int64{2, 0, 3, 1})
	ends, err := RepeatOffsets(r)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{2, 2, 5, 6}
	for i := range want {
		if ends[i] != want[i] {
			t.Fatalf("ends = %v, want %v", ends, want)
		}
	}

	tests := []struct {
		name    string
		repeats *RawTensor
		msg     string
	}{
		{"negative", rawInt64(Shape{2}, 1, -1), "negative"},
		{"zero total", rawInt64(Shape{2}, 0, 0), "zero"},
		{"int32", MustRaw(Shape{2}, Int32, CPU), "int64"},
		{"2-D", rawInt64(Shape{1, 2}, 1, 1), "1-D"},
		{"overflow", rawInt64(Shape{2}, 1<<62, 1<<62), "exceeds"},
	}
	for _, tt := range tests {
		_, err := RepeatOffsets(tt.repeats)
		if err == nil || !strings.Contains(err.Error(), tt.msg) {
			t.Errorf("%s: err = %v, want it to mention %q", tt.name, err, tt.msg)
		}
	}
}

func rawInt64(shape Shape, vals ...int64) *RawTensor {
	r := MustRaw(shape, Int64, CPU)
	copy(r.AsInt64(), vals)
	return r
}
