package cpu

import (
	"testing"

	"github.com/born-ml/devparity/internal/tensor"
)

func TestCPUBackend_MatMul(t *testing.T) {
	backend := newTestBackend()
	a := rawFloat32(tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	b := rawFloat32(tensor.Shape{3, 2}, 7, 8, 9, 10, 11, 12)

	result := backend.MatMul(a, b)
	if !result.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("shape = %v", result.Shape())
	}
	expected := []float32{58, 64, 139, 154}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("MatMul: expected %v, got %v", expected, result.AsFloat32())
	}

	defer func() {
		if recover() == nil {
			t.Error("inner size mismatch should panic")
		}
	}()
	backend.MatMul(a, a)
}

func TestCPUBackend_BatchMatMul(t *testing.T) {
	backend := newTestBackend()
	a := tensor.MustRaw(tensor.Shape{2, 1, 2}, tensor.Int64, tensor.CPU)
	copy(a.AsInt64(), []int64{1, 2, 3, 4})
	b := tensor.MustRaw(tensor.Shape{2, 2, 1}, tensor.Int64, tensor.CPU)
	copy(b.AsInt64(), []int64{5, 6, 7, 8})

	got := backend.BatchMatMul(a, b)
	if !got.Shape().Equal(tensor.Shape{2, 1, 1}) {
		t.Fatalf("shape = %v", got.Shape())
	}
	if v := got.AsInt64(); v[0] != 17 || v[1] != 53 {
		t.Errorf("BatchMatMul = %v, want [17 53]", v)
	}
}

func TestCPUBackend_TransposeAndExpand(t *testing.T) {
	backend := newTestBackend()
	x := rawFloat32(tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)

	tr := backend.Transpose(x)
	if !tr.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("transpose shape = %v", tr.Shape())
	}
	if !float32SliceEqual(tr.AsFloat32(), []float32{1, 4, 2, 5, 3, 6}) {
		t.Errorf("Transpose: got %v", tr.AsFloat32())
	}

	bias := rawFloat32(tensor.Shape{3}, 1, 2, 3)
	ex := backend.Expand(bias, tensor.Shape{2, 3})
	if !float32SliceEqual(ex.AsFloat32(), []float32{1, 2, 3, 1, 2, 3}) {
		t.Errorf("Expand row: got %v", ex.AsFloat32())
	}
	col := rawFloat32(tensor.Shape{2, 1}, 7, 8)
	ex = backend.Expand(col, tensor.Shape{2, 3})
	if !float32SliceEqual(ex.AsFloat32(), []float32{7, 7, 7, 8, 8, 8}) {
		t.Errorf("Expand column: got %v", ex.AsFloat32())
	}

	mask := rawUint8(tensor.Shape{1}, 1)
	if got := backend.Expand(mask, tensor.Shape{4}).AsUint8(); got[3] != 1 {
		t.Errorf("Expand uint8: got %v", got)
	}
}

func TestCPUBackend_SumDim(t *testing.T) {
	backend := newTestBackend()
	x := rawFloat32(tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)

	rows := backend.SumDim(x, 1, false)
	if !rows.Shape().Equal(tensor.Shape{2}) || !float32SliceEqual(rows.AsFloat32(), []float32{6, 15}) {
		t.Errorf("SumDim(1): %v %v", rows.Shape(), rows.AsFloat32())
	}
	cols := backend.SumDim(x, -2, true)
	if !cols.Shape().Equal(tensor.Shape{1, 3}) || !float32SliceEqual(cols.AsFloat32(), []float32{5, 7, 9}) {
		t.Errorf("SumDim(-2, keep): %v %v", cols.Shape(), cols.AsFloat32())
	}
}

func TestCPUBackend_MulScalar(t *testing.T) {
	backend := newTestBackend()
	x := rawFloat32(tensor.Shape{3}, 1, -2, 0.5)
	got := backend.MulScalar(x, -2)
	if !float32SliceEqual(got.AsFloat32(), []float32{-2, 4, -1}) {
		t.Errorf("MulScalar: got %v", got.AsFloat32())
	}
}

func TestCPUBackend_RepeatInterleave(t *testing.T) {
	backend := newTestBackend()
	repeats := tensor.MustRaw(tensor.Shape{4}, tensor.Int64, tensor.CPU)
	copy(repeats.AsInt64(), []int64{2, 0, 3, 1})

	got := backend.RepeatInterleave(repeats)
	want := []int64{0, 0, 2, 2, 2, 3}
	if !got.Shape().Equal(tensor.Shape{6}) {
		t.Fatalf("shape = %v", got.Shape())
	}
	for i, v := range want {
		if got.AsInt64()[i] != v {
			t.Fatalf("RepeatInterleave = %v, want %v", got.AsInt64(), want)
		}
	}

	copy(repeats.AsInt64(), []int64{1, -1, 0, 0})
	defer func() {
		if recover() == nil {
			t.Error("negative repeats should panic")
		}
	}()
	backend.RepeatInterleave(repeats)
}
