package cpu

import (
	"testing"

	"github.com/born-ml/devparity/internal/tensor"
)

func TestAll_Uint8KeepsDType(t *testing.T) {
	backend := New()

	x := rawUint8(tensor.Shape{1, 3, 1, 2}, 1, 1, 2, 1, 1, 1)
	result := backend.All(x)
	if len(result.Shape()) != 0 {
		t.Errorf("Expected shape [], got %v", result.Shape())
	}
	if result.DType() != tensor.Uint8 {
		t.Fatalf("Expected uint8 result, got %s", result.DType())
	}
	if result.AsUint8()[0] != 1 {
		t.Errorf("Expected 1, got %d", result.AsUint8()[0])
	}

	x.AsUint8()[4] = 0
	if backend.All(x).AsUint8()[0] != 0 {
		t.Error("Expected 0 once an element is zero")
	}
}

func TestAll_FloatReturnsBool(t *testing.T) {
	backend := New()
	x := rawFloat32(tensor.Shape{3}, 0.5, -1, 2)
	result := backend.All(x)
	if result.DType() != tensor.Bool {
		t.Fatalf("Expected bool result, got %s", result.DType())
	}
	if !result.AsBool()[0] {
		t.Error("Expected true")
	}
}

func TestAllDim_Shapes(t *testing.T) {
	backend := New()

	tests := []struct {
		name    string
		shape   tensor.Shape
		dim     int
		keepDim bool
		want    tensor.Shape
	}{
		{"last", tensor.Shape{3, 2, 5, 2}, 3, false, tensor.Shape{3, 2, 5}},
		{"keepdim", tensor.Shape{359, 50, 7}, 2, true, tensor.Shape{359, 50, 1}},
		{"negative", tensor.Shape{4, 6}, -2, false, tensor.Shape{6}},
		{"vector", tensor.Shape{5}, 0, false, tensor.Shape{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := tensor.MustRaw(tt.shape, tensor.Uint8, tensor.CPU)
			result := backend.AllDim(x, tt.dim, tt.keepDim)
			if !result.Shape().Equal(tt.want) {
				t.Errorf("Expected shape %v, got %v", tt.want, result.Shape())
			}
		})
	}
}

func TestAllDim_Values(t *testing.T) {
	backend := New()

	// [2, 3]
	// Row 0: [1, 1, 1]
	// Row 1: [1, 0, 1]
	x := rawUint8(tensor.Shape{2, 3}, 1, 1, 1, 1, 0, 1)

	rows := backend.AllDim(x, 1, false).AsUint8()
	if rows[0] != 1 || rows[1] != 0 {
		t.Errorf("AllDim(1) = %v, want [1 0]", rows)
	}

	cols := backend.AllDim(x, 0, true).AsUint8()
	expected := []uint8{1, 0, 1}
	for i := range expected {
		if cols[i] != expected[i] {
			t.Errorf("AllDim(0) = %v, want %v", cols, expected)
			break
		}
	}
}

func TestAllDim_Scalar(t *testing.T) {
	backend := New()
	x := rawUint8(tensor.Shape{}, 3)
	if got := backend.AllDim(x, -1, false); got.AsUint8()[0] != 1 {
		t.Errorf("AllDim on 0-D = %v", got.AsUint8())
	}
}

func TestAllDim_OutOfRangePanics(t *testing.T) {
	backend := New()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for dim 3 on rank 3")
		}
	}()
	backend.AllDim(tensor.MustRaw(tensor.Shape{2, 2, 2}, tensor.Bool, tensor.CPU), 3, false)
}
