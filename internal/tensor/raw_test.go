package tensor

import (
	"testing"
)

func TestRawTensorViewsAreZeroCopy(t *testing.T) {
	raw := MustRaw(Shape{3, 2}, Int64, CPU)
	raw.AsInt64()[4] = -9
	if raw.Float64At(4) != -9 {
		t.Errorf("Float64At(4) = %v, want -9", raw.Float64At(4))
	}
	if got := raw.Data()[32]; got != 0xf7 {
		t.Errorf("low byte of element 4 = %#x, want 0xf7", got)
	}
}

func TestRawTensorByteSize(t *testing.T) {
	for _, dt := range []DataType{Float32, Float64, Int32, Int64, Uint8, Bool} {
		raw := MustRaw(Shape{2, 3}, dt, WebGPU)
		if raw.ByteSize() != 6*dt.Size() {
			t.Errorf("%s: ByteSize = %d, want %d", dt, raw.ByteSize(), 6*dt.Size())
		}
	}
}

func TestRawTensorForceNonUniqueRestores(t *testing.T) {
	raw := MustRaw(Shape{2, 2}, Float32, CPU)
	if !raw.IsUnique() {
		t.Fatal("new tensor should be unique")
	}

	restore := raw.ForceNonUnique()
	if raw.IsUnique() {
		t.Error("IsUnique() should be false while forced")
	}
	restore()
	if !raw.IsUnique() {
		t.Error("restore should make the tensor unique again")
	}
}

func TestRawTensorCloneRelease(t *testing.T) {
	raw := MustRaw(Shape{4}, Float32, CPU)
	a, b := raw.Clone(), raw.Clone()
	if raw.IsUnique() || a.IsUnique() || b.IsUnique() {
		t.Error("shared buffer must not report unique")
	}

	a.Release()
	b.Release()
	if !raw.IsUnique() {
		t.Error("releasing every clone should leave the original unique")
	}
}

func TestRawTensorWrongViewPanics(t *testing.T) {
	raw := MustRaw(Shape{2}, Float32, CPU)
	for name, view := range map[string]func(){
		"AsFloat64": func() { raw.AsFloat64() },
		"AsInt32":   func() { raw.AsInt32() },
		"AsInt64":   func() { raw.AsInt64() },
		"AsUint8":   func() { raw.AsUint8() },
		"AsBool":    func() { raw.AsBool() },
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("%s on float32 should panic", name)
				}
			}()
			view()
		})
	}
}

func TestRawTensorString(t *testing.T) {
	if got := MustRaw(Shape{2, 3, 5}, Float32, Multicore).String(); got != "float32[2 3 5]@multicore" {
		t.Errorf("String() = %q", got)
	}
	if got := MustRaw(Shape{}, Bool, CPU).String(); got != "bool[]@cpu" {
		t.Errorf("String() = %q", got)
	}
}
