package ops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/devparity/internal/autodiff/ops"
	"github.com/born-ml/devparity/internal/backend/cpu"
	"github.com/born-ml/devparity/internal/tensor"
)

func raw(t *testing.T, shape tensor.Shape, vals ...float32) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(r.AsFloat32(), vals)
	return r
}

func TestAddOp_Backward(t *testing.T) {
	backend := cpu.New()
	a := raw(t, tensor.Shape{3}, 1, 2, 3)
	b := raw(t, tensor.Shape{3}, 4, 5, 6)
	op := ops.NewAddOp(a, b, raw(t, tensor.Shape{3}, 5, 7, 9))

	grads := op.Backward(raw(t, tensor.Shape{3}, 1, 2, 3), backend)
	require.Len(t, grads, 2)
	assert.Equal(t, []float32{1, 2, 3}, grads[0].AsFloat32())
	assert.Equal(t, []float32{1, 2, 3}, grads[1].AsFloat32())
	assert.Equal(t, []*tensor.RawTensor{a, b}, op.Inputs())
}

func TestSubOp_Backward(t *testing.T) {
	backend := cpu.New()
	a := raw(t, tensor.Shape{3}, 1, 2, 3)
	b := raw(t, tensor.Shape{3}, 4, 5, 6)
	op := ops.NewSubOp(a, b, raw(t, tensor.Shape{3}, -3, -3, -3))

	grad := raw(t, tensor.Shape{3}, 1, -2, 0.5)
	grads := op.Backward(grad, backend)
	require.Len(t, grads, 2)
	assert.Equal(t, []float32{1, -2, 0.5}, grads[0].AsFloat32())
	assert.Equal(t, []float32{-1, 2, -0.5}, grads[1].AsFloat32())
	assert.Equal(t, []float32{1, -2, 0.5}, grad.AsFloat32(), "output gradient must not be modified")
}

func TestWhereOp_Backward(t *testing.T) {
	backend := cpu.New()
	cond, err := tensor.NewRaw(tensor.Shape{4}, tensor.Bool, tensor.CPU)
	require.NoError(t, err)
	copy(cond.AsBool(), []bool{true, false, false, true})
	x := raw(t, tensor.Shape{4}, 1, 2, 3, 4)
	y := raw(t, tensor.Shape{4}, 5, 6, 7, 8)
	op := ops.NewWhereOp(cond, x, y, backend.Where(cond, x, y))

	grads := op.Backward(raw(t, tensor.Shape{4}, 10, 20, 30, 40), backend)
	require.Len(t, grads, 2)
	assert.Equal(t, []float32{10, 0, 0, 40}, grads[0].AsFloat32())
	assert.Equal(t, []float32{0, 20, 30, 0}, grads[1].AsFloat32())
	assert.Len(t, op.Inputs(), 2)
}

func TestInterpolateOp_Backward(t *testing.T) {
	backend := cpu.New()
	cfg := tensor.InterpolateConfig{Mode: tensor.Linear, Scales: []float64{2}}
	x := raw(t, tensor.Shape{1, 1, 2}, 1, 3)
	y := backend.Interpolate(x, cfg)
	op := ops.NewInterpolateOp(x, y, cfg)

	grads := op.Backward(raw(t, tensor.Shape{1, 1, 4}, 1, 1, 1, 1), backend)
	require.Len(t, grads, 1)
	assert.True(t, grads[0].Shape().Equal(x.Shape()))
	assert.InDeltaSlice(t, []float32{2, 2}, grads[0].AsFloat32(), 1e-6)
	assert.Same(t, y, op.Output())
	assert.Equal(t, cfg.Mode, op.Config().Mode)
}

func TestELUOp_Backward(t *testing.T) {
	backend := cpu.New()
	p := tensor.DefaultELU()
	x := raw(t, tensor.Shape{3}, -1, 0, 2)
	y := backend.ELU(x, p)
	op := ops.NewELUOp(x, y, p)

	grads := op.Backward(raw(t, tensor.Shape{3}, 1, 1, 1), backend)
	require.Len(t, grads, 1)
	// d/dx elu(x) = exp(x) for x <= 0 and 1 otherwise.
	assert.InDeltaSlice(t, []float32{0.36787944, 1, 1}, grads[0].AsFloat32(), 1e-6)
}

func TestMatMulOp_Backward(t *testing.T) {
	backend := cpu.New()
	a := raw(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	b := raw(t, tensor.Shape{3, 2}, 1, 0, 0, 1, 1, 1)
	op := ops.NewMatMulOp(a, b, backend.MatMul(a, b))

	grads := op.Backward(raw(t, tensor.Shape{2, 2}, 1, 0, 0, 1), backend)
	require.Len(t, grads, 2)
	// grad_a = I @ b^T, grad_b = a^T @ I.
	assert.Equal(t, tensor.Shape{2, 3}, grads[0].Shape())
	assert.Equal(t, []float32{1, 0, 1, 0, 1, 1}, grads[0].AsFloat32())
	assert.Equal(t, tensor.Shape{3, 2}, grads[1].Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, grads[1].AsFloat32())
}

func TestBatchMatMulOp_Backward(t *testing.T) {
	backend := cpu.New()
	a := raw(t, tensor.Shape{2, 1, 2}, 1, 2, 3, 4)
	b := raw(t, tensor.Shape{2, 2, 1}, 5, 6, 7, 8)
	op := ops.NewBatchMatMulOp(a, b, backend.BatchMatMul(a, b))

	grads := op.Backward(raw(t, tensor.Shape{2, 1, 1}, 1, 2), backend)
	require.Len(t, grads, 2)
	// Batch k: grad_a = g_k * b_k^T, grad_b = a_k^T * g_k.
	assert.Equal(t, tensor.Shape{2, 1, 2}, grads[0].Shape())
	assert.Equal(t, []float32{5, 6, 14, 16}, grads[0].AsFloat32())
	assert.Equal(t, tensor.Shape{2, 2, 1}, grads[1].Shape())
	assert.Equal(t, []float32{1, 2, 6, 8}, grads[1].AsFloat32())
}

func TestMulScalarOp_Backward(t *testing.T) {
	backend := cpu.New()
	x := raw(t, tensor.Shape{2}, 1, 2)
	op := ops.NewMulScalarOp(x, backend.MulScalar(x, 0.5), 0.5)

	grads := op.Backward(raw(t, tensor.Shape{2}, 4, -2), backend)
	assert.Equal(t, []float32{2, -1}, grads[0].AsFloat32())
	assert.Equal(t, []*tensor.RawTensor{x}, op.Inputs())
}

func TestExpandOp_BackwardSumsBroadcastDims(t *testing.T) {
	backend := cpu.New()
	bias := raw(t, tensor.Shape{1, 3}, 1, 2, 3)
	out := backend.Expand(bias, tensor.Shape{2, 2, 3})
	op := ops.NewExpandOp(bias, out)

	grad := raw(t, tensor.Shape{2, 2, 3}, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	grads := op.Backward(grad, backend)
	require.Len(t, grads, 1)
	assert.Equal(t, tensor.Shape{1, 3}, grads[0].Shape())
	assert.Equal(t, []float32{22, 26, 30}, grads[0].AsFloat32())
}

func TestReduceTo_Vector(t *testing.T) {
	backend := cpu.New()
	grad := raw(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	got := ops.ReduceTo(grad, tensor.Shape{3}, backend)
	assert.Equal(t, tensor.Shape{3}, got.Shape())
	assert.Equal(t, []float32{5, 7, 9}, got.AsFloat32())

	same := ops.ReduceTo(grad, tensor.Shape{2, 3}, backend)
	assert.Same(t, grad, same)
}
