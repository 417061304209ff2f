package scenario

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/devparity/internal/autodiff"
	"github.com/born-ml/devparity/internal/parity"
	"github.com/born-ml/devparity/internal/tensor"
)

// execution runs one scenario. Inputs are generated once on the host from
// the seed and transferred to each device; every target result is
// transferred back to the reference device before comparison.
type execution struct {
	sc      Scenario
	seed    int64
	ref     tensor.Backend
	target  tensor.Backend
	reports []parity.Report

	// artifacts collects both sides of every failed check when non-nil.
	artifacts map[string]*tensor.RawTensor
}

func (x *execution) run() ([]parity.Report, error) {
	var err error
	switch x.sc.Kind {
	case KindAll:
		err = x.runAll()
	case KindInterpolate:
		err = x.runInterpolate()
	case KindELU:
		err = x.runELU()
	case KindWhere:
		err = x.runWhere()
	case KindRoundTrip:
		err = x.runRoundTrip()
	case KindMatMul:
		err = x.runProduct(false)
	case KindBMM:
		err = x.runProduct(true)
	case KindRepeatInterleave:
		err = x.runRepeatInterleave()
	default:
		err = fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidScenario, x.sc.Name, x.sc.Kind)
	}
	return x.reports, err
}

// check compares a reference result with a target result. Value
// mismatches are recorded in the report; shape or dtype disagreement is
// returned as an error.
func (x *execution) check(name string, ref, got *tensor.RawTensor, tol parity.Tolerance) error {
	host := x.ref.Transfer(got)
	rep, err := parity.Compare(name, ref, host, tol)
	if err != nil && rep.Passed() {
		return err
	}
	x.reports = append(x.reports, rep)
	if !rep.Passed() && x.artifacts != nil {
		x.artifacts[name+".reference"] = ref
		x.artifacts[name+".target"] = host
	}
	return nil
}

func (x *execution) rng() *rand.Rand {
	return rand.New(rand.NewSource(x.seed)) //nolint:gosec // G404: reproducible test data
}

// runAll reduces randn().byte() % 2 data. Both devices draw the same
// floats from the seed and convert them on device; the conversion is
// itself checked. The reduction then runs on identical 0/1 data.
func (x *execution) runAll() error {
	refBits := tensor.RandnBytes(x.rng(), x.sc.Shape, x.ref).Mod(2)
	tgtBits := tensor.RandnBytes(x.rng(), x.sc.Shape, x.target).Mod(2)
	if err := x.check("byte_mod2", refBits.Raw(), tgtBits.Raw(), parity.Exact); err != nil {
		return err
	}

	refOut := reduceAll(refBits, x.sc.Dim, x.sc.KeepDim)
	tgtOut := reduceAll(tensor.To(refBits, x.target), x.sc.Dim, x.sc.KeepDim)
	return x.check("all", refOut, tgtOut, x.sc.EffectiveTolerance())
}

func reduceAll[B tensor.Backend](bits *tensor.Tensor[uint8, B], dim *int, keepDim bool) *tensor.RawTensor {
	if dim == nil {
		return bits.All().Raw()
	}
	return bits.AllDim(*dim, keepDim).Raw()
}

// differentiate runs f under a gradient tape on b and returns the forward
// output and the gradient of every input, seeded with grad.
func differentiate(b tensor.Backend, grad *tensor.RawTensor, inputs []*tensor.RawTensor,
	f func(tensor.Backend, []*tensor.RawTensor) *tensor.RawTensor,
) (*tensor.RawTensor, []*tensor.RawTensor) {
	ad := autodiff.New(b)
	ad.Tape().StartRecording()

	local := make([]*tensor.RawTensor, len(inputs))
	for i, in := range inputs {
		local[i] = b.Transfer(in)
	}
	out := f(ad, local)
	ad.Tape().StopRecording()

	grads := autodiff.BackwardRaw(out, b.Transfer(grad), ad)
	inGrads := make([]*tensor.RawTensor, len(local))
	for i, in := range local {
		g, ok := grads[in]
		if !ok {
			g = tensor.MustRaw(in.Shape(), in.DType(), b.Device())
		}
		inGrads[i] = g
	}
	return out, inGrads
}

// forwardBackward checks the forward output and the input gradients of f.
// gradNames parallels inputs; an empty name skips that gradient.
func (x *execution) forwardBackward(inputs []*tensor.RawTensor, grad *tensor.RawTensor, gradNames []string,
	tol parity.Tolerance, f func(tensor.Backend, []*tensor.RawTensor) *tensor.RawTensor,
) error {
	refOut, refGrads := differentiate(x.ref, grad, inputs, f)
	tgtOut, tgtGrads := differentiate(x.target, grad, inputs, f)

	if err := x.check("output", refOut, tgtOut, tol); err != nil {
		return err
	}
	for i, name := range gradNames {
		if name == "" {
			continue
		}
		if err := x.check(name, refGrads[i], tgtGrads[i], tol); err != nil {
			return err
		}
	}
	return nil
}

func (x *execution) runInterpolate() error {
	dt, err := x.sc.InputType()
	if err != nil {
		return err
	}
	gradShape, err := x.sc.gradShape()
	if err != nil {
		return err
	}
	cfg := x.sc.InterpolateConfig()

	rng := x.rng()
	input := x.random(rng, x.sc.Shape, dt)
	grad := x.random(rng, gradShape, dt)

	return x.forwardBackward([]*tensor.RawTensor{input}, grad, []string{"grad_input"}, x.sc.EffectiveTolerance(),
		func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
			return b.Interpolate(in[0], cfg)
		})
}

func (x *execution) runELU() error {
	dt, err := x.sc.InputType()
	if err != nil {
		return err
	}
	p := x.sc.ELUParams()

	rng := x.rng()
	input := x.random(rng, x.sc.Shape, dt)
	grad := x.random(rng, x.sc.Shape, dt)

	return x.forwardBackward([]*tensor.RawTensor{input}, grad, []string{"grad_input"}, x.sc.EffectiveTolerance(),
		func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
			return b.ELU(in[0], p)
		})
}

// runWhere selects between two random tensors with a random bool or
// uint8 mask. Float inputs are also differentiated; the gradients route
// the upstream gradient and must match exactly.
func (x *execution) runWhere() error {
	dt, err := x.sc.InputType()
	if err != nil {
		return err
	}
	condType, err := x.sc.ConditionType()
	if err != nil {
		return err
	}
	rng := x.rng()
	cond := x.mask(rng, x.sc.Shape, condType)
	a := x.random(rng, x.sc.Shape, dt)
	b := x.random(rng, x.sc.Shape, dt)
	tol := x.sc.EffectiveTolerance()

	if !dt.IsFloat() {
		refOut := x.ref.Where(x.ref.Transfer(cond), x.ref.Transfer(a), x.ref.Transfer(b))
		tgtOut := x.target.Where(x.target.Transfer(cond), x.target.Transfer(a), x.target.Transfer(b))
		return x.check("output", refOut, tgtOut, tol)
	}

	grad := x.random(rng, x.sc.Shape, dt)
	return x.forwardBackward([]*tensor.RawTensor{cond, a, b}, grad, []string{"", "grad_x", "grad_y"}, tol,
		func(be tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
			return be.Where(in[0], in[1], in[2])
		})
}

// runProduct checks mm/bmm and, with a bias, addmm/baddbmm:
// beta * bias + alpha * (mat1 @ mat2). The output and the gradient of
// every operand are compared.
func (x *execution) runProduct(batched bool) error {
	dt, err := x.sc.InputType()
	if err != nil {
		return err
	}
	outShape, err := x.sc.productShape()
	if err != nil {
		return err
	}
	beta, alpha := x.sc.ProductScales()

	rng := x.rng()
	inputs := []*tensor.RawTensor{
		x.random(rng, x.sc.Shape, dt),
		x.random(rng, x.sc.OtherShape, dt),
	}
	names := []string{"grad_mat1", "grad_mat2"}
	if batched {
		names = []string{"grad_batch1", "grad_batch2"}
	}
	if len(x.sc.BiasShape) > 0 {
		inputs = append(inputs, x.random(rng, x.sc.BiasShape, dt))
		names = append(names, "grad_input")
	}
	grad := x.random(rng, outShape, dt)

	return x.forwardBackward(inputs, grad, names, x.sc.EffectiveTolerance(),
		func(b tensor.Backend, in []*tensor.RawTensor) *tensor.RawTensor {
			var product *tensor.RawTensor
			if batched {
				product = b.BatchMatMul(in[0], in[1])
			} else {
				product = b.MatMul(in[0], in[1])
			}
			if len(in) == 2 {
				return product
			}
			return addScaled(b, in[2], product, beta, alpha)
		})
}

// addScaled computes beta * expand(bias) + alpha * product. Factors of 1
// are not applied.
func addScaled(b tensor.Backend, bias, product *tensor.RawTensor, beta, alpha float64) *tensor.RawTensor {
	if alpha != 1 {
		product = b.MulScalar(product, alpha)
	}
	expanded := b.Expand(bias, product.Shape())
	if beta != 1 {
		expanded = b.MulScalar(expanded, beta)
	}
	return b.Add(expanded, product)
}

// runRepeatInterleave expands random non-negative repeats into int64
// indices. The index sequence must match exactly.
func (x *execution) runRepeatInterleave() error {
	repeats := randomRepeats(x.rng(), x.sc.Shape[0], x.sc.EffectiveMaxRepeats())
	refOut := x.ref.RepeatInterleave(x.ref.Transfer(repeats))
	tgtOut := x.target.RepeatInterleave(x.target.Transfer(repeats))
	return x.check("output", refOut, tgtOut, x.sc.EffectiveTolerance())
}

// randomRepeats draws n repeats in [0, maxRepeats]. An all-zero draw gets
// one non-zero entry, since the result would be empty.
func randomRepeats(rng *rand.Rand, n, maxRepeats int) *tensor.RawTensor {
	r := tensor.MustRaw(tensor.Shape{n}, tensor.Int64, tensor.CPU)
	data := r.AsInt64()
	var total int64
	for i := range data {
		data[i] = rng.Int63n(int64(maxRepeats) + 1)
		total += data[i]
	}
	if total == 0 {
		data[rng.Intn(n)] = 1
	}
	return r
}

// runRoundTrip moves host data to the target and back; every byte must
// survive.
func (x *execution) runRoundTrip() error {
	dt, err := x.sc.InputType()
	if err != nil {
		return err
	}
	host := x.random(x.rng(), x.sc.Shape, dt)

	onTarget := x.target.Transfer(host)
	if onTarget.Device() != x.target.Device() {
		return fmt.Errorf("%s: transfer produced a %s tensor on %s", x.sc.Name, onTarget.Device(), x.target.Name())
	}
	return x.check("roundtrip", host, onTarget, parity.Exact)
}

// mask draws a fair condition tensor. uint8 masks use every non-zero
// value for true, not only 1.
func (x *execution) mask(rng *rand.Rand, shape tensor.Shape, dt tensor.DataType) *tensor.RawTensor {
	if dt != tensor.Uint8 {
		return x.random(rng, shape, tensor.Bool)
	}
	r := tensor.MustRaw(shape, tensor.Uint8, x.ref.Device())
	data := r.AsUint8()
	for i := range data {
		if rng.Intn(2) == 1 {
			data[i] = uint8(1 + rng.Intn(255)) //nolint:gosec // G115: in [1, 255]
		}
	}
	return r
}

// random fills a tensor on the reference device: standard normal floats,
// uniformly random integers and uint8, fair bools.
func (x *execution) random(rng *rand.Rand, shape tensor.Shape, dt tensor.DataType) *tensor.RawTensor {
	switch dt {
	case tensor.Float32:
		return tensor.RandnFrom[float32](rng, shape, x.ref).Raw()
	case tensor.Float64:
		return tensor.RandnFrom[float64](rng, shape, x.ref).Raw()
	}
	r := tensor.MustRaw(shape, dt, x.ref.Device())
	switch dt {
	case tensor.Int32:
		data := r.AsInt32()
		for i := range data {
			data[i] = int32(rng.Uint32()) //nolint:gosec // G115: any bit pattern is valid
		}
	case tensor.Int64:
		data := r.AsInt64()
		for i := range data {
			data[i] = int64(rng.Uint64()) //nolint:gosec // G115: any bit pattern is valid
		}
	case tensor.Uint8:
		data := r.AsUint8()
		for i := range data {
			data[i] = uint8(rng.Intn(256)) //nolint:gosec // G115: bounded by Intn
		}
	case tensor.Bool:
		data := r.AsBool()
		for i := range data {
			data[i] = rng.Intn(2) == 1
		}
	}
	return r
}
