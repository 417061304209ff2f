// Package scenario describes parity scenarios, loads them from YAML and
// runs them against a reference and a target backend.
package scenario

import (
	"errors"
	"fmt"
	"math"

	"github.com/born-ml/devparity/internal/parity"
	"github.com/born-ml/devparity/internal/tensor"
)

// Kind selects what a scenario exercises.
type Kind string

// Scenario kinds.
const (
	KindAll         Kind = "all"
	KindInterpolate Kind = "interpolate"
	KindRoundTrip   Kind = "roundtrip"
	KindWhere       Kind = "where"
	KindELU         Kind = "elu"
	// KindMatMul covers mm and, with a bias, addmm.
	KindMatMul Kind = "matmul"
	// KindBMM covers bmm and, with a bias, baddbmm.
	KindBMM              Kind = "bmm"
	KindRepeatInterleave Kind = "repeat_interleave"
)

// defaultMaxRepeats bounds each drawn repeat count.
const defaultMaxRepeats = 4

// ErrInvalidScenario is wrapped by every validation error.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is one parity check.
type Scenario struct {
	Name  string `yaml:"name" json:"name"`
	Kind  Kind   `yaml:"kind" json:"kind"`
	Shape []int  `yaml:"shape" json:"shape"`
	// DType of the generated input. Defaults to float32; "all" always
	// reduces 0/1 uint8 data and repeat_interleave draws int64 repeats.
	DType string `yaml:"dtype,omitempty" json:"dtype,omitempty"`

	// all
	Dim     *int `yaml:"dim,omitempty" json:"dim,omitempty"`
	KeepDim bool `yaml:"keepdim,omitempty" json:"keepdim,omitempty"`

	// interpolate
	Mode                 string    `yaml:"mode,omitempty" json:"mode,omitempty"`
	Scales               []float64 `yaml:"scales,omitempty" json:"scales,omitempty"`
	Size                 []int     `yaml:"size,omitempty" json:"size,omitempty"`
	AlignCorners         bool      `yaml:"align_corners,omitempty" json:"align_corners,omitempty"`
	RecomputeScaleFactor bool      `yaml:"recompute_scale_factor,omitempty" json:"recompute_scale_factor,omitempty"`
	// GradShape is the upstream gradient shape; the forward output shape
	// when empty.
	GradShape []int `yaml:"grad_shape,omitempty" json:"grad_shape,omitempty"`

	// elu; alpha also scales the product of matmul and bmm with a bias.
	Alpha      *float64 `yaml:"alpha,omitempty" json:"alpha,omitempty"`
	Scale      *float64 `yaml:"scale,omitempty" json:"scale,omitempty"`
	InputScale *float64 `yaml:"input_scale,omitempty" json:"input_scale,omitempty"`

	// where: "bool" (default) or "uint8".
	CondDType string `yaml:"cond_dtype,omitempty" json:"cond_dtype,omitempty"`

	// matmul, bmm: Shape is the first operand.
	OtherShape []int `yaml:"other_shape,omitempty" json:"other_shape,omitempty"`
	// BiasShape turns mm into addmm and bmm into baddbmm. It must
	// broadcast to the product shape.
	BiasShape []int    `yaml:"bias_shape,omitempty" json:"bias_shape,omitempty"`
	Beta      *float64 `yaml:"beta,omitempty" json:"beta,omitempty"`

	// repeat_interleave: Shape is [n] and every repeat is drawn from
	// [0, max_repeats].
	MaxRepeats int `yaml:"max_repeats,omitempty" json:"max_repeats,omitempty"`

	Tolerance *parity.Tolerance `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	// Seed for input generation; 0 derives one from the suite seed.
	Seed int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// InputType returns the dtype of the generated input.
func (s Scenario) InputType() (tensor.DataType, error) {
	switch s.Kind {
	case KindAll:
		return tensor.Uint8, nil
	case KindRepeatInterleave:
		return tensor.Int64, nil
	}
	if s.DType == "" {
		return tensor.Float32, nil
	}
	return tensor.ParseDataType(s.DType)
}

// InterpolateConfig returns the resize geometry of an interpolate scenario.
func (s Scenario) InterpolateConfig() tensor.InterpolateConfig {
	return tensor.InterpolateConfig{
		Mode:                 tensor.InterpolateMode(s.Mode),
		Scales:               s.Scales,
		Size:                 s.Size,
		AlignCorners:         s.AlignCorners,
		RecomputeScaleFactor: s.RecomputeScaleFactor,
	}
}

// ELUParams returns the ELU coefficients, defaulting each to 1.
func (s Scenario) ELUParams() tensor.ELUParams {
	p := tensor.DefaultELU()
	if s.Alpha != nil {
		p.Alpha = *s.Alpha
	}
	if s.Scale != nil {
		p.Scale = *s.Scale
	}
	if s.InputScale != nil {
		p.InputScale = *s.InputScale
	}
	return p
}

// ConditionType returns the dtype of a where scenario's condition.
func (s Scenario) ConditionType() (tensor.DataType, error) {
	if s.CondDType == "" {
		return tensor.Bool, nil
	}
	dt, err := tensor.ParseDataType(s.CondDType)
	if err != nil {
		return dt, err
	}
	if dt != tensor.Bool && dt != tensor.Uint8 {
		return dt, fmt.Errorf("condition must be bool or uint8, got %s", dt)
	}
	return dt, nil
}

// ProductScales returns beta and alpha of addmm/baddbmm, defaulting to 1.
func (s Scenario) ProductScales() (beta, alpha float64) {
	beta, alpha = 1, 1
	if s.Beta != nil {
		beta = *s.Beta
	}
	if s.Alpha != nil {
		alpha = *s.Alpha
	}
	return beta, alpha
}

// EffectiveMaxRepeats returns max_repeats or its default.
func (s Scenario) EffectiveMaxRepeats() int {
	if s.MaxRepeats == 0 {
		return defaultMaxRepeats
	}
	return s.MaxRepeats
}

// EffectiveTolerance returns the override or the kind's default.
func (s Scenario) EffectiveTolerance() parity.Tolerance {
	if s.Tolerance != nil {
		return *s.Tolerance
	}
	return parity.ToleranceFor(string(s.Kind))
}

// Validate checks that the scenario can run.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidScenario)
	}
	shape := tensor.Shape(s.Shape)
	if err := shape.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidScenario, s.Name, err)
	}
	dt, err := s.InputType()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidScenario, s.Name, err)
	}

	switch s.Kind {
	case KindAll:
		if s.Dim != nil {
			rank := max(len(shape), 1)
			if _, err := tensor.NormalizeDim(*s.Dim, rank); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidScenario, s.Name, err)
			}
		}
	case KindInterpolate:
		if !dt.IsFloat() {
			return fmt.Errorf("%w: %s: interpolate needs a float dtype, got %s", ErrInvalidScenario, s.Name, dt)
		}
		cfg := s.InterpolateConfig()
		if err := cfg.Validate(shape); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidScenario, s.Name, err)
		}
		if _, err := s.gradShape(); err != nil {
			return err
		}
	case KindELU:
		if !dt.IsFloat() {
			return fmt.Errorf("%w: %s: elu needs a float dtype, got %s", ErrInvalidScenario, s.Name, dt)
		}
	case KindWhere:
		if _, err := s.ConditionType(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidScenario, s.Name, err)
		}
	case KindMatMul, KindBMM:
		if !dt.IsFloat() {
			return fmt.Errorf("%w: %s: %s needs a float dtype, got %s", ErrInvalidScenario, s.Name, s.Kind, dt)
		}
		if _, err := s.productShape(); err != nil {
			return err
		}
	case KindRepeatInterleave:
		if len(shape) != 1 {
			return fmt.Errorf("%w: %s: repeats must be 1-D, got shape %v", ErrInvalidScenario, s.Name, shape)
		}
		if s.MaxRepeats < 0 {
			return fmt.Errorf("%w: %s: max_repeats can not be negative", ErrInvalidScenario, s.Name)
		}
		if int64(shape[0])*int64(s.EffectiveMaxRepeats()) > math.MaxInt32 {
			return fmt.Errorf("%w: %s: %d repeats of up to %d exceed the index range",
				ErrInvalidScenario, s.Name, shape[0], s.EffectiveMaxRepeats())
		}
	case KindRoundTrip:
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidScenario, s.Name, s.Kind)
	}

	if s.Tolerance != nil && (s.Tolerance.Abs < 0 || s.Tolerance.Rel < 0) {
		return fmt.Errorf("%w: %s: negative tolerance", ErrInvalidScenario, s.Name)
	}
	return nil
}

// productShape validates the operands of a matmul or bmm scenario and
// returns the product shape.
func (s Scenario) productShape() (tensor.Shape, error) {
	shapeOf := tensor.MatMulShape
	if s.Kind == KindBMM {
		shapeOf = tensor.BatchMatMulShape
	}
	other := tensor.Shape(s.OtherShape)
	if err := other.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: other_shape: %w", ErrInvalidScenario, s.Name, err)
	}
	out, err := shapeOf(s.Shape, other)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScenario, s.Name, err)
	}
	if len(s.BiasShape) == 0 {
		return out, nil
	}
	bias := tensor.Shape(s.BiasShape)
	if err := bias.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: bias_shape: %w", ErrInvalidScenario, s.Name, err)
	}
	if _, err := tensor.ExpandStrides(bias, out); err != nil {
		return nil, fmt.Errorf("%w: %s: bias: %w", ErrInvalidScenario, s.Name, err)
	}
	return out, nil
}

// gradShape returns the upstream gradient shape for an interpolate
// scenario, checking an explicit one against the forward output.
func (s Scenario) gradShape() (tensor.Shape, error) {
	out, err := s.InterpolateConfig().OutputShape(s.Shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScenario, s.Name, err)
	}
	if len(s.GradShape) == 0 {
		return out, nil
	}
	if !out.Equal(s.GradShape) {
		return nil, fmt.Errorf("%w: %s: grad_shape %v does not match output %v",
			ErrInvalidScenario, s.Name, s.GradShape, out)
	}
	return tensor.Shape(s.GradShape).Clone(), nil
}
