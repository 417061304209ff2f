package parity

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/devparity/internal/tensor"
)

// ErrMismatch is wrapped by every error Compare returns.
var ErrMismatch = errors.New("parity mismatch")

// MaxReported caps Report.First.
const MaxReported = 8

// Mismatch is one element outside tolerance.
type Mismatch struct {
	Index int     `json:"index"`
	Coord []int   `json:"coord"`
	Ref   float64 `json:"ref"`
	Got   float64 `json:"got"`
}

// Report summarizes one comparison.
type Report struct {
	Name       string       `json:"name"`
	Shape      tensor.Shape `json:"shape"`
	DType      string       `json:"dtype"`
	Tolerance  Tolerance    `json:"tolerance"`
	Elements   int          `json:"elements"`
	Mismatches int          `json:"mismatches"`
	MaxAbs     float64      `json:"max_abs"`
	MaxRel     float64      `json:"max_rel"`
	First      []Mismatch   `json:"first,omitempty"`
}

// Passed reports whether every element matched.
func (r Report) Passed() bool {
	return r.Mismatches == 0
}

func (r Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s%v: ", r.Name, r.DType, []int(r.Shape))
	if r.Passed() {
		fmt.Fprintf(&sb, "ok (max abs %.3g, max rel %.3g, %s)", r.MaxAbs, r.MaxRel, r.Tolerance)
		return sb.String()
	}
	fmt.Fprintf(&sb, "%d/%d mismatched (max abs %.3g, max rel %.3g, %s)",
		r.Mismatches, r.Elements, r.MaxAbs, r.MaxRel, r.Tolerance)
	for _, m := range r.First {
		fmt.Fprintf(&sb, "\n  at %v: ref %v, got %v", m.Coord, m.Ref, m.Got)
	}
	return sb.String()
}

// Compare checks got against ref. Both must already be host tensors; the
// device label is ignored. Non-float tensors and exact tolerances compare
// element bytes, floats otherwise compare through Tolerance.Allows.
//
// The report is filled in even when an error is returned for mismatched
// values. Shape or dtype disagreement returns an empty report.
func Compare(name string, ref, got *tensor.RawTensor, tol Tolerance) (Report, error) {
	if !ref.Shape().Equal(got.Shape()) {
		return Report{Name: name}, fmt.Errorf("%w: %s: shape %v, reference %v", ErrMismatch, name, got.Shape(), ref.Shape())
	}
	if ref.DType() != got.DType() {
		return Report{Name: name}, fmt.Errorf("%w: %s: dtype %s, reference %s", ErrMismatch, name, got.DType(), ref.DType())
	}

	r := Report{
		Name:      name,
		Shape:     ref.Shape().Clone(),
		DType:     ref.DType().String(),
		Tolerance: tol,
		Elements:  ref.NumElements(),
	}

	exact := tol.IsExact() || !ref.DType().IsFloat()
	size := ref.DType().Size()
	refBytes, gotBytes := ref.Data(), got.Data()
	strides := ref.Shape().ComputeStrides()

	for i := 0; i < r.Elements; i++ {
		rv, gv := ref.Float64At(i), got.Float64At(i)
		r.observe(rv, gv)

		var ok bool
		if exact {
			ok = bytes.Equal(refBytes[i*size:(i+1)*size], gotBytes[i*size:(i+1)*size])
		} else {
			ok = tol.Allows(rv, gv)
		}
		if ok {
			continue
		}
		r.Mismatches++
		if len(r.First) < MaxReported {
			r.First = append(r.First, Mismatch{Index: i, Coord: unravel(i, strides), Ref: rv, Got: gv})
		}
	}

	if !r.Passed() {
		return r, fmt.Errorf("%w: %s: %d of %d elements differ", ErrMismatch, name, r.Mismatches, r.Elements)
	}
	return r, nil
}

func (r *Report) observe(ref, got float64) {
	if math.IsNaN(ref) || math.IsNaN(got) || math.IsInf(ref, 0) || math.IsInf(got, 0) {
		return
	}
	diff := math.Abs(got - ref)
	r.MaxAbs = math.Max(r.MaxAbs, diff)
	if ref != 0 {
		r.MaxRel = math.Max(r.MaxRel, diff/math.Abs(ref))
	}
}

func unravel(i int, strides []int) []int {
	coord := make([]int, len(strides))
	for d, s := range strides {
		coord[d] = i / s
		i %= s
	}
	return coord
}
