// Package parity compares a reference tensor with a target tensor and
// reports where they disagree.
package parity

import (
	"fmt"
	"math"
)

// Tolerance bounds |got - ref| by Abs + Rel*|ref|. The zero value demands
// bit-identical elements.
type Tolerance struct {
	Abs float64 `yaml:"abs" json:"abs"`
	Rel float64 `yaml:"rel" json:"rel"`
}

// Exact requires every element to match bit for bit.
var Exact = Tolerance{}

// IsExact reports whether t is the zero tolerance.
func (t Tolerance) IsExact() bool {
	return t.Abs == 0 && t.Rel == 0
}

// Allows reports whether got is within tolerance of ref. Two NaNs match;
// infinities must match exactly.
func (t Tolerance) Allows(ref, got float64) bool {
	if math.IsNaN(ref) || math.IsNaN(got) {
		return math.IsNaN(ref) && math.IsNaN(got)
	}
	if math.IsInf(ref, 0) || math.IsInf(got, 0) {
		return ref == got
	}
	return math.Abs(got-ref) <= t.Abs+t.Rel*math.Abs(ref)
}

func (t Tolerance) String() string {
	if t.IsExact() {
		return "exact"
	}
	return fmt.Sprintf("abs=%g rel=%g", t.Abs, t.Rel)
}

var defaults = map[string]Tolerance{
	"all":               Exact,
	"where":             Exact,
	"roundtrip":         Exact,
	"repeat_interleave": Exact,
	"interpolate":       {Abs: 1e-5, Rel: 1e-5},
	"elu":               {Abs: 1e-5, Rel: 1e-5},
	// Sums over K accumulate in a device-specific order.
	"matmul": {Abs: 1e-4, Rel: 1e-4},
	"bmm":    {Abs: 1e-4, Rel: 1e-4},
}

// ToleranceFor returns the default tolerance for an operator kind.
// Unknown kinds compare exactly.
func ToleranceFor(op string) Tolerance {
	return defaults[op]
}
