package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSeed seeds input generation when a suite names no seed.
const DefaultSeed = 20240101

// Suite is an ordered list of scenarios.
type Suite struct {
	Name      string     `yaml:"name" json:"name"`
	Seed      int64      `yaml:"seed,omitempty" json:"seed,omitempty"`
	Scenarios []Scenario `yaml:"scenarios" json:"scenarios"`
}

// LoadSuite reads a YAML suite from path.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("load suite: %w", err)
	}
	s, err := ParseSuite(data)
	if err != nil {
		return nil, fmt.Errorf("load suite %s: %w", path, err)
	}
	return s, nil
}

// ParseSuite decodes and validates a YAML suite. Unknown fields are errors.
func ParseSuite(data []byte) (*Suite, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Suite
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse suite: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Marshal encodes the suite as YAML.
func (s *Suite) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("marshal suite: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal suite: %w", err)
	}
	return buf.Bytes(), nil
}

// Validate checks every scenario and rejects duplicate names.
func (s *Suite) Validate() error {
	if len(s.Scenarios) == 0 {
		return fmt.Errorf("%w: suite %q has no scenarios", ErrInvalidScenario, s.Name)
	}
	seen := make(map[string]bool, len(s.Scenarios))
	for _, sc := range s.Scenarios {
		if err := sc.Validate(); err != nil {
			return err
		}
		if seen[sc.Name] {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidScenario, sc.Name)
		}
		seen[sc.Name] = true
	}
	return nil
}

// SeedFor returns the input seed of scenario i.
func (s *Suite) SeedFor(i int) int64 {
	if seed := s.Scenarios[i].Seed; seed != 0 {
		return seed
	}
	base := s.Seed
	if base == 0 {
		base = DefaultSeed
	}
	return base + int64(i)
}

// Filter returns a suite with only the named scenarios, in suite order.
// Names may be comma separated. An empty filter returns s unchanged.
func (s *Suite) Filter(names ...string) (*Suite, error) {
	want := make(map[string]bool)
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			if part = strings.TrimSpace(part); part != "" {
				want[part] = true
			}
		}
	}
	if len(want) == 0 {
		return s, nil
	}

	// A selector may name a scenario, a kind or both.
	out := &Suite{Name: s.Name, Seed: s.Seed}
	used := make(map[string]bool, len(want))
	for i, sc := range s.Scenarios {
		byName, byKind := want[sc.Name], want[string(sc.Kind)]
		if !byName && !byKind {
			continue
		}
		// Keep derived seeds stable when scenarios are filtered out.
		sc.Seed = s.SeedFor(i)
		out.Scenarios = append(out.Scenarios, sc)
		if byName {
			used[sc.Name] = true
		}
		if byKind {
			used[string(sc.Kind)] = true
		}
	}
	var missing []string
	for n := range want {
		if !used[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: no scenario named %s", ErrInvalidScenario, strings.Join(missing, ", "))
	}
	return out, nil
}

func intp(v int) *int { return &v }

func f64p(v float64) *float64 { return &v }

// DefaultSuite returns the built-in scenarios.
func DefaultSuite() *Suite {
	return &Suite{
		Name: "default",
		Seed: DefaultSeed,
		Scenarios: []Scenario{
			{Name: "all_1x3x8x2", Kind: KindAll, Shape: []int{1, 3, 8, 2}},
			{Name: "all_461x42x2x5", Kind: KindAll, Shape: []int{461, 42, 2, 5}},
			{Name: "all_dim3", Kind: KindAll, Shape: []int{3, 2, 5, 2}, Dim: intp(3)},
			{Name: "all_dim2_keepdim", Kind: KindAll, Shape: []int{359, 50, 7}, Dim: intp(2), KeepDim: true},
			{Name: "all_dim_negative", Kind: KindAll, Shape: []int{4, 33, 6}, Dim: intp(-2)},

			{
				Name: "upsample_linear1d", Kind: KindInterpolate, Shape: []int{2, 3, 5},
				Mode: "linear", Scales: []float64{6}, GradShape: []int{2, 3, 30},
			},
			{
				Name: "upsample_bilinear2d", Kind: KindInterpolate, Shape: []int{2, 3, 5, 5},
				Mode: "bilinear", Scales: []float64{6, 8}, GradShape: []int{2, 3, 30, 40},
			},
			{
				Name: "upsample_trilinear3d", Kind: KindInterpolate, Shape: []int{2, 3, 2, 5, 5},
				Mode: "trilinear", Scales: []float64{6, 8, 1}, GradShape: []int{2, 3, 12, 40, 5},
			},
			{
				Name: "upsample_linear1d_align_corners", Kind: KindInterpolate, Shape: []int{2, 3, 5},
				Mode: "linear", Scales: []float64{6}, AlignCorners: true,
			},
			{
				Name: "upsample_bilinear2d_align_corners", Kind: KindInterpolate, Shape: []int{2, 3, 5, 5},
				Mode: "bilinear", Scales: []float64{6, 8}, AlignCorners: true,
			},
			{
				Name: "upsample_trilinear3d_align_corners", Kind: KindInterpolate, Shape: []int{2, 3, 2, 5, 5},
				Mode: "trilinear", Scales: []float64{6, 8, 1}, AlignCorners: true,
			},
			{
				Name: "upsample_bilinear2d_recompute", Kind: KindInterpolate, Shape: []int{1, 2, 7, 3},
				Mode: "bilinear", Scales: []float64{2.5, 1.5}, RecomputeScaleFactor: true,
			},
			{
				Name: "upsample_bilinear2d_size", Kind: KindInterpolate, Shape: []int{1, 2, 4, 6},
				Mode: "bilinear", Size: []int{9, 7},
			},

			{Name: "where_float32", Kind: KindWhere, Shape: []int{8, 17}},
			{Name: "where_int32", Kind: KindWhere, Shape: []int{5, 9, 3}, DType: "int32"},
			{Name: "where_uint8_cond", Kind: KindWhere, Shape: []int{6, 11}, CondDType: "uint8"},

			{Name: "elu_default", Kind: KindELU, Shape: []int{4, 65}},
			{
				Name: "elu_scaled", Kind: KindELU, Shape: []int{3, 7, 11},
				Alpha: f64p(1.5), Scale: f64p(1.0507), InputScale: f64p(0.5),
			},

			{Name: "mm", Kind: KindMatMul, Shape: []int{5, 7}, OtherShape: []int{7, 3}},
			{
				Name: "addmm", Kind: KindMatMul, Shape: []int{5, 7}, OtherShape: []int{7, 3},
				BiasShape: []int{3}, Beta: f64p(0.5), Alpha: f64p(2),
			},
			{Name: "bmm", Kind: KindBMM, Shape: []int{4, 5, 6}, OtherShape: []int{4, 6, 3}},
			{
				Name: "baddbmm", Kind: KindBMM, Shape: []int{4, 5, 6}, OtherShape: []int{4, 6, 3},
				BiasShape: []int{1, 5, 3}, Beta: f64p(-1), Alpha: f64p(0.7),
			},

			{Name: "repeat_interleave", Kind: KindRepeatInterleave, Shape: []int{10}},
			{Name: "repeat_interleave_long", Kind: KindRepeatInterleave, Shape: []int{300}, MaxRepeats: 9},

			{Name: "roundtrip_float32", Kind: KindRoundTrip, Shape: []int{7, 13}},
			{Name: "roundtrip_uint8", Kind: KindRoundTrip, Shape: []int{3, 100}, DType: "uint8"},
			{Name: "roundtrip_bool", Kind: KindRoundTrip, Shape: []int{129}, DType: "bool"},
			{Name: "roundtrip_int64", Kind: KindRoundTrip, Shape: []int{2, 2, 9}, DType: "int64"},
		},
	}
}
