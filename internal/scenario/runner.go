package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/devparity/internal/dump"
	"github.com/born-ml/devparity/internal/parity"
	"github.com/born-ml/devparity/internal/tensor"
)

// ErrBackend wraps a failure raised inside a backend operator.
var ErrBackend = errors.New("backend failure")

// Result is the outcome of one scenario. Artifact names the SafeTensors
// file holding the mismatching tensors, when dumping is enabled.
type Result struct {
	Scenario string          `json:"scenario"`
	Kind     Kind            `json:"kind"`
	Seed     int64           `json:"seed"`
	Reports  []parity.Report `json:"reports"`
	Duration time.Duration   `json:"duration_ns"`
	Artifact string          `json:"artifact,omitempty"`
	Err      error           `json:"-"`
	Error    string          `json:"error,omitempty"`
}

// Passed reports whether the scenario ran and every check matched.
func (r Result) Passed() bool {
	if r.Err != nil {
		return false
	}
	for _, rep := range r.Reports {
		if !rep.Passed() {
			return false
		}
	}
	return true
}

// Summary collects the results of a suite run.
type Summary struct {
	RunID      string    `json:"run_id"`
	Suite      string    `json:"suite"`
	Reference  string    `json:"reference"`
	Target     string    `json:"target"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Results    []Result  `json:"results"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
}

// Success reports whether every scenario passed.
func (s Summary) Success() bool {
	return s.Failed == 0 && len(s.Results) > 0
}

// Runner executes scenarios on a reference and a target backend.
// Scenarios run one at a time; every operator blocks until its result is
// in host memory.
type Runner struct {
	ref    tensor.Backend
	target tensor.Backend
	logger *slog.Logger
	runID  uuid.UUID

	dumpDir string
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(ref, target tensor.Backend, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	id := uuid.New()
	return &Runner{
		ref:    ref,
		target: target,
		runID:  id,
		logger: logger.With("run_id", id.String(), "reference", ref.Name(), "target", target.Name()),
	}
}

// WithDumpDir makes the runner write the reference and target tensors of
// every failed check to dir/<scenario>.safetensors.
func (r *Runner) WithDumpDir(dir string) *Runner {
	r.dumpDir = dir
	return r
}

// RunID identifies this runner's results in logs and reports.
func (r *Runner) RunID() uuid.UUID {
	return r.runID
}

// Run executes every scenario of suite in order. Cancellation is checked
// between scenarios; the summary holds the results gathered so far.
func (r *Runner) Run(ctx context.Context, suite *Suite) (Summary, error) {
	sum := Summary{
		RunID:     r.runID.String(),
		Suite:     suite.Name,
		Reference: r.ref.Name(),
		Target:    r.target.Name(),
		StartedAt: time.Now(),
	}

	r.logger.Info("suite started", "suite", suite.Name, "scenarios", len(suite.Scenarios))
	for i, sc := range suite.Scenarios {
		if err := ctx.Err(); err != nil {
			sum.FinishedAt = time.Now()
			return sum, fmt.Errorf("run %s: %w", suite.Name, err)
		}

		res := r.RunScenario(sc, suite.SeedFor(i))
		sum.Results = append(sum.Results, res)
		if res.Passed() {
			sum.Passed++
		} else {
			sum.Failed++
		}
	}
	sum.FinishedAt = time.Now()

	r.logger.Info("suite finished", "suite", suite.Name, "passed", sum.Passed, "failed", sum.Failed)
	return sum, nil
}

// RunScenario executes one scenario with the given input seed. Backend
// panics are recovered into the result's error; checks completed before
// the panic stay in the result and are dumped like any other.
func (r *Runner) RunScenario(sc Scenario, seed int64) (res Result) {
	res = Result{Scenario: sc.Name, Kind: sc.Kind, Seed: seed}
	log := r.logger.With("scenario", sc.Name, "kind", string(sc.Kind))
	start := time.Now()

	var x *execution
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("%w: %s: %v", ErrBackend, sc.Name, p)
			if x != nil {
				res.Reports = x.reports
				r.saveArtifacts(&res, seed, x.artifacts, log)
			}
		}
		res.Duration = time.Since(start)
		if res.Err != nil {
			res.Error = res.Err.Error()
			log.Error("scenario failed", "error", res.Err, "checks", len(res.Reports))
			return
		}
		for _, rep := range res.Reports {
			log.Debug("check", "name", rep.Name, "max_abs", rep.MaxAbs, "max_rel", rep.MaxRel, "mismatches", rep.Mismatches)
		}
		if res.Passed() {
			log.Info("scenario passed", "checks", len(res.Reports), "duration", res.Duration)
		} else {
			log.Warn("scenario mismatched", "checks", len(res.Reports))
		}
	}()

	if err := sc.Validate(); err != nil {
		res.Err = err
		return res
	}

	x = &execution{sc: sc, seed: seed, ref: r.ref, target: r.target}
	if r.dumpDir != "" {
		x.artifacts = make(map[string]*tensor.RawTensor)
	}
	res.Reports, res.Err = x.run()
	r.saveArtifacts(&res, seed, x.artifacts, log)
	return res
}

// saveArtifacts writes the collected mismatches, if any, and records the
// file in res.
func (r *Runner) saveArtifacts(res *Result, seed int64, artifacts map[string]*tensor.RawTensor, log *slog.Logger) {
	if len(artifacts) == 0 {
		return
	}
	path, err := r.writeArtifacts(res.Scenario, seed, artifacts)
	if err != nil {
		log.Warn("dump failed", "error", err)
		return
	}
	res.Artifact = path
}

func (r *Runner) writeArtifacts(name string, seed int64, tensors map[string]*tensor.RawTensor) (string, error) {
	if err := os.MkdirAll(r.dumpDir, 0o750); err != nil {
		return "", fmt.Errorf("dump: %w", err)
	}
	path := filepath.Join(r.dumpDir, name+".safetensors")
	meta := map[string]string{
		"run_id":    r.runID.String(),
		"scenario":  name,
		"seed":      strconv.FormatInt(seed, 10),
		"reference": r.ref.Name(),
		"target":    r.target.Name(),
	}
	if err := dump.WriteFile(path, tensors, meta); err != nil {
		return "", err
	}
	return path, nil
}
