package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/devparity/internal/scenario"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, version)
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "train")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown command")

	code, _, _ = runCLI(t)
	assert.Equal(t, 2, code)
}

func TestDevices(t *testing.T) {
	code, out, _ := runCLI(t, "devices")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "cpu")
	assert.Contains(t, out, "reference")
	assert.Contains(t, out, "multicore")
	assert.Contains(t, out, "webgpu")
}

func TestRun_Multicore(t *testing.T) {
	code, out, errOut := runCLI(t, "run", "-target", "multicore", "-only", "all_dim3,upsample_linear1d,roundtrip")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "PASS  all_dim3")
	assert.Contains(t, out, "0 failed")
}

func TestRun_ProductsAndRepeats(t *testing.T) {
	code, out, errOut := runCLI(t, "run", "-target", "multicore", "-only", "matmul,bmm,repeat_interleave")
	require.Equal(t, 0, code, errOut)
	for _, name := range []string{"mm", "addmm", "bmm", "baddbmm", "repeat_interleave_long"} {
		assert.Contains(t, out, "PASS  "+name)
	}
	assert.Contains(t, out, "0 failed")
}

func TestRun_JSON(t *testing.T) {
	code, out, errOut := runCLI(t, "run", "-json", "-workers", "2", "-seed", "5", "-only", "elu")
	require.Equal(t, 0, code, errOut)

	var sum scenario.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, "Multicore(2)", sum.Target)
	assert.Len(t, sum.Results, 2)
	assert.Equal(t, 2, sum.Passed)
	// Seeds derive from the overridden suite seed and the scenario position.
	assert.Greater(t, sum.Results[0].Seed, int64(5))
	assert.Equal(t, sum.Results[0].Seed+1, sum.Results[1].Seed)
}

func TestRun_SuiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.yaml")
	doc := "name: file\nscenarios:\n  - {name: rt, kind: roundtrip, shape: [4, 4], dtype: int32}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	code, out, errOut := runCLI(t, "run", "-suite", path)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "PASS  rt")
}

func TestRun_DumpOnlyOnFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	code, out, errOut := runCLI(t, "run", "-dump", dir, "-only", "where")
	require.Equal(t, 0, code, errOut)
	assert.NotContains(t, out, "dumped to")
	assert.NoDirExists(t, dir)
}

func TestRun_Errors(t *testing.T) {
	code, _, errOut := runCLI(t, "run", "-target", "tpu", "-only", "roundtrip_bool")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown device")

	code, _, errOut = runCLI(t, "run", "-only", "missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "no scenario named missing")

	code, _, _ = runCLI(t, "run", "-bogus")
	assert.Equal(t, 2, code)
}

func TestSuiteCommand(t *testing.T) {
	code, out, _ := runCLI(t, "suite")
	require.Equal(t, 0, code)

	s, err := scenario.ParseSuite([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, scenario.DefaultSuite(), s)
}
