// Package main provides the devparity CLI: run operator parity scenarios on
// a target device against the CPU reference.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/born-ml/devparity/internal/device"
	"github.com/born-ml/devparity/internal/scenario"
)

const version = "v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: devparity <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run        Run the parity suite on a target device")
	fmt.Fprintln(w, "  devices    List devices and their availability")
	fmt.Fprintln(w, "  suite      Print the built-in suite as YAML")
	fmt.Fprintln(w, "  version    Show version")
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	switch args[0] {
	case "run":
		return runSuite(ctx, args[1:], stdout, stderr)
	case "devices":
		return listDevices(stdout)
	case "suite":
		return printSuite(stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "devparity %s\n", version)
		return 0
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
}

func runSuite(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	suitePath := fs.String("suite", "", "YAML suite file (default: built-in suite)")
	target := fs.String("target", "multicore", "Target device: multicore or webgpu")
	only := fs.String("only", "", "Comma separated scenario names or kinds to run")
	seed := fs.Int64("seed", 0, "Override the suite seed (0 = keep)")
	workers := fs.Int("workers", 0, "Multicore worker count (0 = GOMAXPROCS)")
	verbose := fs.Bool("v", false, "Verbose logging")
	asJSON := fs.Bool("json", false, "Print the summary as JSON")
	dumpDir := fs.String("dump", "", "Write mismatching tensors as SafeTensors files to this directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	suite, err := loadSuite(*suitePath, *seed, *only)
	if err != nil {
		logger.Error("suite", "error", err)
		return 1
	}

	ref, releaseRef, err := device.Open(device.Reference, device.Options{})
	if err != nil {
		logger.Error("open reference", "error", err)
		return 1
	}
	defer releaseRef()

	tgt, releaseTgt, err := device.Open(*target, device.Options{Workers: *workers})
	if err != nil {
		logger.Error("open target", "device", *target, "error", err)
		return 1
	}
	defer releaseTgt()

	runner := scenario.NewRunner(ref, tgt, logger).WithDumpDir(*dumpDir)
	summary, runErr := runner.Run(ctx, suite)

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			logger.Error("encode summary", "error", err)
			return 1
		}
	} else {
		printSummary(stdout, summary)
	}

	if runErr != nil {
		logger.Error("run interrupted", "error", runErr)
		return 1
	}
	if !summary.Success() {
		return 1
	}
	return 0
}

func loadSuite(path string, seed int64, only string) (*scenario.Suite, error) {
	suite := scenario.DefaultSuite()
	if path != "" {
		var err error
		if suite, err = scenario.LoadSuite(path); err != nil {
			return nil, err
		}
	}
	if seed != 0 {
		suite.Seed = seed
	}
	return suite.Filter(only)
}

func printSummary(w io.Writer, s scenario.Summary) {
	fmt.Fprintf(w, "run %s: %s vs %s (suite %s)\n", s.RunID, s.Target, s.Reference, s.Suite)
	for _, res := range s.Results {
		status := "PASS"
		if !res.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s  %-40s %v\n", status, res.Scenario, res.Duration.Round(time.Microsecond))
		if res.Err != nil {
			fmt.Fprintf(w, "      error: %v\n", res.Err)
		}
		for _, rep := range res.Reports {
			if !rep.Passed() {
				fmt.Fprintf(w, "      %s\n", rep)
			}
		}
		if res.Artifact != "" {
			fmt.Fprintf(w, "      dumped to %s\n", res.Artifact)
		}
	}
	fmt.Fprintf(w, "%d passed, %d failed\n", s.Passed, s.Failed)
}

func listDevices(w io.Writer) int {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tAVAILABLE\tROLE\tDETAILS")
	for _, info := range device.List() {
		role := "target"
		if info.Name == device.Reference {
			role = "reference"
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", info.Name, info.Available, role, info.Description)
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}

func printSuite(stdout, stderr io.Writer) int {
	data, err := scenario.DefaultSuite().Marshal()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if _, err := stdout.Write(data); err != nil {
		return 1
	}
	return 0
}
