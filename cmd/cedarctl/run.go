package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/cedar-wasm/host"
)

var (
	allowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90")).Bold(true)
	denyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// Report summarises a scenario run.
type Report struct {
	Passed     int
	Mismatched int
	Validation *host.ValidationResult
}

// OK reports whether every expectation held and validation passed.
func (r Report) OK() bool {
	return r.Mismatched == 0 && (r.Validation == nil || r.Validation.Passed)
}

// engineOptions selects how the guest is hosted.
type engineOptions struct {
	wasm      string
	inProcess bool
}

func openEngine(ctx context.Context, opts engineOptions) (*host.Engine, error) {
	if opts.inProcess {
		return host.NewWithFactory(ctx, host.InProcess(), nil)
	}
	if opts.wasm == "" {
		return nil, fmt.Errorf("--wasm is required unless --in-process is set")
	}
	data, err := os.ReadFile(opts.wasm)
	if err != nil {
		return nil, fmt.Errorf("read guest: %w", err)
	}
	return host.New(ctx, data, &host.Config{Stderr: os.Stderr, ModuleName: "cedar"})
}

// runScenario loads the scenario into eng, validates it when a schema is
// present, and evaluates every request.
func runScenario(ctx context.Context, eng *host.Engine, sc *Scenario, w io.Writer) (Report, error) {
	var rep Report

	if err := eng.SetEntitiesFromJSON(ctx, sc.Entities); err != nil {
		return rep, fmt.Errorf("entities: %w", err)
	}
	if err := eng.SetPolicies(ctx, sc.Policies); err != nil {
		return rep, fmt.Errorf("policies: %w", err)
	}

	if sc.Schema != "" {
		res, err := eng.Validate(ctx, sc.Schema, sc.Mode)
		if err != nil {
			return rep, fmt.Errorf("validate: %w", err)
		}
		rep.Validation = res
		if res.Passed {
			fmt.Fprintf(w, "validation (%s): %s\n", sc.Mode, allowStyle.Render("passed"))
		} else {
			fmt.Fprintf(w, "validation (%s): %s\n", sc.Mode, denyStyle.Render("failed"))
			for _, e := range res.Errors {
				fmt.Fprintf(w, "  %s [%d..%d] %s\n", e.PolicyID, e.RangeStart, e.RangeEnd, e.Note)
			}
		}
	}

	for _, c := range sc.Requests {
		req, err := c.Request()
		if err != nil {
			return rep, err
		}
		resp, err := eng.IsAuthorizedJSON(ctx, req)
		if err != nil {
			return rep, fmt.Errorf("%s: %w", c.Name, err)
		}

		verdict := denyStyle.Render(resp.Decision)
		if resp.Decision == "Allow" {
			verdict = allowStyle.Render(resp.Decision)
		}
		line := fmt.Sprintf("%-5s %s", verdict, c.Name)
		if len(resp.Diagnostics.Reason) > 0 {
			line += dimStyle.Render(" (" + strings.Join(resp.Diagnostics.Reason, ", ") + ")")
		}

		if c.Expect != "" && !strings.EqualFold(c.Expect, resp.Decision) {
			rep.Mismatched++
			line += denyStyle.Render(fmt.Sprintf("  expected %s", c.Expect))
		} else {
			rep.Passed++
		}
		fmt.Fprintln(w, line)

		for _, e := range resp.Diagnostics.Errors {
			fmt.Fprintf(w, "      %s: %s\n", e.PolicyID, e.Message)
		}
	}

	fmt.Fprintf(w, "%d passed, %d mismatched\n", rep.Passed, rep.Mismatched)
	return rep, nil
}

func runOnce(ctx context.Context, opts engineOptions, path string, w io.Writer) (Report, error) {
	sc, err := LoadScenario(path)
	if err != nil {
		return Report{}, err
	}
	eng, err := openEngine(ctx, opts)
	if err != nil {
		return Report{}, err
	}
	defer eng.Close(ctx)
	return runScenario(ctx, eng, sc, w)
}
