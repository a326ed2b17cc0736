// Command cedarctl drives the Cedar guest from the command line.
//
//	cedarctl run --wasm cedar.wasm --scenario photos.yaml
//	cedarctl watch --in-process --scenario photos.yaml
//	cedarctl -i --wasm cedar.wasm --scenario photos.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wippyai/cedar-wasm/host"
)

// errMismatch reports a run whose results differed from the scenario's
// expectations.
var errMismatch = errors.New("scenario expectations not met")

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, errMismatch) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		opts        engineOptions
		scenario    string
		interactive bool
		debug       bool
	)

	flagSet := pflag.NewFlagSet("cedarctl", pflag.ContinueOnError)
	flagSet.StringVar(&opts.wasm, "wasm", "", "path to the compiled guest module")
	flagSet.BoolVar(&opts.inProcess, "in-process", false, "run the export table in-process instead of loading a guest")
	flagSet.StringVarP(&scenario, "scenario", "s", "", "scenario file (YAML)")
	flagSet.BoolVarP(&interactive, "interactive", "i", false, "interactive mode with TUI")
	flagSet.BoolVar(&debug, "debug", false, "log host calls to stderr")
	flagSet.Usage = func() { printHelp(flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	log := zap.NewNop()
	if debug {
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		log = l
		defer log.Sync()
	}
	host.SetLogger(log.Named("host"))

	if interactive {
		return runInteractive(opts, scenario)
	}

	rest := flagSet.Args()
	if len(rest) != 1 {
		printHelp(flagSet)
		return fmt.Errorf("expected one command: run or watch")
	}
	if scenario == "" {
		return fmt.Errorf("--scenario is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch rest[0] {
	case "run":
		rep, err := runOnce(ctx, opts, scenario, os.Stdout)
		if err != nil {
			return err
		}
		if !rep.OK() {
			return errMismatch
		}
		return nil
	case "watch":
		return watch(ctx, opts, scenario, os.Stdout, log)
	default:
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `cedarctl evaluates Cedar scenarios against the WebAssembly guest.

Usage:
  cedarctl run   [flags]   evaluate every request once; exit 1 on mismatch
  cedarctl watch [flags]   re-run whenever the scenario or its files change
  cedarctl -i    [flags]   type requests interactively

Flags:
%s`, flagSet.FlagUsages())
}
