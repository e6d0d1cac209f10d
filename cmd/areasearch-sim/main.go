// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// areasearch-sim serves a generated grid for areasearch to explore.
//
// Every region's objects, names, owners, and groups derive from --seed,
// so a given seed always produces the same grid. --drop-every leaves
// some property requests unanswered to exercise the client's retries.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/areasearch/lib/config"
	"github.com/bureau-foundation/areasearch/lib/process"
	"github.com/bureau-foundation/areasearch/lib/simulator"
	"github.com/bureau-foundation/areasearch/lib/version"
)

func main() {
	ctx, stop := process.SignalContext(context.Background())
	defer stop()
	if err := run(ctx, os.Args[1:], nil); err != nil {
		process.Fatal(err)
	}
}

// run serves until ctx is done. ready, if set, receives the listening
// address once the grid accepts connections.
func run(ctx context.Context, args []string, ready chan<- string) error {
	var (
		listen   string
		logLevel string
		cfg      simulator.Config
	)

	flagSet := pflag.NewFlagSet("areasearch-sim", pflag.ContinueOnError)
	flagSet.StringVarP(&listen, "listen", "l", "127.0.0.1:13000", "address to serve: host:port, unix:path, or a socket path")
	flagSet.Uint64Var(&cfg.Seed, "seed", 1, "seed for the generated grid")
	flagSet.IntVar(&cfg.GridSize, "grid-size", simulator.DefaultGridSize, "regions along each edge of the grid")
	flagSet.IntVar(&cfg.ObjectsPerRegion, "objects", simulator.DefaultObjectsPerRegion, "objects generated per region")
	flagSet.IntVar(&cfg.ReplyBatch, "reply-batch", simulator.DefaultReplyBatch, "most entries in one properties reply")
	flagSet.IntVar(&cfg.DropEvery, "drop-every", 0, "leave every Nth property request unanswered (0 answers all)")
	flagSet.StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
	flagSet.Bool("version", false, "print version and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion, _ := flagSet.GetBool("version"); showVersion {
		version.Print("areasearch-sim")
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if cfg.GridSize <= 0 || cfg.ObjectsPerRegion <= 0 || cfg.ReplyBatch <= 0 || cfg.DropEvery < 0 {
		return errors.New("--grid-size, --objects, and --reply-batch must be positive; --drop-every must not be negative")
	}

	level, err := config.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger := process.NewLogger(os.Stderr, level)
	cfg.Logger = logger

	network, address := splitAddress(listen)
	listener, err := net.Listen(network, address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listen, err)
	}

	grid := simulator.New(cfg)
	start := grid.Start()
	logger.Info("grid generated",
		"seed", cfg.Seed,
		"regions", len(grid.Regions()),
		"objects_per_region", cfg.ObjectsPerRegion,
		"start", start,
	)
	if ready != nil {
		ready <- listener.Addr().String()
	}
	return grid.Serve(ctx, listener)
}

func splitAddress(address string) (network, target string) {
	if path, ok := strings.CutPrefix(address, "unix:"); ok {
		return "unix", path
	}
	if strings.HasPrefix(address, "/") {
		return "unix", address
	}
	return "tcp", address
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `areasearch-sim serves a generated grid of regions.

The agent arrives in the centre region and sees it and its neighbours.
Property requests are answered in batches; names are answered for every
generated agent and group.

Usage:
  areasearch-sim [flags]

Examples:
  # Serve the default 3x3 grid on the default port
  areasearch-sim

  # A larger, lossy grid on a Unix socket
  areasearch-sim --listen /tmp/grid.sock --grid-size 5 --drop-every 10

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
