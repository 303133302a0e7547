// Package cli builds the fdq command-line surface: four subcommands
// matching the query modes (spec §6 "CLI surface"), each sharing a common
// flag set for fields, filter, path, time range, TPUT, and output.
// Grounded on the teacher's own cmd/cli/commands package (urfave/cli v1,
// one cli.Command per action, flags declared as package-level vars and
// shared across commands that need the same options).
/*
 * Copyright (c) 2026 fdq Authors. All rights reserved.
 */
package cli

import "github.com/urfave/cli"

var (
	rankFlag = cli.IntFlag{
		Name:  "rank",
		Usage: "this process's rank; 0 is the coordinator, 1..world-size-1 are workers",
	}
	worldSizeFlag = cli.IntFlag{
		Name:  "world-size",
		Usage: "total number of ranks in the session, coordinator included",
	}
	listenFlag = cli.StringFlag{
		Name:  "listen",
		Usage: "coordinator: address to listen on, e.g. :7000",
	}
	coordinatorFlag = cli.StringFlag{
		Name:  "coordinator",
		Usage: "worker: coordinator address to dial, e.g. 10.0.0.1:7000",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "optional fdq.yaml overlay, coordinator-side only",
	}

	fieldFlag = cli.StringSliceFlag{
		Name:  "field",
		Usage: "key field name, repeatable (e.g. --field src_addr --field dst_port)",
	}
	sumFlag = cli.StringSliceFlag{
		Name:  "sum",
		Usage: "aggregate field summed across matching records, repeatable",
	}
	minFlag = cli.StringSliceFlag{
		Name:  "min",
		Usage: "aggregate field reduced by minimum, repeatable",
	}
	maxFlag = cli.StringSliceFlag{
		Name:  "max",
		Usage: "aggregate field reduced by maximum, repeatable",
	}
	sortFieldFlag = cli.StringFlag{
		Name:  "sort-field",
		Usage: "field to sort by; must also be a --sum/--min/--max column",
	}
	descFlag = cli.BoolFlag{
		Name:  "desc",
		Usage: "sort descending instead of ascending",
	}
	nFlag = cli.IntFlag{
		Name:  "n",
		Usage: "record limit; 0 means unbounded",
	}
	filterFlag = cli.StringFlag{
		Name:  "filter",
		Usage: "boolean filter expression, e.g. \"proto == 6 && bytes > 1000\"",
	}
	pathFlag = cli.StringFlag{
		Name:  "path",
		Usage: "flow file or directory to read",
	}
	timeStartFlag = cli.StringFlag{
		Name:  "time-start",
		Usage: "RFC3339 start of the time range (directory inputs only)",
	}
	timeEndFlag = cli.StringFlag{
		Name:  "time-end",
		Usage: "RFC3339 end of the time range (directory inputs only)",
	}
	rotationFlag = cli.DurationFlag{
		Name:  "rotation",
		Usage: "flow file rotation interval, e.g. 5m",
	}
	tputFlag = cli.BoolFlag{
		Name:  "tput",
		Usage: "use the three-phase TPUT top-N protocol for aggr mode",
	}
	compressFlag = cli.BoolFlag{
		Name:  "compress",
		Usage: "lz4-compress data frames on the wire",
	}
	progressFlag = cli.StringFlag{
		Name:  "progress",
		Usage: "progress type: none, total, per-slave, json",
		Value: "none",
	}
	progressDestFlag = cli.StringFlag{
		Name:  "progress-dest",
		Usage: "progress destination: stderr, stdout, or a file path",
		Value: "stderr",
	}
	outputFlag = cli.StringFlag{
		Name:  "output",
		Usage: "output format: pretty or csv",
		Value: "pretty",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "v",
		Usage: "glog verbosity level",
	}
)

// commonFlags are shared by every mode subcommand (spec §6: "flags select
// fields and aggregates ... filter expression, path(s), time range, TPUT
// on/off, progress-bar type & destination, output format").
var commonFlags = []cli.Flag{
	rankFlag, worldSizeFlag, listenFlag, coordinatorFlag, configFlag,
	fieldFlag, sumFlag, minFlag, maxFlag, sortFieldFlag, descFlag, nFlag,
	filterFlag, pathFlag, timeStartFlag, timeEndFlag, rotationFlag,
	tputFlag, compressFlag, progressFlag, progressDestFlag, outputFlag,
	verbosityFlag,
}
