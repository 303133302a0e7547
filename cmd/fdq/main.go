// Command fdq is the single binary for both roles in an fdq session: the
// coordinator (rank 0) and every worker (rank 1..world-size-1) run the
// same executable, distinguished only by --rank (spec §4.8 step 1,
// "Parse CLI on all ranks").
/*
 * Copyright (c) 2026 fdq Authors. All rights reserved.
 */
package main

import (
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/CESNET/fdq/cli"
)

func main() {
	defer glog.Flush()

	app := cli.NewApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		glog.Flush()
		os.Exit(1)
	}
}
