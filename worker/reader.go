// Package worker implements the worker pipeline (C4): per-file bounded-
// concurrency reads, filtering, local aggregation, and mode-specific
// egress onto the transport.
/*
 * Copyright (c) 2026 fdq Authors. All rights reserved.
 */
package worker

import (
	"io"
	"os"

	"github.com/CESNET/fdq/cmn"
	"github.com/CESNET/fdq/flowrec"
)

// ReadFile decodes path as a flat sequence of fixed-width records matching
// schema, invoking cb for each in file order. This stands in for spec §6's
// "external flow-record library" (explicitly out of scope for the core;
// see DESIGN.md) with the simplest conforming on-disk layout: schema-width
// records back to back, no header, no self-description.
//
// A truncated final record is reported as a non-fatal *cmn.Error with code
// External; records already decoded before the truncation are still
// delivered to cb (spec §7: "records already consumed from that file are
// kept").
func ReadFile(path string, schema flowrec.Schema, cb func(flowrec.Record) error) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, cmn.NewError(cmn.BadPath, err, "opening %q", path)
	}
	defer f.Close()

	size := schema.Size()
	if size == 0 {
		return 0, cmn.NewError(cmn.Internal, nil, "schema has zero width")
	}

	var count int64
	buf := make(flowrec.Record, size)
	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			if err == io.EOF {
				return count, nil
			}
			if err == io.ErrUnexpectedEOF {
				return count, cmn.NewError(cmn.External, err, "truncated record in %q after %d records", path, count)
			}
			return count, cmn.NewError(cmn.External, err, "reading %q", path)
		}
		if err := cb(buf); err != nil {
			return count, err
		}
		count++
	}
}
