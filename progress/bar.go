// Package progress implements the progress-bar side-channel (C5): a
// coordinator-side context tracking per-worker file-completion counts,
// rendered to an io.Writer as the PROGRESS receive loop advances it.
// Style grounded on the teacher's terminal status-line writers, which
// rewrite a single line on a TTY and append on a plain file.
/*
 * Copyright (c) 2026 fdq Authors. All rights reserved.
 */
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Type selects how (or whether) progress is rendered (spec §4.5).
type Type int

const (
	None Type = iota
	Totals
	PerWorker
	JSON
)

func ParseType(s string) (Type, error) {
	switch s {
	case "none", "":
		return None, nil
	case "total":
		return Totals, nil
	case "per-slave", "per-worker":
		return PerWorker, nil
	case "json":
		return JSON, nil
	default:
		return None, fmt.Errorf("unknown progress type %q", s)
	}
}

// Bar is the coordinator's progress-bar context: per-worker cur[w]/sum[w],
// running totals, and a rendering destination. Mutated only by the
// coordinator's receive loop (spec §5's "no locks required in the core"),
// but the mutex here makes it safe to also query TotalCur from another
// goroutine.
type Bar struct {
	typ Type
	out io.Writer
	tty bool

	mu  sync.Mutex
	cur []int64
	sum []int64
}

// New creates a Bar for workerCount workers (ranks 1..workerCount),
// writing rendered lines to out. A nil out defaults to os.Stderr.
func New(typ Type, out io.Writer, workerCount int) *Bar {
	if out == nil {
		out = os.Stderr
	}
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Bar{
		typ: typ,
		out: out,
		tty: tty,
		cur: make([]int64, workerCount),
		sum: make([]int64, workerCount),
	}
}

// Init records each worker's total file count, gathered once before the
// query runs (spec §4.5: "Initialization gathers sum[w] from all workers").
func (b *Bar) Init(sums []int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	copy(b.sum, sums)
	if b.typ != None {
		b.render()
	}
}

// Report records one completed file from worker rank (1-based) and
// returns true once every worker has reported all of its files.
func (b *Bar) Report(rank int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := rank - 1
	if idx >= 0 && idx < len(b.cur) {
		b.cur[idx]++
	}
	if b.typ != None {
		b.render()
	}
	return b.totalCurLocked() >= b.totalSumLocked()
}

func (b *Bar) totalCurLocked() int64 {
	var t int64
	for _, c := range b.cur {
		t += c
	}
	return t
}

func (b *Bar) totalSumLocked() int64 {
	var t int64
	for _, s := range b.sum {
		t += s
	}
	return t
}

// TotalCur returns the current completed-file count across all workers.
func (b *Bar) TotalCur() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalCurLocked()
}

func (b *Bar) render() {
	switch b.typ {
	case Totals:
		b.renderTotals()
	case PerWorker:
		b.renderPerWorker()
	case JSON:
		b.renderJSON()
	}
}

func (b *Bar) renderTotals() {
	cur, sum := b.totalCurLocked(), b.totalSumLocked()
	line := fmt.Sprintf("files: %s / %s", humanize.Comma(cur), humanize.Comma(sum))
	if b.tty && cur < sum {
		line = color.YellowString(line)
	} else if b.tty {
		line = color.GreenString(line)
	}
	b.writeLine(line)
}

func (b *Bar) renderPerWorker() {
	line := "files:"
	for i := range b.cur {
		part := fmt.Sprintf(" w%d=%d/%d", i+1, b.cur[i], b.sum[i])
		if b.tty && b.cur[i] >= b.sum[i] && b.sum[i] > 0 {
			part = color.GreenString(part)
		}
		line += part
	}
	b.writeLine(line)
}

func (b *Bar) renderJSON() {
	type report struct {
		Cur      []int64 `json:"cur"`
		Sum      []int64 `json:"sum"`
		TotalCur int64   `json:"total_cur"`
		TotalSum int64   `json:"total_sum"`
	}
	buf, err := json.Marshal(report{
		Cur:      append([]int64(nil), b.cur...),
		Sum:      append([]int64(nil), b.sum...),
		TotalCur: b.totalCurLocked(),
		TotalSum: b.totalSumLocked(),
	})
	if err != nil {
		return
	}
	fmt.Fprintln(b.out, string(buf))
}

// writeLine rewrites the status line: carriage-return for a TTY, one
// line per call (no rewind) for a plain file, matching spec §4.5.
func (b *Bar) writeLine(line string) {
	if b.tty {
		fmt.Fprintf(b.out, "\r%s", line)
		return
	}
	fmt.Fprintln(b.out, line)
}

// Finish writes a trailing newline after the final TTY status line so
// subsequent output doesn't overwrite it.
func (b *Bar) Finish() {
	if b.tty && b.typ != None && b.typ != JSON {
		fmt.Fprintln(b.out)
	}
}
