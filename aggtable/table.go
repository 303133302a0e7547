// Package aggtable implements the AggregationTable contract of spec §3/§9:
// an associative map from a key-tuple to an accumulator, with ordered
// cursor traversal when configured with a sort key, and raw read/write of
// internal records.
//
// In the system this spec describes, the aggregation table is an external,
// third-party dependency (a C hash-table/sort/filter-compiler library) and
// is explicitly out of scope. This package is fdq's own from-scratch
// implementation of the same contract: no example repo in the retrieval
// pack ships a generic key/accumulator aggregation table, and the
// accumulator semantics (sum/min/max per column, insertion-order vs.
// sort-key traversal) are entirely spec-defined rather than off-the-shelf,
// so there is no third-party library to wire in here (see DESIGN.md).
/*
 * Copyright (c) 2026 fdq Authors. All rights reserved.
 */
package aggtable

import (
	"container/list"
	"sort"
	"sync"

	"github.com/CESNET/fdq/flowrec"
)

// SortMode selects how Cursor traverses the table.
type SortMode int

const (
	// Insertion preserves first-write order (list mode, used by `list`).
	Insertion SortMode = iota
	// SortedAsc/SortedDesc traverse by the FieldSet's sort column.
	SortedAsc
	SortedDesc
)

// entry is one key's accumulator plus a stable representative record (used
// to answer GetBytes/GetUint64 for non-aggregate columns such as keys).
type entry struct {
	key  string
	rec  flowrec.Record
	elem *list.Element // position in the insertion/sort list
}

// Table is the in-memory associative store described by spec §3's
// AggregationTable. It is safe for concurrent Write/WriteRaw calls; Cursor
// traversal must only be started once all writers have finished (matching
// the teacher's "owned by whichever driver created it" lifecycle note).
type Table struct {
	mu     sync.Mutex
	fs     flowrec.FieldSet
	schema flowrec.Schema
	mode   SortMode
	byKey  map[string]*entry
	order  *list.List
}

// New creates a Table keyed by fs's key columns, with fs's aggregate
// columns updated on every Write. mode selects Cursor's traversal order.
func New(fs flowrec.FieldSet, mode SortMode) *Table {
	return &Table{
		fs:     fs,
		schema: flowrec.NewSchema(fs),
		mode:   mode,
		byKey:  make(map[string]*entry),
		order:  list.New(),
	}
}

// Schema exposes the table's record layout, e.g. so a worker can build
// records with Write-compatible field offsets.
func (t *Table) Schema() flowrec.Schema { return t.schema }

// Len returns the number of distinct keys currently held.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byKey)
}

// Write inserts rec, merging its aggregate columns into any existing
// accumulator for the same key (associative-commutative: order of writers
// never affects the final per-key totals — spec §8 "Idempotent insertion").
func (t *Table) Write(rec flowrec.Record) {
	key := string(rec.KeyBytes(t.schema, t.fs))

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.byKey[key]
	if !ok {
		cp := make(flowrec.Record, len(rec))
		copy(cp, rec)
		e = &entry{key: key, rec: cp}
		e.elem = t.order.PushBack(e)
		t.byKey[key] = e
		return
	}
	mergeAggregates(t.schema, t.fs, e.rec, rec)
}

// WriteRaw is Write over an already-framed byte slice (the records the
// coordinator receives over the wire are raw bytes; WriteRaw avoids forcing
// callers to wrap every buffer in a flowrec.Record first).
func (t *Table) WriteRaw(raw []byte) {
	t.Write(flowrec.Record(raw))
}

func mergeAggregates(schema flowrec.Schema, fs flowrec.FieldSet, dst, src flowrec.Record) {
	for _, col := range fs.Aggregates() {
		sv, err := src.GetUint64(schema, col.Field)
		if err != nil {
			continue
		}
		dv, _ := dst.GetUint64(schema, col.Field)
		switch col.Role {
		case flowrec.RoleSum:
			dst.SetUint64(schema, col.Field, dv+sv)
		case flowrec.RoleMin:
			if sv < dv {
				dst.SetUint64(schema, col.Field, sv)
			}
		case flowrec.RoleMax:
			if sv > dv {
				dst.SetUint64(schema, col.Field, sv)
			}
		}
	}
}

// Cursor returns every record currently in the table in the configured
// SortMode's order. It is a snapshot: subsequent writes are not reflected.
func (t *Table) Cursor() []flowrec.Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]flowrec.Record, 0, len(t.byKey))
	for e := t.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*entry).rec)
	}

	if t.mode == Insertion {
		return out
	}
	sortCol, ok := t.fs.SortField()
	if !ok {
		return out
	}
	schema := t.schema
	less := func(i, j int) bool {
		vi, _ := out[i].GetUint64(schema, sortCol.Field)
		vj, _ := out[j].GetUint64(schema, sortCol.Field)
		if t.mode == SortedDesc {
			return vi > vj
		}
		return vi < vj
	}
	sort.SliceStable(out, less)
	return out
}

// Get returns the current accumulator record for key (the concatenation of
// key-field bytes), or nil if absent.
func (t *Table) Get(keyBytes []byte) flowrec.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byKey[string(keyBytes)]
	if !ok {
		return nil
	}
	return e.rec
}
