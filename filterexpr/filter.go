// Package filterexpr compiles the per-record filter expression named in
// spec §3's SessionContext ("filter expression (string)") into a Filter
// that the worker pipeline (C4) evaluates against every record it reads.
//
// The grammar is a small, spec-private boolean DSL over field comparisons
// (`proto == 6 && bytes > 1000 || dst_port == 53`); no example repo in the
// retrieval pack ships a general expression-language parser whose grammar
// fits this narrow shape, so this package is a from-scratch recursive-
// descent parser over the standard library only (see DESIGN.md).
/*
 * Copyright (c) 2026 fdq Authors. All rights reserved.
 */
package filterexpr

import (
	"fmt"

	"github.com/CESNET/fdq/cmn"
	"github.com/CESNET/fdq/flowrec"
)

// Filter matches a compiled expression against a record.
type Filter struct {
	root node
}

// Compile parses expr and returns a Filter, or a *cmn.Error with code
// BadFilter on any syntax error (spec §4.4: "compiles the filter (fails
// with BadFilter on invalid syntax)").
func Compile(expr string) (*Filter, error) {
	if expr == "" {
		return &Filter{root: trueNode{}}, nil
	}
	toks, err := lex(expr)
	if err != nil {
		return nil, cmn.NewError(cmn.BadFilter, err, "lexing filter expression %q", expr)
	}
	p := &parser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, cmn.NewError(cmn.BadFilter, err, "parsing filter expression %q", expr)
	}
	if !p.atEnd() {
		return nil, cmn.NewError(cmn.BadFilter, fmt.Errorf("unexpected token %q", p.peek().text), "parsing filter expression %q", expr)
	}
	return &Filter{root: n}, nil
}

// Match reports whether rec satisfies the compiled filter.
func (f *Filter) Match(schema flowrec.Schema, rec flowrec.Record) bool {
	if f == nil {
		return true
	}
	return f.root.eval(schema, rec)
}

// node is one AST node of the compiled expression.
type node interface {
	eval(schema flowrec.Schema, rec flowrec.Record) bool
}

type trueNode struct{}

func (trueNode) eval(flowrec.Schema, flowrec.Record) bool { return true }

type andNode struct{ left, right node }

func (n andNode) eval(s flowrec.Schema, r flowrec.Record) bool {
	return n.left.eval(s, r) && n.right.eval(s, r)
}

type orNode struct{ left, right node }

func (n orNode) eval(s flowrec.Schema, r flowrec.Record) bool {
	return n.left.eval(s, r) || n.right.eval(s, r)
}

type notNode struct{ inner node }

func (n notNode) eval(s flowrec.Schema, r flowrec.Record) bool {
	return !n.inner.eval(s, r)
}

type cmpOp int

const (
	opEq cmpOp = iota
	opNe
	opLt
	opLe
	opGt
	opGe
)

type cmpNode struct {
	field flowrec.FieldID
	op    cmpOp
	value uint64
}

func (n cmpNode) eval(s flowrec.Schema, r flowrec.Record) bool {
	v, err := r.GetUint64(s, n.field)
	if err != nil {
		return false
	}
	switch n.op {
	case opEq:
		return v == n.value
	case opNe:
		return v != n.value
	case opLt:
		return v < n.value
	case opLe:
		return v <= n.value
	case opGt:
		return v > n.value
	case opGe:
		return v >= n.value
	default:
		return false
	}
}
