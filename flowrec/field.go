// Package flowrec defines the flow-record data model: a stable field-id
// enumeration, the fixed binary width of each field, and the opaque
// byte-slice record type that the rest of fdq forwards by id rather than
// ever parsing structurally (spec §3, "FlowRecord").
/*
 * Copyright (c) 2026 fdq Authors. All rights reserved.
 */
package flowrec

import "fmt"

// FieldID identifies one column of a flow record. The numbering is stable
// across releases: field ids are persisted implicitly in FieldSet
// broadcasts, so they are never renumbered, only appended to.
type FieldID uint16

const (
	FieldSrcAddr FieldID = iota
	FieldDstAddr
	FieldSrcPort
	FieldDstPort
	FieldProto
	FieldTCPFlags
	FieldTimeStart // nanoseconds since epoch
	FieldTimeEnd
	FieldBytes
	FieldPackets
	FieldAggrFlows // number of source flows collapsed into this aggregate
	fieldIDCount
)

// widths holds the fixed byte width of every field; each value is stable by
// construction (flow records are never variable-length at the field level).
var widths = [fieldIDCount]int{
	FieldSrcAddr:   16, // IPv6-sized; IPv4 addrs are stored v4-in-v6
	FieldDstAddr:   16,
	FieldSrcPort:   2,
	FieldDstPort:   2,
	FieldProto:     1,
	FieldTCPFlags:  1,
	FieldTimeStart: 8,
	FieldTimeEnd:   8,
	FieldBytes:     8,
	FieldPackets:   8,
	FieldAggrFlows: 8,
}

// Width returns the fixed byte width of a field, or 0 for an unknown id.
func Width(id FieldID) int {
	if int(id) < 0 || int(id) >= len(widths) {
		return 0
	}
	return widths[id]
}

func (id FieldID) String() string {
	names := [fieldIDCount]string{
		"src_addr", "dst_addr", "src_port", "dst_port", "proto", "tcp_flags",
		"time_start", "time_end", "bytes", "packets", "aggr_flows",
	}
	if int(id) < 0 || int(id) >= len(names) {
		return fmt.Sprintf("field(%d)", id)
	}
	return names[id]
}

// Valid reports whether id is a known field.
func Valid(id FieldID) bool { return int(id) >= 0 && int(id) < int(fieldIDCount) }

var fieldsByName = map[string]FieldID{
	"src_addr":   FieldSrcAddr,
	"dst_addr":   FieldDstAddr,
	"src_port":   FieldSrcPort,
	"dst_port":   FieldDstPort,
	"proto":      FieldProto,
	"tcp_flags":  FieldTCPFlags,
	"time_start": FieldTimeStart,
	"time_end":   FieldTimeEnd,
	"bytes":      FieldBytes,
	"packets":    FieldPackets,
	"aggr_flows": FieldAggrFlows,
}

// ParseFieldID looks up a field by its lowercase wire/CLI name (the same
// names FieldID.String() produces), used both by the filter DSL's lexer
// and by the CLI's --field/--sum/--sort flags.
func ParseFieldID(name string) (FieldID, error) {
	id, ok := fieldsByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown field %q", name)
	}
	return id, nil
}
