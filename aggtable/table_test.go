package aggtable

import (
	"testing"

	"github.com/CESNET/fdq/flowrec"
)

func protoBytesFieldSet() flowrec.FieldSet {
	return flowrec.FieldSet{Columns: []flowrec.Column{
		{Field: flowrec.FieldProto, Role: flowrec.RoleKey},
		{Field: flowrec.FieldBytes, Role: flowrec.RoleSum},
	}}
}

func makeRec(schema flowrec.Schema, proto, bytesVal uint64) flowrec.Record {
	r := flowrec.NewRecord(schema)
	r.SetUint64(schema, flowrec.FieldProto, proto)
	r.SetUint64(schema, flowrec.FieldBytes, bytesVal)
	return r
}

// TestDeterministicAggregation is spec.md scenario B.
func TestDeterministicAggregation(t *testing.T) {
	fs := protoBytesFieldSet()
	tbl := New(fs, Insertion)
	schema := tbl.Schema()

	const (
		tcp = 6
		udp = 17
	)
	tbl.Write(makeRec(schema, tcp, 10))
	tbl.Write(makeRec(schema, udp, 3))
	tbl.Write(makeRec(schema, tcp, 5))
	tbl.Write(makeRec(schema, tcp, 2))

	got := map[uint64]uint64{}
	for _, rec := range tbl.Cursor() {
		proto, _ := rec.GetUint64(schema, flowrec.FieldProto)
		bytesVal, _ := rec.GetUint64(schema, flowrec.FieldBytes)
		got[proto] = bytesVal
	}
	if got[tcp] != 17 {
		t.Fatalf("tcp bytes = %d, want 17", got[tcp])
	}
	if got[udp] != 3 {
		t.Fatalf("udp bytes = %d, want 3", got[udp])
	}
}

// TestIdempotentInsertionOrder is spec.md §8's "Idempotent insertion"
// invariant: interleaving order of writes must not affect final sums.
func TestIdempotentInsertionOrder(t *testing.T) {
	fs := protoBytesFieldSet()
	schema := flowrec.NewSchema(fs)

	orderings := [][][2]uint64{
		{{6, 10}, {6, 5}, {17, 3}},
		{{17, 3}, {6, 5}, {6, 10}},
		{{6, 5}, {17, 3}, {6, 10}},
	}
	var totals []uint64
	for _, ord := range orderings {
		tbl := New(fs, Insertion)
		for _, pb := range ord {
			tbl.Write(makeRec(schema, pb[0], pb[1]))
		}
		rec := tbl.Get([]byte{6})
		v, _ := rec.GetUint64(schema, flowrec.FieldBytes)
		totals = append(totals, v)
	}
	for _, v := range totals {
		if v != totals[0] {
			t.Fatalf("aggregation depends on write order: %v", totals)
		}
	}
}

func TestCursorSortedDesc(t *testing.T) {
	fs := flowrec.FieldSet{Columns: []flowrec.Column{
		{Field: flowrec.FieldProto, Role: flowrec.RoleKey},
		{Field: flowrec.FieldBytes, Role: flowrec.RoleSum},
		{Field: flowrec.FieldBytes, Role: flowrec.RoleSort},
	}}
	tbl := New(fs, SortedDesc)
	schema := tbl.Schema()
	tbl.Write(makeRec(schema, 1, 5))
	tbl.Write(makeRec(schema, 2, 50))
	tbl.Write(makeRec(schema, 3, 20))

	cur := tbl.Cursor()
	if len(cur) != 3 {
		t.Fatalf("len(cursor) = %d, want 3", len(cur))
	}
	var prev uint64 = ^uint64(0)
	for _, rec := range cur {
		v, _ := rec.GetUint64(schema, flowrec.FieldBytes)
		if v > prev {
			t.Fatalf("cursor not sorted desc: %v", cur)
		}
		prev = v
	}
}
