package query

import (
	"net"
	"testing"
	"time"

	"github.com/CESNET/fdq/aggtable"
	"github.com/CESNET/fdq/flowrec"
	"github.com/CESNET/fdq/transport"
)

func tputFieldSet() flowrec.FieldSet {
	return flowrec.FieldSet{Columns: []flowrec.Column{
		{Field: flowrec.FieldProto, Role: flowrec.RoleKey},
		{Field: flowrec.FieldBytes, Role: flowrec.RoleSort},
		{Field: flowrec.FieldBytes, Role: flowrec.RoleSum},
	}}
}

func localTable(fs flowrec.FieldSet, kv map[uint64]uint64) *aggtable.Table {
	t := aggtable.New(fs, aggtable.SortedDesc)
	schema := t.Schema()
	for proto, bytes := range kv {
		rec := flowrec.NewRecord(schema)
		rec.SetUint64(schema, flowrec.FieldProto, proto)
		rec.SetUint64(schema, flowrec.FieldBytes, bytes)
		t.Write(rec)
	}
	return t
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

// TestTputScenarioC reproduces spec.md Scenario C exactly: W=3, sort field
// bytes desc, N=2, with a long tail that the threshold-prune and verify
// phases pull in from workers whose local top-N left it out.
func TestTputScenarioC(t *testing.T) {
	const (
		protoA, protoB, protoC, protoD, protoE = 1, 2, 3, 4, 5
		worldSize                              = 4
	)
	fs := tputFieldSet()

	w1 := localTable(fs, map[uint64]uint64{protoA: 100, protoB: 40, protoC: 5})
	w2 := localTable(fs, map[uint64]uint64{protoA: 50, protoB: 10, protoD: 7})
	w3 := localTable(fs, map[uint64]uint64{protoC: 60, protoB: 20, protoE: 8})

	addr := freeAddr(t)
	hub := transport.NewHub(worldSize, false)
	go hub.Listen(addr)
	time.Sleep(50 * time.Millisecond)

	tables := []*aggtable.Table{w1, w2, w3}
	clients := make([]*transport.Client, 3)
	inboxes := make([]chan transport.Msg, 3)
	for i := 0; i < 3; i++ {
		inboxes[i] = make(chan transport.Msg, 64)
		c, err := transport.Dial(addr, i+1, worldSize, false, inboxes[i])
		if err != nil {
			t.Fatalf("worker %d dial: %v", i+1, err)
		}
		clients[i] = c
	}
	time.Sleep(50 * time.Millisecond)

	workerErrs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		i := i
		go func() {
			workerErrs <- TputWorker(clients[i], inboxes[i], tables[i], fs, 2)
		}()
	}

	result, err := RunAggrTput(hub, []int{1, 2, 3}, fs, 2, true, nil)
	if err != nil {
		t.Fatalf("RunAggrTput: %v", err)
	}
	for i := 0; i < 3; i++ {
		select {
		case err := <-workerErrs:
			if err != nil {
				t.Fatalf("worker %d: %v", i+1, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for worker to finish")
		}
	}

	schema := flowrec.NewSchema(fs)
	if len(result) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(result), result)
	}
	proto0, _ := result[0].GetUint64(schema, flowrec.FieldProto)
	bytes0, _ := result[0].GetUint64(schema, flowrec.FieldBytes)
	proto1, _ := result[1].GetUint64(schema, flowrec.FieldProto)
	bytes1, _ := result[1].GetUint64(schema, flowrec.FieldBytes)

	if proto0 != protoA || bytes0 != 150 {
		t.Fatalf("result[0] = proto %d bytes %d, want proto %d bytes 150", proto0, bytes0, protoA)
	}
	if proto1 != protoB || bytes1 != 70 {
		t.Fatalf("result[1] = proto %d bytes %d, want proto %d bytes 70", proto1, bytes1, protoB)
	}

	hub.Close()
	for _, c := range clients {
		c.Close()
	}
}

func TestPhase1BottomFewerThanN(t *testing.T) {
	fs := tputFieldSet()
	table := localTable(fs, map[uint64]uint64{1: 10, 2: 20})
	// N=5 but only 2 entries: tau1 should be the last (smallest, since
	// SortedDesc) record's value.
	got := phase1Bottom(table, flowrec.FieldBytes, 5)
	if got != 10 {
		t.Fatalf("phase1Bottom = %d, want 10 (last of 2 records, fewer than N=5)", got)
	}
}

func TestPhase1BottomEmpty(t *testing.T) {
	fs := tputFieldSet()
	table := aggtable.New(fs, aggtable.SortedDesc)
	if got := phase1Bottom(table, flowrec.FieldBytes, 2); got != 0 {
		t.Fatalf("phase1Bottom(empty) = %d, want 0", got)
	}
}
