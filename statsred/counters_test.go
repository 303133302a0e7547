package statsred

import "testing"

func TestSnapshotReflectsCounters(t *testing.T) {
	var c Counters
	c.FilesSeen.Add(3)
	c.RecordsRead.Add(1000)
	c.RecordsMatched.Add(42)

	s := c.Snapshot()
	if s.FilesSeen != 3 || s.RecordsRead != 1000 || s.RecordsMatched != 42 {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestReduceIsElementwiseSum(t *testing.T) {
	snaps := []Snapshot{
		{FilesSeen: 2, RecordsRead: 100, RecordsMatched: 10},
		{FilesSeen: 3, RecordsRead: 200, RecordsMatched: 5, FilesFailed: 1},
		{FilesSeen: 1, RecordsRead: 50},
	}
	total := Reduce(snaps)
	want := Snapshot{FilesSeen: 6, RecordsRead: 350, RecordsMatched: 15, FilesFailed: 1}
	if total != want {
		t.Fatalf("Reduce() = %+v, want %+v", total, want)
	}
}

func TestReduceEmpty(t *testing.T) {
	if total := Reduce(nil); total != (Snapshot{}) {
		t.Fatalf("Reduce(nil) = %+v, want zero value", total)
	}
}
