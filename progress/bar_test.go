package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestReportDoneWhenAllFilesSeen(t *testing.T) {
	var buf bytes.Buffer
	b := New(Totals, &buf, 2)
	b.Init([]int64{4, 4})

	var done bool
	for i := 0; i < 7; i++ {
		done = b.Report(1 + i%2)
	}
	if done {
		t.Fatal("expected not done after 7 of 8 reports")
	}
	done = b.Report(2)
	if !done {
		t.Fatal("expected done after 8th report")
	}
	if b.TotalCur() != 8 {
		t.Fatalf("TotalCur() = %d, want 8", b.TotalCur())
	}
}

func TestParseType(t *testing.T) {
	cases := map[string]Type{"none": None, "total": Totals, "per-slave": PerWorker, "json": JSON, "": None}
	for s, want := range cases {
		got, err := ParseType(s)
		if err != nil || got != want {
			t.Fatalf("ParseType(%q) = %v, %v; want %v, nil", s, got, err, want)
		}
	}
	if _, err := ParseType("bogus"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestRenderJSONEmitsValidLines(t *testing.T) {
	var buf bytes.Buffer
	b := New(JSON, &buf, 1)
	b.Init([]int64{2})
	b.Report(1)
	b.Report(1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 { // Init + 2 Reports
		t.Fatalf("got %d JSON lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[len(lines)-1], `"total_cur":2`) {
		t.Fatalf("last line missing total_cur=2: %s", lines[len(lines)-1])
	}
}

func TestNonTTYWritesOneLinePerUpdate(t *testing.T) {
	var buf bytes.Buffer
	b := New(Totals, &buf, 1)
	b.Init([]int64{3})
	b.Report(1)
	b.Report(1)

	if strings.Count(buf.String(), "\n") != 3 {
		t.Fatalf("expected 3 newline-terminated lines (init+2 reports), got: %q", buf.String())
	}
}
