package transport

import (
	"bytes"
	"math/rand"
	"testing"
)

// TestFramingRoundTrip is spec §8's universal invariant: packing then
// unpacking any sequence of records yields them back in order, with no
// splits. The 1000-byte record here is larger than the 256-byte buffer;
// Packer flushes first and gives it a buffer of its own.
func TestFramingRoundTrip(t *testing.T) {
	recs := [][]byte{
		[]byte("r1"),
		[]byte("a-somewhat-longer-record-here"),
		[]byte(""),
		[]byte("r4"),
		bytes.Repeat([]byte{0xAB}, 1000),
	}

	var flushed [][]byte
	p := NewPacker(256, func(buf []byte) error {
		cp := append([]byte(nil), buf...)
		flushed = append(flushed, cp)
		return nil
	})
	for _, r := range recs {
		if err := p.Append(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Terminate(); err != nil {
		t.Fatal(err)
	}

	// last flushed buffer must be the zero-length terminator
	if len(flushed) == 0 || len(flushed[len(flushed)-1]) != 0 {
		t.Fatalf("expected terminal zero-length buffer, got %d buffers, last len=%d",
			len(flushed), len(flushed[len(flushed)-1]))
	}

	var got [][]byte
	for _, buf := range flushed[:len(flushed)-1] {
		Unpack(buf, func(rec []byte) {
			cp := append([]byte(nil), rec...)
			got = append(got, cp)
		})
	}

	if len(got) != len(recs) {
		t.Fatalf("got %d records, want %d", len(got), len(recs))
	}
	for i := range recs {
		if !bytes.Equal(got[i], recs[i]) {
			t.Fatalf("record %d = %q, want %q", i, got[i], recs[i])
		}
	}
}

// TestFramingEdge is spec.md scenario F: a record whose framed size (with
// its 4-byte length prefix) is BufSize-3, followed by a 1-byte record, must
// split across exactly two buffers without corruption.
func TestFramingEdge(t *testing.T) {
	const bufSize = 128
	first := bytes.Repeat([]byte{0x11}, bufSize-4-3) // leaves 3 bytes free after its header
	second := []byte{0x22}

	var flushed [][]byte
	p := NewPacker(bufSize, func(buf []byte) error {
		flushed = append(flushed, append([]byte(nil), buf...))
		return nil
	})
	if err := p.Append(first); err != nil {
		t.Fatal(err)
	}
	if err := p.Append(second); err != nil {
		t.Fatal(err)
	}
	if err := p.Terminate(); err != nil {
		t.Fatal(err)
	}

	if len(flushed) != 3 { // buffer A (first), buffer B (second), terminator
		t.Fatalf("expected 3 flushes (A, B, terminator), got %d", len(flushed))
	}

	var gotFirst, gotSecond []byte
	Unpack(flushed[0], func(rec []byte) { gotFirst = append([]byte(nil), rec...) })
	Unpack(flushed[1], func(rec []byte) { gotSecond = append([]byte(nil), rec...) })

	if !bytes.Equal(gotFirst, first) {
		t.Fatalf("first record corrupted: len got %d want %d", len(gotFirst), len(first))
	}
	if !bytes.Equal(gotSecond, second) {
		t.Fatalf("second record corrupted: got %v want %v", gotSecond, second)
	}
}

func TestFramingRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var recs [][]byte
	for i := 0; i < 200; i++ {
		n := rng.Intn(300)
		r := make([]byte, n)
		rng.Read(r)
		recs = append(recs, r)
	}

	var flushed [][]byte
	p := NewPacker(512, func(buf []byte) error {
		flushed = append(flushed, append([]byte(nil), buf...))
		return nil
	})
	for _, r := range recs {
		if err := p.Append(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Terminate(); err != nil {
		t.Fatal(err)
	}

	var got [][]byte
	for _, buf := range flushed[:len(flushed)-1] {
		Unpack(buf, func(rec []byte) {
			got = append(got, append([]byte(nil), rec...))
		})
	}
	if len(got) != len(recs) {
		t.Fatalf("got %d records, want %d", len(got), len(recs))
	}
	for i := range recs {
		if !bytes.Equal(got[i], recs[i]) {
			t.Fatalf("record %d mismatch", i)
		}
	}
}
