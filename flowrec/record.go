package flowrec

import (
	"encoding/binary"
	"fmt"
)

// schema describes where each field of a FieldSet lands inside a Record's
// byte layout: declaration order, fixed width, no self-description. This is
// the "stable field-id enumeration with sizes known from the field-id"
// contract from spec §3 — offsets are derived, never stored.
type Schema struct {
	fields  []FieldID
	offsets []int
	size    int
}

// NewSchema builds a Schema from every field named in fs, in declaration
// order (including duplicates across roles collapsed to one physical slot
// per distinct FieldID — a field can be both a key and independently
// referenced elsewhere without doubling storage).
func NewSchema(fs FieldSet) Schema {
	seen := map[FieldID]int{}
	var fields []FieldID
	var offsets []int
	off := 0
	for _, c := range fs.Columns {
		if _, ok := seen[c.Field]; ok {
			continue
		}
		seen[c.Field] = off
		fields = append(fields, c.Field)
		offsets = append(offsets, off)
		off += Width(c.Field)
	}
	return Schema{fields: fields, offsets: offsets, size: off}
}

// Size is the fixed byte length of a Record built from this Schema.
func (s Schema) Size() int { return s.size }

func (s Schema) offsetOf(id FieldID) (int, bool) {
	for i, f := range s.fields {
		if f == id {
			return s.offsets[i], true
		}
	}
	return 0, false
}

// Record is an opaque, fixed-width byte sequence whose fields are accessed
// exclusively through a Schema — the core never interprets the bytes any
// other way.
type Record []byte

// NewRecord allocates a zeroed record for the given schema.
func NewRecord(s Schema) Record { return make(Record, s.Size()) }

// GetUint64 reads field id as a big-endian uint64 (ports/protocol/flags are
// read the same way and masked down by the caller; flowrec never special-
// cases width at the accessor level beyond the slice length).
func (r Record) GetUint64(s Schema, id FieldID) (uint64, error) {
	off, ok := s.offsetOf(id)
	if !ok {
		return 0, fmt.Errorf("flowrec: field %s not present in schema", id)
	}
	w := Width(id)
	buf := r[off : off+w]
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// SetUint64 writes v into field id as big-endian, truncated to the field's
// fixed width.
func (r Record) SetUint64(s Schema, id FieldID, v uint64) error {
	off, ok := s.offsetOf(id)
	if !ok {
		return fmt.Errorf("flowrec: field %s not present in schema", id)
	}
	w := Width(id)
	buf := r[off : off+w]
	for i := w - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return nil
}

// GetBytes returns the raw bytes backing field id (used for address fields,
// which the core never interprets as integers).
func (r Record) GetBytes(s Schema, id FieldID) ([]byte, error) {
	off, ok := s.offsetOf(id)
	if !ok {
		return nil, fmt.Errorf("flowrec: field %s not present in schema", id)
	}
	w := Width(id)
	return r[off : off+w], nil
}

// SetBytes copies b (truncated/zero-padded to the field width) into field id.
func (r Record) SetBytes(s Schema, id FieldID, b []byte) error {
	off, ok := s.offsetOf(id)
	if !ok {
		return fmt.Errorf("flowrec: field %s not present in schema", id)
	}
	w := Width(id)
	dst := r[off : off+w]
	n := copy(dst, b)
	for i := n; i < w; i++ {
		dst[i] = 0
	}
	return nil
}

// KeyBytes concatenates the byte representation of every key field of fs,
// in declaration order — this is the AggregationTable key-tuple from §3.
func (r Record) KeyBytes(s Schema, fs FieldSet) []byte {
	keys := fs.Keys()
	out := make([]byte, 0, len(keys)*8)
	for _, k := range keys {
		b, err := r.GetBytes(s, k)
		if err != nil {
			continue
		}
		out = append(out, b...)
	}
	return out
}

// PutLenPrefixed appends rec prefixed by its 4-byte little-endian length
// to dst, per spec §4.2's FramedMessage layout.
func PutLenPrefixed(dst []byte, rec Record) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(rec)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, rec...)
	return dst
}
