package compression

import (
	"bytes"
	"testing"
)

func TestBitWriter_PacksMSBFirst(t *testing.T) {
	var out bytes.Buffer
	w := &bitWriter{out: &out}
	for _, bit := range []byte{1, 0, 1, 1, 0, 0, 1, 0} {
		w.writeBit(bit)
	}
	if padding := w.flush(); padding != 0 {
		t.Errorf("expected no padding for a full byte, got %d", padding)
	}
	if got := out.Bytes(); len(got) != 1 || got[0] != 0b10110010 {
		t.Errorf("expected [0b10110010], got %08b", got)
	}
}

func TestBitWriter_FlushLeftJustifies(t *testing.T) {
	var out bytes.Buffer
	w := &bitWriter{out: &out}
	w.writeBit(1)
	w.writeBit(1)
	w.writeBit(0)

	padding := w.flush()
	if padding != 5 {
		t.Errorf("expected 5 padding bits, got %d", padding)
	}
	if got := out.Bytes(); len(got) != 1 || got[0] != 0b11000000 {
		t.Errorf("expected [0b11000000], got %08b", got)
	}
}

func TestBitWriter_FlushEmptyEmitsNothing(t *testing.T) {
	var out bytes.Buffer
	w := &bitWriter{out: &out}
	if padding := w.flush(); padding != 0 {
		t.Errorf("expected 0 padding bits, got %d", padding)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %d bytes", out.Len())
	}
}

func TestBitReader_ReadsMSBFirst(t *testing.T) {
	r := &bitReader{data: []byte{0b10110010, 0b01000000}}
	want := []byte{1, 0, 1, 1, 0, 0, 1, 0, 0, 1}
	for i, expected := range want {
		bit, ok := r.readBit()
		if !ok {
			t.Fatalf("unexpected exhaustion at bit %d", i)
		}
		if bit != expected {
			t.Errorf("bit %d: expected %d, got %d", i, expected, bit)
		}
	}
}

func TestBitReader_SignalsExhaustion(t *testing.T) {
	r := &bitReader{data: []byte{0xff}}
	for i := 0; i < 8; i++ {
		if _, ok := r.readBit(); !ok {
			t.Fatalf("unexpected exhaustion at bit %d", i)
		}
	}
	if _, ok := r.readBit(); ok {
		t.Error("expected exhaustion after 8 bits of a 1-byte input")
	}
	// repeated reads stay exhausted
	if _, ok := r.readBit(); ok {
		t.Error("expected exhaustion to persist")
	}
}

func TestBitRoundTrip(t *testing.T) {
	pattern := []byte{1, 1, 0, 1, 0, 0, 0, 1, 1, 0, 1}
	var out bytes.Buffer
	w := &bitWriter{out: &out}
	for _, bit := range pattern {
		w.writeBit(bit)
	}
	w.flush()

	r := &bitReader{data: out.Bytes()}
	for i, expected := range pattern {
		bit, ok := r.readBit()
		if !ok {
			t.Fatalf("unexpected exhaustion at bit %d", i)
		}
		if bit != expected {
			t.Errorf("bit %d: expected %d, got %d", i, expected, bit)
		}
	}
}
