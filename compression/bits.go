package compression

import "bytes"

// bitWriter packs single bits into bytes, most-significant bit first,
// emitting each completed byte to out.
type bitWriter struct {
	out     *bytes.Buffer
	current byte
	count   int
}

func (w *bitWriter) writeBit(bit byte) {
	w.current <<= 1
	w.current |= bit & 1
	w.count++
	if w.count == 8 {
		w.out.WriteByte(w.current)
		w.current = 0
		w.count = 0
	}
}

// flush left-justifies any pending bits into one final byte and returns
// how many low bits of that byte are filler. Called exactly once, at end
// of payload.
func (w *bitWriter) flush() uint8 {
	if w.count == 0 {
		return 0
	}
	padding := uint8(8 - w.count)
	w.current <<= padding
	w.out.WriteByte(w.current)
	w.current = 0
	w.count = 0
	return padding
}

// bitReader hands out the bits of a byte slice one at a time,
// most-significant bit first. Exhaustion is signalled through the second
// return value, never an error.
type bitReader struct {
	data      []byte
	pos       int
	current   byte
	remaining int
}

func (r *bitReader) readBit() (byte, bool) {
	if r.remaining == 0 {
		if r.pos == len(r.data) {
			return 0, false
		}
		r.current = r.data[r.pos]
		r.pos++
		r.remaining = 8
	}
	r.remaining--
	return (r.current >> uint(r.remaining)) & 1, true
}
