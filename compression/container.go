// Package compression implements a lossless Huffman byte-stream codec and
// its self-describing container format. A container carries a fixed header,
// the frequency table of the original bytes, and the packed bitstream; the
// decoder rebuilds the exact encoder tree from the stored table, so no code
// table ever travels on the wire.
package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Magic identifies the container format ("HUFF" read as a big-endian u32).
const Magic uint32 = 0x48554646

// HeaderSize is the fixed byte length of the container header.
const HeaderSize = 17

// freqRecordSize is one frequency-table record: symbol byte + u32 count.
const freqRecordSize = 5

var (
	ErrEmptyInput       = errors.New("compression: empty input")
	ErrBadMagic         = errors.New("compression: bad magic")
	ErrTruncatedHeader  = errors.New("compression: truncated header")
	ErrTruncatedPayload = errors.New("compression: truncated payload")
)

// Header is the fixed-layout container header. All multi-byte integers are
// little-endian on the wire.
type Header struct {
	Magic          uint32
	OriginalSize   uint32
	CompressedSize uint32
	FrequencyCount uint32
	PaddingBits    uint8
}

func (h Header) marshal() [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.OriginalSize)
	binary.LittleEndian.PutUint32(buf[8:12], h.CompressedSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.FrequencyCount)
	buf[16] = h.PaddingBits
	return buf
}

// ReadHeader reads and validates a container header. Exported so callers
// can sniff a container (magic, sizes) without decoding the payload.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
	}
	h := Header{
		Magic:          binary.LittleEndian.Uint32(buf[0:4]),
		OriginalSize:   binary.LittleEndian.Uint32(buf[4:8]),
		CompressedSize: binary.LittleEndian.Uint32(buf[8:12]),
		FrequencyCount: binary.LittleEndian.Uint32(buf[12:16]),
		PaddingBits:    buf[16],
	}
	if h.Magic != Magic {
		return Header{}, fmt.Errorf("%w: got %#08x", ErrBadMagic, h.Magic)
	}
	if h.PaddingBits > 7 {
		return Header{}, fmt.Errorf("%w: padding bit count %d out of range", ErrTruncatedHeader, h.PaddingBits)
	}
	if h.FrequencyCount > alphabetSize {
		return Header{}, fmt.Errorf("%w: frequency count %d exceeds alphabet", ErrTruncatedHeader, h.FrequencyCount)
	}
	return h, nil
}

// Compress encodes input into a self-describing container. Empty input is
// rejected with ErrEmptyInput before anything is allocated.
//
// The input is scanned twice: once to count byte frequencies, once to emit
// code bits. The header goes out first with a zero compressed size, then
// gets patched in place once the true payload length is known, mirroring
// what a file-backed encoder would do with a seek.
func Compress(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, ErrEmptyInput
	}
	if len(input) > math.MaxUint32 {
		return nil, fmt.Errorf("compression: input of %d bytes exceeds container limit", len(input))
	}

	var freqs [alphabetSize]uint32
	for _, b := range input {
		freqs[b]++
	}

	root, err := buildTree(&freqs)
	if err != nil {
		return nil, fmt.Errorf("compression: build tree: %w", err)
	}
	table := buildCodeTable(root)

	var distinct uint32
	for _, f := range freqs {
		if f > 0 {
			distinct++
		}
	}

	var out bytes.Buffer
	header := Header{
		Magic:          Magic,
		OriginalSize:   uint32(len(input)),
		FrequencyCount: distinct,
	}
	hbuf := header.marshal()
	out.Write(hbuf[:])

	// frequency section, ascending symbol order
	var rec [freqRecordSize]byte
	for s := 0; s < alphabetSize; s++ {
		if freqs[s] == 0 {
			continue
		}
		rec[0] = byte(s)
		binary.LittleEndian.PutUint32(rec[1:], freqs[s])
		out.Write(rec[:])
	}

	payloadStart := out.Len()
	w := &bitWriter{out: &out}
	for _, b := range input {
		sc := table[b]
		if sc.bits == 0 {
			// cannot happen unless the two passes saw different data
			return nil, fmt.Errorf("compression: no code for symbol %#02x", b)
		}
		for _, bit := range sc.code {
			if bit == '1' {
				w.writeBit(1)
			} else {
				w.writeBit(0)
			}
		}
	}
	padding := w.flush()

	// patch compressed size and padding count into the header
	container := out.Bytes()
	binary.LittleEndian.PutUint32(container[8:12], uint32(out.Len()-payloadStart))
	container[16] = padding
	return container, nil
}

// Decompress recovers the original bytes from a container produced by
// Compress. The Huffman tree is always rederived from the stored frequency
// table with the same algorithm the encoder ran, so the two sides agree on
// every code down to tie-breaks.
func Decompress(data []byte) ([]byte, error) {
	r := bytes.NewReader(data)
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	var freqs [alphabetSize]uint32
	var rec [freqRecordSize]byte
	for i := uint32(0); i < h.FrequencyCount; i++ {
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return nil, fmt.Errorf("%w: frequency record %d: %v", ErrTruncatedHeader, i, err)
		}
		freqs[rec[0]] = binary.LittleEndian.Uint32(rec[1:])
	}

	root, err := buildTree(&freqs)
	if err != nil {
		return nil, fmt.Errorf("%w: rebuild tree: %v", ErrTruncatedHeader, err)
	}

	payload := data[len(data)-r.Len():]
	if uint32(len(payload)) < h.CompressedSize {
		return nil, fmt.Errorf("%w: want %d payload bytes, have %d", ErrTruncatedPayload, h.CompressedSize, len(payload))
	}
	payload = payload[:h.CompressedSize]

	// Walk the payload bit by bit from the root: 0 left, 1 right, emit on
	// leaf and restart. Decoding stops once OriginalSize bytes are out, so
	// the padding filler in the last byte is never interpreted.
	out := make([]byte, 0, h.OriginalSize)
	br := &bitReader{data: payload}
	cur := root
	for uint32(len(out)) < h.OriginalSize {
		bit, ok := br.readBit()
		if !ok {
			return nil, fmt.Errorf("%w: payload exhausted after %d of %d bytes", ErrTruncatedPayload, len(out), h.OriginalSize)
		}
		if bit == 0 {
			cur = cur.left
		} else {
			cur = cur.right
		}
		if cur == nil {
			return nil, fmt.Errorf("%w: bit sequence walked off the tree", ErrTruncatedPayload)
		}
		if cur.isLeaf() {
			out = append(out, cur.symbol)
			cur = root
		}
	}
	return out, nil
}

// Stats summarizes one compression run for reporting.
type Stats struct {
	OriginalSize   int
	CompressedSize int
}

// Ratio is compressed size over original size (smaller is better).
func (s Stats) Ratio() float64 {
	if s.OriginalSize == 0 {
		return 0
	}
	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// SpaceSaving is the percentage of the original size shaved off; negative
// when the container grew.
func (s Stats) SpaceSaving() float64 {
	return (1 - s.Ratio()) * 100
}
