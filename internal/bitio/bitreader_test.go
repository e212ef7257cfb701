package bitio

import (
	"bufio"
	"bytes"
	"io"
	"testing"
)

func newTestReader(data []byte) *Reader {
	return New(bufio.NewReader(bytes.NewReader(data)))
}

func TestNextBitLSBOrder(t *testing.T) {
	// 0b10110010 -> LSB-first bit sequence is 0,1,0,0,1,1,0,1
	r := newTestReader([]byte{0xb2})
	want := []uint32{0, 1, 0, 0, 1, 1, 0, 1}
	for i, w := range want {
		got, err := r.NextBit()
		if err != nil {
			t.Fatalf("bit %d: %v", i, err)
		}
		if got != w {
			t.Fatalf("bit %d: got %d, want %d", i, got, w)
		}
	}
	if _, err := r.NextBit(); err != ErrUnexpectedEOF {
		t.Fatalf("expected ErrUnexpectedEOF past last byte, got %v", err)
	}
}

func TestReadBitsLSB(t *testing.T) {
	// Two bytes: 0xb2, 0x01. Read a 3-bit field then a 5-bit field from the
	// first byte: LSB-first means the 3-bit field is the low 3 bits.
	r := newTestReader([]byte{0xb2, 0x01})
	v, err := r.ReadBitsLSB(3)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0b010 {
		t.Fatalf("got %#b, want 0b010", v)
	}
	v, err = r.ReadBitsLSB(5)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0b10110 {
		t.Fatalf("got %#b, want 0b10110", v)
	}
	v, err = r.ReadBitsLSB(8)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Fatalf("got %d, want 1", v)
	}
}

func TestReadBitsMSB(t *testing.T) {
	// 0xb2 = 10110010. The first 4 bits read (its low 4 bits, in the order
	// 0,1,0,0 from TestNextBitLSBOrder) should assemble MSB-first to 0b0100.
	r := newTestReader([]byte{0xb2})
	v, err := r.ReadBitsMSB(4)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0b0100 {
		t.Fatalf("got %#b, want 0b0100", v)
	}
}

func TestAlignAndReadAligned(t *testing.T) {
	r := newTestReader([]byte{0xff, 0xaa, 0xbb, 0xcc})
	if _, err := r.ReadBitsLSB(3); err != nil {
		t.Fatal(err)
	}
	r.Align()
	buf := make([]byte, 3)
	if err := r.ReadAligned(buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, []byte{0xaa, 0xbb, 0xcc}) {
		t.Fatalf("got %x, want aabbcc", buf)
	}
}

func TestReadAlignedShortRead(t *testing.T) {
	r := newTestReader([]byte{0x01, 0x02})
	buf := make([]byte, 5)
	if err := r.ReadAligned(buf); err != ErrUnexpectedEOF {
		t.Fatalf("got %v, want ErrUnexpectedEOF", err)
	}
}

func TestOffsetTracksWholeBytesConsumed(t *testing.T) {
	r := newTestReader([]byte{0x01, 0x02, 0x03})
	if _, err := r.ReadBitsLSB(1); err != nil {
		t.Fatal(err)
	}
	if got := r.Offset(); got != 1 {
		t.Fatalf("offset after first bit: got %d, want 1", got)
	}
	if _, err := r.ReadBitsLSB(16); err != nil {
		t.Fatal(err)
	}
	if got := r.Offset(); got != 3 {
		t.Fatalf("offset after crossing two more bytes: got %d, want 3", got)
	}
}

type oneByteAtATime struct {
	r io.Reader
}

func (o oneByteAtATime) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return o.r.Read(p)
}

func TestNewWrapsPlainByteReader(t *testing.T) {
	src := bufio.NewReader(oneByteAtATime{bytes.NewReader([]byte{0x55})})
	r := New(src)
	v, err := r.ReadBitsLSB(8)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x55 {
		t.Fatalf("got %#x, want 0x55", v)
	}
}
