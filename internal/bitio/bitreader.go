// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bitio delivers individual bits and multi-bit integers from a byte
// source under the two bit-ordering conventions DEFLATE (RFC 1951) mixes
// within a single stream: fixed-width fields are packed LSB-first, while
// Huffman codes are transmitted MSB-first.
package bitio

import (
	"fmt"
	"io"
)

// ErrUnexpectedEOF is returned whenever the underlying source is exhausted
// mid-bit, mid-field, or mid-block.
var ErrUnexpectedEOF = fmt.Errorf("bitio: unexpected end of input")

// ByteReader is the minimal read interface Reader needs from its source.
type ByteReader interface {
	io.Reader
	io.ByteReader
}

// Reader reads individual bits, and integers assembled from them, out of an
// underlying byte source. Bits within a byte are consumed LSB-first: the
// first bit read off a freshly loaded byte is that byte's bit 0.
type Reader struct {
	src ByteReader

	cur  byte // the partially-consumed current byte
	mask byte // position of the next unread bit within cur; 0 means empty

	offset int64 // bytes consumed from src so far
}

// New wraps r in a Reader. If r does not already implement ByteReader, it is
// wrapped in a bufio.Reader-compatible adapter by the caller; New itself
// requires a ByteReader so that refills never over-read the source.
func New(r ByteReader) *Reader {
	return &Reader{src: r}
}

// Offset reports how many whole bytes have been pulled from the source so
// far, including the byte currently being consumed bit by bit.
func (r *Reader) Offset() int64 {
	return r.offset
}

func (r *Reader) fill() error {
	b, err := r.src.ReadByte()
	if err != nil {
		if err == io.EOF {
			return ErrUnexpectedEOF
		}
		return err
	}
	r.offset++
	r.cur = b
	r.mask = 1
	return nil
}

// NextBit extracts the lowest-order unread bit of the current byte,
// refilling from the source when the current byte has been exhausted.
func (r *Reader) NextBit() (uint32, error) {
	if r.mask == 0 {
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	bit := uint32(0)
	if r.cur&r.mask != 0 {
		bit = 1
	}
	r.mask <<= 1
	return bit, nil
}

// ReadBitsLSB reads n bits (0 <= n <= 32) such that the first bit read
// occupies bit 0 of the result, the next bit occupies bit 1, and so on. This
// is how DEFLATE packs every fixed-width field: BTYPE, HLIT/HDIST/HCLEN,
// code-length entries, and all "extra bits" for length/distance codes.
func (r *Reader) ReadBitsLSB(n uint) (uint32, error) {
	var v uint32
	for i := uint(0); i < n; i++ {
		bit, err := r.NextBit()
		if err != nil {
			return 0, err
		}
		v |= bit << i
	}
	return v, nil
}

// ReadBitsMSB reads n bits such that the first bit read is the most
// significant bit of the result. DEFLATE never packs a multi-bit integer
// this way in the wire format; this mode exists because a Huffman code,
// read one bit at a time, is conceptually an MSB-first integer, and
// HuffmanTree.Decode walks a code exactly this way. The fixed-block 5-bit
// distance code is such a code and is read with this mode.
func (r *Reader) ReadBitsMSB(n uint) (uint32, error) {
	var v uint32
	for i := uint(0); i < n; i++ {
		bit, err := r.NextBit()
		if err != nil {
			return 0, err
		}
		v = (v << 1) | bit
	}
	return v, nil
}

// Align discards any unread bits remaining in the current byte, leaving the
// reader positioned at the start of the next whole byte. Used before a
// stored (uncompressed) block, whose LEN/NLEN/data fields are byte-aligned.
func (r *Reader) Align() {
	r.mask = 0
}

// ReadAligned reads len(p) whole bytes directly from the source. The reader
// must already be byte-aligned (call Align first).
func (r *Reader) ReadAligned(p []byte) error {
	n, err := io.ReadFull(r.src, p)
	r.offset += int64(n)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ErrUnexpectedEOF
		}
		return err
	}
	return nil
}
