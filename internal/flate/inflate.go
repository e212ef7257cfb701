// Package flate implements the DEFLATE decompressor described in RFC 1951.
// It drives per-block decoding (stored, fixed-Huffman, and dynamic-Huffman
// blocks), resolving literal bytes and length/distance back-references
// against a sliding window of previously emitted output.
package flate

import (
	"bufio"
	"io"
	"sync"

	"github.com/jonjohnsonjr/inflate/internal/bitio"
	"github.com/jonjohnsonjr/inflate/internal/huffman"
)

const (
	endBlockMarker   = 256
	lengthCodesStart = 257
	maxLengthSymbol  = 285
)

// lengthBase holds RFC 1951 §3.2.5's base lengths for literal/length
// symbols 265..284; readLength computes their extra-bit counts and special
// cases symbols 257..264 and 285 directly.
var lengthBase = [...]int{11, 13, 15, 17, 19, 23, 27, 31, 35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227}

// distBase holds the base distances for codes 4..29; readDistance computes
// their extra-bit counts.
var distBase = [...]int{5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193, 257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577}

var (
	fixedOnce sync.Once
	fixedLit  *huffman.Tree
)

func fixedLitTree() *huffman.Tree {
	fixedOnce.Do(func() {
		var lengths [288]int
		for i := 0; i < 144; i++ {
			lengths[i] = 8
		}
		for i := 144; i < 256; i++ {
			lengths[i] = 9
		}
		for i := 256; i < 280; i++ {
			lengths[i] = 7
		}
		for i := 280; i < 288; i++ {
			lengths[i] = 8
		}
		t, err := huffman.Build(lengths[:])
		if err != nil {
			// The RFC 1951 §3.2.6 fixed lengths always form a valid
			// canonical code; this would indicate a bug in huffman.Build.
			panic(err)
		}
		fixedLit = t
	})
	return fixedLit
}

// byteReader adapts an io.Reader to bitio.ByteReader if it is not already
// one, the same accommodation compress/flate makes for callers that hand
// in a bare io.Reader.
func byteReader(r io.Reader) bitio.ByteReader {
	if br, ok := r.(bitio.ByteReader); ok {
		return br
	}
	return bufio.NewReader(r)
}

// decompressor drives the block loop for a single DEFLATE stream. Per
// §5, a fresh instance is required per stream; there is no shared mutable
// state between instances and no internal concurrency.
type decompressor struct {
	br  *bitio.Reader
	win *window
}

// Decompress reads a complete DEFLATE stream from r and writes the
// reconstructed bytes to w in order, blocking until the final block (or an
// error) is reached. It never reads past the final block: the underlying
// ByteReader pulls one whole byte at a time, so whatever byte holds the
// final block's last bit is the last byte Decompress consumes, leaving a
// caller that shares the same *bufio.Reader (e.g. a gzip trailer reader)
// positioned exactly at the first byte after the DEFLATE payload.
func Decompress(r io.Reader, w io.Writer) error {
	d := &decompressor{
		br:  bitio.New(byteReader(r)),
		win: newWindow(w),
	}
	for {
		final, err := d.block()
		if err != nil {
			return err
		}
		if final {
			return nil
		}
	}
}

// NewReader wraps r, whose first bit is the start of a DEFLATE stream, as
// an io.ReadCloser of the decompressed bytes. Decompression runs in its own
// goroutine, synchronously driving one decompressor, and is connected to
// the returned reader through an io.Pipe: this gives callers an idiomatic
// pull-based io.Reader without forcing the block decoder itself into a
// cooperative, resumable state machine.
func NewReader(r io.Reader) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		err := Decompress(r, pw)
		pw.CloseWithError(err)
	}()
	return pr
}

// block decodes one DEFLATE block and reports whether it was the final one.
func (d *decompressor) block() (final bool, err error) {
	finalBit, err := d.br.ReadBitsLSB(1)
	if err != nil {
		return false, err
	}
	btype, err := d.br.ReadBitsLSB(2)
	if err != nil {
		return false, err
	}

	switch btype {
	case 0:
		err = d.storedBlock()
	case 1:
		err = d.huffmanBlock(fixedLitTree(), nil)
	case 2:
		lit, dist, derr := readDynamicTrees(d.br)
		if derr != nil {
			return false, derr
		}
		err = d.huffmanBlock(lit, dist)
	default:
		err = ErrReservedBlockType
	}
	if err != nil {
		return false, err
	}
	return finalBit == 1, nil
}

// storedBlock handles BTYPE=00: byte-align, then copy LEN raw bytes,
// having checked NLEN is LEN's one's complement (RFC 1951 §3.2.4). This
// block type is a documented gap in the educational C program this
// decoder's algorithm was distilled from; it is fully implemented here.
func (d *decompressor) storedBlock() error {
	d.br.Align()

	var buf [4]byte
	if err := d.br.ReadAligned(buf[:]); err != nil {
		return err
	}
	n := int(buf[0]) | int(buf[1])<<8
	nn := int(buf[2]) | int(buf[3])<<8
	if uint16(nn) != uint16(^uint16(n)) {
		return ErrStoredBlockLengthMismatch
	}

	data := make([]byte, n)
	if err := d.br.ReadAligned(data); err != nil {
		return err
	}
	for _, b := range data {
		if err := d.win.Append(b); err != nil {
			return err
		}
	}
	return nil
}

// huffmanBlock decodes the symbol stream of a fixed or dynamic Huffman
// block. dist is nil for fixed blocks, whose distance codes are fixed-length
// 5-bit codes read without a tree (RFC 1951 §3.2.6).
func (d *decompressor) huffmanBlock(lit, dist *huffman.Tree) error {
	for {
		sym, err := lit.Decode(d.br)
		if err != nil {
			return err
		}

		switch {
		case sym < endBlockMarker:
			if err := d.win.Append(byte(sym)); err != nil {
				return err
			}
			continue

		case sym == endBlockMarker:
			return nil

		case sym <= maxLengthSymbol:
			length, err := d.readLength(sym)
			if err != nil {
				return err
			}
			distance, err := d.readDistance(dist)
			if err != nil {
				return err
			}
			if err := d.win.Copy(distance, length); err != nil {
				return err
			}

		default:
			return ErrInvalidLengthSymbol
		}
	}
}

// readLength decodes a back-reference length from literal/length symbol
// sym, per RFC 1951 §3.2.5.
func (d *decompressor) readLength(sym int) (int, error) {
	switch {
	case sym < 265:
		return sym - 254, nil
	case sym < maxLengthSymbol:
		idx := sym - lengthCodesStart - 8
		extraBits := uint((sym - 261) / 4)
		extra, err := d.br.ReadBitsLSB(extraBits)
		if err != nil {
			return 0, err
		}
		return lengthBase[idx] + int(extra), nil
	default: // sym == 285
		return 258, nil
	}
}

// readDistance decodes a back-reference distance. If distTree is nil (a
// fixed block), the 5-bit distance code is read directly, most significant
// bit first like any Huffman code, rather than walked through a tree, then
// run through the same code→distance table dynamic blocks use.
func (d *decompressor) readDistance(distTree *huffman.Tree) (int, error) {
	var code int
	if distTree == nil {
		v, err := d.br.ReadBitsMSB(5)
		if err != nil {
			return 0, err
		}
		code = int(v)
	} else {
		c, err := distTree.Decode(d.br)
		if err != nil {
			return 0, err
		}
		code = c
	}

	if code >= maxNumDist {
		return 0, ErrInvalidDistance
	}
	if code < 4 {
		return code + 1, nil
	}
	extraBits := uint((code - 2) / 2)
	extra, err := d.br.ReadBitsLSB(extraBits)
	if err != nil {
		return 0, err
	}
	return distBase[code-4] + int(extra), nil
}
