// Package gzip implements the gzip container format described in RFC 1952:
// it strips and validates the header and trailer around a DEFLATE payload,
// handing the payload bitstream to internal/flate and validating the
// trailer's CRC32 and ISIZE against what flate actually produced.
//
// This is the ContainerAdapter the core DEFLATE inflater treats as an
// external collaborator: it supplies a byte stream positioned at the first
// DEFLATE bit and consumes the trailer after inflation.
package gzip

import (
	"bufio"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"time"

	"github.com/jonjohnsonjr/inflate/internal/flate"
)

const (
	magic1 = 0x1f
	magic2 = 0x8b
	cmDeflate = 8

	flagText    = 1 << 0
	flagHCRC    = 1 << 1
	flagExtra   = 1 << 2
	flagName    = 1 << 3
	flagComment = 1 << 4
)

// ErrHeader is returned when the input does not look like a gzip member:
// bad magic, unsupported compression method, or a corrupt FHCRC.
var ErrHeader = errors.New("gzip: invalid header")

// ErrChecksum is returned when the trailer's CRC32 or ISIZE does not match
// what was actually decompressed.
var ErrChecksum = errors.New("gzip: checksum mismatch")

// Header carries the metadata fields of a gzip member, per RFC 1952 §2.3.
type Header struct {
	Comment string
	Extra   []byte
	ModTime time.Time
	Name    string
	OS      byte
}

// Reader is an io.ReadCloser of the concatenated uncompressed bytes of one
// or more gzip members read from an underlying source.
type Reader struct {
	Header // valid after NewReader returns, reflects the first member

	br          *bufio.Reader
	pr          *io.PipeReader
	multistream bool
}

// NewReader validates the first gzip member's header in r and returns a
// Reader of its (and, if r contains further concatenated members and
// Multistream is left enabled, their) decompressed bytes.
func NewReader(r io.Reader) (*Reader, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	z := &Reader{br: br, multistream: true}
	hdr, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	z.Header = hdr

	pr, pw := io.Pipe()
	z.pr = pr
	go z.run(pw)
	return z, nil
}

// Multistream controls whether Read keeps decoding concatenated gzip
// members after the first one's trailer, the behavior RFC 1952 §2.2
// permits and compress/gzip enables by default. Must be called before the
// first Read.
func (z *Reader) Multistream(ok bool) {
	z.multistream = ok
}

func (z *Reader) Read(p []byte) (int, error) {
	return z.pr.Read(p)
}

// Close releases the Reader. It does not close the underlying source.
func (z *Reader) Close() error {
	return z.pr.Close()
}

// run decodes every member (honoring z.multistream) into pw, validating
// each member's trailer before moving to the next, and closes pw with
// whatever error (nil on clean EOF) terminated decoding.
func (z *Reader) run(pw *io.PipeWriter) {
	first := true
	for {
		if !first {
			// Concatenated member: a fresh header must follow immediately.
			if _, err := z.br.Peek(1); err != nil {
				if err == io.EOF {
					pw.Close()
					return
				}
				pw.CloseWithError(err)
				return
			}
			if _, err := readHeader(z.br); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		first = false

		crc := crc32.NewIEEE()
		cw := &countingWriter{w: io.MultiWriter(pw, crc)}
		if err := flate.Decompress(z.br, cw); err != nil {
			pw.CloseWithError(err)
			return
		}

		var trailer [8]byte
		if _, err := io.ReadFull(z.br, trailer[:]); err != nil {
			pw.CloseWithError(flate_noEOF(err))
			return
		}
		wantCRC := binary.LittleEndian.Uint32(trailer[0:4])
		wantSize := binary.LittleEndian.Uint32(trailer[4:8])
		if wantCRC != crc.Sum32() || wantSize != uint32(cw.n) {
			pw.CloseWithError(ErrChecksum)
			return
		}

		if !z.multistream {
			pw.Close()
			return
		}
	}
}

func flate_noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// readHeader parses a single gzip member header from br, leaving br
// positioned at the first byte of the DEFLATE payload.
func readHeader(br *bufio.Reader) (Header, error) {
	var hdr Header

	var fixed [10]byte
	if _, err := io.ReadFull(br, fixed[:]); err != nil {
		return hdr, noEOF(err)
	}
	if fixed[0] != magic1 || fixed[1] != magic2 {
		return hdr, ErrHeader
	}
	if fixed[2] != cmDeflate {
		return hdr, ErrHeader
	}
	flg := fixed[3]
	mtime := binary.LittleEndian.Uint32(fixed[4:8])
	if mtime > 0 {
		hdr.ModTime = time.Unix(int64(mtime), 0)
	}
	hdr.OS = fixed[9]

	hcrc := crc32.NewIEEE()
	hcrc.Write(fixed[:])

	if flg&flagExtra != 0 {
		var xlenBuf [2]byte
		if _, err := io.ReadFull(br, xlenBuf[:]); err != nil {
			return hdr, noEOF(err)
		}
		hcrc.Write(xlenBuf[:])
		xlen := binary.LittleEndian.Uint16(xlenBuf[:])
		extra := make([]byte, xlen)
		if _, err := io.ReadFull(br, extra); err != nil {
			return hdr, noEOF(err)
		}
		hcrc.Write(extra)
		hdr.Extra = extra
	}

	if flg&flagName != 0 {
		s, err := readCString(br, hcrc)
		if err != nil {
			return hdr, err
		}
		hdr.Name = s
	}

	if flg&flagComment != 0 {
		s, err := readCString(br, hcrc)
		if err != nil {
			return hdr, err
		}
		hdr.Comment = s
	}

	if flg&flagHCRC != 0 {
		var wantBuf [2]byte
		if _, err := io.ReadFull(br, wantBuf[:]); err != nil {
			return hdr, noEOF(err)
		}
		want := binary.LittleEndian.Uint16(wantBuf[:])
		if want != uint16(hcrc.Sum32()) {
			return hdr, ErrHeader
		}
	}

	return hdr, nil
}

// readCString reads a NUL-terminated, Latin-1 string (RFC 1952 §2.3.1's
// FNAME/FCOMMENT encoding), feeding every byte read (including the NUL)
// into crc for FHCRC validation.
func readCString(br *bufio.Reader, crc io.Writer) (string, error) {
	s, err := br.ReadString(0)
	if err != nil {
		return "", noEOF(err)
	}
	crc.Write([]byte(s))
	return s[:len(s)-1], nil
}

func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
