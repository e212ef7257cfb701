package gzip

import (
	"bytes"
	ogzip "compress/gzip"
	"io"
	"testing"
	"time"
)

func encode(t *testing.T, hdr *ogzip.Header, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := ogzip.NewWriterLevel(&buf, ogzip.BestCompression)
	if err != nil {
		t.Fatal(err)
	}
	if hdr != nil {
		w.Header = *hdr
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRoundTripAgainstReferenceEncoder(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, " +
		"the quick brown fox jumps over the lazy dog, " +
		"the quick brown fox jumps over the lazy dog")
	member := encode(t, nil, data)

	zr, err := NewReader(bytes.NewReader(member))
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
	}
}

func TestHeaderFields(t *testing.T) {
	hdr := &ogzip.Header{
		Name:    "greeting.txt",
		Comment: "a short test file",
		ModTime: time.Unix(1_600_000_000, 0),
	}
	member := encode(t, hdr, []byte("hello"))

	zr, err := NewReader(bytes.NewReader(member))
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	if zr.Name != hdr.Name {
		t.Fatalf("name: got %q, want %q", zr.Name, hdr.Name)
	}
	if zr.Comment != hdr.Comment {
		t.Fatalf("comment: got %q, want %q", zr.Comment, hdr.Comment)
	}
	if !zr.ModTime.Equal(hdr.ModTime) {
		t.Fatalf("mtime: got %v, want %v", zr.ModTime, hdr.ModTime)
	}

	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestInvalidMagicIsHeaderError(t *testing.T) {
	// A complete 10-byte fixed header whose magic bytes are wrong.
	_, err := NewReader(bytes.NewReader(make([]byte, 10)))
	if err != ErrHeader {
		t.Fatalf("got %v, want ErrHeader", err)
	}
}

func TestMultistream(t *testing.T) {
	data1 := []byte("first member")
	data2 := []byte("second member, concatenated")
	member1 := encode(t, nil, data1)
	member2 := encode(t, nil, data2)

	var concatenated bytes.Buffer
	concatenated.Write(member1)
	concatenated.Write(member2)

	zr, err := NewReader(bytes.NewReader(concatenated.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	want := append(append([]byte{}, data1...), data2...)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMultistreamDisabledStopsAfterFirstMember(t *testing.T) {
	data1 := []byte("first member")
	data2 := []byte("second member, concatenated")
	member1 := encode(t, nil, data1)
	member2 := encode(t, nil, data2)

	var concatenated bytes.Buffer
	concatenated.Write(member1)
	concatenated.Write(member2)

	zr, err := NewReader(bytes.NewReader(concatenated.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	zr.Multistream(false)

	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data1) {
		t.Fatalf("got %q, want only the first member %q", got, data1)
	}
}

func TestChecksumMismatchIsDetected(t *testing.T) {
	member := encode(t, nil, []byte("tamper with this"))
	// The trailer is the last 8 bytes: flip the last byte, in the ISIZE field.
	tampered := append([]byte{}, member...)
	tampered[len(tampered)-1] ^= 0xff

	zr, err := NewReader(bytes.NewReader(tampered))
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	_, err = io.ReadAll(zr)
	if err != ErrChecksum {
		t.Fatalf("got %v, want ErrChecksum", err)
	}
}
