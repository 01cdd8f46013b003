package frame

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"hi",
		"hello, relay",
		"olá mundo",
		strings.Repeat("x", Size),
	}
	for _, in := range cases {
		out, err := Decode(Encode(in))
		if err != nil {
			t.Fatalf("decode %q: %v", in, err)
		}
		if out != in {
			t.Fatalf("round trip mismatch: got=%q want=%q", out, in)
		}
	}
}

func TestEncodeTruncatesToSize(t *testing.T) {
	in := strings.Repeat("A", 40)
	out, err := Decode(Encode(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != strings.Repeat("A", Size) {
		t.Fatalf("unexpected truncation: %q", out)
	}
}

func TestEncodePadsWithZeros(t *testing.T) {
	f := Encode("hi")
	if f[0] != 'h' || f[1] != 'i' {
		t.Fatalf("unexpected prefix: %v", f[:2])
	}
	for i := 2; i < Size; i++ {
		if f[i] != 0 {
			t.Fatalf("expected zero padding at %d, got %d", i, f[i])
		}
	}
	out, err := Decode(f)
	if err != nil || out != "hi" {
		t.Fatalf("expected hi, got %q err=%v", out, err)
	}
}

func TestDecodeStopsAtEmbeddedZero(t *testing.T) {
	out, err := Decode(Encode("ab\x00cd"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != "ab" {
		t.Fatalf("expected truncation at zero byte, got %q", out)
	}
}

func TestDecodeInvalidUTF8(t *testing.T) {
	var f Frame
	f[0] = 0xff
	f[1] = 0xfe
	if _, err := Decode(f); !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
}

func TestDecodeTruncatedMultibyteRune(t *testing.T) {
	// 31 ASCII bytes followed by a two-byte rune: only its lead byte fits.
	in := strings.Repeat("a", Size-1) + "é"
	if _, err := Decode(Encode(in)); !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8 for split rune, got %v", err)
	}
}

func TestReadWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, Encode("ping")); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if buf.Len() != Size {
		t.Fatalf("expected %d bytes on the wire, got %d", Size, buf.Len())
	}
	f, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out, _ := Decode(f); out != "ping" {
		t.Fatalf("unexpected payload: %q", out)
	}
}

func TestReadFrameShort(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte("abc")))
	if !errors.Is(err, ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
	_, err = ReadFrame(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

// chunkReader yields its chunks one per Read, returning a timeout in between.
type chunkReader struct {
	chunks [][]byte
	stall  bool
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if c.stall {
		c.stall = false
		return 0, timeoutErr{}
	}
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks = c.chunks[1:]
	c.stall = true
	return n, nil
}

func TestReaderKeepsPartialFrameAcrossTimeouts(t *testing.T) {
	f := Encode("split across reads")
	src := &chunkReader{chunks: [][]byte{f[:5], f[5:20], f[20:]}}
	fr := NewReader(src)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		got, err := fr.Next()
		if err != nil {
			var te interface{ Timeout() bool }
			if errors.As(err, &te) && te.Timeout() {
				continue
			}
			t.Fatalf("unexpected error: %v", err)
		}
		if got != f {
			t.Fatalf("frame mismatch: %v", got)
		}
		if fr.Buffered() != 0 {
			t.Fatalf("expected empty buffer after frame, got %d", fr.Buffered())
		}
		return
	}
	t.Fatalf("frame never completed")
}

func TestReaderShortFrameAtEOF(t *testing.T) {
	fr := NewReader(bytes.NewReader([]byte("abc")))
	if _, err := fr.Next(); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
}
