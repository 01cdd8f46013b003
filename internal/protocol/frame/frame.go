package frame

import (
	"bytes"
	"errors"
	"io"
	"unicode/utf8"
)

// Size is the fixed wire width of every frame in both directions.
const Size = 32

var (
	ErrInvalidUTF8 = errors.New("frame: invalid utf-8 payload")
	ErrShortFrame  = errors.New("frame: short frame")
)

// Frame is one fixed-width wire unit: text bytes, right-padded with zeros.
type Frame [Size]byte

// Encode truncates text to Size bytes and zero-pads the remainder.
// Truncation is byte-wise and may split a multi-byte rune.
func Encode(text string) Frame {
	var f Frame
	copy(f[:], text)
	return f
}

// Decode returns the text up to the first zero byte.
func Decode(f Frame) (string, error) {
	n := bytes.IndexByte(f[:], 0)
	if n < 0 {
		n = Size
	}
	if !utf8.Valid(f[:n]) {
		return "", ErrInvalidUTF8
	}
	return string(f[:n]), nil
}

func ReadFrame(r io.Reader) (Frame, error) {
	var f Frame
	if _, err := io.ReadFull(r, f[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortFrame
		}
		return Frame{}, err
	}
	return f, nil
}

func WriteFrame(w io.Writer, f Frame) error {
	n, err := w.Write(f[:])
	if err != nil {
		return err
	}
	if n != Size {
		return io.ErrShortWrite
	}
	return nil
}
