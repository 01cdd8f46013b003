package frame

import (
	"io"
)

// Reader assembles frames from a stream whose reads may time out midway.
// Bytes received before a timeout are kept and completed on the next call.
type Reader struct {
	r      io.Reader
	buf    Frame
	filled int
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next returns the next complete frame. On error the partial frame is
// retained, so callers may retry after timeout errors.
func (fr *Reader) Next() (Frame, error) {
	for fr.filled < Size {
		n, err := fr.r.Read(fr.buf[fr.filled:])
		fr.filled += n
		if fr.filled == Size {
			break
		}
		if err != nil {
			if err == io.EOF && fr.filled > 0 {
				return Frame{}, ErrShortFrame
			}
			return Frame{}, err
		}
	}
	f := fr.buf
	fr.buf = Frame{}
	fr.filled = 0
	return f, nil
}

// Buffered reports how many bytes of an incomplete frame are held.
func (fr *Reader) Buffered() int {
	return fr.filled
}
