package extract

import (
	"io"

	"github.com/nce-project/nce/launcherr"
)

// Window restricts a parent byte slice to [offset, offset+length), the
// read/seek adaptor spec.md §4.7 calls for when feeding a payload
// subrange to an archive decoder that wants an io.ReaderAt/io.Reader
// pair (e.g. archive/zip.NewReader).
type Window struct {
	data []byte
	pos  int64
}

// NewWindow carves out [offset, offset+length) of data. data is the
// full memory-mapped-or-loaded binary; offset/length describe one
// file's payload span.
func NewWindow(data []byte, offset, length int64) (*Window, error) {
	if offset < 0 || length < 0 || offset+length > int64(len(data)) {
		return nil, launcherr.New(launcherr.InvalidLayout,
			"window [%d, %d) is out of bounds for a %d byte buffer", offset, offset+length, len(data))
	}
	return &Window{data: data[offset : offset+length]}, nil
}

func (w *Window) Read(p []byte) (int, error) {
	if w.pos >= int64(len(w.data)) {
		return 0, io.EOF
	}
	n := copy(p, w.data[w.pos:])
	w.pos += int64(n)
	return n, nil
}

func (w *Window) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(w.data)) {
		return 0, io.EOF
	}
	n := copy(p, w.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (w *Window) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = w.pos + offset
	case io.SeekEnd:
		newPos = int64(len(w.data)) + offset
	default:
		return 0, launcherr.New(launcherr.IOError, "unknown seek whence %d", whence)
	}
	if newPos < 0 {
		return 0, launcherr.New(launcherr.IOError, "negative seek position %d", newPos)
	}
	w.pos = newPos
	return newPos, nil
}

// Len reports the window's total byte length.
func (w *Window) Len() int64 { return int64(len(w.data)) }

// Bytes returns the window's underlying bytes without copying.
func (w *Window) Bytes() []byte { return w.data }
