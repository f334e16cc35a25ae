package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned when a read would pass the end of the region.
var ErrTruncated = errors.New("unexpected end of data")

// Reader is a bounds-checked big-endian cursor over an in-memory region.
// Positions are relative to the region; Offset adds the region's base so
// errors can name an absolute file position.
type Reader struct {
	data []byte
	pos  int
	base int
}

// NewReader creates a Reader over data whose first byte sits at file offset base.
func NewReader(data []byte, base int) *Reader {
	return &Reader{data: data, base: base}
}

// Position returns the current byte position within the region.
func (r *Reader) Position() int {
	return r.pos
}

// Offset returns the current absolute file offset.
func (r *Reader) Offset() int {
	return r.base + r.pos
}

// Base returns the absolute file offset of the region start.
func (r *Reader) Base() int {
	return r.base
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.data) - r.pos
}

// Size returns the total region size.
func (r *Reader) Size() int {
	return len(r.data)
}

// Seek moves to an absolute position within the region.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return r.truncated(pos-r.pos, r.Len())
	}
	r.pos = pos
	return nil
}

// Skip advances n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// ReadByte reads a single byte and advances the position.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// PeekByte returns the next byte without consuming it.
func (r *Reader) PeekByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	return r.data[r.pos], nil
}

// ReadBytes reads exactly n bytes into a fresh slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	view, err := r.Slice(n)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	copy(buf, view)
	return buf, nil
}

// Slice returns the next n bytes without copying and advances past them.
func (r *Reader) Slice(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	view := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return view, nil
}

// Sub returns a Reader over the next n bytes and advances past them.
func (r *Reader) Sub(n int) (*Reader, error) {
	base := r.Offset()
	view, err := r.Slice(n)
	if err != nil {
		return nil, err
	}
	return NewReader(view, base), nil
}

// ReadU16 reads a big-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadU32 reads a big-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadI32 reads a big-endian two's complement int32.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadU64 reads a big-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadUint reads an n-byte big-endian unsigned integer, 1 <= n <= 8.
func (r *Reader) ReadUint(n int) (uint64, error) {
	if n < 1 || n > 8 {
		return 0, r.wrapError(fmt.Errorf("integer width %d out of range", n))
	}
	view, err := r.Slice(n)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range view {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// ReadCount reads a 4-byte big-endian record count and checks that count
// records of stride bytes fit in the remaining region.
func (r *Reader) ReadCount(stride int) (int, error) {
	n, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	if stride > 0 && uint64(n)*uint64(stride) > uint64(r.Len()) {
		return 0, r.truncated(int(uint64(n)*uint64(stride)), r.Len())
	}
	return int(n), nil
}

// ReadRemaining reads all remaining bytes into a fresh slice.
func (r *Reader) ReadRemaining() ([]byte, error) {
	return r.ReadBytes(r.Len())
}

func (r *Reader) need(n int) error {
	if n < 0 || n > len(r.data)-r.pos {
		return r.truncated(n, r.Len())
	}
	return nil
}

func (r *Reader) truncated(want, have int) error {
	return &ParseError{
		Err:      ErrTruncated,
		Position: r.Offset(),
		Want:     want,
		Have:     have,
	}
}

func (r *Reader) wrapError(err error) error {
	return &ParseError{Err: err, Position: r.Offset()}
}

// ParseError represents a low-level read failure with an absolute position.
type ParseError struct {
	Err      error
	Section  string
	Position int
	Want     int
	Have     int
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("beam: %s at position %d: %v", e.Section, e.Position, e.Err)
	}
	return fmt.Sprintf("beam: at position %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WrapError creates a ParseError with the current position.
func (r *Reader) WrapError(section string, err error) error {
	return &ParseError{
		Position: r.Offset(),
		Section:  section,
		Err:      err,
	}
}
