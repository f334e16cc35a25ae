package binary

import (
	"bytes"
	"errors"
	"testing"
)

func TestReaderReadByte(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	r := NewReader(data, 100)

	for i, want := range data {
		if r.Position() != i {
			t.Errorf("position before read %d: got %d, want %d", i, r.Position(), i)
		}
		if r.Offset() != 100+i {
			t.Errorf("offset before read %d: got %d, want %d", i, r.Offset(), 100+i)
		}
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte %d: %v", i, err)
		}
		if b != want {
			t.Errorf("ReadByte %d: got 0x%02x, want 0x%02x", i, b, want)
		}
	}

	_, err := r.ReadByte()
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestReaderReadBytesCopies(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	r := NewReader(data, 0)

	got, err := r.ReadBytes(3)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("ReadBytes: got %v, want [1 2 3]", got)
	}
	got[0] = 0xff
	if data[0] != 0x01 {
		t.Error("ReadBytes must not alias the source buffer")
	}

	if _, err := r.ReadBytes(10); !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated reading past end, got %v", err)
	}
	if r.Position() != 3 {
		t.Errorf("failed read moved position to %d", r.Position())
	}
}

func TestReaderBigEndian(t *testing.T) {
	data := []byte{
		0x01, 0x02, // u16
		0x00, 0x00, 0x01, 0x00, // u32
		0xff, 0xff, 0xff, 0xfe, // i32 -2
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x2a, // u64
		0x01, 0x02, 0x03, // 3-byte uint
	}
	r := NewReader(data, 0)

	u16, err := r.ReadU16()
	if err != nil || u16 != 0x0102 {
		t.Errorf("ReadU16 = %#x, %v", u16, err)
	}
	u32, err := r.ReadU32()
	if err != nil || u32 != 256 {
		t.Errorf("ReadU32 = %d, %v", u32, err)
	}
	i32, err := r.ReadI32()
	if err != nil || i32 != -2 {
		t.Errorf("ReadI32 = %d, %v", i32, err)
	}
	u64, err := r.ReadU64()
	if err != nil || u64 != 42 {
		t.Errorf("ReadU64 = %d, %v", u64, err)
	}
	u24, err := r.ReadUint(3)
	if err != nil || u24 != 0x010203 {
		t.Errorf("ReadUint(3) = %#x, %v", u24, err)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestReaderReadUintWidth(t *testing.T) {
	r := NewReader(make([]byte, 16), 0)
	for _, n := range []int{0, 9} {
		if _, err := r.ReadUint(n); err == nil {
			t.Errorf("ReadUint(%d) should fail", n)
		}
	}
}

func TestReaderReadCount(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		stride  int
		want    int
		wantErr bool
	}{
		{"zero", []byte{0, 0, 0, 0}, 12, 0, false},
		{"fits", append([]byte{0, 0, 0, 1}, make([]byte, 12)...), 12, 1, false},
		{"overrun", append([]byte{0, 0, 0, 2}, make([]byte, 12)...), 12, 0, true},
		{"huge", []byte{0xff, 0xff, 0xff, 0xff}, 4, 0, true},
		{"no stride", []byte{0, 0, 0, 9}, 0, 9, false},
		{"short header", []byte{0, 0}, 4, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.data, 0)
			got, err := r.ReadCount(tt.stride)
			if tt.wantErr {
				if !errors.Is(err, ErrTruncated) {
					t.Fatalf("expected ErrTruncated, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadCount: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderSub(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5, 6}, 10)
	if err := r.Skip(2); err != nil {
		t.Fatal(err)
	}
	sub, err := r.Sub(3)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if sub.Base() != 12 || sub.Size() != 3 {
		t.Errorf("sub base=%d size=%d, want 12/3", sub.Base(), sub.Size())
	}
	b, _ := sub.ReadByte()
	if b != 3 {
		t.Errorf("sub first byte = %d, want 3", b)
	}
	if r.Position() != 5 {
		t.Errorf("parent position = %d, want 5", r.Position())
	}
	if _, err := sub.ReadBytes(3); err == nil {
		t.Error("sub reader must stop at its own end")
	}
}

func TestReaderSeekAndPeek(t *testing.T) {
	r := NewReader([]byte{7, 8, 9}, 0)
	if err := r.Seek(2); err != nil {
		t.Fatal(err)
	}
	b, err := r.PeekByte()
	if err != nil || b != 9 {
		t.Errorf("PeekByte = %d, %v", b, err)
	}
	if r.Position() != 2 {
		t.Error("PeekByte must not advance")
	}
	if err := r.Seek(4); err == nil {
		t.Error("Seek past end should fail")
	}
}

func TestParseErrorPosition(t *testing.T) {
	r := NewReader([]byte{1}, 40)
	_, err := r.ReadU32()
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Position != 40 || pe.Want != 4 || pe.Have != 1 {
		t.Errorf("ParseError = %+v", pe)
	}
}
