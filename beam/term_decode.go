package beam

import (
	"bytes"
	"compress/zlib"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/beamdasm/beam/internal/binary"
	"github.com/wippyai/beamdasm/errors"
)

// DecodeTerm decodes the term whose tag byte has already been consumed.
// pos is the offset of the first payload byte; the returned offset points
// just past the term. An unsupported tag yields Unknown and an offset right
// after the tag, since the length of an unknown term cannot be known.
func DecodeTerm(tag byte, data []byte, pos int) (Term, int, error) {
	return DecodeTermWithOptions(tag, data, pos, DecodeOptions{})
}

// DecodeTermWithOptions is DecodeTerm with explicit options.
func DecodeTermWithOptions(tag byte, data []byte, pos int, opts DecodeOptions) (Term, int, error) {
	r := binary.NewReader(data, 0)
	if err := r.Seek(pos); err != nil {
		return nil, pos, fail(errors.PhaseTerm, "", err)
	}
	d := newDecoder(opts)
	t, err := d.decodeTerm(tag, r, "")
	if err != nil {
		return nil, pos, err
	}
	return t, r.Position(), nil
}

// DecodeExternal decodes a complete external-format binary: the version
// marker followed by either a term or a compressed term.
func DecodeExternal(data []byte) (Term, error) {
	d := newDecoder(DecodeOptions{})
	return d.decodeExternal(binary.NewReader(data, 0), "")
}

// decodeExternal reads a 131-prefixed term, inflating the compressed form
// (131, 80, size, zlib stream). Regions that do not start with the marker
// are read as a 4-byte uncompressed size followed by a zlib stream.
func (d *decoder) decodeExternal(r *binary.Reader, chunk string) (Term, error) {
	d.stalled = false
	marker, err := r.PeekByte()
	if err != nil {
		return nil, fail(errors.PhaseTerm, chunk, err)
	}
	if marker != etfVersion {
		inner, err := d.inflate(r, chunk)
		if err != nil {
			return nil, err
		}
		if b, err := inner.PeekByte(); err == nil && b == etfVersion {
			_ = inner.Skip(1)
		}
		return d.readTerm(inner, chunk)
	}
	_ = r.Skip(1)

	tag, err := r.PeekByte()
	if err != nil {
		return nil, fail(errors.PhaseTerm, chunk, err)
	}
	if tag == etfCompressed {
		_ = r.Skip(1)
		inner, err := d.inflate(r, chunk)
		if err != nil {
			return nil, err
		}
		return d.readTerm(inner, chunk)
	}
	return d.readTerm(r, chunk)
}

// inflate reads a 4-byte uncompressed size and inflates the rest of r.
// The result is a fresh region; its offsets restart at the compressed
// payload's file offset.
func (d *decoder) inflate(r *binary.Reader, chunk string) (*binary.Reader, error) {
	size, err := r.ReadU32()
	if err != nil {
		return nil, fail(errors.PhaseSection, chunk, err)
	}
	base := r.Offset()
	compressed, err := r.Slice(r.Len())
	if err != nil {
		return nil, fail(errors.PhaseSection, chunk, err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.CorruptCompressed(chunk, base, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, int64(size)+1))
	if err != nil {
		return nil, errors.CorruptCompressed(chunk, base, err)
	}
	if len(out) != int(size) {
		return nil, errors.New(errors.PhaseSection, errors.KindCorruptCompressed).
			Chunk(chunk).
			At(base).
			Detail("inflated %d bytes, header declares %d", len(out), size).
			Build()
	}
	return binary.NewReader(out, base), nil
}

func (d *decoder) readTerm(r *binary.Reader, chunk string) (Term, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, fail(errors.PhaseTerm, chunk, err)
	}
	return d.decodeTerm(tag, r, chunk)
}

func (d *decoder) decodeTerm(tag byte, r *binary.Reader, chunk string) (Term, error) {
	tagOffset := r.Offset() - 1
	wrap := func(err error) error {
		return fail(errors.PhaseTerm, chunk, err)
	}

	switch tag {
	case TagSmallInteger:
		b, err := r.ReadByte()
		if err != nil {
			return nil, wrap(err)
		}
		return Integer(b), nil

	case TagInteger:
		v, err := r.ReadI32()
		if err != nil {
			return nil, wrap(err)
		}
		return Integer(v), nil

	case TagNewFloat:
		bits, err := r.ReadU64()
		if err != nil {
			return nil, wrap(err)
		}
		return Float(math.Float64frombits(bits)), nil

	case TagFloat:
		raw, err := r.Slice(floatExtSize)
		if err != nil {
			return nil, wrap(err)
		}
		text := strings.TrimSpace(strings.TrimRight(string(raw), "\x00"))
		f, perr := strconv.ParseFloat(text, 64)
		if perr != nil {
			return nil, errors.New(errors.PhaseTerm, errors.KindInvalidData).
				Chunk(chunk).
				At(tagOffset).
				Detail("malformed FLOAT_EXT %q", text).
				Build()
		}
		return Float(f), nil

	case TagAtom:
		return d.readAtom(r, 2, false, wrap)
	case TagSmallAtom:
		return d.readAtom(r, 1, false, wrap)
	case TagAtomUTF8:
		return d.readAtom(r, 2, true, wrap)
	case TagSmallAtomUTF8:
		return d.readAtom(r, 1, true, wrap)

	case TagSmallTuple:
		n, err := r.ReadByte()
		if err != nil {
			return nil, wrap(err)
		}
		elems, err := d.readElements(r, chunk, int(n))
		if err != nil {
			return nil, err
		}
		return Tuple(elems), nil

	case TagLargeTuple:
		n, err := r.ReadCount(1)
		if err != nil {
			return nil, wrap(err)
		}
		elems, err := d.readElements(r, chunk, n)
		if err != nil {
			return nil, err
		}
		return Tuple(elems), nil

	case TagNil:
		return Nil{}, nil

	case TagString:
		n, err := r.ReadU16()
		if err != nil {
			return nil, wrap(err)
		}
		b, err := r.Slice(int(n))
		if err != nil {
			return nil, wrap(err)
		}
		return Text(b), nil

	case TagList:
		n, err := r.ReadCount(1)
		if err != nil {
			return nil, wrap(err)
		}
		elems, err := d.readElements(r, chunk, n)
		if err != nil {
			return nil, err
		}
		list := List{Elements: elems}
		if d.stalled {
			return list, nil
		}
		tail, err := d.readTerm(r, chunk)
		if err != nil {
			return nil, err
		}
		if _, ok := tail.(Nil); !ok {
			list.Tail = tail
		}
		return list, nil

	case TagBinary:
		n, err := r.ReadU32()
		if err != nil {
			return nil, wrap(err)
		}
		b, err := r.ReadBytes(int(n))
		if err != nil {
			return nil, wrap(err)
		}
		return Binary(b), nil

	case TagBitBinary:
		n, err := r.ReadU32()
		if err != nil {
			return nil, wrap(err)
		}
		bits, err := r.ReadByte()
		if err != nil {
			return nil, wrap(err)
		}
		b, err := r.ReadBytes(int(n))
		if err != nil {
			return nil, wrap(err)
		}
		return BitBinary{Data: b, Bits: bits}, nil

	case TagSmallBig:
		n, err := r.ReadByte()
		if err != nil {
			return nil, wrap(err)
		}
		return d.readBig(r, int(n), wrap)

	case TagLargeBig:
		n, err := r.ReadU32()
		if err != nil {
			return nil, wrap(err)
		}
		return d.readBig(r, int(n), wrap)

	case TagExport:
		var parts [3]Term
		for i := range parts {
			t, err := d.readTerm(r, chunk)
			if err != nil {
				return nil, err
			}
			parts[i] = t
			if d.stalled {
				break
			}
		}
		return ExportRef{Module: parts[0], Function: parts[1], Arity: parts[2]}, nil

	case TagMap:
		n, err := r.ReadCount(2)
		if err != nil {
			return nil, wrap(err)
		}
		m := make(Map, 0, n)
		for i := 0; i < n && !d.stalled; i++ {
			k, err := d.readTerm(r, chunk)
			if err != nil {
				return nil, err
			}
			if d.stalled {
				m = append(m, MapEntry{Key: k})
				break
			}
			v, err := d.readTerm(r, chunk)
			if err != nil {
				return nil, err
			}
			m = append(m, MapEntry{Key: k, Value: v})
		}
		return m, nil
	}

	d.stalled = true
	if err := d.tolerate(errors.UnknownTag(errors.PhaseTerm, chunk, tagOffset, tag)); err != nil {
		return nil, err
	}
	return Unknown{Tag: tag}, nil
}

func (d *decoder) readElements(r *binary.Reader, chunk string, n int) ([]Term, error) {
	elems := make([]Term, 0, n)
	for i := 0; i < n && !d.stalled; i++ {
		t, err := d.readTerm(r, chunk)
		if err != nil {
			return nil, err
		}
		elems = append(elems, t)
	}
	return elems, nil
}

func (d *decoder) readAtom(r *binary.Reader, lenWidth int, utf bool, wrap func(error) error) (Term, error) {
	var n int
	if lenWidth == 1 {
		b, err := r.ReadByte()
		if err != nil {
			return nil, wrap(err)
		}
		n = int(b)
	} else {
		v, err := r.ReadU16()
		if err != nil {
			return nil, wrap(err)
		}
		n = int(v)
	}
	b, err := r.Slice(n)
	if err != nil {
		return nil, wrap(err)
	}
	if utf {
		return Atom(b), nil
	}
	return Atom(latin1ToUTF8(b)), nil
}

// readBig reads sign and n little-endian digit bytes.
func (d *decoder) readBig(r *binary.Reader, n int, wrap func(error) error) (Term, error) {
	sign, err := r.ReadByte()
	if err != nil {
		return nil, wrap(err)
	}
	digits, err := r.ReadBytes(n)
	if err != nil {
		return nil, wrap(err)
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return BigInt{Magnitude: trimLeadingZeros(digits), Negative: sign != 0}, nil
}

func trimLeadingZeros(b []byte) []byte {
	for len(b) > 1 && b[0] == 0 {
		b = b[1:]
	}
	return b
}

func latin1ToUTF8(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
