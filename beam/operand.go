package beam

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/wippyai/beamdasm/beam/internal/binary"
	"github.com/wippyai/beamdasm/errors"
)

// OperandKind classifies a compact-encoded instruction operand.
type OperandKind uint8

// Operand kinds. The first seven follow the low three bits of the operand
// byte; the rest are extended tags (low bits 7) numbered the way OTP 20 and
// later compilers emit them.
const (
	OperandUnsigned OperandKind = iota
	OperandInteger
	OperandAtom
	OperandX
	OperandY
	OperandLabel
	OperandChar
	OperandFloat
	OperandList
	OperandFloatRegister
	OperandAllocList
	OperandLiteral
	OperandTypedRegister
	OperandUnknown
)

const extendedTag = 7

var operandKindNames = [...]string{
	OperandUnsigned:      "u",
	OperandInteger:       "i",
	OperandAtom:          "a",
	OperandX:             "x",
	OperandY:             "y",
	OperandLabel:         "f",
	OperandChar:          "h",
	OperandFloat:         "float",
	OperandList:          "list",
	OperandFloatRegister: "fr",
	OperandAllocList:     "alloc",
	OperandLiteral:       "literal",
	OperandTypedRegister: "typed",
	OperandUnknown:       "unknown",
}

func (k OperandKind) String() string {
	if int(k) < len(operandKindNames) {
		return operandKindNames[k]
	}
	return "kind" + strconv.Itoa(int(k))
}

// operandKind maps an operand byte to its kind. Extended tags use the
// OTP 20+ numbering unconditionally; the Code chunk's instruction-set
// field is not consulted.
func operandKind(b byte) OperandKind {
	tag := b & 0x07
	if tag < extendedTag {
		return OperandKind(tag)
	}
	ext := OperandKind(extendedTag) + OperandKind(b>>4)
	if ext >= OperandUnknown {
		return OperandUnknown
	}
	return ext
}

// Operand is one decoded instruction argument.
//
// Value holds the register number, atom index, label, literal index or
// integer. Integers that do not fit in 64 bits are in Big. List holds the
// elements of an extended list and the interleaved type/value pairs of an
// allocation list. A typed register keeps its register kind in Kind and
// sets Typed with the type-table index in TypeIndex.
type Operand struct {
	Big       *big.Int
	List      []Operand
	Float     float64
	Value     int64
	TypeIndex int64
	Kind      OperandKind
	Typed     bool
}

// Uint returns Value as an unsigned index.
func (o Operand) Uint() uint32 {
	return uint32(o.Value)
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandX, OperandY:
		s := o.Kind.String() + "(" + strconv.FormatInt(o.Value, 10) + ")"
		if o.Typed {
			s += "#" + strconv.FormatInt(o.TypeIndex, 10)
		}
		return s
	case OperandFloat:
		return strconv.FormatFloat(o.Float, 'g', -1, 64)
	case OperandList, OperandAllocList:
		parts := make([]string, len(o.List))
		for i, e := range o.List {
			parts[i] = e.String()
		}
		return o.Kind.String() + "[" + strings.Join(parts, ", ") + "]"
	case OperandInteger:
		if o.Big != nil {
			return o.Big.String()
		}
	}
	return o.Kind.String() + "(" + strconv.FormatInt(o.Value, 10) + ")"
}

// readOperand decodes one compact operand.
func (d *decoder) readOperand(r *binary.Reader, chunk string) (Operand, error) {
	start := r.Offset()
	b, err := r.ReadByte()
	if err != nil {
		return Operand{}, fail(errors.PhaseCode, chunk, err)
	}
	kind := operandKind(b)

	switch kind {
	case OperandLiteral, OperandFloatRegister:
		inner, err := d.readOperand(r, chunk)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: kind, Value: inner.Value}, nil

	case OperandList:
		n, err := d.readCount(r, chunk, 1)
		if err != nil {
			return Operand{}, err
		}
		return d.readOperandList(r, chunk, kind, n)

	case OperandAllocList:
		n, err := d.readCount(r, chunk, 2)
		if err != nil {
			return Operand{}, err
		}
		return d.readOperandList(r, chunk, kind, 2*n)

	case OperandFloat:
		bits, err := r.ReadU64()
		if err != nil {
			return Operand{}, fail(errors.PhaseCode, chunk, err)
		}
		return Operand{Kind: kind, Float: math.Float64frombits(bits)}, nil

	case OperandTypedRegister:
		reg, err := d.readOperand(r, chunk)
		if err != nil {
			return Operand{}, err
		}
		typ, err := d.readOperand(r, chunk)
		if err != nil {
			return Operand{}, err
		}
		reg.Typed = true
		reg.TypeIndex = typ.Value
		return reg, nil

	case OperandUnknown:
		if err := d.tolerate(errors.UnknownTag(errors.PhaseCode, chunk, start, b)); err != nil {
			return Operand{}, err
		}
		return Operand{Kind: kind, Value: int64(b)}, nil
	}

	v, wide, err := readCompactValue(r, b, kind == OperandInteger)
	if err != nil {
		return Operand{}, fail(errors.PhaseCode, chunk, err)
	}
	return Operand{Kind: kind, Value: v, Big: wide}, nil
}

func (d *decoder) readOperandList(r *binary.Reader, chunk string, kind OperandKind, n int) (Operand, error) {
	list := make([]Operand, 0, n)
	for i := 0; i < n; i++ {
		o, err := d.readOperand(r, chunk)
		if err != nil {
			return Operand{}, err
		}
		list = append(list, o)
	}
	return Operand{Kind: kind, Value: int64(len(list)), List: list}, nil
}

// readCount reads a count operand and checks that count items of at least
// minBytes each fit in the remaining region.
func (d *decoder) readCount(r *binary.Reader, chunk string, minBytes int) (int, error) {
	at := r.Offset()
	o, err := d.readOperand(r, chunk)
	if err != nil {
		return 0, err
	}
	if o.Big != nil || o.Value < 0 || o.Value > int64(r.Len()/minBytes) {
		need := int64(r.Len()) + 1
		if o.Big == nil && o.Value > 0 && o.Value <= math.MaxInt32/int64(minBytes) {
			need = o.Value * int64(minBytes)
		}
		return 0, errors.Truncated(errors.PhaseCode, chunk, at, int(need), r.Len())
	}
	return int(o.Value), nil
}

// readCompactValue decodes the value bits of operand byte b:
//
//	bit 3 clear        value in the high nibble
//	bit 4 clear        3 high bits plus one following byte
//	bits 5-7 < 7       (bits 5-7) + 2 following bytes, big-endian
//	bits 5-7 == 7      length operand + 9 following bytes
//
// Multi-byte integers are two's complement when signed is set.
func readCompactValue(r *binary.Reader, b byte, signed bool) (int64, *big.Int, error) {
	if b&0x08 == 0 {
		return int64(b >> 4), nil, nil
	}
	if b&0x10 == 0 {
		next, err := r.ReadByte()
		if err != nil {
			return 0, nil, err
		}
		return int64(b&0xE0)<<3 | int64(next), nil, nil
	}

	n := int(b>>5) + 2
	if n == 9 {
		lb, err := r.ReadByte()
		if err != nil {
			return 0, nil, err
		}
		extra, _, err := readCompactValue(r, lb, false)
		if err != nil {
			return 0, nil, err
		}
		if extra < 0 || extra > int64(r.Len()) {
			return 0, nil, r.WrapError("operand", binary.ErrTruncated)
		}
		n = int(extra) + 9
	}

	if n > 8 {
		raw, err := r.ReadBytes(n)
		if err != nil {
			return 0, nil, err
		}
		v := new(big.Int).SetBytes(raw)
		if signed && raw[0]&0x80 != 0 {
			v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(8*n)))
		}
		return 0, v, nil
	}

	u, err := r.ReadUint(n)
	if err != nil {
		return 0, nil, err
	}
	if signed && n < 8 && u&(1<<(8*n-1)) != 0 {
		return int64(u) - int64(1)<<(8*n), nil, nil
	}
	return int64(u), nil, nil
}
