package beam

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Term is a decoded external-format term. The set of implementations is
// closed; switch on the concrete type.
type Term interface {
	String() string
	isTerm()
}

// Integer holds SMALL_INTEGER_EXT and INTEGER_EXT values.
type Integer int64

// BigInt holds SMALL_BIG_EXT and LARGE_BIG_EXT values as a sign and a
// big-endian magnitude.
type BigInt struct {
	Magnitude []byte
	Negative  bool
}

// Float holds NEW_FLOAT_EXT and FLOAT_EXT values.
type Float float64

// Atom is an atom name.
type Atom string

// Tuple is an ordered sequence of terms.
type Tuple []Term

// List is a list term. Tail is nil for a proper list.
type List struct {
	Tail     Term
	Elements []Term
}

// MapEntry is one key/value pair of a Map.
type MapEntry struct {
	Key   Term
	Value Term
}

// Map keeps entries in encoding order.
type Map []MapEntry

// Binary is a byte-aligned binary.
type Binary []byte

// BitBinary is a bitstring whose last byte holds Bits significant bits.
type BitBinary struct {
	Data []byte
	Bits byte
}

// Text is the payload of a STRING_EXT, a list of small integers stored as bytes.
type Text string

// ExportRef is a fun M:F/A.
type ExportRef struct {
	Module   Term
	Function Term
	Arity    Term
}

// Nil is the empty list.
type Nil struct{}

// Unknown stands in for a term whose tag is not supported.
type Unknown struct {
	Tag byte
}

func (Integer) isTerm()   {}
func (BigInt) isTerm()    {}
func (Float) isTerm()     {}
func (Atom) isTerm()      {}
func (Tuple) isTerm()     {}
func (List) isTerm()      {}
func (Map) isTerm()       {}
func (Binary) isTerm()    {}
func (BitBinary) isTerm() {}
func (Text) isTerm()      {}
func (ExportRef) isTerm() {}
func (Nil) isTerm()       {}
func (Unknown) isTerm()   {}

func (i Integer) String() string {
	return strconv.FormatInt(int64(i), 10)
}

// Int returns the value as a *big.Int.
func (b BigInt) Int() *big.Int {
	v := new(big.Int).SetBytes(b.Magnitude)
	if b.Negative {
		v.Neg(v)
	}
	return v
}

// String renders the value as sign-prefixed hexadecimal.
func (b BigInt) String() string {
	var sb strings.Builder
	if b.Negative {
		sb.WriteByte('-')
	}
	sb.WriteString("0x")
	if len(b.Magnitude) == 0 {
		sb.WriteString("00")
		return sb.String()
	}
	sb.WriteString(strings.ToUpper(hex.EncodeToString(b.Magnitude)))
	return sb.String()
}

func (f Float) String() string {
	return strconv.FormatFloat(float64(f), 'g', -1, 64)
}

func (a Atom) String() string {
	return string(a)
}

func (t Tuple) String() string {
	return "{" + joinTerms(t) + "}"
}

func (l List) String() string {
	s := "[" + joinTerms(l.Elements)
	if l.Tail != nil {
		s += "|" + l.Tail.String()
	}
	return s + "]"
}

// Proper reports whether the list ends in the empty list.
func (l List) Proper() bool {
	return l.Tail == nil
}

func (m Map) String() string {
	var sb strings.Builder
	sb.WriteString("#{")
	for i, e := range m {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(termString(e.Key))
		sb.WriteString(" => ")
		sb.WriteString(termString(e.Value))
	}
	sb.WriteByte('}')
	return sb.String()
}

// Get returns the value for the first entry whose key renders equal to key.
func (m Map) Get(key Term) (Term, bool) {
	want := key.String()
	for _, e := range m {
		if e.Key.String() == want {
			return e.Value, true
		}
	}
	return nil, false
}

func (b Binary) String() string {
	if utf8.Valid(b) && printable(string(b)) {
		return "<<" + strconv.Quote(string(b)) + ">>"
	}
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = strconv.Itoa(int(c))
	}
	return "<<" + strings.Join(parts, ",") + ">>"
}

func (b BitBinary) String() string {
	parts := make([]string, len(b.Data))
	for i, c := range b.Data {
		parts[i] = strconv.Itoa(int(c))
		if i == len(b.Data)-1 && b.Bits != 8 {
			parts[i] += ":" + strconv.Itoa(int(b.Bits))
		}
	}
	return "<<" + strings.Join(parts, ",") + ">>"
}

func (t Text) String() string {
	return strconv.Quote(string(t))
}

func (e ExportRef) String() string {
	return "fun " + termString(e.Module) + ":" + termString(e.Function) + "/" + termString(e.Arity)
}

func (Nil) String() string {
	return "[]"
}

func (u Unknown) String() string {
	return "?tag" + strconv.Itoa(int(u.Tag))
}

func joinTerms(terms []Term) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = termString(t)
	}
	return strings.Join(parts, ", ")
}

func termString(t Term) string {
	if t == nil {
		return "?"
	}
	return t.String()
}

func printable(s string) bool {
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' {
			return false
		}
	}
	return true
}
