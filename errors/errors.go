package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseChunk   Phase = "chunk"   // container header and chunk index
	PhaseTerm    Phase = "term"    // external term format
	PhaseSection Phase = "section" // table chunks (atoms, imports, literals, ...)
	PhaseCode    Phase = "code"    // code chunk and compact operands
	PhaseLoad    Phase = "load"    // file access and caching
	PhaseConfig  Phase = "config"  // configuration files
	PhaseExport  Phase = "export"  // snapshot encoding
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidMagic      Kind = "invalid_magic"
	KindTruncated         Kind = "truncated"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindUnknownTag        Kind = "unknown_tag"
	KindIllegalOpcode     Kind = "illegal_opcode"
	KindCorruptCompressed Kind = "corrupt_compressed"
	KindInvalidData       Kind = "invalid_data"
	KindInvalidUTF8       Kind = "invalid_utf8"
	KindInvalidInput      Kind = "invalid_input"
	KindNotFound          Kind = "not_found"
	KindUnsupported       Kind = "unsupported"
)

// NoOffset marks an error that is not tied to a byte position.
const NoOffset = -1

// Error is the structured error type used throughout the decoder.
//
// Offset is an absolute position in the module file, or NoOffset.
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Chunk  string
	Detail string
	Offset int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Chunk != "" {
		b.WriteString(" in ")
		b.WriteString(e.Chunk)
	}

	if e.Offset >= 0 {
		b.WriteString(" at offset ")
		b.WriteString(strconv.Itoa(e.Offset))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks that only care about the kind of failure.
var (
	ErrNotBeam           = &Error{Kind: KindInvalidMagic, Offset: NoOffset}
	ErrTruncated         = &Error{Kind: KindTruncated, Offset: NoOffset}
	ErrUnknownTag        = &Error{Kind: KindUnknownTag, Offset: NoOffset}
	ErrIllegalOpcode     = &Error{Kind: KindIllegalOpcode, Offset: NoOffset}
	ErrCorruptCompressed = &Error{Kind: KindCorruptCompressed, Offset: NoOffset}
	ErrOutOfBounds       = &Error{Kind: KindOutOfBounds, Offset: NoOffset}
	ErrNotFound          = &Error{Kind: KindNotFound, Offset: NoOffset}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: NoOffset,
		},
	}
}

// Chunk sets the chunk name
func (b *Builder) Chunk(name string) *Builder {
	b.err.Chunk = name
	return b
}

// At sets the absolute file offset
func (b *Builder) At(offset int) *Builder {
	b.err.Offset = offset
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotBeam creates the structural error for a bad outer or inner magic token.
func NotBeam(offset int, got []byte, want string) *Error {
	return &Error{
		Phase:  PhaseChunk,
		Kind:   KindInvalidMagic,
		Offset: offset,
		Detail: fmt.Sprintf("not a valid module binary: expected %q, got %q", want, got),
		Value:  string(got),
	}
}

// Truncated creates an error for a read that would pass the end of its region.
func Truncated(phase Phase, chunk string, offset, want, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTruncated,
		Chunk:  chunk,
		Offset: offset,
		Detail: fmt.Sprintf("need %d bytes, %d available", want, have),
	}
}

// Format creates a generic malformed-data error tied to a file offset.
func Format(phase Phase, chunk string, offset int, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Chunk:  chunk,
		Offset: offset,
		Detail: detail,
	}
}

// UnknownTag creates an error for an unrecognized term or operand tag.
func UnknownTag(phase Phase, chunk string, offset int, tag byte) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownTag,
		Chunk:  chunk,
		Offset: offset,
		Detail: fmt.Sprintf("unsupported tag %d", tag),
		Value:  tag,
	}
}

// IllegalOpcode creates an error for an opcode outside the known instruction set.
func IllegalOpcode(chunk string, offset int, op byte, maxKnown int) *Error {
	return &Error{
		Phase:  PhaseCode,
		Kind:   KindIllegalOpcode,
		Chunk:  chunk,
		Offset: offset,
		Detail: fmt.Sprintf("illegal opcode %d (highest known %d)", op, maxKnown),
		Value:  op,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, chunk string, offset int, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Chunk:  chunk,
		Offset: offset,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// CorruptCompressed wraps a failure inflating a compressed chunk.
func CorruptCompressed(chunk string, offset int, cause error) *Error {
	return &Error{
		Phase:  PhaseSection,
		Kind:   KindCorruptCompressed,
		Chunk:  chunk,
		Offset: offset,
		Detail: "inflate payload",
		Cause:  cause,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, chunk string, offset int, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Chunk:  chunk,
		Offset: offset,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Offset: NoOffset,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Offset: NoOffset,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Offset: NoOffset,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Offset: NoOffset,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Offset: NoOffset,
		Detail: fmt.Sprintf("load %s", path),
		Cause:  cause,
	}
}

// Config creates a configuration error
func Config(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidData,
		Offset: NoOffset,
		Detail: fmt.Sprintf("parse %s", path),
		Cause:  cause,
	}
}
