package beam

import (
	"unicode/utf8"

	"github.com/wippyai/beamdasm/beam/internal/binary"
	"github.com/wippyai/beamdasm/errors"
)

// Import is an entry of the ImpT chunk. Module and Function are atom indices.
type Import struct {
	Module   uint32
	Function uint32
	Arity    uint32
}

// FunctionEntry is an entry of the ExpT or LocT chunk.
type FunctionEntry struct {
	Function uint32 // atom index
	Arity    uint32
	Label    uint32 // entry label
}

// Lambda is an entry of the FunT chunk.
type Lambda struct {
	Function  uint32 // atom index
	Arity     uint32
	Label     uint32 // entry code position
	Index     uint32
	FreeCount uint32
	OldUniq   uint32
}

// LineRef is a (filename index, line) pair of the Line chunk.
type LineRef struct {
	File uint32
	Line uint32
}

// LineHeader holds the scalar fields of the Line chunk.
type LineHeader struct {
	Version          uint32
	Flags            uint32
	InstructionCount uint32
}

// atomSentinel occupies index 0 of the atom table.
const atomSentinel = "nil"

func (d *decoder) decodeAtoms(r *binary.Reader, chunk string, utf bool) ([]string, error) {
	n, err := r.ReadCount(1)
	if err != nil {
		return nil, fail(errors.PhaseSection, chunk, err)
	}
	atoms := make([]string, 1, n+1)
	atoms[0] = atomSentinel
	for i := 0; i < n; i++ {
		at := r.Offset()
		size, err := r.ReadByte()
		if err != nil {
			return nil, fail(errors.PhaseSection, chunk, err)
		}
		raw, err := r.Slice(int(size))
		if err != nil {
			return nil, fail(errors.PhaseSection, chunk, err)
		}
		if !utf {
			atoms = append(atoms, latin1ToUTF8(raw))
			continue
		}
		if !utf8.Valid(raw) {
			if err := d.tolerate(errors.InvalidUTF8(errors.PhaseSection, chunk, at, raw)); err != nil {
				return nil, err
			}
		}
		atoms = append(atoms, string(raw))
	}
	return atoms, nil
}

func (d *decoder) decodeImports(r *binary.Reader) ([]Import, error) {
	n, err := r.ReadCount(importStride)
	if err != nil {
		return nil, fail(errors.PhaseSection, ChunkImports, err)
	}
	imports := make([]Import, n)
	for i := range imports {
		// ReadCount guaranteed the bytes.
		imports[i].Module, _ = r.ReadU32()
		imports[i].Function, _ = r.ReadU32()
		imports[i].Arity, _ = r.ReadU32()
	}
	return imports, nil
}

func (d *decoder) decodeFunctions(r *binary.Reader, chunk string) ([]FunctionEntry, error) {
	n, err := r.ReadCount(functionStride)
	if err != nil {
		return nil, fail(errors.PhaseSection, chunk, err)
	}
	funcs := make([]FunctionEntry, n)
	for i := range funcs {
		funcs[i].Function, _ = r.ReadU32()
		funcs[i].Arity, _ = r.ReadU32()
		funcs[i].Label, _ = r.ReadU32()
	}
	return funcs, nil
}

func (d *decoder) decodeLambdas(r *binary.Reader) ([]Lambda, error) {
	n, err := r.ReadCount(lambdaStride)
	if err != nil {
		return nil, fail(errors.PhaseSection, ChunkLambdas, err)
	}
	lambdas := make([]Lambda, n)
	for i := range lambdas {
		l := &lambdas[i]
		for _, f := range []*uint32{&l.Function, &l.Arity, &l.Label, &l.Index, &l.FreeCount, &l.OldUniq} {
			*f, _ = r.ReadU32()
		}
	}
	return lambdas, nil
}

// decodeLiterals reads the LitT chunk: a 4-byte uncompressed size, a zlib
// stream, and inside it a count followed by size-prefixed external terms.
// A zero size header means the table is stored uncompressed.
func (d *decoder) decodeLiterals(r *binary.Reader) ([]Term, error) {
	var table *binary.Reader
	size, err := r.ReadU32()
	if err != nil {
		return nil, fail(errors.PhaseSection, ChunkLiterals, err)
	}
	if size == 0 {
		table, err = r.Sub(r.Len())
		if err != nil {
			return nil, fail(errors.PhaseSection, ChunkLiterals, err)
		}
	} else {
		if err := r.Seek(r.Position() - 4); err != nil {
			return nil, fail(errors.PhaseSection, ChunkLiterals, err)
		}
		table, err = d.inflate(r, ChunkLiterals)
		if err != nil {
			return nil, err
		}
	}

	// Each entry needs at least its 4-byte size, the marker and a tag.
	n, err := table.ReadCount(6)
	if err != nil {
		return nil, fail(errors.PhaseSection, ChunkLiterals, err)
	}
	literals := make([]Term, 0, n)
	for i := 0; i < n; i++ {
		entrySize, err := table.ReadU32()
		if err != nil {
			return nil, fail(errors.PhaseSection, ChunkLiterals, err)
		}
		entry, err := table.Sub(int(entrySize))
		if err != nil {
			return nil, fail(errors.PhaseSection, ChunkLiterals, err)
		}
		marker, err := entry.ReadByte()
		if err != nil {
			return nil, fail(errors.PhaseSection, ChunkLiterals, err)
		}
		if marker != etfVersion {
			if err := d.tolerate(errors.Format(errors.PhaseSection, ChunkLiterals, entry.Base(),
				"literal without external term marker")); err != nil {
				return nil, err
			}
		}
		d.stalled = false
		t, err := d.readTerm(entry, ChunkLiterals)
		if err != nil {
			return nil, err
		}
		literals = append(literals, t)
	}
	return literals, nil
}

// decodeLines reads the Line chunk. Atom-tagged operands switch the
// current filename and are not counted as line references.
func (d *decoder) decodeLines(r *binary.Reader) (LineHeader, []LineRef, []string, error) {
	var h LineHeader
	var refCount, nameCount uint32
	for _, f := range []*uint32{&h.Version, &h.Flags, &h.InstructionCount, &refCount, &nameCount} {
		v, err := r.ReadU32()
		if err != nil {
			return h, nil, nil, fail(errors.PhaseSection, ChunkLines, err)
		}
		*f = v
	}
	if int64(refCount) > int64(r.Len()) {
		return h, nil, nil, errors.Truncated(errors.PhaseSection, ChunkLines, r.Offset(), int(refCount), r.Len())
	}

	refs := make([]LineRef, 1, refCount+1)
	var file uint32
	for remaining := refCount; remaining > 0; {
		at := r.Offset()
		o, err := d.readOperand(r, ChunkLines)
		if err != nil {
			return h, nil, nil, err
		}
		switch o.Kind {
		case OperandAtom:
			file = o.Uint()
			if file > nameCount {
				if terr := d.tolerate(errors.OutOfBounds(errors.PhaseSection, ChunkLines, at, int(file), int(nameCount)+1)); terr != nil {
					return h, nil, nil, terr
				}
			}
		case OperandInteger, OperandUnsigned:
			refs = append(refs, LineRef{File: file, Line: o.Uint()})
			remaining--
		default:
			err := errors.New(errors.PhaseSection, errors.KindInvalidData).
				Chunk(ChunkLines).
				At(at).
				Detail("unexpected %s operand in line table", o.Kind).
				Build()
			if terr := d.tolerate(err); terr != nil {
				return h, nil, nil, terr
			}
			remaining--
		}
	}

	if int64(nameCount)*2 > int64(r.Len()) {
		return h, nil, nil, errors.Truncated(errors.PhaseSection, ChunkLines, r.Offset(), int(nameCount)*2, r.Len())
	}
	names := make([]string, 1, nameCount+1)
	for i := uint32(0); i < nameCount; i++ {
		size, err := r.ReadU16()
		if err != nil {
			return h, nil, nil, fail(errors.PhaseSection, ChunkLines, err)
		}
		raw, err := r.Slice(int(size))
		if err != nil {
			return h, nil, nil, fail(errors.PhaseSection, ChunkLines, err)
		}
		names = append(names, string(raw))
	}
	return h, refs, names, nil
}
