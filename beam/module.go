package beam

import (
	"os"
	"strconv"
	"strings"

	"github.com/wippyai/beamdasm/errors"
)

// Module is a decoded BEAM file. All fields are populated by Decode and
// must not be modified afterwards; a Module is safe for concurrent reads.
//
// Index 0 of Atoms, LineRefs and LineFiles is reserved: Atoms[0] is "nil",
// LineRefs[0] means no line information and LineFiles[0] is empty.
type Module struct {
	CompileInfo  Term
	Attributes   Term
	Path         string
	Atoms        []string
	Imports      []Import
	Exports      []FunctionEntry
	Locals       []FunctionEntry
	Lambdas      []Lambda
	Strings      []byte
	Literals     []Term
	LineRefs     []LineRef
	LineFiles    []string
	Instructions []Instruction
	Diagnostics  []Diagnostic
	chunks       []Chunk
	Lines        LineHeader
	Code         CodeHeader
}

// MFA names an external function.
type MFA struct {
	Module   string
	Function string
	Arity    uint32
}

func (m MFA) String() string {
	return m.Module + ":" + m.Function + "/" + strconv.FormatUint(uint64(m.Arity), 10)
}

// Name returns the module name, which is always the first atom.
func (m *Module) Name() string {
	name, _ := m.Atom(1)
	return name
}

// Atom resolves a 1-based atom index. Index 0 resolves to the sentinel.
func (m *Module) Atom(i uint32) (string, bool) {
	if int64(i) >= int64(len(m.Atoms)) {
		return "", false
	}
	return m.Atoms[i], true
}

// Import returns the 0-based import entry i.
func (m *Module) Import(i uint32) (Import, bool) {
	if int64(i) >= int64(len(m.Imports)) {
		return Import{}, false
	}
	return m.Imports[i], true
}

// ResolveImport returns the module, function and arity of import i.
func (m *Module) ResolveImport(i uint32) (MFA, bool) {
	imp, ok := m.Import(i)
	if !ok {
		return MFA{}, false
	}
	mod, ok1 := m.Atom(imp.Module)
	fn, ok2 := m.Atom(imp.Function)
	if !ok1 || !ok2 {
		return MFA{}, false
	}
	return MFA{Module: mod, Function: fn, Arity: imp.Arity}, true
}

// FunctionName resolves the atom of an export or local entry.
func (m *Module) FunctionName(f FunctionEntry) string {
	name, ok := m.Atom(f.Function)
	if !ok {
		return "?" + strconv.FormatUint(uint64(f.Function), 10)
	}
	return name
}

// Literal returns the 0-based literal i.
func (m *Module) Literal(i uint32) (Term, bool) {
	if int64(i) >= int64(len(m.Literals)) {
		return nil, false
	}
	return m.Literals[i], true
}

// LineRef resolves the operand of a line instruction to a file name and
// line number. Index 0 and unknown indices report false.
func (m *Module) LineRef(i uint32) (file string, line uint32, ok bool) {
	if i == 0 || int64(i) >= int64(len(m.LineRefs)) {
		return "", 0, false
	}
	ref := m.LineRefs[i]
	if int64(ref.File) < int64(len(m.LineFiles)) {
		file = m.LineFiles[ref.File]
	}
	return file, ref.Line, true
}

// Chunks lists the chunks of the file in file order.
func (m *Module) Chunks() []Chunk {
	out := make([]Chunk, len(m.chunks))
	copy(out, m.chunks)
	return out
}

// HasChunk reports whether the file contained the named chunk.
func (m *Module) HasChunk(name string) bool {
	for _, c := range m.chunks {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// Decode decodes a BEAM file held in memory. The result holds no
// references into data.
func Decode(data []byte) (*Module, error) {
	return DecodeWithOptions(data, DecodeOptions{})
}

// DecodeFile reads and decodes the BEAM file at path.
func DecodeFile(path string) (*Module, error) {
	return DecodeFileWithOptions(path, DecodeOptions{})
}

// DecodeFileWithOptions is DecodeFile with explicit options.
func DecodeFileWithOptions(path string, opts DecodeOptions) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load(path, err)
	}
	m, err := DecodeWithOptions(data, opts)
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// DecodeWithOptions decodes data. Sections run in dependency order: atoms,
// function tables, strings, compile info, attributes, literals, lines and
// finally code. A missing chunk leaves its table empty.
func DecodeWithOptions(data []byte, opts DecodeOptions) (*Module, error) {
	idx, err := ParseChunks(data)
	if err != nil {
		return nil, err
	}
	d := newDecoder(opts)
	m := &Module{
		Atoms:  []string{atomSentinel},
		chunks: idx.Chunks(),
	}

	if c, ok := idx.Lookup(ChunkAtomUTF8); ok {
		if m.Atoms, err = d.decodeAtoms(c.reader(data), ChunkAtomUTF8, true); err != nil {
			return nil, err
		}
		if idx.Has(ChunkAtom) {
			d.note(errors.New(errors.PhaseSection, errors.KindInvalidData).
				Chunk(ChunkAtom).
				Detail("ignored, %s takes precedence", ChunkAtomUTF8).
				Build())
		}
	} else if c, ok := idx.Lookup(ChunkAtom); ok {
		if m.Atoms, err = d.decodeAtoms(c.reader(data), ChunkAtom, false); err != nil {
			return nil, err
		}
	}

	if c, ok := idx.Lookup(ChunkImports); ok {
		if m.Imports, err = d.decodeImports(c.reader(data)); err != nil {
			return nil, err
		}
	}
	if c, ok := idx.Lookup(ChunkExports); ok {
		if m.Exports, err = d.decodeFunctions(c.reader(data), ChunkExports); err != nil {
			return nil, err
		}
	}
	if c, ok := idx.Lookup(ChunkLocals); ok {
		if m.Locals, err = d.decodeFunctions(c.reader(data), ChunkLocals); err != nil {
			return nil, err
		}
	}
	if c, ok := idx.Lookup(ChunkLambdas); ok {
		if m.Lambdas, err = d.decodeLambdas(c.reader(data)); err != nil {
			return nil, err
		}
	}

	if c, ok := idx.Lookup(ChunkStrings); ok {
		m.Strings = append([]byte(nil), c.Payload(data)...)
	}

	if c, ok := idx.Lookup(ChunkCompileInfo); ok && c.Size > 0 {
		if m.CompileInfo, err = d.decodeExternal(c.reader(data), ChunkCompileInfo); err != nil {
			return nil, err
		}
	}
	if c, ok := idx.Lookup(ChunkAttributes); ok && c.Size > 0 {
		if m.Attributes, err = d.decodeExternal(c.reader(data), ChunkAttributes); err != nil {
			return nil, err
		}
	}

	if c, ok := idx.Lookup(ChunkLiterals); ok {
		if m.Literals, err = d.decodeLiterals(c.reader(data)); err != nil {
			return nil, err
		}
	}

	if c, ok := idx.Lookup(ChunkLines); ok {
		if m.Lines, m.LineRefs, m.LineFiles, err = d.decodeLines(c.reader(data)); err != nil {
			return nil, err
		}
	}

	for _, name := range []string{ChunkAbstract, ChunkDebugInfo, ChunkCompressedAttrs} {
		if c, ok := idx.Lookup(name); ok {
			d.log.Debug("chunk not decoded", zapChunk(c)...)
		}
	}

	if c, ok := idx.Lookup(ChunkCode); ok {
		if m.Code, m.Instructions, err = d.decodeCode(c.reader(data)); err != nil {
			return nil, err
		}
	}

	m.Diagnostics = d.diags
	return m, nil
}
