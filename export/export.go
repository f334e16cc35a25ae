// Package export serializes decoded modules to CBOR snapshots for
// out-of-process consumers.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/beamdasm/beam"
	"github.com/wippyai/beamdasm/errors"
)

// Version is the snapshot schema version.
const Version = 1

// Extension is the file extension used by Write.
const Extension = ".cbor"

// Canonical mode keeps snapshots of the same module byte-identical.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("export: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Snapshot is the serialized form of a beam.Module. Atom references are
// resolved to names and terms are carried in their printed form.
type Snapshot struct {
	Version      int           `cbor:"1,keyasint"`
	Module       string        `cbor:"2,keyasint"`
	Path         string        `cbor:"3,keyasint,omitempty"`
	Chunks       []Chunk       `cbor:"4,keyasint"`
	Atoms        []string      `cbor:"5,keyasint"`
	Imports      []Function    `cbor:"6,keyasint,omitempty"`
	Exports      []Function    `cbor:"7,keyasint,omitempty"`
	Locals       []Function    `cbor:"8,keyasint,omitempty"`
	Lambdas      []Lambda      `cbor:"9,keyasint,omitempty"`
	Literals     []string      `cbor:"10,keyasint,omitempty"`
	LineFiles    []string      `cbor:"11,keyasint,omitempty"`
	LineRefs     []LineRef     `cbor:"12,keyasint,omitempty"`
	Instructions []Instruction `cbor:"13,keyasint,omitempty"`
	Attributes   string        `cbor:"14,keyasint,omitempty"`
	CompileInfo  string        `cbor:"15,keyasint,omitempty"`
	Diagnostics  []string      `cbor:"16,keyasint,omitempty"`
	Code         CodeHeader    `cbor:"17,keyasint"`
}

// Chunk is one entry of the container index.
type Chunk struct {
	Name   string `cbor:"1,keyasint"`
	Offset int    `cbor:"2,keyasint"`
	Size   int    `cbor:"3,keyasint"`
}

// Function is an import, export or local entry. Module is set for imports,
// Label for exports and locals.
type Function struct {
	Module string `cbor:"1,keyasint,omitempty"`
	Name   string `cbor:"2,keyasint"`
	Arity  uint32 `cbor:"3,keyasint"`
	Label  uint32 `cbor:"4,keyasint,omitempty"`
}

// Lambda is a FunT entry with its name resolved.
type Lambda struct {
	Name      string `cbor:"1,keyasint"`
	Arity     uint32 `cbor:"2,keyasint"`
	Label     uint32 `cbor:"3,keyasint"`
	Index     uint32 `cbor:"4,keyasint"`
	FreeCount uint32 `cbor:"5,keyasint"`
	OldUniq   uint32 `cbor:"6,keyasint"`
}

// LineRef is a (file index, line) pair.
type LineRef struct {
	File uint32 `cbor:"1,keyasint"`
	Line uint32 `cbor:"2,keyasint"`
}

// CodeHeader mirrors beam.CodeHeader.
type CodeHeader struct {
	InstructionSet uint32 `cbor:"1,keyasint"`
	HighestOpcode  uint32 `cbor:"2,keyasint"`
	LabelCount     uint32 `cbor:"3,keyasint"`
	FunctionCount  uint32 `cbor:"4,keyasint"`
}

// Instruction is a decoded instruction with its opcode name.
type Instruction struct {
	Offset int       `cbor:"1,keyasint"`
	Opcode uint8     `cbor:"2,keyasint"`
	Name   string    `cbor:"3,keyasint"`
	Label  *uint32   `cbor:"4,keyasint,omitempty"`
	Line   *uint32   `cbor:"5,keyasint,omitempty"`
	Args   []Operand `cbor:"6,keyasint,omitempty"`
}

// Operand mirrors beam.Operand. Big carries integers wider than 64 bits
// in decimal; Type is set for typed registers.
type Operand struct {
	Kind  string    `cbor:"1,keyasint"`
	Value int64     `cbor:"2,keyasint,omitempty"`
	Big   string    `cbor:"3,keyasint,omitempty"`
	Float float64   `cbor:"4,keyasint,omitempty"`
	List  []Operand `cbor:"5,keyasint,omitempty"`
	Type  *int64    `cbor:"6,keyasint,omitempty"`
}

// FromModule builds a snapshot of m.
func FromModule(m *beam.Module) *Snapshot {
	s := &Snapshot{
		Version:   Version,
		Module:    m.Name(),
		Path:      m.Path,
		Atoms:     m.Atoms,
		LineFiles: m.LineFiles,
		Code: CodeHeader{
			InstructionSet: m.Code.InstructionSet,
			HighestOpcode:  m.Code.HighestOpcode,
			LabelCount:     m.Code.LabelCount,
			FunctionCount:  m.Code.FunctionCount,
		},
	}
	if m.Attributes != nil {
		s.Attributes = m.Attributes.String()
	}
	if m.CompileInfo != nil {
		s.CompileInfo = m.CompileInfo.String()
	}

	for _, c := range m.Chunks() {
		s.Chunks = append(s.Chunks, Chunk{Name: c.Name, Offset: c.Offset, Size: c.Size})
	}
	for i := range m.Imports {
		mfa, _ := m.ResolveImport(uint32(i))
		s.Imports = append(s.Imports, Function{Module: mfa.Module, Name: mfa.Function, Arity: mfa.Arity})
	}
	s.Exports = functions(m, m.Exports)
	s.Locals = functions(m, m.Locals)
	for _, l := range m.Lambdas {
		name, _ := m.Atom(l.Function)
		s.Lambdas = append(s.Lambdas, Lambda{
			Name:      name,
			Arity:     l.Arity,
			Label:     l.Label,
			Index:     l.Index,
			FreeCount: l.FreeCount,
			OldUniq:   l.OldUniq,
		})
	}
	for _, lit := range m.Literals {
		s.Literals = append(s.Literals, lit.String())
	}
	for _, r := range m.LineRefs {
		s.LineRefs = append(s.LineRefs, LineRef{File: r.File, Line: r.Line})
	}
	for _, in := range m.Instructions {
		s.Instructions = append(s.Instructions, Instruction{
			Offset: in.Offset,
			Opcode: uint8(in.Opcode),
			Name:   in.Name(),
			Label:  in.Label,
			Line:   in.Line,
			Args:   operands(in.Args),
		})
	}
	for _, d := range m.Diagnostics {
		s.Diagnostics = append(s.Diagnostics, d.String())
	}
	return s
}

func functions(m *beam.Module, entries []beam.FunctionEntry) []Function {
	var out []Function
	for _, f := range entries {
		out = append(out, Function{Name: m.FunctionName(f), Arity: f.Arity, Label: f.Label})
	}
	return out
}

func operands(args []beam.Operand) []Operand {
	if len(args) == 0 {
		return nil
	}
	out := make([]Operand, len(args))
	for i, a := range args {
		o := Operand{Kind: a.Kind.String(), Value: a.Value, Float: a.Float, List: operands(a.List)}
		if a.Big != nil {
			o.Big = a.Big.String()
		}
		if a.Typed {
			t := a.TypeIndex
			o.Type = &t
		}
		out[i] = o
	}
	return out
}

// Encode serializes m in canonical CBOR.
func Encode(m *beam.Module) ([]byte, error) {
	data, err := encMode.Marshal(FromModule(m))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseExport, errors.KindInvalidData, err, "encode snapshot")
	}
	return data, nil
}

// Decode parses a snapshot produced by Encode.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.PhaseExport, errors.KindInvalidData, err, "decode snapshot")
	}
	if s.Version != Version {
		return nil, errors.Unsupported(errors.PhaseExport, fmt.Sprintf("snapshot version %d", s.Version))
	}
	return &s, nil
}

// Write encodes m into dir as <module>.cbor and returns the file path.
func Write(dir string, m *beam.Module) (string, error) {
	data, err := Encode(m)
	if err != nil {
		return "", err
	}
	name := m.Name()
	if name == "" {
		name = "module"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(errors.PhaseExport, errors.KindInvalidInput, err, "create "+dir)
	}
	path := filepath.Join(dir, filepath.Base(name)+Extension)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(errors.PhaseExport, errors.KindInvalidInput, err, "write "+path)
	}
	return path, nil
}
