package beam

import (
	"strconv"
	"strings"

	"github.com/wippyai/beamdasm/beam/internal/binary"
	"github.com/wippyai/beamdasm/errors"
)

// codeHeaderMin is the size of the header fields after HeaderSize.
const codeHeaderMin = 16

// CodeHeader is the fixed header of the Code chunk.
type CodeHeader struct {
	HeaderSize     uint32 // bytes of header following this field
	InstructionSet uint32
	HighestOpcode  uint32
	LabelCount     uint32
	FunctionCount  uint32
}

// Instruction is one real instruction. Label and Line carry the operand of
// the label and line pseudo-instructions seen since the previous real
// instruction, or nil. Offset is the absolute file offset of the opcode.
type Instruction struct {
	Label  *uint32
	Line   *uint32
	Args   []Operand
	Offset int
	Opcode Opcode
}

// Name returns the mnemonic.
func (i Instruction) Name() string {
	return i.Opcode.String()
}

func (i Instruction) String() string {
	var b strings.Builder
	b.WriteString(i.Opcode.String())
	for _, a := range i.Args {
		b.WriteByte(' ')
		b.WriteString(a.String())
	}
	return b.String()
}

// DecodeInstructions decodes a raw instruction stream (the part of a Code
// chunk after its header).
func DecodeInstructions(code []byte) ([]Instruction, []Diagnostic, error) {
	return DecodeInstructionsWithOptions(code, DecodeOptions{})
}

// DecodeInstructionsWithOptions is DecodeInstructions with explicit options.
func DecodeInstructionsWithOptions(code []byte, opts DecodeOptions) ([]Instruction, []Diagnostic, error) {
	d := newDecoder(opts)
	instrs, err := d.decodeInstructions(binary.NewReader(code, 0), ChunkCode)
	if err != nil {
		return nil, d.diags, err
	}
	return instrs, d.diags, nil
}

func (d *decoder) decodeCode(r *binary.Reader) (CodeHeader, []Instruction, error) {
	var h CodeHeader
	fields := []*uint32{&h.HeaderSize, &h.InstructionSet, &h.HighestOpcode, &h.LabelCount, &h.FunctionCount}
	for _, f := range fields {
		v, err := r.ReadU32()
		if err != nil {
			return h, nil, fail(errors.PhaseCode, ChunkCode, err)
		}
		*f = v
	}
	if h.HeaderSize < codeHeaderMin {
		return h, nil, errors.Format(errors.PhaseCode, ChunkCode, r.Base(),
			"header size "+strconv.Itoa(int(h.HeaderSize))+" shorter than the fixed fields")
	}
	// HeaderSize may announce fields newer than the five read above.
	if err := r.Seek(4 + int(h.HeaderSize)); err != nil {
		return h, nil, fail(errors.PhaseCode, ChunkCode, err)
	}
	if h.HighestOpcode > uint32(MaxOpcode) {
		d.note(errors.New(errors.PhaseCode, errors.KindUnsupported).
			Chunk(ChunkCode).
			At(r.Base()).
			Detail("module declares opcodes up to %d, table knows %d", h.HighestOpcode, MaxOpcode).
			Build())
	}

	instrs, err := d.decodeInstructions(r, ChunkCode)
	return h, instrs, err
}

func (d *decoder) decodeInstructions(r *binary.Reader, chunk string) ([]Instruction, error) {
	instrs := make([]Instruction, 0, r.Len()/3)
	var label, line *uint32

	for r.Len() > 0 {
		at := r.Offset()
		b, _ := r.ReadByte()
		op := Opcode(b)

		info, known := op.Lookup()
		if !known {
			if err := d.tolerate(errors.IllegalOpcode(chunk, at, b, int(MaxOpcode))); err != nil {
				return nil, err
			}
		}

		args := make([]Operand, 0, info.Arity)
		for i := 0; i < info.Arity; i++ {
			o, err := d.readOperand(r, chunk)
			if err != nil {
				return nil, err
			}
			args = append(args, o)
		}

		switch op {
		case OpLabel:
			v := args[0].Uint()
			label = &v
			continue
		case OpLine:
			v := args[0].Uint()
			line = &v
			continue
		}

		instrs = append(instrs, Instruction{
			Opcode: op,
			Args:   args,
			Label:  label,
			Line:   line,
			Offset: at,
		})
		label, line = nil, nil
	}
	return instrs, nil
}
