package beam_test

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/wippyai/beamdasm/beam"
	"github.com/wippyai/beamdasm/errors"
)

func TestOpcodeTable(t *testing.T) {
	tests := []struct {
		op    beam.Opcode
		name  string
		arity int
	}{
		{1, "label", 1},
		{2, "func_info", 3},
		{3, "int_code_end", 0},
		{7, "call_ext", 2},
		{19, "return", 0},
		{64, "move", 2},
		{153, "line", 1},
		{beam.MaxOpcode, "executable_line", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op.String(); got != tt.name {
				t.Errorf("String: got %s, want %s", got, tt.name)
			}
			if got := tt.op.Arity(); got != tt.arity {
				t.Errorf("Arity: got %d, want %d", got, tt.arity)
			}
		})
	}

	if _, ok := beam.Opcode(0).Lookup(); ok {
		t.Error("opcode 0 should be unknown")
	}
	if got := beam.Opcode(250).String(); got != "unknown_opcode_250" {
		t.Errorf("unknown String: got %s", got)
	}
}

func TestDecodeInstructionsLabelScenario(t *testing.T) {
	instrs, diags, err := beam.DecodeInstructions([]byte{1, small(tagU, 1), 3})
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	if len(instrs) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(instrs))
	}
	in := instrs[0]
	if in.Name() != "int_code_end" {
		t.Errorf("opcode: got %s", in.Name())
	}
	if in.Label == nil || *in.Label != 1 {
		t.Errorf("label: got %v, want 1", in.Label)
	}
	if in.Line != nil {
		t.Errorf("line: got %v, want nil", *in.Line)
	}
}

func TestDecodeInstructionsPendingState(t *testing.T) {
	stream := []byte{
		1, small(tagU, 1),
		2, small(tagA, 1), small(tagA, 2), small(tagU, 0),
		1, small(tagU, 2),
		153, small(tagU, 1),
		64, small(tagX, 0), small(tagX, 1),
		153, small(tagU, 2),
		19,
		3,
	}
	instrs, _, err := beam.DecodeInstructions(stream)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}

	u := func(v uint32) *uint32 { return &v }
	want := []struct {
		name   string
		label  *uint32
		line   *uint32
		offset int
	}{
		{"func_info", u(1), nil, 2},
		{"move", u(2), u(1), 10},
		{"return", nil, u(2), 15},
		{"int_code_end", nil, nil, 16},
	}

	// 8 opcodes, 4 of them pseudo-instructions.
	if len(instrs) != len(want) {
		t.Fatalf("expected %d instructions, got %d", len(want), len(instrs))
	}
	for i, w := range want {
		in := instrs[i]
		if in.Name() != w.name {
			t.Errorf("%d: name got %s, want %s", i, in.Name(), w.name)
		}
		if !equalPtr(in.Label, w.label) {
			t.Errorf("%d: label got %v, want %v", i, deref(in.Label), deref(w.label))
		}
		if !equalPtr(in.Line, w.line) {
			t.Errorf("%d: line got %v, want %v", i, deref(in.Line), deref(w.line))
		}
		if in.Offset != w.offset {
			t.Errorf("%d: offset got %d, want %d", i, in.Offset, w.offset)
		}
	}
	if got := instrs[1].String(); got != "move x(0) x(1)" {
		t.Errorf("String: got %q", got)
	}
}

func equalPtr(a, b *uint32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *uint32) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestDecodeOperands(t *testing.T) {
	fbits := math.Float64bits(0.25)
	floatBytes := []byte{
		byte(fbits >> 56), byte(fbits >> 48), byte(fbits >> 40), byte(fbits >> 32),
		byte(fbits >> 24), byte(fbits >> 16), byte(fbits >> 8), byte(fbits),
	}

	tests := []struct {
		name    string
		operand []byte
		kind    beam.OperandKind
		value   int64
		str     string
	}{
		{"inline x", []byte{0x03}, beam.OperandX, 0, "x(0)"},
		{"inline y", []byte{small(tagY, 15)}, beam.OperandY, 15, "y(15)"},
		{"label", []byte{small(tagF, 4)}, beam.OperandLabel, 4, "f(4)"},
		{"one extra byte", []byte{0x28, 0x2C}, beam.OperandUnsigned, 300, "u(300)"},
		{"two bytes", []byte{0x18, 0x01, 0x00}, beam.OperandUnsigned, 256, "u(256)"},
		{"two bytes signed", []byte{0x19, 0xFF, 0xFE}, beam.OperandInteger, -2, "i(-2)"},
		{"two bytes positive", []byte{0x19, 0x00, 0x80}, beam.OperandInteger, 128, "i(128)"},
		{"three bytes", []byte{0x38, 0x01, 0x00, 0x00}, beam.OperandUnsigned, 65536, "u(65536)"},
		{"literal", []byte{0x47, small(tagU, 3)}, beam.OperandLiteral, 3, "literal(3)"},
		{"float register", []byte{0x27, small(tagU, 1)}, beam.OperandFloatRegister, 1, "fr(1)"},
		{"list", []byte{0x17, small(tagU, 2), small(tagA, 1), small(tagF, 4)}, beam.OperandList, 2, "list[a(1), f(4)]"},
		{"alloc list", []byte{0x37, small(tagU, 1), small(tagU, 0), small(tagU, 5)}, beam.OperandAllocList, 2, "alloc[u(0), u(5)]"},
		{"typed register", []byte{0x57, small(tagX, 2), small(tagU, 3)}, beam.OperandX, 2, "x(2)#3"},
		{"float", append([]byte{0x07}, floatBytes...), beam.OperandFloat, 0, "0.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// call_ext takes two operands; the second is a plain x register.
			stream := cat([]byte{7}, tt.operand, []byte{0x03})
			instrs, diags, err := beam.DecodeInstructions(stream)
			if err != nil {
				t.Fatalf("DecodeInstructions: %v", err)
			}
			if len(diags) != 0 {
				t.Errorf("unexpected diagnostics: %v", diags)
			}
			if len(instrs) != 1 || len(instrs[0].Args) != 2 {
				t.Fatalf("expected one instruction with 2 args, got %v", instrs)
			}
			o := instrs[0].Args[0]
			if o.Kind != tt.kind {
				t.Errorf("kind: got %s, want %s", o.Kind, tt.kind)
			}
			if o.Value != tt.value {
				t.Errorf("value: got %d, want %d", o.Value, tt.value)
			}
			if o.String() != tt.str {
				t.Errorf("String: got %s, want %s", o.String(), tt.str)
			}
			if instrs[0].Args[1].Kind != beam.OperandX {
				t.Errorf("operand stream desynchronized: trailing arg %v", instrs[0].Args[1])
			}
		})
	}
}

func TestDecodeOperandBigInteger(t *testing.T) {
	// Length class 7 with a nested length of 0 means 9 bytes follow.
	operand := cat([]byte{0xF9, small(tagU, 0)}, []byte{0x01, 0, 0, 0, 0, 0, 0, 0, 0})
	instrs, _, err := beam.DecodeInstructions(cat([]byte{7}, operand, []byte{0x03}))
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	o := instrs[0].Args[0]
	if o.Big == nil {
		t.Fatal("expected a big integer operand")
	}
	if got := o.String(); got != "18446744073709551616" {
		t.Errorf("got %s", got)
	}

	negative := cat([]byte{0xF9, small(tagU, 0)}, []byte{0xFF, 0, 0, 0, 0, 0, 0, 0, 0})
	instrs, _, err = beam.DecodeInstructions(cat([]byte{7}, negative, []byte{0x03}))
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if got := instrs[0].Args[0].Big.Sign(); got != -1 {
		t.Errorf("expected negative value, sign %d", got)
	}
}

func TestDecodeInstructionsIllegalOpcode(t *testing.T) {
	stream := []byte{200, 19}

	instrs, diags, err := beam.DecodeInstructions(stream)
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	if len(instrs) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(instrs))
	}
	if instrs[0].Name() != "unknown_opcode_200" || instrs[1].Name() != "return" {
		t.Errorf("got %s, %s", instrs[0].Name(), instrs[1].Name())
	}
	if len(diags) != 1 || diags[0].Kind != errors.KindIllegalOpcode {
		t.Errorf("expected one illegal_opcode diagnostic, got %v", diags)
	}

	_, _, err = beam.DecodeInstructionsWithOptions(stream, beam.DecodeOptions{Strict: true})
	if !stderrors.Is(err, errors.ErrIllegalOpcode) {
		t.Errorf("strict: expected ErrIllegalOpcode, got %v", err)
	}
}

func TestDecodeInstructionsUnknownOperandTag(t *testing.T) {
	stream := []byte{19, 64, 0x67, 0x03}

	instrs, diags, err := beam.DecodeInstructions(stream)
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	if len(instrs) != 2 || instrs[1].Args[0].Kind != beam.OperandUnknown {
		t.Errorf("expected unknown operand placeholder, got %v", instrs)
	}
	if len(diags) != 1 || diags[0].Kind != errors.KindUnknownTag {
		t.Errorf("expected one unknown_tag diagnostic, got %v", diags)
	}

	_, _, err = beam.DecodeInstructionsWithOptions(stream, beam.DecodeOptions{Strict: true})
	if !stderrors.Is(err, errors.ErrUnknownTag) {
		t.Errorf("strict: expected ErrUnknownTag, got %v", err)
	}
}

func TestDecodeInstructionsTruncated(t *testing.T) {
	tests := []struct {
		name   string
		stream []byte
	}{
		{"missing operand", []byte{64, 0x03}},
		{"extra byte missing", []byte{64, 0x28}},
		{"wide value missing", []byte{64, 0x38, 0x01}},
		{"list count too large", []byte{64, 0x17, small(tagU, 15)}},
		{"float payload", []byte{64, 0x07, 1, 2}},
		{"literal without index", []byte{64, 0x47}},
		{"alloc list count overflows", []byte{64, 0x37, 0xD8, 0x40, 0, 0, 0, 0, 0, 0, 0x01, 0x03, 0x03}},
		{"list count overflows", []byte{64, 0x17, 0xD8, 0x7F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x03}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := beam.DecodeInstructions(tt.stream)
			if !stderrors.Is(err, errors.ErrTruncated) {
				t.Errorf("expected ErrTruncated, got %v", err)
			}
		})
	}
}

func TestDecodeInstructionsEmpty(t *testing.T) {
	instrs, diags, err := beam.DecodeInstructions(nil)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(instrs) != 0 || len(diags) != 0 {
		t.Errorf("expected nothing, got %v %v", instrs, diags)
	}
}
