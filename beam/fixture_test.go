package beam_test

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"
)

func u16(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

func u32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// chunk encodes one chunk record including alignment padding.
func chunk(name string, payload []byte) []byte {
	out := cat([]byte(name), u32(uint32(len(payload))), payload)
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	return out
}

// container wraps encoded chunks in the FOR1/BEAM header.
func container(chunks ...[]byte) []byte {
	body := cat(append([][]byte{[]byte("BEAM")}, chunks...)...)
	return cat([]byte("FOR1"), u32(uint32(len(body))), body)
}

func atomPayload(atoms ...string) []byte {
	out := u32(uint32(len(atoms)))
	for _, a := range atoms {
		out = append(out, byte(len(a)))
		out = append(out, a...)
	}
	return out
}

func triples(rows ...[3]uint32) []byte {
	out := u32(uint32(len(rows)))
	for _, r := range rows {
		out = cat(out, u32(r[0]), u32(r[1]), u32(r[2]))
	}
	return out
}

// codePayload prepends a standard 16-byte Code header to an instruction stream.
func codePayload(labels, functions uint32, stream ...byte) []byte {
	return cat(u32(16), u32(0), u32(183), u32(labels), u32(functions), stream)
}

// small encodes a compact operand with an inline value below 16.
func small(tag, v byte) byte {
	return v<<4 | tag
}

const (
	tagU = 0
	tagI = 1
	tagA = 2
	tagX = 3
	tagY = 4
	tagF = 5
)

// literalTable builds a literal table body: count then size-prefixed
// external terms. Each term is given without its 131 marker.
func literalTable(terms ...[]byte) []byte {
	out := u32(uint32(len(terms)))
	for _, t := range terms {
		out = cat(out, u32(uint32(len(t)+1)), []byte{131}, t)
	}
	return out
}

func deflate(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

// compressedLiterals encodes a LitT payload.
func compressedLiterals(t *testing.T, terms ...[]byte) []byte {
	t.Helper()
	raw := literalTable(terms...)
	return cat(u32(uint32(len(raw))), deflate(t, raw))
}
