// Package beam decodes compiled BEAM module files.
//
// A BEAM file is an IFF-style container: the magic "FOR1", a big-endian
// length, the magic "BEAM" and a sequence of 4-byte aligned chunks. This
// package indexes the chunks, decodes the tables an ordinary module carries
// and walks the Code chunk into a flat instruction list.
//
// # Decoding
//
//	m, err := beam.DecodeFile("lists.beam")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(m.Name(), len(m.Exports), len(m.Instructions))
//
// Decoding is a single synchronous pass over an in-memory buffer. The
// returned Module shares nothing with the input or with other decodes, so
// several files may be decoded in parallel without coordination.
//
// # Chunks
//
//	AtU8 / Atom   atom table (UTF-8 preferred over Latin-1)
//	ImpT          imports
//	ExpT / LocT   exported and local functions
//	FunT          lambdas
//	StrT          string table, kept raw
//	CInf / Attr   compile info and attributes, external term format
//	LitT          literal table, zlib compressed
//	Line          line references and file names
//	Code          instruction stream
//
// Other chunks are indexed and listed by Module.Chunks but not decoded.
//
// # Leniency
//
// By default an unknown term tag, an unknown operand tag or an opcode
// outside the table does not abort decoding. The anomaly is recorded in
// Module.Diagnostics, logged at warn level, and a placeholder is produced.
// Set DecodeOptions.Strict to turn these into errors instead.
//
// Structural problems are always fatal: a bad magic token, or any count or
// length that would read past its region. Such failures are returned as
// *errors.Error values matching errors.ErrNotBeam or errors.ErrTruncated.
//
// # Instructions
//
// The pseudo-instructions label and line never appear in
// Module.Instructions. Their operand is attached to the next real
// instruction as Instruction.Label and Instruction.Line.
package beam
