// Package beamdasm decodes compiled BEAM module files.
//
// The library reads the container format produced by the Erlang compiler,
// decodes the tables a module carries and turns the Code chunk into a flat
// list of instructions with resolved operands.
//
// # Architecture Overview
//
//	beamdasm/
//	├── beam/            Chunk index, term decoder, section and instruction decoders
//	├── runtime/         File loader with a path-keyed module cache
//	├── config/          beamdasm.toml configuration
//	├── export/          CBOR snapshots of decoded modules
//	├── errors/          Structured error types for debugging
//	└── cmd/beamdasm/    Command line front end
//
// # Quick Start
//
//	m, err := beam.DecodeFile("ebin/lists.beam")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range m.Exports {
//	    fmt.Printf("%s/%d\n", m.FunctionName(f), f.Arity)
//	}
//
// With caching across calls:
//
//	ld := runtime.New(runtime.Options{CacheSize: 32})
//	m, err := ld.Load(ctx, "ebin/lists.beam")
//
// # Error Handling
//
// Structural failures return *errors.Error:
//
//	var e *errors.Error
//	if stderrors.As(err, &e) {
//	    fmt.Println(e.Phase, e.Kind, e.Chunk, e.Offset)
//	}
//
// Recoverable anomalies, such as an unknown term tag, are collected in
// Module.Diagnostics unless strict decoding is requested.
package beamdasm
