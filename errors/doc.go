// Package errors provides structured error types for the beamdasm library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the chunk name and absolute file offset of the failure
// together with a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseSection, errors.KindTruncated).
//		Chunk("ImpT").
//		At(64).
//		Detail("import %d past end of chunk", 3).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotBeam(0, got, "FOR1")
//	err := errors.Truncated(errors.PhaseTerm, "LitT", off, 4, 1)
//
// Every decode failure is a *Error, which is what the rest of the library
// calls a format error. The Err* sentinels match on Kind alone:
//
//	if errors.Is(err, beamerrors.ErrNotBeam) { ... }
package errors
