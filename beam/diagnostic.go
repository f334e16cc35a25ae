package beam

import (
	stderrors "errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/beamdasm/beam/internal/binary"
	"github.com/wippyai/beamdasm/errors"
)

// Diagnostic records a recoverable anomaly met while decoding in lenient mode.
type Diagnostic struct {
	Phase  errors.Phase
	Kind   errors.Kind
	Chunk  string
	Detail string
	Offset int
}

func (d Diagnostic) String() string {
	s := string(d.Kind)
	if d.Chunk != "" {
		s += " in " + d.Chunk
	}
	if d.Offset >= 0 {
		s += " at offset " + strconv.Itoa(d.Offset)
	}
	if d.Detail != "" {
		s += ": " + d.Detail
	}
	return s
}

// DecodeOptions controls decoding behavior.
type DecodeOptions struct {
	// Logger receives diagnostics. Defaults to the package Logger.
	Logger *zap.Logger
	// Strict turns unknown term tags and illegal opcodes into errors
	// instead of diagnostics.
	Strict bool
}

// decoder carries per-call state. Nothing in it outlives one Decode.
type decoder struct {
	log   *zap.Logger
	diags []Diagnostic
	opts  DecodeOptions

	// stalled is set once an unknown term tag makes the rest of the
	// current region unreadable; containers stop consuming elements.
	stalled bool
}

func newDecoder(opts DecodeOptions) *decoder {
	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	return &decoder{log: log, opts: opts}
}

// tolerate records err as a diagnostic in lenient mode and returns nil;
// in strict mode it returns err unchanged.
func (d *decoder) tolerate(err *errors.Error) error {
	if d.opts.Strict {
		return err
	}
	d.note(err)
	return nil
}

// note records err as a diagnostic regardless of mode.
func (d *decoder) note(err *errors.Error) {
	d.diags = append(d.diags, Diagnostic{
		Phase:  err.Phase,
		Kind:   err.Kind,
		Chunk:  err.Chunk,
		Detail: err.Detail,
		Offset: err.Offset,
	})
	d.log.Warn("beam decode diagnostic",
		zap.String("phase", string(err.Phase)),
		zap.String("kind", string(err.Kind)),
		zap.String("chunk", err.Chunk),
		zap.Int("offset", err.Offset),
		zap.String("detail", err.Detail),
	)
}

// fail converts a low-level read error into a structured format error.
func fail(phase errors.Phase, chunk string, err error) error {
	if err == nil {
		return nil
	}
	var be *errors.Error
	if stderrors.As(err, &be) {
		if be.Chunk == "" && chunk != "" {
			cp := *be
			cp.Chunk = chunk
			return &cp
		}
		return be
	}
	var pe *binary.ParseError
	if stderrors.As(err, &pe) {
		if stderrors.Is(pe.Err, binary.ErrTruncated) {
			return errors.Truncated(phase, chunk, pe.Position, pe.Want, pe.Have)
		}
		return errors.New(phase, errors.KindInvalidData).
			Chunk(chunk).
			At(pe.Position).
			Cause(pe.Err).
			Build()
	}
	return errors.New(phase, errors.KindInvalidData).Chunk(chunk).Cause(err).Build()
}

func zapChunk(c Chunk) []zap.Field {
	return []zap.Field{
		zap.String("chunk", c.Name),
		zap.Int("offset", c.Offset),
		zap.Int("size", c.Size),
	}
}
