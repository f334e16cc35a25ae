package beam

import (
	"strings"

	"github.com/wippyai/beamdasm/beam/internal/binary"
	"github.com/wippyai/beamdasm/errors"
)

// Chunk locates one named region of the container. Offset is the absolute
// position of the payload; Size excludes alignment padding.
type Chunk struct {
	Name   string
	Offset int
	Size   int
}

// ChunkIndex maps chunk names to their location. Built once per file
// without interpreting payloads.
type ChunkIndex struct {
	byName map[string]int
	chunks []Chunk
	// Length is the container length declared after the outer magic.
	Length uint32
}

// ParseChunks validates the container header and indexes every chunk.
func ParseChunks(data []byte) (*ChunkIndex, error) {
	r := binary.NewReader(data, 0)

	form, err := r.Slice(4)
	if err != nil {
		return nil, fail(errors.PhaseChunk, "", err)
	}
	if !strings.EqualFold(string(form), MagicForm) {
		return nil, errors.NotBeam(0, form, MagicForm)
	}
	length, err := r.ReadU32()
	if err != nil {
		return nil, fail(errors.PhaseChunk, "", err)
	}
	if int64(length) > int64(r.Len()) {
		return nil, errors.New(errors.PhaseChunk, errors.KindTruncated).
			At(4).
			Detail("container declares %d bytes, file holds %d", length, r.Len()).
			Build()
	}
	inner, err := r.Slice(4)
	if err != nil {
		return nil, fail(errors.PhaseChunk, "", err)
	}
	if !strings.EqualFold(string(inner), MagicBeam) {
		return nil, errors.NotBeam(8, inner, MagicBeam)
	}

	end := 8 + int(length)
	idx := &ChunkIndex{
		Length: length,
		byName: make(map[string]int),
	}
	for r.Position() < end {
		at := r.Offset()
		if end-r.Position() < 8 {
			return nil, errors.Truncated(errors.PhaseChunk, "", at, 8, end-r.Position())
		}
		name, _ := r.Slice(4)
		size, _ := r.ReadU32()
		if int64(size) > int64(end-r.Position()) {
			return nil, errors.New(errors.PhaseChunk, errors.KindTruncated).
				Chunk(string(name)).
				At(at).
				Detail("chunk of %d bytes overruns container end %d", size, end).
				Build()
		}
		c := Chunk{Name: string(name), Offset: r.Offset(), Size: int(size)}
		idx.byName[strings.ToLower(c.Name)] = len(idx.chunks)
		idx.chunks = append(idx.chunks, c)

		next := r.Position() + align4(int(size))
		if next > end {
			next = end
		}
		_ = r.Seek(next)
	}
	return idx, nil
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// Lookup finds a chunk by case-insensitive name. When a name repeats,
// the last occurrence wins.
func (ci *ChunkIndex) Lookup(name string) (Chunk, bool) {
	i, ok := ci.byName[strings.ToLower(name)]
	if !ok {
		return Chunk{}, false
	}
	return ci.chunks[i], true
}

// Has reports whether a chunk is present.
func (ci *ChunkIndex) Has(name string) bool {
	_, ok := ci.byName[strings.ToLower(name)]
	return ok
}

// Chunks returns all chunks in file order.
func (ci *ChunkIndex) Chunks() []Chunk {
	out := make([]Chunk, len(ci.chunks))
	copy(out, ci.chunks)
	return out
}

// Len returns the number of chunks.
func (ci *ChunkIndex) Len() int {
	return len(ci.chunks)
}

// Payload returns the chunk bytes within data, without padding.
func (c Chunk) Payload(data []byte) []byte {
	return data[c.Offset : c.Offset+c.Size]
}

func (c Chunk) reader(data []byte) *binary.Reader {
	return binary.NewReader(c.Payload(data), c.Offset)
}
