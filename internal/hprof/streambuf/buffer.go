// Package streambuf implements a bounded-memory, pull-based byte buffer
// for decoding HPROF streams without holding the whole dump in memory.
//
// It plays the role that mabhi256/jdiag's parser.BinaryReader plays over a
// whole-file io.Reader, but is driven by a caller-supplied ChunkSource
// instead of owning a file handle, and caps how much it keeps resident at
// once the way packetd's internal/zerocopy.Reader caps how much a single
// protocol decode holds onto.
package streambuf

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"

	pkgerrors "github.com/pkg/errors"
)

// minRefill is how many bytes of further chunks Ensure pulls, before
// re-checking, after the source returns an empty chunk without an error.
// It is not a minimum window size: non-empty chunks are appended one at
// a time until the request is satisfied.
const minRefill = 20 * 1024 * 1024 // 20 MiB

// ErrBufferUnderflow is returned when the stream ends before enough bytes
// were available to satisfy a read, and the shortfall is not a clean
// end-of-stream (some bytes were available, just not enough).
var ErrBufferUnderflow = errors.New("streambuf: buffer underflow")

// ErrEndOfStream is returned by Ensure/Get/Skip when the ChunkSource is
// exhausted and no unread bytes remain. The buffer knows nothing of
// records; the root package treats it as the normal, successful end of a
// decode only when it surfaces at a record boundary. It is io.EOF itself,
// so callers may test with errors.Is(err, io.EOF) as well.
var ErrEndOfStream = io.EOF

// ChunkSource supplies the raw bytes of an HPROF stream in caller-chosen
// increments. Next returns io.EOF (wrapped or bare) once no further bytes
// remain; any other error aborts the decode.
type ChunkSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// Buffer accumulates chunks from a ChunkSource and serves fixed- and
// variable-width reads against the accumulated window, discarding bytes
// behind the read cursor whenever a new chunk is appended.
type Buffer struct {
	src ChunkSource
	buf []byte
	pos int

	totalRead int64
	exhausted bool
}

// New wraps src in a Buffer ready for reading.
func New(src ChunkSource) *Buffer {
	return &Buffer{src: src}
}

// BytesRead reports the total number of bytes consumed from the buffer so
// far (via Get/GetCopy/Skip/Take or any typed reader), across all chunks.
func (b *Buffer) BytesRead() int64 {
	return b.totalRead
}

// compact drops already-consumed bytes so buf doesn't grow without bound.
func (b *Buffer) compact() {
	if b.pos == 0 {
		return
	}
	b.buf = append(b.buf[:0], b.buf[b.pos:]...)
	b.pos = 0
}

// Ensure guarantees at least n bytes are available starting at the read
// cursor, pulling chunks from the source one at a time and appending them
// to the window until enough bytes are available. The window grows only
// as far as the appended chunks require; no minimum window size is
// allocated.
//
// Ensure returns ErrEndOfStream only when zero bytes are available and
// the source is exhausted (a clean boundary); if some but not all of the
// requested n bytes were available before exhaustion, it returns
// ErrBufferUnderflow instead, since the caller was promised a complete
// fixed-width or length-prefixed field.
func (b *Buffer) Ensure(ctx context.Context, n int) error {
	for b.available() < n {
		if b.exhausted {
			if b.available() == 0 {
				return ErrEndOfStream
			}
			return pkgerrors.Wrapf(ErrBufferUnderflow, "need %d bytes, have %d at end of stream", n, b.available())
		}
		chunk, err := b.src.Next(ctx)
		if len(chunk) > 0 {
			b.compact()
			b.buf = append(b.buf, chunk...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				b.exhausted = true
				continue
			}
			return pkgerrors.Wrap(err, "streambuf: reading next chunk")
		}
		if len(chunk) == 0 {
			// After an empty chunk, pull up to minRefill bytes' worth of
			// further chunks (or until EOF) before re-checking.
			pulled := 0
			for pulled < minRefill && !b.exhausted {
				c, err := b.src.Next(ctx)
				if len(c) > 0 {
					b.compact()
					b.buf = append(b.buf, c...)
					pulled += len(c)
				}
				if err != nil {
					if errors.Is(err, io.EOF) {
						b.exhausted = true
						break
					}
					return pkgerrors.Wrap(err, "streambuf: reading next chunk")
				}
			}
		}
	}
	return nil
}

func (b *Buffer) available() int {
	return len(b.buf) - b.pos
}

// Get returns a slice aliasing the next n bytes of the buffer without
// copying; it is valid only until the next Ensure/Get/GetCopy/Skip/Take
// call, after which the underlying array may be reused or reallocated.
// Callers that need to retain the bytes past that point must use
// GetCopy.
func (b *Buffer) Get(ctx context.Context, n int) ([]byte, error) {
	if err := b.Ensure(ctx, n); err != nil {
		return nil, err
	}
	out := b.buf[b.pos : b.pos+n]
	b.pos += n
	b.totalRead += int64(n)
	return out, nil
}

// GetCopy is Get but returns an independent copy safe to retain.
func (b *Buffer) GetCopy(ctx context.Context, n int) ([]byte, error) {
	aliased, err := b.Get(ctx, n)
	if err != nil {
		return nil, err
	}
	cp := make([]byte, n)
	copy(cp, aliased)
	return cp, nil
}

// Take reads bytes up to and including the first occurrence of
// terminator, returning the bytes before it (terminator itself is
// consumed but not included). Used for HPROF's NUL-terminated format
// banner.
func (b *Buffer) Take(ctx context.Context, terminator byte) ([]byte, error) {
	var out []byte
	for {
		v, err := b.Get(ctx, 1)
		if err != nil {
			return nil, err
		}
		if v[0] == terminator {
			return out, nil
		}
		out = append(out, v[0])
	}
}

// Skip discards the next n bytes. It goes through Ensure, so all n bytes
// are first pulled into the window; a skipped body is held in memory in
// full, not discarded chunk by chunk.
func (b *Buffer) Skip(ctx context.Context, n int) error {
	if err := b.Ensure(ctx, n); err != nil {
		return err
	}
	b.pos += n
	b.totalRead += int64(n)
	return nil
}

func (b *Buffer) U8(ctx context.Context) (uint8, error) {
	v, err := b.Get(ctx, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

func (b *Buffer) I8(ctx context.Context) (int8, error) {
	v, err := b.U8(ctx)
	return int8(v), err
}

func (b *Buffer) U16(ctx context.Context) (uint16, error) {
	v, err := b.Get(ctx, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(v), nil
}

func (b *Buffer) I16(ctx context.Context) (int16, error) {
	v, err := b.U16(ctx)
	return int16(v), err
}

func (b *Buffer) U32(ctx context.Context) (uint32, error) {
	v, err := b.Get(ctx, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(v), nil
}

func (b *Buffer) I32(ctx context.Context) (int32, error) {
	v, err := b.U32(ctx)
	return int32(v), err
}

func (b *Buffer) U64(ctx context.Context) (uint64, error) {
	v, err := b.Get(ctx, 8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(v), nil
}

func (b *Buffer) I64(ctx context.Context) (int64, error) {
	v, err := b.U64(ctx)
	return int64(v), err
}

func (b *Buffer) F32(ctx context.Context) (float32, error) {
	v, err := b.U32(ctx)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (b *Buffer) F64(ctx context.Context) (float64, error) {
	v, err := b.U64(ctx)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadID reads an identifier idSize bytes wide (1, 2, 4, or 8) and widens
// it to a uint64. Callers must validate idSize beforehand (see
// decode.Header); an unsupported width panics, since by
// the time a Buffer is reading fields the header has already been
// validated.
func (b *Buffer) ReadID(ctx context.Context, idSize uint8) (uint64, error) {
	switch idSize {
	case 1:
		v, err := b.U8(ctx)
		return uint64(v), err
	case 2:
		v, err := b.U16(ctx)
		return uint64(v), err
	case 4:
		v, err := b.U32(ctx)
		return uint64(v), err
	case 8:
		return b.U64(ctx)
	default:
		panic("streambuf: unsupported idSize")
	}
}
