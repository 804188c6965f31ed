// Package decode turns bytes pulled from a streambuf.Buffer into the
// model record types, one function per HPROF record/sub-record shape. It
// knows nothing about Visitor or callback dispatch — that orchestration
// lives in the root hprofstream package, grounded on
// mabhi256/jdiag's parser.Parser.parseRecord dispatch switch.
package decode

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/mabhi256/hprofstream/internal/hprof/model"
	"github.com/mabhi256/hprofstream/internal/hprof/streambuf"
)

// validIDSize accepts the wire-valid identifier widths; 4 and 8 are what
// real JVMs emit, 1 and 2 are accepted for forward compatibility with
// non-standard producers (broadening mabhi256/jdiag's header.go, which
// only accepted 4 and 8).
func validIDSize(size uint8) bool {
	switch size {
	case 1, 2, 4, 8:
		return true
	default:
		return false
	}
}

// Header reads the fixed HPROF prologue: a null-terminated ASCII format
// banner, a u4 identifier size, and a two-part u4/u4 millisecond
// timestamp combined into one millisecond count the way
// mabhi256/jdiag's parser.ParseHeader does, returned as a UTC time.Time.
func Header(ctx context.Context, buf *streambuf.Buffer) (model.Header, error) {
	bannerBytes, err := buf.Take(ctx, 0)
	if err != nil {
		return model.Header{}, pkgerrors.Wrap(err, "decode: reading format banner")
	}
	banner := string(bannerBytes)

	idSizeU32, err := buf.U32(ctx)
	if err != nil {
		return model.Header{}, pkgerrors.Wrap(err, "decode: reading identifier size")
	}
	if idSizeU32 > 255 || !validIDSize(uint8(idSizeU32)) {
		return model.Header{}, &idSizeError{size: idSizeU32}
	}

	hi, err := buf.U32(ctx)
	if err != nil {
		return model.Header{}, pkgerrors.Wrap(err, "decode: reading timestamp high word")
	}
	lo, err := buf.U32(ctx)
	if err != nil {
		return model.Header{}, pkgerrors.Wrap(err, "decode: reading timestamp low word")
	}
	millis := int64(hi)<<32 | int64(lo)

	return model.Header{
		Format:    banner,
		IDSize:    uint8(idSizeU32),
		Timestamp: time.UnixMilli(millis).UTC(),
	}, nil
}

// idSizeError lets the root package wrap it as UnsupportedIdSizeError
// without decode depending on the root package's error types.
type idSizeError struct{ size uint32 }

func (e *idSizeError) Error() string {
	return pkgerrors.Errorf("decode: unsupported identifier size %d", e.size).Error()
}

func (e *idSizeError) Size() uint8 { return uint8(e.size) }

// IsIDSizeError reports whether err (or a cause it wraps) was produced by
// Header rejecting an out-of-range identifier size, and returns the
// offending size.
func IsIDSizeError(err error) (size uint8, ok bool) {
	var e *idSizeError
	if pkgerrors.As(err, &e) {
		return e.Size(), true
	}
	return 0, false
}
