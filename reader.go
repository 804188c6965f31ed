// Package hprofstream streams an HPROF binary heap-dump, invoking
// visitor callbacks as it decodes records, without materializing the
// whole dump in memory. It plays the role mabhi256/jdiag's
// internal/heap/parser package plays over a whole file, but is driven by
// a pull-based ChunkSource and a Visitor of optional callbacks instead of
// a Parser that eagerly builds an in-memory model.
package hprofstream

import (
	"context"
	"errors"
	"io"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mabhi256/hprofstream/internal/hprof/decode"
	"github.com/mabhi256/hprofstream/internal/hprof/model"
	"github.com/mabhi256/hprofstream/internal/hprof/streambuf"
)

// ChunkSource supplies the raw bytes of an HPROF stream in caller-chosen
// increments; Next returns io.EOF once exhausted. Re-exported from
// streambuf so callers need not import the internal package.
type ChunkSource = streambuf.ChunkSource

// Flags controls decoder-wide options. Re-exported from model for the
// same reason as ChunkSource.
type Flags = model.Flags

// FlagSkipValues makes the heap sub-record decoder read structural
// skeletons but discard constant pool / static field / instance / array
// element payload bytes.
const FlagSkipValues = model.FlagSkipValues

// Read decodes an HPROF stream pulled from src, invoking the callbacks in
// v as each record is decoded, until src is exhausted at a record
// boundary (the normal, successful end of a decode) or an error occurs.
//
// Read does not close or otherwise manage src's lifetime — call sites
// own that, unlike mabhi256/jdiag's parser.Parser, which owns the
// *os.File it opened in NewParser/Close.
func Read(ctx context.Context, src ChunkSource, v *Visitor, flags Flags, opts ...Option) error {
	cfg := newConfig(opts)
	buf := streambuf.New(src)

	header, err := decode.Header(ctx, buf)
	if err != nil {
		if size, ok := decode.IsIDSizeError(err); ok {
			return &UnsupportedIdSizeError{Size: size}
		}
		return pkgerrors.Wrap(err, "hprofstream: reading header")
	}
	cfg.logger.Debug("hprof header",
		zap.String("format", header.Format),
		zap.Uint8("idSize", header.IDSize),
		zap.Time("timestamp", header.Timestamp))

	if v != nil && v.Header != nil {
		if err := v.Header(ctx, header); err != nil {
			return err
		}
	}

	idSize := header.IDSize

	for {
		frame, err := readFrame(ctx, buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		cfg.logger.Debug("record",
			zap.Stringer("tag", frame.Tag),
			zap.Uint32("length", frame.Length))

		before := buf.BytesRead()
		if err := dispatchRecord(ctx, buf, v, cfg, idSize, flags, frame); err != nil {
			return err
		}
		if consumed := buf.BytesRead() - before; consumed != int64(frame.Length) {
			return pkgerrors.Wrapf(streambuf.ErrBufferUnderflow, "hprofstream: record %s declared length %d but consumed %d",
				frame.Tag, frame.Length, consumed)
		}
	}
}

// readFrame reads the 9-byte record envelope (tag, time offset, length).
// io.EOF surfacing from the very first byte is the normal end of stream;
// an EOF encountered partway through the envelope means the stream was
// truncated mid-header and is reported as underflow instead.
func readFrame(ctx context.Context, buf *streambuf.Buffer) (model.RecordFrame, error) {
	tag, err := buf.U8(ctx)
	if err != nil {
		return model.RecordFrame{}, err
	}
	offset, err := buf.U32(ctx)
	if err != nil {
		return model.RecordFrame{}, truncated(err)
	}
	length, err := buf.U32(ctx)
	if err != nil {
		return model.RecordFrame{}, truncated(err)
	}
	return model.RecordFrame{Tag: model.RecordTag(tag), TimeOffsetMicros: offset, Length: length}, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return pkgerrors.Wrap(streambuf.ErrBufferUnderflow, "hprofstream: stream truncated mid record header")
	}
	return err
}

// dispatchRecord decodes or skips one top-level record body, grounded on
// mabhi256/jdiag's parser.parseRecord dispatch switch. Tags with no
// registered callback take the cheap skip path instead of allocating a
// decoded body no one will see.
func dispatchRecord(ctx context.Context, buf *streambuf.Buffer, v *Visitor, cfg *config, idSize uint8, flags model.Flags, frame model.RecordFrame) error {
	if !v.wantsTag(frame.Tag) {
		return skipBody(ctx, buf, frame)
	}

	switch frame.Tag {
	case model.TagUTF8:
		if v.UTF8 == nil {
			return dispatchRaw(ctx, buf, v, frame)
		}
		rec, err := decode.UTF8(ctx, buf, idSize, frame.Length)
		if err != nil {
			return wrapDecodeErr(err)
		}
		return v.UTF8(ctx, rec)
	case model.TagLoadClass:
		if v.LoadClass == nil {
			return dispatchRaw(ctx, buf, v, frame)
		}
		rec, err := decode.LoadClass(ctx, buf, idSize)
		if err != nil {
			return wrapDecodeErr(err)
		}
		return v.LoadClass(ctx, rec)
	case model.TagUnloadClass:
		if v.UnloadClass == nil {
			return dispatchRaw(ctx, buf, v, frame)
		}
		rec, err := decode.UnloadClass(ctx, buf)
		if err != nil {
			return wrapDecodeErr(err)
		}
		return v.UnloadClass(ctx, rec)
	case model.TagFrame:
		if v.Frame == nil {
			return dispatchRaw(ctx, buf, v, frame)
		}
		rec, err := decode.Frame(ctx, buf, idSize)
		if err != nil {
			return wrapDecodeErr(err)
		}
		return v.Frame(ctx, rec)
	case model.TagTrace:
		if v.Trace == nil {
			return dispatchRaw(ctx, buf, v, frame)
		}
		rec, err := decode.Trace(ctx, buf, idSize)
		if err != nil {
			return wrapDecodeErr(err)
		}
		return v.Trace(ctx, rec)
	case model.TagAllocSites:
		if v.AllocSites == nil {
			return dispatchRaw(ctx, buf, v, frame)
		}
		rec, err := decode.AllocSites(ctx, buf, idSize)
		if err != nil {
			return wrapDecodeErr(err)
		}
		return v.AllocSites(ctx, rec)
	case model.TagHeapSummary:
		if v.HeapSummary == nil {
			return dispatchRaw(ctx, buf, v, frame)
		}
		rec, err := decode.HeapSummary(ctx, buf)
		if err != nil {
			return wrapDecodeErr(err)
		}
		return v.HeapSummary(ctx, rec)
	case model.TagStartThread:
		if v.StartThread == nil {
			return dispatchRaw(ctx, buf, v, frame)
		}
		rec, err := decode.StartThread(ctx, buf, idSize)
		if err != nil {
			return wrapDecodeErr(err)
		}
		return v.StartThread(ctx, rec)
	case model.TagEndThread:
		if v.EndThread == nil {
			return dispatchRaw(ctx, buf, v, frame)
		}
		rec, err := decode.EndThread(ctx, buf)
		if err != nil {
			return wrapDecodeErr(err)
		}
		return v.EndThread(ctx, rec)
	case model.TagCPUSamples:
		if v.CPUSamples == nil {
			return dispatchRaw(ctx, buf, v, frame)
		}
		rec, err := decode.CPUSamples(ctx, buf)
		if err != nil {
			return wrapDecodeErr(err)
		}
		return v.CPUSamples(ctx, rec)
	case model.TagControlSettings:
		if v.ControlSettings == nil {
			return dispatchRaw(ctx, buf, v, frame)
		}
		if frame.Length != 6 {
			return pkgerrors.Errorf("hprofstream: CONTROL_SETTINGS length %d, want 6", frame.Length)
		}
		rec, err := decode.ControlSettings(ctx, buf)
		if err != nil {
			return wrapDecodeErr(err)
		}
		return v.ControlSettings(ctx, rec)
	case model.TagHeapDump, model.TagHeapDumpSegment:
		return decodeHeapDumpBody(ctx, buf, v, cfg, idSize, flags, frame)
	case model.TagHeapDumpEnd:
		return skipBody(ctx, buf, frame)
	default:
		return dispatchRaw(ctx, buf, v, frame)
	}
}

// dispatchRaw reads a record body verbatim and hands it to v.Raw: the
// fallback for any known tag whose dedicated callback is nil but whose
// body was read anyway because v.Raw is set (wantsTag's || v.Raw != nil),
// and for tag bytes outside the closed tag space.
func dispatchRaw(ctx context.Context, buf *streambuf.Buffer, v *Visitor, frame model.RecordFrame) error {
	body, err := buf.GetCopy(ctx, int(frame.Length))
	if err != nil {
		return err
	}
	return v.Raw(ctx, frame, body)
}

func skipBody(ctx context.Context, buf *streambuf.Buffer, frame model.RecordFrame) error {
	return buf.Skip(ctx, int(frame.Length))
}

func wrapDecodeErr(err error) error {
	if t, ok := decode.IsUnsupportedTypeError(err); ok {
		return &UnsupportedTypeError{Type: t}
	}
	return err
}
