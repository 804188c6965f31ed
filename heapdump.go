package hprofstream

import (
	"context"

	pkgerrors "github.com/pkg/errors"

	"github.com/mabhi256/hprofstream/internal/hprof/decode"
	"github.com/mabhi256/hprofstream/internal/hprof/model"
	"github.com/mabhi256/hprofstream/internal/hprof/streambuf"
)

// decodeHeapDumpBody walks the packed sequence of GC-root, class,
// instance, and array sub-records inside a single HEAP_DUMP or
// HEAP_DUMP_SEGMENT record, grounded on mabhi256/jdiag's
// parser.ParseHeapDumpSegment loop. Unlike that loop, which logs and
// tolerates an overshoot, a sub-record that reads past the declared body
// length here is a hard error — the dump is corrupt and there is no safe
// resynchronization point.
func decodeHeapDumpBody(ctx context.Context, buf *streambuf.Buffer, v *Visitor, cfg *config, idSize uint8, flags model.Flags, frame model.RecordFrame) error {
	if v != nil && v.HeapDumpStart != nil {
		if err := v.HeapDumpStart(ctx); err != nil {
			return err
		}
	}

	start := buf.BytesRead()
	declared := int64(frame.Length)
	skipValues := flags.Has(model.FlagSkipValues)

	for buf.BytesRead()-start < declared {
		beforeSub := buf.BytesRead()
		subTagByte, err := buf.U8(ctx)
		if err != nil {
			return err
		}
		subTag := model.SubRecordTag(subTagByte)

		if err := dispatchSubRecord(ctx, buf, v, idSize, skipValues, subTag); err != nil {
			return err
		}

		if buf.BytesRead()-beforeSub <= 0 {
			return pkgerrors.Errorf("hprofstream: heap sub-record %s made no progress", subTag)
		}
	}
	if over := buf.BytesRead() - start - declared; over != 0 {
		return pkgerrors.Wrapf(streambuf.ErrBufferUnderflow, "hprofstream: heap dump body overshot declared length %d by %d bytes", declared, over)
	}

	if v != nil && v.HeapDumpEnd != nil {
		if err := v.HeapDumpEnd(ctx); err != nil {
			return err
		}
	}
	return nil
}

func dispatchSubRecord(ctx context.Context, buf *streambuf.Buffer, v *Visitor, idSize uint8, skipValues bool, subTag model.SubRecordTag) error {
	switch subTag {
	case model.SubTagGCRootUnknown:
		if !v.wantsSubTag(subTag) {
			return decode.SkipGCRootFixed(ctx, buf, idSize, subTag)
		}
		rec, err := decode.GCRootUnknown(ctx, buf, idSize)
		if err != nil {
			return err
		}
		return v.GCRootUnknown(ctx, rec)

	case model.SubTagGCRootJNIGlobal:
		if !v.wantsSubTag(subTag) {
			return decode.SkipGCRootFixed(ctx, buf, idSize, subTag)
		}
		rec, err := decode.GCRootJNIGlobal(ctx, buf, idSize)
		if err != nil {
			return err
		}
		return v.GCRootJNIGlobal(ctx, rec)

	case model.SubTagGCRootJNILocal:
		if !v.wantsSubTag(subTag) {
			return decode.SkipGCRootFixed(ctx, buf, idSize, subTag)
		}
		rec, err := decode.GCRootJNILocal(ctx, buf, idSize)
		if err != nil {
			return err
		}
		return v.GCRootJNILocal(ctx, rec)

	case model.SubTagGCRootJavaFrame:
		if !v.wantsSubTag(subTag) {
			return decode.SkipGCRootFixed(ctx, buf, idSize, subTag)
		}
		rec, err := decode.GCRootJavaFrame(ctx, buf, idSize)
		if err != nil {
			return err
		}
		return v.GCRootJavaFrame(ctx, rec)

	case model.SubTagGCRootNativeStack:
		if !v.wantsSubTag(subTag) {
			return decode.SkipGCRootFixed(ctx, buf, idSize, subTag)
		}
		rec, err := decode.GCRootNativeStack(ctx, buf, idSize)
		if err != nil {
			return err
		}
		return v.GCRootNativeStack(ctx, rec)

	case model.SubTagGCRootStickyClass:
		if !v.wantsSubTag(subTag) {
			return decode.SkipGCRootFixed(ctx, buf, idSize, subTag)
		}
		rec, err := decode.GCRootStickyClass(ctx, buf, idSize)
		if err != nil {
			return err
		}
		return v.GCRootStickyClass(ctx, rec)

	case model.SubTagGCRootThreadBlock:
		if !v.wantsSubTag(subTag) {
			return decode.SkipGCRootFixed(ctx, buf, idSize, subTag)
		}
		rec, err := decode.GCRootThreadBlock(ctx, buf, idSize)
		if err != nil {
			return err
		}
		return v.GCRootThreadBlock(ctx, rec)

	case model.SubTagGCRootMonitorUsed:
		if !v.wantsSubTag(subTag) {
			return decode.SkipGCRootFixed(ctx, buf, idSize, subTag)
		}
		rec, err := decode.GCRootMonitorUsed(ctx, buf, idSize)
		if err != nil {
			return err
		}
		return v.GCRootMonitorUsed(ctx, rec)

	case model.SubTagGCRootThreadObj:
		if !v.wantsSubTag(subTag) {
			return decode.SkipGCRootFixed(ctx, buf, idSize, subTag)
		}
		rec, err := decode.GCRootThreadObj(ctx, buf, idSize)
		if err != nil {
			return err
		}
		return v.GCRootThreadObj(ctx, rec)

	case model.SubTagClassDump:
		rec, err := decode.ClassDump(ctx, buf, idSize, skipValues)
		if err != nil {
			return wrapDecodeErr(err)
		}
		if v != nil && v.ClassDump != nil {
			return v.ClassDump(ctx, rec)
		}
		return nil

	case model.SubTagInstanceDump:
		rec, err := decode.InstanceDump(ctx, buf, idSize, skipValues)
		if err != nil {
			return err
		}
		if v != nil && v.InstanceDump != nil {
			return v.InstanceDump(ctx, rec)
		}
		return nil

	case model.SubTagObjArrayDump:
		rec, err := decode.ObjectArrayDump(ctx, buf, idSize, skipValues)
		if err != nil {
			return err
		}
		if v != nil && v.ObjectArrayDump != nil {
			return v.ObjectArrayDump(ctx, rec)
		}
		return nil

	case model.SubTagPrimArrayDump:
		rec, err := decode.PrimitiveArrayDump(ctx, buf, idSize, skipValues)
		if err != nil {
			return wrapDecodeErr(err)
		}
		if v != nil && v.PrimitiveArrayDump != nil {
			return v.PrimitiveArrayDump(ctx, rec)
		}
		return nil

	default:
		return &UnsupportedHeapSubRecordError{Tag: byte(subTag)}
	}
}
