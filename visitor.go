package hprofstream

import (
	"context"

	"github.com/mabhi256/hprofstream/internal/hprof/model"
)

// Visitor is a set of optional callbacks invoked while Read streams an
// HPROF dump. A nil field means "not interested": Read checks the
// visitor's fields for each record as it arrives (so callbacks registered
// from inside another callback take effect for later records) and takes a
// cheap skip path for everything else instead of materializing it.
//
// Every callback receives the decoded record body and may return an
// error to abort the decode; the error is returned from Read unwrapped
// (wrap it yourself if you need to distinguish it from a decode error).
type Visitor struct {
	Header          func(ctx context.Context, h model.Header) error
	UTF8            func(ctx context.Context, r model.UTF8Record) error
	LoadClass       func(ctx context.Context, r model.LoadClass) error
	UnloadClass     func(ctx context.Context, r model.UnloadClass) error
	Frame           func(ctx context.Context, r model.Frame) error
	Trace           func(ctx context.Context, r model.Trace) error
	AllocSites      func(ctx context.Context, r model.AllocSites) error
	HeapSummary     func(ctx context.Context, r model.HeapSummary) error
	StartThread     func(ctx context.Context, r model.StartThread) error
	EndThread       func(ctx context.Context, r model.EndThread) error
	CPUSamples      func(ctx context.Context, r model.CPUSamples) error
	ControlSettings func(ctx context.Context, r model.ControlSettings) error

	// HeapDumpStart/HeapDumpEnd bracket every HEAP_DUMP or
	// HEAP_DUMP_SEGMENT record's sub-record stream. They fire once per
	// record, not once per logical dump (a dump segmented across
	// multiple HEAP_DUMP_SEGMENT records produces one Start/End pair per
	// segment); aggregate.Aggregator uses HeapDumpStart to drop its UTF8
	// string table.
	HeapDumpStart func(ctx context.Context) error
	HeapDumpEnd   func(ctx context.Context) error

	GCRootUnknown     func(ctx context.Context, r model.GCRootUnknown) error
	GCRootJNIGlobal   func(ctx context.Context, r model.GCRootJNIGlobal) error
	GCRootJNILocal    func(ctx context.Context, r model.GCRootJNILocal) error
	GCRootJavaFrame   func(ctx context.Context, r model.GCRootJavaFrame) error
	GCRootNativeStack func(ctx context.Context, r model.GCRootNativeStack) error
	GCRootStickyClass func(ctx context.Context, r model.GCRootStickyClass) error
	GCRootThreadBlock func(ctx context.Context, r model.GCRootThreadBlock) error
	GCRootMonitorUsed func(ctx context.Context, r model.GCRootMonitorUsed) error
	GCRootThreadObj   func(ctx context.Context, r model.GCRootThreadObj) error

	ClassDump          func(ctx context.Context, r model.ClassDump) error
	InstanceDump       func(ctx context.Context, r model.GCInstanceDump) error
	ObjectArrayDump    func(ctx context.Context, r model.GCObjectArrayDump) error
	PrimitiveArrayDump func(ctx context.Context, r model.GCPrimitiveArrayDump) error

	// Raw is called for any top-level record tag with no dedicated
	// callback above, carrying the frame envelope and the verbatim body
	// bytes. It is never called for a tag that has its own callback, nor
	// for HEAP_DUMP, HEAP_DUMP_SEGMENT or HEAP_DUMP_END records, whose
	// bodies are decoded through the sub-record callbacks or skipped.
	Raw func(ctx context.Context, frame model.RecordFrame, body []byte) error
}

// wantsTag reports whether v has a reason to have the body of a top-level
// record decoded rather than skipped whole.
func (v *Visitor) wantsTag(tag model.RecordTag) bool {
	if v == nil {
		return false
	}
	switch tag {
	case model.TagUTF8:
		return v.UTF8 != nil || v.Raw != nil
	case model.TagLoadClass:
		return v.LoadClass != nil || v.Raw != nil
	case model.TagUnloadClass:
		return v.UnloadClass != nil || v.Raw != nil
	case model.TagFrame:
		return v.Frame != nil || v.Raw != nil
	case model.TagTrace:
		return v.Trace != nil || v.Raw != nil
	case model.TagAllocSites:
		return v.AllocSites != nil || v.Raw != nil
	case model.TagHeapSummary:
		return v.HeapSummary != nil || v.Raw != nil
	case model.TagStartThread:
		return v.StartThread != nil || v.Raw != nil
	case model.TagEndThread:
		return v.EndThread != nil || v.Raw != nil
	case model.TagCPUSamples:
		return v.CPUSamples != nil || v.Raw != nil
	case model.TagControlSettings:
		return v.ControlSettings != nil || v.Raw != nil
	case model.TagHeapDump, model.TagHeapDumpSegment:
		// HEAP_DUMP/HEAP_DUMP_SEGMENT bodies are a packed sub-record
		// stream, not a single opaque blob Raw could sensibly receive
		// whole; Raw has no meaning here, only the sub-record callbacks do.
		return v.wantsAnyHeapSubRecord()
	case model.TagHeapDumpEnd:
		return false
	default:
		return v.Raw != nil
	}
}

// wantsAnyHeapSubRecord reports whether any GC-root/class/instance/array
// callback, or the dump start/end brackets, are registered — if none are,
// the whole HEAP_DUMP body can be skipped as one opaque blob.
func (v *Visitor) wantsAnyHeapSubRecord() bool {
	if v == nil {
		return false
	}
	return v.HeapDumpStart != nil || v.HeapDumpEnd != nil ||
		v.GCRootUnknown != nil || v.GCRootJNIGlobal != nil || v.GCRootJNILocal != nil ||
		v.GCRootJavaFrame != nil || v.GCRootNativeStack != nil || v.GCRootStickyClass != nil ||
		v.GCRootThreadBlock != nil || v.GCRootMonitorUsed != nil || v.GCRootThreadObj != nil ||
		v.ClassDump != nil || v.InstanceDump != nil || v.ObjectArrayDump != nil || v.PrimitiveArrayDump != nil
}

// wantsSubTag reports whether v has a callback for a specific heap
// sub-record tag, used to take the fixed-width fast skip path on GC
// roots whose fields nobody asked for.
func (v *Visitor) wantsSubTag(tag model.SubRecordTag) bool {
	if v == nil {
		return false
	}
	switch tag {
	case model.SubTagGCRootUnknown:
		return v.GCRootUnknown != nil
	case model.SubTagGCRootJNIGlobal:
		return v.GCRootJNIGlobal != nil
	case model.SubTagGCRootJNILocal:
		return v.GCRootJNILocal != nil
	case model.SubTagGCRootJavaFrame:
		return v.GCRootJavaFrame != nil
	case model.SubTagGCRootNativeStack:
		return v.GCRootNativeStack != nil
	case model.SubTagGCRootStickyClass:
		return v.GCRootStickyClass != nil
	case model.SubTagGCRootThreadBlock:
		return v.GCRootThreadBlock != nil
	case model.SubTagGCRootMonitorUsed:
		return v.GCRootMonitorUsed != nil
	case model.SubTagGCRootThreadObj:
		return v.GCRootThreadObj != nil
	case model.SubTagClassDump:
		return v.ClassDump != nil
	case model.SubTagInstanceDump:
		return v.InstanceDump != nil
	case model.SubTagObjArrayDump:
		return v.ObjectArrayDump != nil
	case model.SubTagPrimArrayDump:
		return v.PrimitiveArrayDump != nil
	default:
		return false
	}
}
