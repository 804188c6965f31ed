// Package model holds the wire-level constants and record bodies of the
// HPROF binary heap-dump format, independent of how bytes reach the decoder.
//
// HPROF binary format described here:
// https://github.com/openjdk/jdk/blob/master/src/hotspot/share/services/heapDumper.cpp
package model

import "fmt"

// ID is a widened HPROF identifier: an object handle, idSize bytes wide on
// the wire (1, 2, 4, or 8), always surfaced to callers as a uint64.
type ID uint64

// SerialNum is a u4 sequence counter (class serial, stack-trace serial, ...).
type SerialNum uint32

// RecordTag is the top-level record tag (spec.md §6).
type RecordTag byte

const (
	TagUTF8             RecordTag = 0x01
	TagLoadClass        RecordTag = 0x02
	TagUnloadClass      RecordTag = 0x03
	TagFrame            RecordTag = 0x04
	TagTrace            RecordTag = 0x05
	TagAllocSites       RecordTag = 0x06
	TagHeapSummary      RecordTag = 0x07
	TagStartThread      RecordTag = 0x0A
	TagEndThread        RecordTag = 0x0B
	TagHeapDump         RecordTag = 0x0C
	TagCPUSamples       RecordTag = 0x0D
	TagControlSettings  RecordTag = 0x0E
	TagHeapDumpSegment  RecordTag = 0x1C
	TagHeapDumpEnd      RecordTag = 0x2C
)

func (t RecordTag) String() string {
	switch t {
	case TagUTF8:
		return "UTF8"
	case TagLoadClass:
		return "LOAD_CLASS"
	case TagUnloadClass:
		return "UNLOAD_CLASS"
	case TagFrame:
		return "FRAME"
	case TagTrace:
		return "TRACE"
	case TagAllocSites:
		return "ALLOC_SITES"
	case TagHeapSummary:
		return "HEAP_SUMMARY"
	case TagStartThread:
		return "START_THREAD"
	case TagEndThread:
		return "END_THREAD"
	case TagHeapDump:
		return "HEAP_DUMP"
	case TagCPUSamples:
		return "CPU_SAMPLES"
	case TagControlSettings:
		return "CONTROL_SETTINGS"
	case TagHeapDumpSegment:
		return "HEAP_DUMP_SEGMENT"
	case TagHeapDumpEnd:
		return "HEAP_DUMP_END"
	default:
		return fmt.Sprintf("RecordTag(0x%02x)", byte(t))
	}
}

// SubRecordTag is the sub-record tag inside a HEAP_DUMP/HEAP_DUMP_SEGMENT
// body (spec.md §6).
type SubRecordTag byte

const (
	SubTagGCRootUnknown     SubRecordTag = 0xFF
	SubTagGCRootJNIGlobal   SubRecordTag = 0x01
	SubTagGCRootJNILocal    SubRecordTag = 0x02
	SubTagGCRootJavaFrame   SubRecordTag = 0x03
	SubTagGCRootNativeStack SubRecordTag = 0x04
	SubTagGCRootStickyClass SubRecordTag = 0x05
	SubTagGCRootThreadBlock SubRecordTag = 0x06
	SubTagGCRootMonitorUsed SubRecordTag = 0x07
	SubTagGCRootThreadObj   SubRecordTag = 0x08
	SubTagClassDump         SubRecordTag = 0x20
	SubTagInstanceDump      SubRecordTag = 0x21
	SubTagObjArrayDump      SubRecordTag = 0x22
	SubTagPrimArrayDump     SubRecordTag = 0x23
)

func (t SubRecordTag) String() string {
	switch t {
	case SubTagGCRootUnknown:
		return "GC_ROOT_UNKNOWN"
	case SubTagGCRootJNIGlobal:
		return "GC_ROOT_JNI_GLOBAL"
	case SubTagGCRootJNILocal:
		return "GC_ROOT_JNI_LOCAL"
	case SubTagGCRootJavaFrame:
		return "GC_ROOT_JAVA_FRAME"
	case SubTagGCRootNativeStack:
		return "GC_ROOT_NATIVE_STACK"
	case SubTagGCRootStickyClass:
		return "GC_ROOT_STICKY_CLASS"
	case SubTagGCRootThreadBlock:
		return "GC_ROOT_THREAD_BLOCK"
	case SubTagGCRootMonitorUsed:
		return "GC_ROOT_MONITOR_USED"
	case SubTagGCRootThreadObj:
		return "GC_ROOT_THREAD_OBJ"
	case SubTagClassDump:
		return "GC_CLASS_DUMP"
	case SubTagInstanceDump:
		return "GC_INSTANCE_DUMP"
	case SubTagObjArrayDump:
		return "GC_OBJ_ARRAY_DUMP"
	case SubTagPrimArrayDump:
		return "GC_PRIM_ARRAY_DUMP"
	default:
		return fmt.Sprintf("SubRecordTag(0x%02x)", byte(t))
	}
}

// FieldType is the element-type code used by constant-pool entries, static
// and instance fields, and primitive array element types (spec.md §6).
type FieldType byte

const (
	FieldTypeArrayObject  FieldType = 0x01
	FieldTypeNormalObject FieldType = 0x02
	FieldTypeBoolean      FieldType = 0x04
	FieldTypeChar         FieldType = 0x05
	FieldTypeFloat        FieldType = 0x06
	FieldTypeDouble       FieldType = 0x07
	FieldTypeByte         FieldType = 0x08
	FieldTypeShort        FieldType = 0x09
	FieldTypeInt          FieldType = 0x0A
	FieldTypeLong         FieldType = 0x0B
)

// Size reports the on-wire width, in bytes, of a value of this type given
// the dump's declared identifier size. ok is false for an unrecognized type
// code, which callers must treat as UnsupportedTypeError.
func (t FieldType) Size(idSize uint8) (size int, ok bool) {
	switch t {
	case FieldTypeBoolean, FieldTypeByte:
		return 1, true
	case FieldTypeChar, FieldTypeShort:
		return 2, true
	case FieldTypeInt, FieldTypeFloat:
		return 4, true
	case FieldTypeLong, FieldTypeDouble:
		return 8, true
	case FieldTypeNormalObject, FieldTypeArrayObject:
		return int(idSize), true
	default:
		return 0, false
	}
}

// PrimitiveArrayJNIName maps a primitive field type to the synthetic
// JNI-style array name the aggregator reports ("[I", "[Z", ...).
func (t FieldType) PrimitiveArrayJNIName() (string, bool) {
	switch t {
	case FieldTypeBoolean:
		return "[Z", true
	case FieldTypeChar:
		return "[C", true
	case FieldTypeFloat:
		return "[F", true
	case FieldTypeDouble:
		return "[D", true
	case FieldTypeByte:
		return "[B", true
	case FieldTypeShort:
		return "[S", true
	case FieldTypeInt:
		return "[I", true
	case FieldTypeLong:
		return "[J", true
	default:
		return "", false
	}
}

// Flags configures optional decoder behavior (spec.md §6).
type Flags uint32

const (
	// FlagSkipValues makes the heap sub-record decoder read structural
	// skeletons (ids, types, counts) but discard payload bytes: constant
	// pool / static field values, instance bodies, array element data.
	FlagSkipValues Flags = 1 << 0
)

// Has reports whether all bits of other are set in f.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}

// AllocSite flag bits (ALLOC_SITES record, spec.md §4.3).
const (
	AllocFlagIncremental     uint16 = 0x0001
	AllocFlagSortByAlloc     uint16 = 0x0002
	AllocFlagForcedGC        uint16 = 0x0004
)

// ControlSettings flag bits (CONTROL_SETTINGS record, spec.md §4.3).
const (
	ControlFlagAllocTraces uint32 = 0x00000001
	ControlFlagCPUSampling uint32 = 0x00000002
)

// EmptyFrame is the sentinel frame number used by GC_ROOT_JNI_LOCAL /
// GC_ROOT_JAVA_FRAME when no frame is associated with the root.
const EmptyFrame int32 = -1
