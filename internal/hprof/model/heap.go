package model

// The GCRoot* types are the bodies of the nine GC-root sub-records found
// inside a HEAP_DUMP/HEAP_DUMP_SEGMENT body. All nine are constant width
// once idSize is known, which lets the decoder skip them in a single read
// when a visitor has no callback registered for the tag.

// GCRootUnknown (sub-tag GC_ROOT_UNKNOWN) is an object kept live for a
// reason the VM did not classify further.
type GCRootUnknown struct {
	ObjectID ID
}

// GCRootJNIGlobal (sub-tag GC_ROOT_JNI_GLOBAL) is a JNI global reference.
type GCRootJNIGlobal struct {
	ObjectID   ID
	JNIGlobalRefID ID
}

// GCRootJNILocal (sub-tag GC_ROOT_JNI_LOCAL) is a JNI local reference.
// FrameNumber is EmptyFrame when no frame information is available.
type GCRootJNILocal struct {
	ObjectID     ID
	ThreadSerial SerialNum
	FrameNumber  int32
}

// GCRootJavaFrame (sub-tag GC_ROOT_JAVA_FRAME) is a local variable or
// in-flight value held live by an interpreted stack frame.
type GCRootJavaFrame struct {
	ObjectID     ID
	ThreadSerial SerialNum
	FrameNumber  int32
}

// GCRootNativeStack (sub-tag GC_ROOT_NATIVE_STACK) is a value held live by
// native code on a thread's stack.
type GCRootNativeStack struct {
	ObjectID     ID
	ThreadSerial SerialNum
}

// GCRootStickyClass (sub-tag GC_ROOT_STICKY_CLASS) is a class kept live
// for the lifetime of the VM (system class).
type GCRootStickyClass struct {
	ObjectID ID
}

// GCRootThreadBlock (sub-tag GC_ROOT_THREAD_BLOCK) is a block held live by
// a thread.
type GCRootThreadBlock struct {
	ObjectID     ID
	ThreadSerial SerialNum
}

// GCRootMonitorUsed (sub-tag GC_ROOT_MONITOR_USED) is an object currently
// used as a monitor.
type GCRootMonitorUsed struct {
	ObjectID ID
}

// GCRootThreadObj (sub-tag GC_ROOT_THREAD_OBJ) is a Thread object itself.
type GCRootThreadObj struct {
	ThreadObjectID       ID
	ThreadSerial         SerialNum
	StackTraceSerial     SerialNum
}

// gcRootFixedLen gives the constant number of trailing fixed-width fields,
// beyond the leading object ID, each GC root sub-record carries — split
// into idSize-wide fields (extraIDFields) and 4-byte u4/i4 fields
// (extraU4Fields) since GC_ROOT_JNI_GLOBAL's second field is id-wide, not
// u4-wide (spec.md §4.4's table: "GC_ROOT_JNI_GLOBAL | id, id | 1 + 2·id").
// Used to build the fast skip-length table in decode.
var gcRootFixedLen = map[SubRecordTag]struct{ extraIDFields, extraU4Fields int }{
	SubTagGCRootUnknown:     {0, 0},
	SubTagGCRootJNIGlobal:   {1, 0}, // + 1 id
	SubTagGCRootJNILocal:    {0, 2}, // + u4 + i4
	SubTagGCRootJavaFrame:   {0, 2},
	SubTagGCRootNativeStack: {0, 1}, // + u4
	SubTagGCRootStickyClass: {0, 0},
	SubTagGCRootThreadBlock: {0, 1},
	SubTagGCRootMonitorUsed: {0, 0},
	SubTagGCRootThreadObj:   {0, 2}, // + u4 + u4
}

// GCRootFixedExtraLen reports how many trailing idSize-wide fields
// (extraIDFields) and how many trailing 4-byte fields (extraU4Fields),
// beyond the leading idSize-wide object/thread ID, a GC root sub-record of
// this tag carries. ok is false for tags that are not fixed-width GC roots
// (class dump, instance dump, and the two array dump tags carry
// variable-length data).
func GCRootFixedExtraLen(tag SubRecordTag) (extraIDFields, extraU4Fields int, ok bool) {
	n, ok := gcRootFixedLen[tag]
	return n.extraIDFields, n.extraU4Fields, ok
}

// ConstantPoolEntry is one entry of a class's constant pool.
type ConstantPoolEntry struct {
	ConstantPoolIndex uint16
	Type              FieldType
	// Value holds the raw on-wire bytes of the constant, Type.Size(idSize)
	// bytes long, big-endian. Interpreting it is left to the caller.
	Value []byte
}

// StaticField is one static field of a class, with its value inline.
type StaticField struct {
	NameID ID
	Type   FieldType
	Value  []byte
}

// InstanceField describes one instance field's name and type; instance
// field values live in the owning GCInstanceDump's raw bytes, not here.
type InstanceField struct {
	NameID ID
	Type   FieldType
}

// ClassDump (sub-tag GC_CLASS_DUMP) fully describes one class: its
// identity, superclass, constant pool, static fields, and instance field
// layout (needed to decode GCInstanceDump bodies and to compute instance
// sizes).
type ClassDump struct {
	ClassObjectID        ID
	StackTraceSerial     SerialNum
	SuperClassObjectID   ID
	ClassLoaderObjectID  ID
	SignersObjectID      ID
	ProtectionDomainObjectID ID
	Reserved1            ID
	Reserved2            ID
	InstanceSize         uint32
	ConstantPool         []ConstantPoolEntry
	StaticFields         []StaticField
	InstanceFields       []InstanceField
}

// GCInstanceDump (sub-tag GC_INSTANCE_DUMP) is one object instance: its
// identity, the class that defines its layout, and its raw field bytes in
// declaration order (self fields first, then each ancestor's, matching
// ClassDump.InstanceFields order up the super-chain).
type GCInstanceDump struct {
	ObjectID         ID
	StackTraceSerial SerialNum
	ClassObjectID    ID
	// InstanceBytes is nil when FlagSkipValues is set; the decoder still
	// reports NumBytes.
	InstanceBytes []byte
	NumBytes      uint32
}

// GCObjectArrayDump (sub-tag GC_OBJ_ARRAY_DUMP) is an array of object
// references.
type GCObjectArrayDump struct {
	ArrayObjectID    ID
	StackTraceSerial SerialNum
	NumElements      uint32
	ArrayClassID     ID
	// Elements is nil when FlagSkipValues is set.
	Elements []ID
}

// GCPrimitiveArrayDump (sub-tag GC_PRIM_ARRAY_DUMP) is an array of
// primitive values of a single ElementType.
type GCPrimitiveArrayDump struct {
	ArrayObjectID    ID
	StackTraceSerial SerialNum
	NumElements      uint32
	ElementType      FieldType
	// Elements holds the raw element bytes, NumElements *
	// ElementType.Size(idSize) long; nil when FlagSkipValues is set.
	Elements []byte
}
