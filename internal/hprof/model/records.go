package model

// UTF8Record (tag UTF8) binds an ID to a UTF-8 string body; almost every
// other record refers back into this table rather than repeating text.
type UTF8Record struct {
	ID   ID
	Text string
}

// LoadClass (tag LOAD_CLASS) announces a class the VM has resolved.
type LoadClass struct {
	ClassSerial      SerialNum
	ClassObjectID    ID
	StackTraceSerial SerialNum
	ClassNameID      ID
}

// UnloadClass (tag UNLOAD_CLASS) retires a previously loaded class serial.
type UnloadClass struct {
	ClassSerial SerialNum
}

// Frame (tag FRAME) is one stack frame referenced by a Trace.
type Frame struct {
	StackFrameID     ID
	MethodNameID     ID
	MethodSigID      ID
	SourceFileNameID ID
	ClassSerial      SerialNum
	LineNumber       int32
}

// Trace (tag TRACE) is a stack trace: an ordered list of frame IDs.
type Trace struct {
	StackTraceSerial SerialNum
	ThreadSerial     SerialNum
	FrameIDs         []ID
}

// AllocSite is one entry of an ALLOC_SITES record. The record format
// predates 64-bit counters; every count field here is u4 on the wire
// (see DESIGN.md for the resolved Open Question on this record's width).
type AllocSite struct {
	ArrayIndicator   FieldType
	ClassSerial      SerialNum
	StackTraceSerial SerialNum
	LiveBytes        uint32
	LiveInstances    uint32
	AllocedBytes     uint32
	AllocedInstances uint32
}

// AllocSites (tag ALLOC_SITES) reports per-site allocation statistics
// gathered while allocation-site tracing was enabled.
type AllocSites struct {
	Flags            uint16
	CutoffRatio      uint32
	TotalLiveBytes   uint32
	TotalLiveInsts   uint32
	TotalAllocdBytes uint64
	TotalAllocdInsts uint64
	Sites            []AllocSite
}

// IsIncremental reports whether this report covers only objects allocated
// since the previous ALLOC_SITES record.
func (a AllocSites) IsIncremental() bool {
	return a.Flags&AllocFlagIncremental != 0
}

// IsSortedByAllocation reports whether Sites is ordered by allocation
// count/size rather than by live count/size.
func (a AllocSites) IsSortedByAllocation() bool {
	return a.Flags&AllocFlagSortByAlloc != 0
}

// ForcedGC reports whether a GC was forced before this report was taken.
func (a AllocSites) ForcedGC() bool {
	return a.Flags&AllocFlagForcedGC != 0
}

// HeapSummary (tag HEAP_SUMMARY) is a coarse live/allocated byte-and-count
// snapshot, independent of any HEAP_DUMP record.
type HeapSummary struct {
	LiveBytes        uint32
	LiveInstances    uint32
	AllocedBytes     uint64
	AllocedInstances uint64
}

// StartThread (tag START_THREAD) announces a thread observed by the VM.
type StartThread struct {
	ThreadSerial     SerialNum
	ThreadObjectID   ID
	StackTraceSerial SerialNum
	ThreadNameID     ID
	ThreadGroupNameID        ID
	ThreadParentGroupNameID  ID
}

// EndThread (tag END_THREAD) retires a previously started thread serial.
type EndThread struct {
	ThreadSerial SerialNum
}

// CPUSample is one stack trace's share of sampled CPU time.
type CPUSample struct {
	NumSamples       uint32
	StackTraceSerial SerialNum
}

// CPUSamples (tag CPU_SAMPLES) is a CPU-sampling profile: a total sample
// count plus per-trace sample counts.
type CPUSamples struct {
	TotalSamples uint32
	Samples      []CPUSample
}

// ControlSettings (tag CONTROL_SETTINGS) records tracing options in effect
// for the remainder of the stream.
type ControlSettings struct {
	Flags             uint32
	StackTraceDepth   uint16
}

// IsAllocTracesEnabled reports whether allocation-site tracing was active.
func (c ControlSettings) IsAllocTracesEnabled() bool {
	return c.Flags&ControlFlagAllocTraces != 0
}

// IsCPUSamplingEnabled reports whether CPU sampling was active.
func (c ControlSettings) IsCPUSamplingEnabled() bool {
	return c.Flags&ControlFlagCPUSampling != 0
}
