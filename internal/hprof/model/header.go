package model

import "time"

// Header is the fixed prologue of an HPROF stream: a null-terminated ASCII
// format banner, the width of every ID on the wire, and the dump timestamp.
type Header struct {
	Format    string
	IDSize    uint8
	Timestamp time.Time
}

// RecordFrame is the common envelope shared by every top-level record:
// tag, microseconds since Header.Timestamp, and the declared body length
// in bytes. Length drives how many bytes the decoder must consume (or
// skip) before the next frame starts.
type RecordFrame struct {
	Tag              RecordTag
	TimeOffsetMicros uint32
	Length           uint32
}
