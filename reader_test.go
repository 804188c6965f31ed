package hprofstream

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mabhi256/hprofstream/internal/hprof/model"
	"github.com/mabhi256/hprofstream/internal/hprof/streambuf"
)

type byteSource struct {
	data []byte
	done bool
}

func (s *byteSource) Next(ctx context.Context) ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	return s.data, nil
}

func header(idSize byte) []byte {
	h := []byte("JAVA PROFILE 1.0.2\x00")
	h = append(h, 0, 0, 0, idSize)
	h = append(h, 0, 0, 0, 0, 0, 0, 0, 0)
	return h
}

func TestRead_HeaderOnlyStreamIsCleanEndOfStream(t *testing.T) {
	v := &Visitor{}
	var gotHeader model.Header
	v.Header = func(ctx context.Context, h model.Header) error {
		gotHeader = h
		return nil
	}
	err := Read(context.Background(), &byteSource{data: header(4)}, v, 0)
	require.NoError(t, err)
	require.Equal(t, uint8(4), gotHeader.IDSize)
}

func TestRead_UTF8RoundTrip(t *testing.T) {
	data := header(4)
	// UTF8 record: tag 1, time offset u4, length u4, then id(4)+"go"
	data = append(data, 0x01)
	data = append(data, 0, 0, 0, 0) // time offset
	data = append(data, 0, 0, 0, 6) // length = 4 (id) + 2 (text)
	data = append(data, 0, 0, 0, 7) // id
	data = append(data, 'g', 'o')

	var got model.UTF8Record
	v := &Visitor{
		UTF8: func(ctx context.Context, r model.UTF8Record) error {
			got = r
			return nil
		},
	}
	err := Read(context.Background(), &byteSource{data: data}, v, 0)
	require.NoError(t, err)
	require.Equal(t, model.ID(7), got.ID)
	require.Equal(t, "go", got.Text)
}

func TestRead_EOFAtOuterBoundaryIsNormal(t *testing.T) {
	data := header(4)
	data = append(data, 0x0B)       // END_THREAD
	data = append(data, 0, 0, 0, 0) // time offset
	data = append(data, 0, 0, 0, 4) // length 4
	data = append(data, 0, 0, 0, 9) // thread serial

	var called bool
	v := &Visitor{EndThread: func(ctx context.Context, r model.EndThread) error {
		called = true
		return nil
	}}
	err := Read(context.Background(), &byteSource{data: data}, v, 0)
	require.NoError(t, err)
	require.True(t, called)
}

func TestRead_RawFallbackFiresForKnownTagWithNoDedicatedCallback(t *testing.T) {
	// A visitor that registers only Raw (no per-tag callbacks) must still
	// receive every known top-level record through Raw, not have them
	// silently skipped: spec.md §4.3's opt-in-parsing escape hatch applies
	// to every tag, not just ones outside the closed tag space.
	data := header(4)
	data = append(data, 0x0B)       // END_THREAD
	data = append(data, 0, 0, 0, 0) // time offset
	data = append(data, 0, 0, 0, 4) // length 4
	data = append(data, 0, 0, 0, 9) // thread serial

	var gotFrame model.RecordFrame
	var gotBody []byte
	v := &Visitor{Raw: func(ctx context.Context, frame model.RecordFrame, body []byte) error {
		gotFrame = frame
		gotBody = body
		return nil
	}}
	err := Read(context.Background(), &byteSource{data: data}, v, 0)
	require.NoError(t, err)
	require.Equal(t, model.TagEndThread, gotFrame.Tag)
	require.Equal(t, []byte{0, 0, 0, 9}, gotBody)
}

func TestRead_TruncatedMidRecordHeaderIsUnderflow(t *testing.T) {
	data := header(4)
	data = append(data, 0x0B, 0, 0) // tag + 2 bytes of a 9-byte frame header, then nothing

	v := &Visitor{}
	err := Read(context.Background(), &byteSource{data: data}, v, 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, streambuf.ErrBufferUnderflow))
}

func TestRead_HeapDumpAccountingUnderflow(t *testing.T) {
	// HEAP_DUMP declares a 10-byte body: a full GC_ROOT_UNKNOWN (1 tag +
	// 4-byte id = 5 bytes) followed by a GC_ROOT_STICKY_CLASS tag whose
	// 4-byte id is cut short to 2 bytes before the stream ends — 8 bytes
	// actually present for a 10-byte declared body.
	data := header(4)
	data = append(data, 0x0C)        // HEAP_DUMP
	data = append(data, 0, 0, 0, 0)  // time offset
	data = append(data, 0, 0, 0, 10) // declared length
	data = append(data, 0xFF, 0, 0, 0, 1) // GC_ROOT_UNKNOWN, object id 1
	data = append(data, 0x05, 0, 0)       // GC_ROOT_STICKY_CLASS, id cut short at 2 of 4 bytes

	var sawRoot bool
	v := &Visitor{GCRootUnknown: func(ctx context.Context, r model.GCRootUnknown) error {
		sawRoot = true
		return nil
	}}
	err := Read(context.Background(), &byteSource{data: data}, v, 0)
	require.Error(t, err)
	require.True(t, sawRoot)
	require.True(t, errors.Is(err, streambuf.ErrBufferUnderflow))
}
