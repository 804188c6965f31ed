package streambuf

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// sliceSource hands back chunks of a fixed size from a backing slice, then
// io.EOF, mimicking a network read that doesn't align with record
// boundaries.
type sliceSource struct {
	data      []byte
	chunkSize int
	pos       int
}

func (s *sliceSource) Next(ctx context.Context) ([]byte, error) {
	if s.pos >= len(s.data) {
		return nil, io.EOF
	}
	end := s.pos + s.chunkSize
	if end > len(s.data) {
		end = len(s.data)
	}
	chunk := s.data[s.pos:end]
	s.pos = end
	return chunk, nil
}

func TestBuffer_ReadsAcrossChunkBoundaries(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	for _, chunkSize := range []int{1, 2, 3, 8, 100} {
		buf := New(&sliceSource{data: data, chunkSize: chunkSize})
		ctx := context.Background()

		got, err := buf.U32(ctx)
		require.NoError(t, err)
		require.Equal(t, uint32(0x00010203), got)

		got2, err := buf.U32(ctx)
		require.NoError(t, err)
		require.Equal(t, uint32(0x04050607), got2)

		require.Equal(t, int64(8), buf.BytesRead())
	}
}

func TestBuffer_CleanEndOfStream(t *testing.T) {
	buf := New(&sliceSource{data: []byte{}, chunkSize: 4})
	_, err := buf.U8(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestBuffer_UnderflowWhenPartialDataAvailable(t *testing.T) {
	// 9 bytes available, record declares a 10-byte body: underflow, not EOF.
	buf := New(&sliceSource{data: make([]byte, 9), chunkSize: 9})
	ctx := context.Background()
	_, err := buf.Get(ctx, 10)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrBufferUnderflow))
	require.False(t, errors.Is(err, io.EOF))
}

func TestBuffer_GetAliasesUntilNextRead(t *testing.T) {
	buf := New(&sliceSource{data: []byte{0xAA, 0xBB, 0xCC, 0xDD}, chunkSize: 4})
	ctx := context.Background()

	first, err := buf.Get(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA, 0xBB}, first)

	cp, err := buf.GetCopy(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{0xCC, 0xDD}, cp)
}

func TestBuffer_Skip(t *testing.T) {
	buf := New(&sliceSource{data: []byte{1, 2, 3, 4, 5}, chunkSize: 2})
	ctx := context.Background()
	require.NoError(t, buf.Skip(ctx, 3))
	v, err := buf.U8(ctx)
	require.NoError(t, err)
	require.Equal(t, uint8(4), v)
}

func TestBuffer_ReadID_AllWidths(t *testing.T) {
	cases := []struct {
		idSize uint8
		data   []byte
		want   uint64
	}{
		{1, []byte{0x7F}, 0x7F},
		{2, []byte{0x01, 0x02}, 0x0102},
		{4, []byte{0x01, 0x02, 0x03, 0x04}, 0x01020304},
		{8, []byte{0, 0, 0, 1, 0, 0, 0, 2}, 0x0000000100000002},
	}
	for _, tc := range cases {
		buf := New(&sliceSource{data: tc.data, chunkSize: len(tc.data)})
		got, err := buf.ReadID(context.Background(), tc.idSize)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
}
