package decode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeader_MinimalStream(t *testing.T) {
	data := []byte("JAVA PROFILE 1.0.2\x00")
	data = append(data, 0, 0, 0, 4) // idSize = 4
	data = append(data, 0, 0, 0, 0) // timestamp high
	data = append(data, 0, 0, 0, 0) // timestamp low

	buf := newBuf(data)
	h, err := Header(context.Background(), buf)
	require.NoError(t, err)
	require.Equal(t, "JAVA PROFILE 1.0.2", h.Format)
	require.Equal(t, uint8(4), h.IDSize)
}

func TestHeader_RejectsBadIDSize(t *testing.T) {
	data := []byte("X\x00")
	data = append(data, 0, 0, 0, 3) // idSize = 3, not valid
	data = append(data, 0, 0, 0, 0, 0, 0, 0, 0)

	buf := newBuf(data)
	_, err := Header(context.Background(), buf)
	require.Error(t, err)
	size, ok := IsIDSizeError(err)
	require.True(t, ok)
	require.Equal(t, uint8(3), size)
}

func TestHeader_AcceptsAllValidIDSizes(t *testing.T) {
	for _, sz := range []byte{1, 2, 4, 8} {
		data := []byte("X\x00")
		data = append(data, 0, 0, 0, sz)
		data = append(data, 0, 0, 0, 0, 0, 0, 0, 0)

		buf := newBuf(data)
		h, err := Header(context.Background(), buf)
		require.NoError(t, err)
		require.Equal(t, sz, h.IDSize)
	}
}
