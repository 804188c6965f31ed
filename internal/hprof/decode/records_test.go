package decode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mabhi256/hprofstream/internal/hprof/model"
)

func TestUTF8_RoundTrip(t *testing.T) {
	// id (4 bytes) + "hi" (2 bytes) => bodyLen 6
	data := []byte{0, 0, 0, 42, 'h', 'i'}
	buf := newBuf(data)
	rec, err := UTF8(context.Background(), buf, 4, 6)
	require.NoError(t, err)
	require.Equal(t, model.ID(42), rec.ID)
	require.Equal(t, "hi", rec.Text)
}

func TestTrace_ReadsDeclaredFrameCount(t *testing.T) {
	data := []byte{
		0, 0, 0, 1, // trace serial
		0, 0, 0, 2, // thread serial
		0, 0, 0, 2, // num frames
		0, 0, 0, 0, 0, 0, 0, 10, // frame id 1 (idSize 8)
		0, 0, 0, 0, 0, 0, 0, 20, // frame id 2
	}
	buf := newBuf(data)
	tr, err := Trace(context.Background(), buf, 8)
	require.NoError(t, err)
	require.Equal(t, model.SerialNum(1), tr.StackTraceSerial)
	require.Equal(t, []model.ID{10, 20}, tr.FrameIDs)
}

func TestControlSettings(t *testing.T) {
	data := []byte{0, 0, 0, 3, 0, 5} // flags=3, depth=5
	buf := newBuf(data)
	cs, err := ControlSettings(context.Background(), buf)
	require.NoError(t, err)
	require.True(t, cs.IsAllocTracesEnabled())
	require.True(t, cs.IsCPUSamplingEnabled())
	require.Equal(t, uint16(5), cs.StackTraceDepth)
}

func TestCPUSamples(t *testing.T) {
	data := []byte{
		0, 0, 0, 10, // total samples
		0, 0, 0, 1, // num traces
		0, 0, 0, 7, // samples for trace
		0, 0, 0, 3, // trace serial
	}
	buf := newBuf(data)
	cs, err := CPUSamples(context.Background(), buf)
	require.NoError(t, err)
	require.Equal(t, uint32(10), cs.TotalSamples)
	require.Len(t, cs.Samples, 1)
	require.Equal(t, uint32(7), cs.Samples[0].NumSamples)
}
