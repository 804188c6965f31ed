package decode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mabhi256/hprofstream/internal/hprof/model"
)

func TestGCRootThreadObj(t *testing.T) {
	data := []byte{
		0, 0, 0, 1, // object id (idSize 4)
		0, 0, 0, 2, // thread serial
		0, 0, 0, 3, // stack trace serial
	}
	buf := newBuf(data)
	r, err := GCRootThreadObj(context.Background(), buf, 4)
	require.NoError(t, err)
	require.Equal(t, model.ID(1), r.ThreadObjectID)
	require.Equal(t, model.SerialNum(2), r.ThreadSerial)
}

func TestSkipGCRootFixed_ConsumesExactWidth(t *testing.T) {
	// GC_ROOT_JNI_LOCAL: id + u4 + i4, idSize 8 => 8 + 4 + 4 = 16 bytes.
	data := make([]byte, 16)
	buf := newBuf(data)
	require.NoError(t, SkipGCRootFixed(context.Background(), buf, 8, model.SubTagGCRootJNILocal))
	require.Equal(t, int64(16), buf.BytesRead())
}

func TestSkipGCRootFixed_JNIGlobalSecondFieldIsIDWidth(t *testing.T) {
	// GC_ROOT_JNI_GLOBAL is id, id (spec.md §4.4: consumed = 1 + 2·id),
	// not id + u4 — at idSize 8 that's 16 bytes of fixed fields, not 12.
	data := make([]byte, 16)
	buf := newBuf(data)
	require.NoError(t, SkipGCRootFixed(context.Background(), buf, 8, model.SubTagGCRootJNIGlobal))
	require.Equal(t, int64(16), buf.BytesRead())

	// A trailing byte belonging to the next sub-record must survive
	// untouched: skipping must not over-consume either.
	data2 := append(make([]byte, 16), 0xAB)
	buf2 := newBuf(data2)
	require.NoError(t, SkipGCRootFixed(context.Background(), buf2, 8, model.SubTagGCRootJNIGlobal))
	require.Equal(t, int64(16), buf2.BytesRead())
	next, err := buf2.U8(context.Background())
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), next)
}

func TestPrimitiveArrayDump_OneIntArrayOfThree(t *testing.T) {
	// array id(4) + stack serial(4) + numElements(4)=3 + elemType(1)=int + 3*4 bytes
	data := []byte{
		0, 0, 0, 1,
		0, 0, 0, 0,
		0, 0, 0, 3,
		byte(model.FieldTypeInt),
		0, 0, 0, 1,
		0, 0, 0, 2,
		0, 0, 0, 3,
	}
	buf := newBuf(data)
	dump, err := PrimitiveArrayDump(context.Background(), buf, 4, false)
	require.NoError(t, err)
	require.Equal(t, uint32(3), dump.NumElements)
	require.Equal(t, model.FieldTypeInt, dump.ElementType)
	require.Len(t, dump.Elements, 12)
}

func TestPrimitiveArrayDump_SkipValuesOmitsElements(t *testing.T) {
	data := []byte{
		0, 0, 0, 1,
		0, 0, 0, 0,
		0, 0, 0, 2,
		byte(model.FieldTypeByte),
		7, 8,
	}
	buf := newBuf(data)
	dump, err := PrimitiveArrayDump(context.Background(), buf, 4, true)
	require.NoError(t, err)
	require.Nil(t, dump.Elements)
	require.Equal(t, uint32(2), dump.NumElements)
}

func TestClassDump_ReservedFieldsSurfaced(t *testing.T) {
	data := []byte{}
	idSize := uint8(4)
	put4 := func(v uint32) {
		data = append(data, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	put4(1) // class object id
	put4(0) // stack trace serial
	put4(0) // super class id
	put4(0) // class loader id
	put4(0) // signers id
	put4(0) // protection domain id
	put4(0xAA) // reserved1
	put4(0xBB) // reserved2
	put4(0)    // instance size
	data = append(data, 0, 0) // constant pool count = 0
	data = append(data, 0, 0) // static field count = 0
	data = append(data, 0, 0) // instance field count = 0

	buf := newBuf(data)
	cd, err := ClassDump(context.Background(), buf, idSize, false)
	require.NoError(t, err)
	require.Equal(t, model.ID(0xAA), cd.Reserved1)
	require.Equal(t, model.ID(0xBB), cd.Reserved2)
}
