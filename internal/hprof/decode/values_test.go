package decode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mabhi256/hprofstream/internal/hprof/model"
)

func TestValue_AllFieldTypes(t *testing.T) {
	cases := []struct {
		name   string
		t      model.FieldType
		data   []byte
		idSize uint8
		want   uint64
	}{
		{"object", model.FieldTypeNormalObject, []byte{0, 0, 0, 1, 0, 0, 0, 2}, 8, 0x0000000100000002},
		{"boolean", model.FieldTypeBoolean, []byte{1}, 4, 1},
		{"char", model.FieldTypeChar, []byte{0, 65}, 4, 65},
		{"int", model.FieldTypeInt, []byte{0, 0, 1, 0}, 4, 256},
		{"long", model.FieldTypeLong, []byte{0, 0, 0, 0, 0, 0, 0, 9}, 4, 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := newBuf(tc.data)
			v, err := Value(context.Background(), buf, tc.t, tc.idSize)
			require.NoError(t, err)
			require.Equal(t, tc.want, v.Raw)
		})
	}
}

func TestValue_UnsupportedType(t *testing.T) {
	buf := newBuf([]byte{0})
	_, err := Value(context.Background(), buf, model.FieldType(0x99), 4)
	require.Error(t, err)
	typ, ok := IsUnsupportedTypeError(err)
	require.True(t, ok)
	require.Equal(t, byte(0x99), typ)
}

func TestValueSize_MatchesWireWidths(t *testing.T) {
	sz, err := ValueSize(model.FieldTypeDouble, 4)
	require.NoError(t, err)
	require.Equal(t, 8, sz)

	sz, err = ValueSize(model.FieldTypeArrayObject, 8)
	require.NoError(t, err)
	require.Equal(t, 8, sz)
}
