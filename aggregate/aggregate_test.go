package aggregate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mabhi256/hprofstream/internal/hprof/model"
)

func TestPrimitiveArraySizing_ThreeInts(t *testing.T) {
	// Three int[] arrays of 1, 2, and 3 elements on a 4-byte-id dump:
	// header (4+8=12) + n*4 payload + 4 padding estimate each, per
	// spec.md §4.5's primitive-array formula.
	a := New(4)
	ctx := context.Background()

	for _, n := range []uint32{1, 2, 3} {
		require.NoError(t, a.OnPrimitiveArrayDump(ctx, model.GCPrimitiveArrayDump{
			ArrayObjectID: model.ID(n),
			NumElements:   n,
			ElementType:   model.FieldTypeInt,
		}))
	}

	entries := a.Entries()
	require.Len(t, entries, 1)
	e := entries[0]
	require.Equal(t, KindPrimitiveArray, e.Kind)
	require.Equal(t, "[I", e.Name)
	require.Equal(t, uint64(3), e.Count)
	require.Equal(t, int64((12+4+4)+(12+8+4)+(12+12+4)), e.TotalSize)
	// largestSize = align(arrayHeader + v*maxElementCount, idSize), no
	// padding term: align(12+12, 4) = 24 + 24%4 = 24.
	require.Equal(t, int64(24), e.LargestSize)
}

func TestPrimitiveArraySizing_MatchesSpecScenario(t *testing.T) {
	// spec.md §8 scenario 4, literally: idSize=8, one INT array of 3
	// elements. largestSize = align(16+12, 8) = 28 + 28%8 = 32.
	// totalSize = 16 + 12 + 4 = 32.
	a := New(8)
	ctx := context.Background()

	require.NoError(t, a.OnPrimitiveArrayDump(ctx, model.GCPrimitiveArrayDump{
		ArrayObjectID: 1, NumElements: 3, ElementType: model.FieldTypeInt,
	}))

	entries := a.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, int64(32), entries[0].TotalSize)
	require.Equal(t, int64(32), entries[0].LargestSize)
	require.Equal(t, "[I", entries[0].Name)
}

func TestInstanceSizing_WithSuperChain(t *testing.T) {
	// spec.md §8 scenario 5, literally: idSize=8, class A (instSize=8,
	// super=0), class B (instSize=16, super=A). Two instance dumps of B.
	// objectHeader = align(12, 8) = 16. size(B) = align(16+16+8, 8) = 40.
	a := New(8)
	ctx := context.Background()

	classA := model.ID(1)
	classB := model.ID(2)

	require.NoError(t, a.OnClassDump(ctx, model.ClassDump{
		ClassObjectID: classA, SuperClassObjectID: 0, InstanceSize: 8,
	}))
	require.NoError(t, a.OnClassDump(ctx, model.ClassDump{
		ClassObjectID: classB, SuperClassObjectID: classA, InstanceSize: 16,
	}))

	require.Equal(t, uint32(24), a.AncestorInstanceSize(classB))
	require.Equal(t, uint32(8), a.AncestorInstanceSize(classA))

	require.NoError(t, a.OnInstanceDump(ctx, model.GCInstanceDump{ObjectID: 10, ClassObjectID: classB}))
	require.NoError(t, a.OnInstanceDump(ctx, model.GCInstanceDump{ObjectID: 11, ClassObjectID: classB}))

	entries := a.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, uint64(2), entries[0].Count)
	require.Equal(t, int64(40), entries[0].LargestSize)
	require.Equal(t, int64(80), entries[0].TotalSize)
}

func TestInstanceSizing_UnknownClassIsSentinel(t *testing.T) {
	// An instance whose own class dump was never observed reports the
	// spec.md §4.5 -1 sentinel rather than a bogus zero size.
	a := New(8)
	ctx := context.Background()

	require.NoError(t, a.OnInstanceDump(ctx, model.GCInstanceDump{ObjectID: 1, ClassObjectID: 999}))

	entries := a.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, int64(-1), entries[0].TotalSize)
	require.Equal(t, int64(-1), entries[0].LargestSize)
}

func TestClassNameResolution(t *testing.T) {
	a := New(8)
	ctx := context.Background()

	nameID := model.ID(100)
	classID := model.ID(200)

	require.NoError(t, a.OnUTF8(ctx, model.UTF8Record{ID: nameID, Text: "com.example.Widget"}))
	require.NoError(t, a.OnLoadClass(ctx, model.LoadClass{ClassObjectID: classID, ClassNameID: nameID}))
	require.NoError(t, a.OnInstanceDump(ctx, model.GCInstanceDump{ObjectID: 1, ClassObjectID: classID, NumBytes: 16}))

	entries := a.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "com.example.Widget", entries[0].Name)
}

func TestClassNameResolutionSurvivesHeapDumpStart(t *testing.T) {
	// Resolution happens eagerly in OnLoadClass, so dropping the raw
	// strings table at OnHeapDumpStart (spec.md §4.5's "drop the strings
	// table" lifecycle point) must not lose already-resolved names.
	a := New(8)
	ctx := context.Background()

	nameID := model.ID(100)
	classID := model.ID(200)

	require.NoError(t, a.OnUTF8(ctx, model.UTF8Record{ID: nameID, Text: "com.example.Widget"}))
	require.NoError(t, a.OnLoadClass(ctx, model.LoadClass{ClassObjectID: classID, ClassNameID: nameID}))
	require.NoError(t, a.OnHeapDumpStart(ctx))
	require.NoError(t, a.OnInstanceDump(ctx, model.GCInstanceDump{ObjectID: 1, ClassObjectID: classID}))

	entries := a.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "com.example.Widget", entries[0].Name)
}

func TestCyclicSuperClassChainDoesNotHang(t *testing.T) {
	a := New(4)
	ctx := context.Background()

	classA := model.ID(1)
	classB := model.ID(2)
	require.NoError(t, a.OnClassDump(ctx, model.ClassDump{ClassObjectID: classA, SuperClassObjectID: classB, InstanceSize: 4}))
	require.NoError(t, a.OnClassDump(ctx, model.ClassDump{ClassObjectID: classB, SuperClassObjectID: classA, InstanceSize: 4}))

	require.NotPanics(t, func() {
		a.AncestorInstanceSize(classA)
	})
}
