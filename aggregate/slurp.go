package aggregate

import (
	"context"

	"github.com/mabhi256/hprofstream"
	"github.com/mabhi256/hprofstream/internal/hprof/model"
)

// Bind registers the Aggregator's callbacks on v, overwriting any of the
// UTF8/LoadClass/HeapDumpStart/ClassDump/InstanceDump/ObjectArrayDump/
// PrimitiveArrayDump fields already set. Callers who need those
// callbacks for something else too should compose manually instead of
// calling Bind.
func (a *Aggregator) Bind(v *hprofstream.Visitor) {
	v.UTF8 = a.OnUTF8
	v.LoadClass = a.OnLoadClass
	v.HeapDumpStart = a.OnHeapDumpStart
	v.ClassDump = a.OnClassDump
	v.InstanceDump = a.OnInstanceDump
	v.ObjectArrayDump = a.OnObjectArrayDump
	v.PrimitiveArrayDump = a.OnPrimitiveArrayDump
}

// Slurp runs a complete streaming aggregation pass over src and returns
// the final per-class/per-array-type report. It reads the header itself
// to learn the stream's identifier size before constructing the
// Aggregator, since instance and array sizing both depend on it.
func Slurp(ctx context.Context, src hprofstream.ChunkSource, flags hprofstream.Flags, opts ...Option) ([]Entry, error) {
	var agg *Aggregator
	v := &hprofstream.Visitor{
		Header: func(ctx context.Context, h model.Header) error {
			agg = New(h.IDSize, opts...)
			agg.Bind(v)
			return nil
		},
	}
	if err := hprofstream.Read(ctx, src, v, flags); err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, nil
	}
	return agg.Entries(), nil
}
