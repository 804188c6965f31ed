package decode

import (
	"context"

	"github.com/mabhi256/hprofstream/internal/hprof/model"
	"github.com/mabhi256/hprofstream/internal/hprof/streambuf"
)

// ID reads a single identifier, idSize bytes wide, widened to model.ID.
func ID(ctx context.Context, buf *streambuf.Buffer, idSize uint8) (model.ID, error) {
	v, err := buf.ReadID(ctx, idSize)
	return model.ID(v), err
}

// unsupportedTypeError lets the root package recognize and wrap a
// FieldType decode rejected for an unrecognized type code.
type unsupportedTypeError struct{ t byte }

func (e *unsupportedTypeError) Error() string {
	return "decode: unsupported field type"
}

func (e *unsupportedTypeError) Type() byte { return e.t }

// Value reads one value of field type t — idSize wide for object types,
// fixed-width for primitives — and returns it as a model.Value tagged
// union. Returns an *unsupportedTypeError for an unrecognized t.
func Value(ctx context.Context, buf *streambuf.Buffer, t model.FieldType, idSize uint8) (model.Value, error) {
	kind, ok := model.KindOf(t)
	if !ok {
		return model.Value{}, &unsupportedTypeError{t: byte(t)}
	}

	switch t {
	case model.FieldTypeNormalObject, model.FieldTypeArrayObject:
		v, err := buf.ReadID(ctx, idSize)
		return model.Value{Kind: kind, Raw: v}, err
	case model.FieldTypeBoolean, model.FieldTypeByte:
		v, err := buf.U8(ctx)
		return model.Value{Kind: kind, Raw: uint64(v)}, err
	case model.FieldTypeChar, model.FieldTypeShort:
		v, err := buf.U16(ctx)
		return model.Value{Kind: kind, Raw: uint64(v)}, err
	case model.FieldTypeInt:
		v, err := buf.U32(ctx)
		return model.Value{Kind: kind, Raw: uint64(v)}, err
	case model.FieldTypeFloat:
		v, err := buf.U32(ctx)
		return model.Value{Kind: kind, Raw: uint64(v)}, err
	case model.FieldTypeLong:
		v, err := buf.U64(ctx)
		return model.Value{Kind: kind, Raw: v}, err
	case model.FieldTypeDouble:
		v, err := buf.U64(ctx)
		return model.Value{Kind: kind, Raw: v}, err
	default:
		return model.Value{}, &unsupportedTypeError{t: byte(t)}
	}
}

// ValueSize reports the on-wire width of a field type, or an
// *unsupportedTypeError for an unrecognized one.
func ValueSize(t model.FieldType, idSize uint8) (int, error) {
	n, ok := t.Size(idSize)
	if !ok {
		return 0, &unsupportedTypeError{t: byte(t)}
	}
	return n, nil
}

// IsUnsupportedTypeError reports whether err was produced by Value or
// ValueSize rejecting an unrecognized field type code.
func IsUnsupportedTypeError(err error) (t byte, ok bool) {
	e, ok := err.(*unsupportedTypeError)
	if !ok {
		return 0, false
	}
	return e.Type(), true
}
