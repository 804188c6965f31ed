package model

// ValueKind discriminates the tagged union in Value.
type ValueKind byte

const (
	ValueObjectID ValueKind = iota
	ValueBoolean
	ValueChar
	ValueFloat
	ValueDouble
	ValueByte
	ValueShort
	ValueInt
	ValueLong
)

// Value is a decoded field/array element value of any FieldType. Numeric
// kinds are widened into Raw (as IEEE-754 bits for Float/Double); ObjectID
// values carry the raw identifier in Raw. Callers interested in a specific
// kind should switch on Kind and reinterpret Raw accordingly
// (math.Float32frombits, math.Float64frombits, sign-extension, ...).
type Value struct {
	Kind ValueKind
	Raw  uint64
}

// KindOf maps a wire FieldType to the Value union tag it decodes into.
func KindOf(t FieldType) (ValueKind, bool) {
	switch t {
	case FieldTypeNormalObject, FieldTypeArrayObject:
		return ValueObjectID, true
	case FieldTypeBoolean:
		return ValueBoolean, true
	case FieldTypeChar:
		return ValueChar, true
	case FieldTypeFloat:
		return ValueFloat, true
	case FieldTypeDouble:
		return ValueDouble, true
	case FieldTypeByte:
		return ValueByte, true
	case FieldTypeShort:
		return ValueShort, true
	case FieldTypeInt:
		return ValueInt, true
	case FieldTypeLong:
		return ValueLong, true
	default:
		return 0, false
	}
}
