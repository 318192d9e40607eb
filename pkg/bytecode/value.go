package bytecode

import (
	"fmt"
	"math"
	"strconv"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindNil ValueKind = iota
	KindBool
	KindInteger
	KindDouble
	KindObject
)

var valueKindNames = [...]string{
	KindNil:     "nil",
	KindBool:    "bool",
	KindInteger: "integer",
	KindDouble:  "double",
	KindObject:  "object",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return fmt.Sprintf("ValueKind(%d)", k)
}

// Value is a runtime datum: a closed tagged union over nil, booleans,
// 64-bit integers, 64-bit doubles and object references.
//
// Primitive payloads are stored inline in bits. Object values carry only an
// index into an ObjectTable; the table owns the object, the Value never does.
// Values are plain data and are copied freely.
//
// The zero Value is nil.
type Value struct {
	kind ValueKind
	bits uint64
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NilValue returns the nil value.
func NilValue() Value {
	return Value{}
}

// BoolValue wraps a boolean.
func BoolValue(b bool) Value {
	if b {
		return Value{kind: KindBool, bits: 1}
	}
	return Value{kind: KindBool}
}

// IntValue wraps a signed 64-bit integer.
func IntValue(i int64) Value {
	return Value{kind: KindInteger, bits: uint64(i)}
}

// DoubleValue wraps a 64-bit float.
func DoubleValue(f float64) Value {
	return Value{kind: KindDouble, bits: math.Float64bits(f)}
}

// ObjectValue references slot ref of an ObjectTable.
func ObjectValue(ref uint32) Value {
	return Value{kind: KindObject, bits: uint64(ref)}
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsInt() bool    { return v.kind == KindInteger }
func (v Value) IsDouble() bool { return v.kind == KindDouble }
func (v Value) IsObject() bool { return v.kind == KindObject }

// IsNumber reports whether v is an integer or a double.
func (v Value) IsNumber() bool {
	return v.kind == KindInteger || v.kind == KindDouble
}

// AsBool returns the boolean payload. Only meaningful when IsBool.
func (v Value) AsBool() bool { return v.bits != 0 }

// AsInt returns the integer payload. Only meaningful when IsInt.
func (v Value) AsInt() int64 { return int64(v.bits) }

// AsDouble returns the float payload. Only meaningful when IsDouble.
func (v Value) AsDouble() float64 { return math.Float64frombits(v.bits) }

// AsObject returns the object table index. Only meaningful when IsObject.
func (v Value) AsObject() uint32 { return uint32(v.bits) }

// IsFalsey applies the language's falsiness rule: nil and false are false,
// every other value is true.
func (v Value) IsFalsey() bool {
	return v.kind == KindNil || (v.kind == KindBool && v.bits == 0)
}

// Equal reports structural equality: the tags must match and so must the
// payloads. Doubles compare numerically, so NaN is unequal to itself and
// 0.0 equals -0.0. Objects compare by table index; strings are interned, so
// equal text means equal index.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	if v.kind == KindDouble {
		return v.AsDouble() == other.AsDouble()
	}
	return v.bits == other.bits
}

// String formats v without resolving object references. Use
// ObjectTable.Format to print strings.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.AsBool())
	case KindInteger:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindDouble:
		return strconv.FormatFloat(v.AsDouble(), 'g', -1, 64)
	case KindObject:
		return fmt.Sprintf("<object #%d>", v.AsObject())
	}
	return fmt.Sprintf("<invalid %s>", v.kind)
}
