package bytecode

import (
	"fmt"
	"strconv"
)

// ObjectKind identifies a heap object variant.
type ObjectKind uint8

const (
	ObjString ObjectKind = iota + 1
)

func (k ObjectKind) String() string {
	switch k {
	case ObjString:
		return "string"
	default:
		return fmt.Sprintf("ObjectKind(%d)", k)
	}
}

// Object is a heap-allocated datum owned by an ObjectTable.
// The set of implementations is closed.
type Object interface {
	Kind() ObjectKind
	object()
}

// StringObject holds immutable string data.
type StringObject struct {
	Chars string
}

func (*StringObject) Kind() ObjectKind { return ObjString }
func (*StringObject) object()          {}

// ObjectTable owns every heap object referenced by the Values of one
// compiled unit. Values refer to objects by index only.
//
// Strings are interned: the same text always yields the same index, which
// is what makes index comparison a valid string equality.
type ObjectTable struct {
	objects []Object
	strings map[string]uint32
}

// NewObjectTable returns an empty table.
func NewObjectTable() *ObjectTable {
	return &ObjectTable{strings: make(map[string]uint32)}
}

// InternString returns an object Value for s, allocating a new StringObject
// only if the text has not been seen before.
func (t *ObjectTable) InternString(s string) Value {
	if ref, ok := t.strings[s]; ok {
		return ObjectValue(ref)
	}
	ref := uint32(len(t.objects))
	t.objects = append(t.objects, &StringObject{Chars: s})
	t.strings[s] = ref
	return ObjectValue(ref)
}

// Get returns the object at ref.
func (t *ObjectTable) Get(ref uint32) (Object, bool) {
	if t == nil || int(ref) >= len(t.objects) {
		return nil, false
	}
	return t.objects[ref], true
}

// Len returns the number of objects in the table.
func (t *ObjectTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.objects)
}

// Strings returns the text of every string object in index order.
func (t *ObjectTable) Strings() []string {
	out := make([]string, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if s, ok := t.objects[i].(*StringObject); ok {
			out = append(out, s.Chars)
		}
	}
	return out
}

// Contains reports whether v is either a primitive or a reference that
// resolves in this table.
func (t *ObjectTable) Contains(v Value) bool {
	if !v.IsObject() {
		return true
	}
	_, ok := t.Get(v.AsObject())
	return ok
}

// Format renders v for display, resolving string references.
func (t *ObjectTable) Format(v Value) string {
	if !v.IsObject() {
		return v.String()
	}
	obj, ok := t.Get(v.AsObject())
	if !ok {
		return v.String()
	}
	switch o := obj.(type) {
	case *StringObject:
		return o.Chars
	}
	return v.String()
}

// Quote renders v like Format but quotes strings.
func (t *ObjectTable) Quote(v Value) string {
	if obj, ok := t.Get(v.AsObject()); ok && v.IsObject() {
		if s, ok := obj.(*StringObject); ok {
			return strconv.Quote(s.Chars)
		}
	}
	return t.Format(v)
}
