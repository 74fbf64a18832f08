package nodel

import "fmt"

// Kind discriminates the closed set of value variants a Value can hold.
type Kind uint8

const (
	KindNone Kind = iota
	KindInt
	KindFloat
	KindSym
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindSym:
		return "sym"
	case KindRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Ref names a node by its slab handle. NullRef is the distinguished
// empty handle; a Ref either equals NullRef or names a currently live
// node (enforced by Graph, never by Ref itself).
type Ref uint64

// NullRef is the distinguished empty node handle.
const NullRef Ref = NullIndex

// Value is a tagged union of none, int, float, symbol, or node
// reference. The set is closed; there is no extension point, matching
// the source's exhaustive switch over a type tag.
type Value struct {
	kind Kind
	num  int64
	real float64
	sym  Sym
	ref  Ref
}

// None is the zero value: no payload, distinct from every other value.
var None = Value{kind: KindNone}

func Int(v int64) Value      { return Value{kind: KindInt, num: v} }
func Float(v float64) Value  { return Value{kind: KindFloat, real: v} }
func SymVal(v Sym) Value     { return Value{kind: KindSym, sym: v} }
func RefVal(v Ref) Value     { return Value{kind: KindRef, ref: v} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNone() bool { return v.kind == KindNone }

// Int returns the int payload and whether v held one.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.num, true
}

// Float returns the float payload and whether v held one.
func (v Value) Float() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.real, true
}

// Sym returns the symbol payload and whether v held one.
func (v Value) Sym() (Sym, bool) {
	if v.kind != KindSym {
		return NullSym, false
	}
	return v.sym, true
}

// Ref returns the node-reference payload and whether v held one.
func (v Value) Ref() (Ref, bool) {
	if v.kind != KindRef {
		return NullRef, false
	}
	return v.ref, true
}

// numEncoding returns the 64-bit numeric encoding used to compare
// INT/SYM/REF values by branch: REF and SYM are compared as their raw
// handle/packed form, INT as its bit pattern reinterpreted unsigned so
// ordering matches the source's plain `<`/`==` on the union's shared
// integer fields. Only valid for KindInt, KindSym, KindRef.
func (v Value) numEncoding() uint64 {
	switch v.kind {
	case KindInt:
		return uint64(v.num)
	case KindSym:
		return v.sym.pack()
	case KindRef:
		return uint64(v.ref)
	default:
		panic("nodel: numEncoding of non-numeric value")
	}
}

// String renders v the way the debug sink and print opcode do. This is
// not part of any wire format — purely for human inspection, matching
// ndl_value_to_string in the original.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "none"
	case KindInt:
		return fmt.Sprintf("int:%d", v.num)
	case KindFloat:
		return fmt.Sprintf("float:%g", v.real)
	case KindSym:
		return fmt.Sprintf("sym:%q", v.sym.String())
	case KindRef:
		if v.ref == NullRef {
			return "ref:null"
		}
		return fmt.Sprintf("ref:%d", v.ref)
	default:
		return "invalid"
	}
}
