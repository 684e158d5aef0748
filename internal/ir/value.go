package ir

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"cursive0/internal/types"
)

// ValueKind distinguishes the operand forms of the IR.
type ValueKind uint8

const (
	// ValueTemp is an SSA-like temporary, defined exactly once.
	ValueTemp ValueKind = iota
	// ValueLocal names a stack slot introduced by BindVar.
	ValueLocal
	// ValueSymbol references a global symbol (procedure, vtable, global).
	ValueSymbol
	// ValueImm is an immediate stored as little-endian bytes.
	ValueImm
)

func (k ValueKind) String() string {
	switch k {
	case ValueTemp:
		return "temp"
	case ValueLocal:
		return "local"
	case ValueSymbol:
		return "symbol"
	case ValueImm:
		return "imm"
	}
	return fmt.Sprintf("ValueKind(%d)", k)
}

// Value is an operand. Immediates carry their bit pattern in Bytes; a nil
// Bytes immediate of a zero-sized type is the unit value.
type Value struct {
	Kind  ValueKind
	Name  string
	Type  types.Type
	Bytes []byte
}

func Temp(name string, t types.Type) Value   { return Value{Kind: ValueTemp, Name: name, Type: t} }
func Local(name string, t types.Type) Value  { return Value{Kind: ValueLocal, Name: name, Type: t} }
func Symbol(name string, t types.Type) Value { return Value{Kind: ValueSymbol, Name: name, Type: t} }

// Imm copies b.
func Imm(t types.Type, b []byte) Value {
	return Value{Kind: ValueImm, Type: t, Bytes: append([]byte(nil), b...)}
}

// ImmInt encodes the low size bytes of v.
func ImmInt(t types.Type, v uint64, size uint64) Value {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	if size > 8 {
		out := make([]byte, size)
		copy(out, buf[:])
		return Value{Kind: ValueImm, Type: t, Bytes: out}
	}
	return Imm(t, buf[:size])
}

// ImmInt128 encodes a 128-bit magnitude.
func ImmInt128(t types.Type, hi, lo uint64) Value {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[:8], lo)
	binary.LittleEndian.PutUint64(out[8:], hi)
	return Value{Kind: ValueImm, Type: t, Bytes: out}
}

func ImmBool(v bool) Value {
	if v {
		return Imm(types.Bool, []byte{1})
	}
	return Imm(types.Bool, []byte{0})
}

func Unit() Value { return Value{Kind: ValueImm, Type: types.Unit} }

// Uint64 decodes an immediate that fits in 64 bits.
func (v Value) Uint64() (uint64, bool) {
	if v.Kind != ValueImm {
		return 0, false
	}
	for i := 8; i < len(v.Bytes); i++ {
		if v.Bytes[i] != 0 {
			return 0, false
		}
	}
	var buf [8]byte
	copy(buf[:], v.Bytes)
	return binary.LittleEndian.Uint64(buf[:]), true
}

// Words splits a little-endian immediate into 64-bit words, low first.
func (v Value) Words() []uint64 {
	n := (len(v.Bytes) + 7) / 8
	out := make([]uint64, n)
	for i := range out {
		var buf [8]byte
		copy(buf[:], v.Bytes[i*8:])
		out[i] = binary.LittleEndian.Uint64(buf[:])
	}
	return out
}

func (v Value) IsUnit() bool {
	return v.Kind == ValueImm && len(v.Bytes) == 0 && types.IsUnit(v.Type)
}

func (v Value) String() string {
	switch v.Kind {
	case ValueTemp:
		return "%" + v.Name
	case ValueLocal:
		return "$" + v.Name
	case ValueSymbol:
		return "@" + v.Name
	}
	if v.IsUnit() {
		return "()"
	}
	if types.IsBool(v.Type) && len(v.Bytes) == 1 {
		return fmt.Sprintf("%t", v.Bytes[0] != 0)
	}
	if u, ok := v.Uint64(); ok && len(v.Bytes) <= 8 {
		return fmt.Sprintf("%d:%s", u, v.Type)
	}
	return "0x" + hex.EncodeToString(v.Bytes) + ":" + v.Type.String()
}
