package types

func primName(t Type) (string, bool) {
	p, ok := StripPerm(t).(*Prim)
	if !ok {
		return "", false
	}
	return p.Name, true
}

// IsPrim reports whether t (ignoring permission) is the primitive name.
func IsPrim(t Type, name string) bool {
	n, ok := primName(t)
	return ok && n == name
}

func IsUnit(t Type) bool  { return IsPrim(t, "()") }
func IsNever(t Type) bool { return IsPrim(t, "!") }
func IsBool(t Type) bool  { return IsPrim(t, "bool") }

// IsInteger covers every fixed and pointer-sized integer.
func IsInteger(t Type) bool {
	n, ok := primName(t)
	if !ok {
		return false
	}
	switch n {
	case "i8", "i16", "i32", "i64", "i128", "isize",
		"u8", "u16", "u32", "u64", "u128", "usize":
		return true
	}
	return false
}

func IsSigned(t Type) bool {
	n, ok := primName(t)
	if !ok {
		return false
	}
	switch n {
	case "i8", "i16", "i32", "i64", "i128", "isize":
		return true
	}
	return false
}

func IsFloat(t Type) bool {
	n, ok := primName(t)
	return ok && (n == "f16" || n == "f32" || n == "f64")
}

func IsNumeric(t Type) bool { return IsInteger(t) || IsFloat(t) }

// IntBits returns the bit width of an integer type. Pointer-sized integers
// take ptrBits.
func IntBits(t Type, ptrBits uint64) uint64 {
	n, _ := primName(t)
	switch n {
	case "i8", "u8":
		return 8
	case "i16", "u16":
		return 16
	case "i32", "u32":
		return 32
	case "i64", "u64":
		return 64
	case "i128", "u128":
		return 128
	case "isize", "usize":
		return ptrBits
	}
	return 0
}

// FloatBits returns 16/32/64 for floats, 0 otherwise.
func FloatBits(t Type) uint64 {
	n, _ := primName(t)
	switch n {
	case "f16":
		return 16
	case "f32":
		return 32
	case "f64":
		return 64
	}
	return 0
}

// StripRefine peels refinements and permissions down to the carrier type.
func StripRefine(t Type) Type {
	for {
		switch x := t.(type) {
		case *Perm:
			t = x.Base
		case *Refine:
			t = x.Base
		default:
			return t
		}
	}
}
