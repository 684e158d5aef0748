package types

// Permission qualifies a type with its aliasing discipline.
type Permission uint8

const (
	PermConst Permission = iota + 1
	PermUnique
	PermShared
)

func (p Permission) String() string {
	switch p {
	case PermConst:
		return "const"
	case PermUnique:
		return "unique"
	case PermShared:
		return "shared"
	}
	return "?"
}

// PermSub is the permission lattice: unique <= unique, const <= const,
// unique <= const. Nothing else holds, shared included.
func PermSub(a, b Permission) bool {
	switch {
	case a == PermUnique && b == PermUnique:
		return true
	case a == PermConst && b == PermConst:
		return true
	case a == PermUnique && b == PermConst:
		return true
	}
	return false
}

// StripPerm removes an outer permission qualifier.
func StripPerm(t Type) Type {
	if p, ok := t.(*Perm); ok {
		return p.Base
	}
	return t
}

// PermOf returns the outer permission of t. Unqualified types read as const.
func PermOf(t Type) Permission {
	if p, ok := t.(*Perm); ok {
		return p.Perm
	}
	return PermConst
}
