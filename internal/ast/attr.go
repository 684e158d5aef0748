package ast

import "cursive0/internal/source"

// Attr описывает атрибут вида `@[name(args...)]`.
type Attr struct {
	Name string
	Args []Expr
	Span source.Span
}

// FindAttr returns the first attribute named name.
func FindAttr(list []Attr, name string) (Attr, bool) {
	for _, a := range list {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}
