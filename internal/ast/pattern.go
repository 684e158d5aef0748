package ast

// Pattern is the sealed set of match patterns.
type Pattern interface {
	Any
	patternNode()
}

type WildcardPat struct{ Node }

type BindPat struct {
	Node
	Name string
}

type LitPat struct {
	Node
	Lit *Literal
}

// VariantPat matches an enum variant and binds its payload positionally.
type VariantPat struct {
	Node
	Variant string
	Binds   []string
}

// StatePat matches a modal state `@Open{fd}` and binds fields by name.
type StatePat struct {
	Node
	State string
	Binds []string
}

func (*WildcardPat) patternNode() {}
func (*BindPat) patternNode()     {}
func (*LitPat) patternNode()      {}
func (*VariantPat) patternNode()  {}
func (*StatePat) patternNode()    {}
