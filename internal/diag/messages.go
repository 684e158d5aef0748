package diag

// Messages maps diagnostic codes to human-readable text. The checker only
// consults it; wording lives outside the core.
type Messages interface {
	Message(code Code) string
}

// MessageTable is a Messages backed by a map keyed by stable id.
type MessageTable map[string]string

func (t MessageTable) Message(code Code) string {
	if msg, ok := t[code.ID()]; ok {
		return msg
	}
	return code.ID()
}

// Format renders the message for code followed by an optional detail.
func Format(m Messages, code Code, detail string) string {
	msg := code.ID()
	if m != nil {
		msg = m.Message(code)
	}
	if detail == "" {
		return msg
	}
	return msg + ": " + detail
}

// DefaultMessages is the built-in English table.
var DefaultMessages = MessageTable{
	"E0000": "unknown error",

	"Enum-Disc-Dup":        "duplicate enum discriminant",
	"Enum-Disc-NotInt":     "enum discriminant must be an integer literal",
	"Enum-Disc-Negative":   "enum discriminant must not be negative",
	"Enum-Disc-Invalid":    "enum discriminant out of range",
	"Layout-Unknown":       "layout of type is unknown",
	"Layout-Attr-Conflict": "packed conflicts with align",

	"TypeAlias-Recursive-Err": "type alias is recursive",
	"Type-Unknown-Path":       "unknown type",
	"Type-WF-Err":             "type is not well-formed",
	"Type-Generic-Arity-Err":  "wrong number of generic arguments",
	"Type-Array-Len-Err":      "array length is not a compile-time constant",
	"Modal-State-Unknown":     "unknown modal state",
	"Type-Refine-Pred-Err":    "refinement predicate is invalid",
	"Decl-Dup":                "duplicate declaration",
	"Record-Field-Dup":        "duplicate record field",
	"Enum-Variant-Dup":        "duplicate enum variant",
	"Modal-State-Dup":         "duplicate modal state",
	"Attr-Unknown":            "unknown attribute",
	"Attr-Target-Err":         "attribute is not allowed here",

	"Intro-Dup":                      "name is already bound in this scope",
	"Intro-Shadow-Required":          "name shadows an outer binding; use shadow",
	"Intro-Reserved":                 "identifier uses a reserved prefix",
	"Shadow-Unbound":                 "shadow of a name that is not bound",
	"Ident-Unbound":                  "unbound identifier",
	"ValueUse-NonBitcopyPlace":       "value of non-Bitcopy type used by copy",
	"Chk-Null-Ptr":                   "null pointer literal does not match expected type",
	"PtrNull-Infer-Err":              "cannot infer type of null pointer literal",
	"Chk-Subsumption-Modal-NonNiche": "modal value without niche layout cannot widen to its general type",
	"E-TYP-1953":                     "refinement predicate is not provable",
	"Chk-Subsumption-Err":            "mismatched types",
	"Literal-Overflow":               "literal out of range for its type",
	"Literal-Suffix-Err":             "unknown literal suffix",
	"Binary-Operand-Err":             "invalid operands to binary operator",
	"Unary-Operand-Err":              "invalid operand to unary operator",
	"Cond-Not-Bool":                  "condition must be bool",
	"Cast-Err":                       "invalid cast",
	"Call-Arity-Err":                 "wrong number of arguments",
	"Call-Callee-Err":                "callee is not callable",
	"Call-Move-Missing":              "argument for move parameter must be moved",
	"Call-Move-Unexpected":           "argument is moved into a non-move parameter",
	"Method-Unknown":                 "unknown method",
	"Field-Unknown":                  "unknown field",
	"Modal-Field-NoState":            "field access on modal value requires a known state",
	"Index-Err":                      "invalid index expression",
	"Assign-Immutable":               "cannot assign to immutable binding",
	"Record-Lit-Err":                 "invalid record literal",
	"Block-Result-Unify-Err":         "result statements have different types",
	"Result-Unreachable":             "result statement is not the last statement of its block",
	"Loop-Break-Unify-Err":           "break values have different types",
	"Break-Outside-Loop":             "break outside of a loop",
	"Continue-Outside-Loop":          "continue outside of a loop",
	"Loop-Break-Value-Err":           "break with a value is only allowed in an infinite loop",
	"Loop-Iter-Err":                  "expression is not iterable",
	"If-Branch-Unify-Err":            "if branches have different types",
	"Match-Arm-Unify-Err":            "match arms have different types",
	"Match-Pattern-Err":              "pattern does not match scrutinee type",
	"AllocRaw-Unsafe-Err":            "alloc_raw requires an unsafe block",
	"AllocRaw-Recv-Err":              "alloc_raw receiver must be const HeapAllocator",
	"AllocRaw-Arity-Err":             "alloc_raw takes exactly one argument",
	"AllocRaw-Arg-Place-Err":         "alloc_raw argument must be a place expression",
	"AllocRaw-Arg-Type-Err":          "alloc_raw argument must convert to usize",
	"Return-Type-Err":                "returned value does not match the declared return type",
	"Return-Outside-Proc":            "return outside of a procedure",
	"WF-ProcBody-ExplicitReturn-Err": "procedure body must end with a tail expression or return",
	"Const-Len-Err":                  "length is not a compile-time constant",

	"E-SEM-2801": "precondition must not reference @result",
	"E-SEM-2802": "precondition must not reference @entry",
	"E-SEM-2803": "contract predicate must be pure",
	"E-SEM-2804": "contract predicate must be bool",
	"E-SEM-2850": "postcondition is not provable at this return",
	"E-SEM-2851": "precondition of callee is not provable",
	"E-SEM-2852": "implementation precondition is stronger than the class contract",
	"E-SEM-2853": "implementation postcondition is weaker than the class contract",
	"E-SEM-2855": "loop invariant is not provable on entry",

	"Lower-Unsupported": "construct is not supported by the IR lowering",
	"Codegen-Failure":   "code generation failed",
	"ABI-Classify-Err":  "call ABI classification failed",

	"Project-Config-Err": "invalid project configuration",
	"Cache-IO-Err":       "diagnostic cache unavailable",
}
