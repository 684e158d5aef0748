package diag

type Code uint16

const (
	UnknownCode Code = 0

	// Layout and enum discriminants
	EnumDiscDup        Code = 1001
	EnumDiscNotInt     Code = 1002
	EnumDiscNegative   Code = 1003
	EnumDiscInvalid    Code = 1004
	LayoutUnknown      Code = 1010
	LayoutAttrConflict Code = 1011

	// Type lowering and well-formedness
	TypeAliasRecursive Code = 2001
	TypeUnknownPath    Code = 2002
	TypeWF             Code = 2003
	TypeGenericArity   Code = 2004
	TypeArrayLen       Code = 2005
	ModalStateUnknown  Code = 2006
	TypeRefinePred     Code = 2007
	DeclDup            Code = 2010
	RecordFieldDup     Code = 2011
	EnumVariantDup     Code = 2012
	ModalStateDup      Code = 2013
	AttrUnknown        Code = 2020
	AttrTarget         Code = 2021

	// Bidirectional checker
	IntroDup               Code = 3001
	IntroShadowRequired    Code = 3002
	IntroReserved          Code = 3003
	ShadowUnbound          Code = 3004
	IdentUnbound           Code = 3005
	ValueUseNonBitcopy     Code = 3006
	ChkNullPtr             Code = 3010
	PtrNullInfer           Code = 3011
	ChkSubsumptionModal    Code = 3012
	RefineUnprovable       Code = 3013
	SubtypeMismatch        Code = 3014
	LiteralOverflow        Code = 3020
	LiteralSuffix          Code = 3021
	BinaryOperand          Code = 3022
	UnaryOperand           Code = 3023
	CondNotBool            Code = 3024
	CastInvalid            Code = 3025
	CallArity              Code = 3030
	CallCallee             Code = 3031
	CallMoveMissing        Code = 3032
	CallMoveUnexpected     Code = 3033
	MethodUnknown          Code = 3034
	FieldUnknown           Code = 3035
	ModalFieldNoState      Code = 3036
	IndexInvalid           Code = 3037
	AssignImmutable        Code = 3038
	RecordLitInvalid       Code = 3039
	BlockResultUnify       Code = 3040
	ResultUnreachable      Code = 3041
	LoopBreakUnify         Code = 3042
	BreakOutsideLoop       Code = 3043
	ContinueOutsideLoop    Code = 3044
	LoopBreakValue         Code = 3045
	LoopIter               Code = 3046
	IfBranchUnify          Code = 3047
	MatchArmUnify          Code = 3048
	MatchPattern           Code = 3049
	AllocRawUnsafe         Code = 3050
	AllocRawRecv           Code = 3051
	AllocRawArity          Code = 3052
	AllocRawArgPlace       Code = 3053
	AllocRawArgType        Code = 3054
	ReturnType             Code = 3060
	ReturnOutsideProc      Code = 3061
	ProcBodyExplicitReturn Code = 3062
	ConstLenInvalid        Code = 3063

	// Contracts and static verification
	ContractPreResult   Code = 4001 // E-SEM-2801
	ContractPreEntry    Code = 4002 // E-SEM-2802
	ContractImpure      Code = 4003 // E-SEM-2803
	ContractNotBool     Code = 4004 // E-SEM-2804
	PostUnprovable      Code = 4050 // E-SEM-2850
	PreUnprovable       Code = 4051 // E-SEM-2851
	ImplPreStronger     Code = 4052 // E-SEM-2852
	ImplPostWeaker      Code = 4053 // E-SEM-2853
	InvariantUnprovable Code = 4055 // E-SEM-2855

	// Lowering and code generation
	LowerUnsupported Code = 5001
	CodegenFailure   Code = 5002
	ABIClassify      Code = 5003

	// Project and driver
	ProjectConfig Code = 6001
	CacheIO       Code = 6002
)

// codeIDs holds the stable identifiers used by tests and message tables.
var codeIDs = map[Code]string{
	UnknownCode: "E0000",

	EnumDiscDup:        "Enum-Disc-Dup",
	EnumDiscNotInt:     "Enum-Disc-NotInt",
	EnumDiscNegative:   "Enum-Disc-Negative",
	EnumDiscInvalid:    "Enum-Disc-Invalid",
	LayoutUnknown:      "Layout-Unknown",
	LayoutAttrConflict: "Layout-Attr-Conflict",

	TypeAliasRecursive: "TypeAlias-Recursive-Err",
	TypeUnknownPath:    "Type-Unknown-Path",
	TypeWF:             "Type-WF-Err",
	TypeGenericArity:   "Type-Generic-Arity-Err",
	TypeArrayLen:       "Type-Array-Len-Err",
	ModalStateUnknown:  "Modal-State-Unknown",
	TypeRefinePred:     "Type-Refine-Pred-Err",
	DeclDup:            "Decl-Dup",
	RecordFieldDup:     "Record-Field-Dup",
	EnumVariantDup:     "Enum-Variant-Dup",
	ModalStateDup:      "Modal-State-Dup",
	AttrUnknown:        "Attr-Unknown",
	AttrTarget:         "Attr-Target-Err",

	IntroDup:               "Intro-Dup",
	IntroShadowRequired:    "Intro-Shadow-Required",
	IntroReserved:          "Intro-Reserved",
	ShadowUnbound:          "Shadow-Unbound",
	IdentUnbound:           "Ident-Unbound",
	ValueUseNonBitcopy:     "ValueUse-NonBitcopyPlace",
	ChkNullPtr:             "Chk-Null-Ptr",
	PtrNullInfer:           "PtrNull-Infer-Err",
	ChkSubsumptionModal:    "Chk-Subsumption-Modal-NonNiche",
	RefineUnprovable:       "E-TYP-1953",
	SubtypeMismatch:        "Chk-Subsumption-Err",
	LiteralOverflow:        "Literal-Overflow",
	LiteralSuffix:          "Literal-Suffix-Err",
	BinaryOperand:          "Binary-Operand-Err",
	UnaryOperand:           "Unary-Operand-Err",
	CondNotBool:            "Cond-Not-Bool",
	CastInvalid:            "Cast-Err",
	CallArity:              "Call-Arity-Err",
	CallCallee:             "Call-Callee-Err",
	CallMoveMissing:        "Call-Move-Missing",
	CallMoveUnexpected:     "Call-Move-Unexpected",
	MethodUnknown:          "Method-Unknown",
	FieldUnknown:           "Field-Unknown",
	ModalFieldNoState:      "Modal-Field-NoState",
	IndexInvalid:           "Index-Err",
	AssignImmutable:        "Assign-Immutable",
	RecordLitInvalid:       "Record-Lit-Err",
	BlockResultUnify:       "Block-Result-Unify-Err",
	ResultUnreachable:      "Result-Unreachable",
	LoopBreakUnify:         "Loop-Break-Unify-Err",
	BreakOutsideLoop:       "Break-Outside-Loop",
	ContinueOutsideLoop:    "Continue-Outside-Loop",
	LoopBreakValue:         "Loop-Break-Value-Err",
	LoopIter:               "Loop-Iter-Err",
	IfBranchUnify:          "If-Branch-Unify-Err",
	MatchArmUnify:          "Match-Arm-Unify-Err",
	MatchPattern:           "Match-Pattern-Err",
	AllocRawUnsafe:         "AllocRaw-Unsafe-Err",
	AllocRawRecv:           "AllocRaw-Recv-Err",
	AllocRawArity:          "AllocRaw-Arity-Err",
	AllocRawArgPlace:       "AllocRaw-Arg-Place-Err",
	AllocRawArgType:        "AllocRaw-Arg-Type-Err",
	ReturnType:             "Return-Type-Err",
	ReturnOutsideProc:      "Return-Outside-Proc",
	ProcBodyExplicitReturn: "WF-ProcBody-ExplicitReturn-Err",
	ConstLenInvalid:        "Const-Len-Err",

	ContractPreResult:   "E-SEM-2801",
	ContractPreEntry:    "E-SEM-2802",
	ContractImpure:      "E-SEM-2803",
	ContractNotBool:     "E-SEM-2804",
	PostUnprovable:      "E-SEM-2850",
	PreUnprovable:       "E-SEM-2851",
	ImplPreStronger:     "E-SEM-2852",
	ImplPostWeaker:      "E-SEM-2853",
	InvariantUnprovable: "E-SEM-2855",

	LowerUnsupported: "Lower-Unsupported",
	CodegenFailure:   "Codegen-Failure",
	ABIClassify:      "ABI-Classify-Err",

	ProjectConfig: "Project-Config-Err",
	CacheIO:       "Cache-IO-Err",
}

var codesByID = func() map[string]Code {
	out := make(map[string]Code, len(codeIDs))
	for c, id := range codeIDs {
		out[id] = c
	}
	return out
}()

// ID returns the stable string identifier, e.g. "Enum-Disc-Dup".
func (c Code) ID() string {
	if id, ok := codeIDs[c]; ok {
		return id
	}
	return codeIDs[UnknownCode]
}

// Title returns the default human message for the code.
func (c Code) Title() string {
	return DefaultMessages.Message(c)
}

func (c Code) String() string {
	return "[" + c.ID() + "]: " + c.Title()
}

// ParseCode resolves a stable identifier back to its Code.
func ParseCode(id string) (Code, bool) {
	c, ok := codesByID[id]
	return c, ok
}
