package ast

import (
	"strings"
)

// String renders an expression back to compact source form. The output is
// used as a key for linear atoms and in diagnostics.
func String(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e)
	return sb.String()
}

func writeExpr(sb *strings.Builder, e Expr) {
	switch x := e.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *Literal:
		switch x.Kind {
		case LitString:
			sb.WriteByte('"')
			sb.WriteString(x.Text)
			sb.WriteByte('"')
		case LitChar:
			sb.WriteByte('\'')
			sb.WriteString(x.Text)
			sb.WriteByte('\'')
		default:
			sb.WriteString(litText(x))
		}
		sb.WriteString(x.Suffix)
	case *Ident:
		sb.WriteString(x.Name)
	case *Path:
		sb.WriteString(strings.Join(x.Segments, "::"))
	case *ResultRef:
		sb.WriteString("@result")
	case *EntryRef:
		sb.WriteString("@entry(")
		writeExpr(sb, x.X)
		sb.WriteByte(')')
	case *TupleExpr:
		sb.WriteByte('(')
		writeList(sb, x.Elems)
		if len(x.Elems) == 1 {
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
	case *ArrayExpr:
		sb.WriteByte('[')
		writeList(sb, x.Elems)
		sb.WriteByte(']')
	case *Binary:
		sb.WriteByte('(')
		writeExpr(sb, x.X)
		sb.WriteByte(' ')
		sb.WriteString(x.Op.String())
		sb.WriteByte(' ')
		writeExpr(sb, x.Y)
		sb.WriteByte(')')
	case *Unary:
		sb.WriteString(x.Op.String())
		writeExpr(sb, x.X)
	case *Call:
		writeExpr(sb, x.Callee)
		sb.WriteByte('(')
		writeArgs(sb, x.Args)
		sb.WriteByte(')')
	case *MethodCall:
		writeExpr(sb, x.Recv)
		sb.WriteString("~>")
		sb.WriteString(x.Name)
		sb.WriteByte('(')
		writeArgs(sb, x.Args)
		sb.WriteByte(')')
	case *FieldExpr:
		writeExpr(sb, x.X)
		sb.WriteByte('.')
		sb.WriteString(x.Name)
	case *IndexExpr:
		writeExpr(sb, x.X)
		sb.WriteByte('[')
		writeExpr(sb, x.Index)
		sb.WriteByte(']')
	case *Move:
		sb.WriteString("move ")
		writeExpr(sb, x.X)
	case *NullPtr:
		sb.WriteString("Ptr::null()")
	case *SizeOf:
		sb.WriteString("sizeof(..)")
	case *AlignOf:
		sb.WriteString("alignof(..)")
	case *Block:
		sb.WriteString("{..}")
	default:
		sb.WriteString("<expr>")
	}
}

func writeList(sb *strings.Builder, list []Expr) {
	for i, el := range list {
		if i > 0 {
			sb.WriteString(", ")
		}
		writeExpr(sb, el)
	}
}

func writeArgs(sb *strings.Builder, args []Arg) {
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		if a.Moved {
			sb.WriteString("move ")
		}
		writeExpr(sb, a.X)
	}
}
