package abi

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"cursive0/internal/types"
)

// DebugEnv enables the signature dump on classification failures.
const DebugEnv = "CURSIVE0_DEBUG_OBJ"

var (
	debugHeader = color.New(color.FgRed, color.Bold)
	debugSig    = color.New(color.FgCyan)
)

// DebugEnabled reports whether DebugEnv is set to a non-empty value.
func DebugEnabled() bool { return os.Getenv(DebugEnv) != "" }

// DumpFailure writes the offending signature and the error to w.
func DumpFailure(w io.Writer, symbol string, params []Param, ret types.Type, err error) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", debugHeader.Sprint("abi failure:"), symbol)
	for i, p := range params {
		mode := "copy"
		if p.Mode == types.ModeMove {
			mode = "move"
		}
		fmt.Fprintf(w, "  %s\n", debugSig.Sprintf("param %d %s: %s %v", i, p.Name, mode, p.Type))
	}
	if ret != nil {
		fmt.Fprintf(w, "  %s\n", debugSig.Sprintf("ret %s", ret))
	}
	fmt.Fprintf(w, "  %v\n", err)
}
