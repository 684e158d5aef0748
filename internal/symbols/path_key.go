package symbols

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PathKeyOf is the canonical sigma key of a path: each segment in NFC,
// joined with "::". Case is preserved.
func PathKeyOf(path []string) string {
	var sb strings.Builder
	for i, seg := range path {
		if i > 0 {
			sb.WriteString("::")
		}
		sb.WriteString(norm.NFC.String(seg))
	}
	return sb.String()
}
