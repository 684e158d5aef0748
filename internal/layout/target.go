package layout

// Target is the triple a program is laid out for, with its pointer
// size and alignment in bytes.
type Target struct {
	Triple   string
	PtrSize  uint64
	PtrAlign uint64
}

var knownTargets = map[string]Target{
	"x86_64-linux-gnu":         {Triple: "x86_64-linux-gnu", PtrSize: 8, PtrAlign: 8},
	"x86_64-unknown-linux-gnu": {Triple: "x86_64-unknown-linux-gnu", PtrSize: 8, PtrAlign: 8},
	"aarch64-linux-gnu":        {Triple: "aarch64-linux-gnu", PtrSize: 8, PtrAlign: 8},
	"i686-linux-gnu":           {Triple: "i686-linux-gnu", PtrSize: 4, PtrAlign: 4},
	"wasm32-unknown-unknown":   {Triple: "wasm32-unknown-unknown", PtrSize: 4, PtrAlign: 4},
}

func X86_64LinuxGNU() Target { return knownTargets["x86_64-linux-gnu"] }

// LookupTarget returns the pointer properties of a known triple.
func LookupTarget(triple string) (Target, bool) {
	t, ok := knownTargets[triple]
	return t, ok
}

// PtrBits is the pointer width in bits; an unset size counts as 64.
func (t Target) PtrBits() uint64 {
	if t.PtrSize == 0 {
		return 64
	}
	return t.PtrSize * 8
}
