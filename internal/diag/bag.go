package diag

import (
	"cmp"
	"slices"
)

const defaultBagLimit = 256

// Bag is an ordered, bounded collection of diagnostics. Diagnostics past
// the limit are counted but not kept.
type Bag struct {
	items   []Diagnostic
	max     int
	dropped int
}

func NewBag(max int) *Bag {
	if max <= 0 {
		max = defaultBagLimit
	}
	return &Bag{items: make([]Diagnostic, 0, min(max, 64)), max: max}
}

// Add reports false when the bag is full.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= b.max {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() int { return b.max }

func (b *Bag) Len() int { return len(b.items) }

// Dropped is the number of diagnostics rejected by the limit.
func (b *Bag) Dropped() int { return b.dropped }

func (b *Bag) Items() []Diagnostic { return b.items }

func (b *Bag) HasErrors() bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity >= SevError })
}

func (b *Bag) HasCode(code Code) bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Code == code })
}

// Merge appends other, raising the limit so nothing is lost.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.max = max(b.max, len(b.items)+len(other.items))
	b.items = append(b.items, other.items...)
	b.dropped += other.dropped
}

// Sort orders by file, start, end, then errors before warnings, then id.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Start, y.Primary.Start),
			cmp.Compare(x.Primary.End, y.Primary.End),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code.ID(), y.Code.ID()),
		)
	})
}

// Dedup drops repeats of code, span and message, keeping the first.
func (b *Bag) Dedup() {
	type key struct {
		code Code
		span [3]uint32
		msg  string
	}
	seen := make(map[key]bool, len(b.items))
	b.items = slices.DeleteFunc(b.items, func(d Diagnostic) bool {
		k := key{d.Code, [3]uint32{uint32(d.Primary.File), d.Primary.Start, d.Primary.End}, d.Message}
		if seen[k] {
			return true
		}
		seen[k] = true
		return false
	})
}
