package layout

import (
	"testing"

	"cursive0/internal/ast"
	"cursive0/internal/diag"
	"cursive0/internal/symbols"
)

func TestEnumDiscriminants(t *testing.T) {
	b := ast.NewBuilder(1)
	v := func(name string, disc ast.Expr) symbols.VariantInfo {
		return symbols.VariantInfo{Name: name, Disc: disc, Span: b.Next().Span}
	}
	cases := []struct {
		name     string
		variants []symbols.VariantInfo
		want     []uint64
		code     diag.Code
	}{
		{"auto", []symbols.VariantInfo{v("A", nil), v("B", nil), v("C", nil)}, []uint64{0, 1, 2}, 0},
		{"explicit then auto", []symbols.VariantInfo{v("A", b.Int("10")), v("B", nil)}, []uint64{10, 11}, 0},
		{"collision", []symbols.VariantInfo{v("A", b.Int("1")), v("B", nil), v("C", b.Int("2"))}, nil, diag.EnumDiscDup},
		{"explicit dup", []symbols.VariantInfo{v("A", b.Int("3")), v("B", b.Int("0x3"))}, nil, diag.EnumDiscDup},
		{"negative", []symbols.VariantInfo{v("A", b.Un(ast.OpNeg, b.Int("1")))}, nil, diag.EnumDiscNegative},
		{"float", []symbols.VariantInfo{v("A", b.Float("1.5"))}, nil, diag.EnumDiscNotInt},
		{"non literal", []symbols.VariantInfo{v("A", b.Ident("k"))}, nil, diag.EnumDiscNotInt},
		{"max then auto", []symbols.VariantInfo{v("A", b.Int("0xFFFF_FFFF_FFFF_FFFF")), v("B", nil)}, nil, diag.EnumDiscInvalid},
		{"max last", []symbols.VariantInfo{v("A", nil), v("B", b.Int("18446744073709551615"))}, []uint64{0, 1<<64 - 1}, 0},
		{"too wide", []symbols.VariantInfo{v("A", b.Int("18446744073709551616"))}, nil, diag.EnumDiscInvalid},
	}
	for _, tc := range cases {
		got, err := EnumDiscriminants(tc.variants)
		if tc.code != 0 {
			if err == nil || err.Code != tc.code {
				t.Errorf("%s: want %s, got %v", tc.name, tc.code.ID(), err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected %v", tc.name, err)
			continue
		}
		if len(got.Values) != len(tc.want) {
			t.Errorf("%s: got %v", tc.name, got.Values)
			continue
		}
		for i := range tc.want {
			if got.Values[i] != tc.want[i] {
				t.Errorf("%s: got %v want %v", tc.name, got.Values, tc.want)
				break
			}
		}
	}
}

func TestDiscInvalidReportedAtAutoVariant(t *testing.T) {
	b := ast.NewBuilder(1)
	second := b.Next().Span
	_, err := EnumDiscriminants([]symbols.VariantInfo{
		{Name: "A", Disc: b.Int("0xffffffffffffffff")},
		{Name: "B", Span: second},
	})
	if err == nil || err.Variant != 1 || err.Span != second {
		t.Fatalf("unexpected %+v", err)
	}
}

func TestParseIntLiteral(t *testing.T) {
	cases := []struct {
		text string
		want uint64
		ok   bool
	}{
		{"0", 0, true},
		{"1_000", 1000, true},
		{"0xff", 255, true},
		{"0o17", 15, true},
		{"0b1010", 10, true},
		{"0x1_0000_0000_0000_0000", 0, false},
		{"0b2", 0, false},
		{"_", 0, false},
		{"340282366920938463463374607431768211456", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseIntLiteral(tc.text)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("ParseIntLiteral(%q) = %d, %v", tc.text, got, ok)
		}
	}
}

func TestDiscTypeFor(t *testing.T) {
	cases := []struct {
		max  uint64
		size uint64
	}{{0, 1}, {0xFF, 1}, {0x100, 2}, {0xFFFF, 2}, {0x10000, 4}, {0xFFFFFFFF, 4}, {0x100000000, 8}}
	for _, tc := range cases {
		if _, size := DiscTypeFor(tc.max); size != tc.size {
			t.Errorf("DiscTypeFor(%#x) size %d, want %d", tc.max, size, tc.size)
		}
	}
}
