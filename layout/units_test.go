package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 mm→pt→mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 210, 297, 1000}
	for _, mm := range samples {
		back := ToMm(Length{Value: mm, Unit: UnitMM}.ToPT())
		if diff := math.Abs(back-mm); diff > 1e-9 {
			t.Fatalf("mm→pt→mm 往返误差过大: in=%gmm back=%g diff=%g", mm, back, diff)
		}
	}
}

// TestParseLength 覆盖常见单位到 pt 的转换。
func TestParseLength(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1in", 72},
		{"595.28", 595.28},
		{"595.28pt", 595.28},
		{"16px", 16},
		{"210mm", 210 * MmToPt},
		{"2.54cm", 25.4 * MmToPt},
		{" 10 MM ", 10 * MmToPt},
	}
	for _, c := range cases {
		l, err := ParseLength(c.in)
		if err != nil {
			t.Fatalf("%q 解析失败: %v", c.in, err)
		}
		if got := l.ToPT(); math.Abs(got-c.want) > 1e-6 {
			t.Fatalf("%q 转 pt 期望 %g，实际 %g", c.in, c.want, got)
		}
	}
}

func TestParseLengthRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "-3mm", "12qq"} {
		if _, err := ParseLength(in); err == nil {
			t.Fatalf("%q 应当解析失败", in)
		}
	}
}

func TestLengthString(t *testing.T) {
	if got := (Length{Value: 210, Unit: UnitMM}).String(); got != "210mm" {
		t.Fatalf("got %q", got)
	}
	if got := (Length{Value: 12.5}).String(); got != "12.5" {
		t.Fatalf("got %q", got)
	}
}
