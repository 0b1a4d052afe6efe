package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// This file defines unit-safe lengths. Book geometry is expressed in points (pt),
// the canvas renderer works in millimeters, so conversions live here.

// Unit represents the original unit of a length value as written in config.
type Unit int

const (
	UnitNone Unit = iota // bare numbers, treated as pt
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
	UnitPX               // CSS pixels, 1px == 1pt in book space
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// ToPT converts the length to points.
func (l Length) ToPT() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value * MmToPt
	case UnitCM:
		return l.Value * 10 * MmToPt
	case UnitIN:
		return l.Value * 72
	default:
		return l.Value
	}
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + UnitToString(l.Unit)
}

// ParseLength parses strings such as "210mm", "8.5in", "595.28pt" or "595.28".
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("长度为空")
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("长度 %q 无法解析: %w", value, err)
	}
	if f < 0 {
		return Length{}, fmt.Errorf("长度 %q 不能为负数", value)
	}
	return Length{Value: f, Unit: unit}, nil
}

// ToMm 将点(pt)转换为毫米(mm)。
func ToMm(pt float64) float64 { return pt * PtToMm }
