// Package binding 提供 ${name} 形式的模板插值，用于封面署名、页码与占位文字。
package binding

import (
	"fmt"
	"regexp"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Vars 是模板可引用的变量。
type Vars map[string]any

// Interpolate 将文本中的 ${name} 替换为 vars 中的值。
// ${name|缺省值} 在变量不存在或值为空字符串时使用缺省值；
// 没有缺省值且变量不存在时保留原占位符。
func Interpolate(text string, vars Vars) string {
	if !strings.Contains(text, "${") {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		name, def, hasDefault := strings.Cut(groups[1], "|")
		name = strings.TrimSpace(name)
		if name == "" {
			return match
		}
		if val, ok := vars[name]; ok {
			if s := fmt.Sprint(val); s != "" || !hasDefault {
				return s
			}
		}
		if hasDefault {
			return def
		}
		return match
	})
}
