// Package fonts 解析字体来源：内置 Go 字体或磁盘上的 TTF/OTF 文件。
package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// Default 是缺省字体来源。Go 字体只覆盖拉丁、希腊与西里尔字母，不含 emoji。
const Default = "builtin:go-regular"

var builtins = map[string][]byte{
	"go-regular": goregular.TTF,
	"go-bold":    gobold.TTF,
	"go-italic":  goitalic.TTF,
}

// Load 返回字体字节。src 可写为 "builtin:go-regular"、"built-in:go-bold" 或文件路径；
// 相对路径以 baseDir 为根，src 为空时返回 Go Regular。
func Load(src, baseDir string) ([]byte, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		src = Default
	}
	if name, ok := builtinName(src); ok {
		data, found := builtins[name]
		if !found {
			return nil, fmt.Errorf("找不到内置字体 %s", src)
		}
		return data, nil
	}
	path := src
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", src, err)
	}
	return data, nil
}

func builtinName(src string) (string, bool) {
	for _, prefix := range []string{"builtin:", "built-in:"} {
		if strings.HasPrefix(src, prefix) {
			return strings.TrimPrefix(src, prefix), true
		}
	}
	return "", false
}
