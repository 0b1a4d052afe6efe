package renderer

import "github.com/ByLCY/keepsake/layout"

// Renderer 将布局结果输出为最终文件。
// Render 返回生成的二进制数据（PDF 字节切片）以及可能的错误；
// 实现必须按 Result.Pages 的顺序逐页输出，每个 layout.Page 对应一页。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}
