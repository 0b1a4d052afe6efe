package layout

import "github.com/ByLCY/keepsake/caption"

// BuildOptions 配置布局阶段所需的依赖，例如文字位图后端。
type BuildOptions struct {
	Typesetter Typesetter
	Theme      Theme
}

// Typesetter 负责把一段文字折行并位图化。caption.Engine 是默认实现。
type Typesetter interface {
	Rasterize(text string, opts caption.Options) (*caption.Bitmap, error)
}
