package compiler

import (
	"github.com/any-hub/swforge/internal/config"
	"github.com/any-hub/swforge/internal/provider"
	"github.com/any-hub/swforge/internal/workbox"
)

// Input 是一次编译中所有规则共享的只读输入。
type Input struct {
	Config     *config.Config
	Runtime    provider.RuntimeContext
	Strategies []workbox.Strategy
	Queues     []workbox.Strategy
}

// Rule 是流水线中的一步：读取 Input，向 Document 的插槽追加片段。
// 功能未启用时直接返回 nil，不改动文档。
type Rule interface {
	Name() string
	Apply(doc *Document, in *Input) error
}

// DefaultRules 返回固定顺序的规则列表，顺序本身是约定的一部分：
// 后面的规则依赖前面规则声明的缓存名。
func DefaultRules() []Rule {
	return []Rule{
		importRule{},
		strategyRule{},
		googleFontsRule{},
		backgroundSyncRule{},
		offlineFallbackRule{},
		finalizeRule{},
	}
}
