// Package compiler 把 Provider 产出的策略与归一化配置编译为 Service Worker 脚本。
//
// 模板先被解析为 Document（字面段 + import/rules/offline 三个插槽），
// 规则按固定顺序向插槽追加片段，最后一次性渲染为文本。
package compiler
