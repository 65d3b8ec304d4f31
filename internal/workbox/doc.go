// Package workbox 定义缓存策略与插件的不可变描述对象。
//
// 描述对象在构造时完成全部校验（插件参数 schema、NetworkFirst 超时约束等），
// 之后只能通过访问器读取，编译流水线与诊断接口共享同一份实例而无需加锁。
// 本包不关心 JS 文本渲染，渲染由 compiler 包负责。
package workbox
