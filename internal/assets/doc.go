// Package assets 负责把编译产物与 Workbox 运行时文件写入目标文件系统。
// 所有写入都经过临时文件 + rename，失败时清理临时文件；目标文件系统以
// billy.Filesystem 抽象，生产环境使用 osfs，测试使用 memfs。
package assets
