package assets

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// WriteArtifact 原子地写入编译产物，已存在的文件会被整体替换。
func WriteArtifact(ctx context.Context, fsys billy.Filesystem, name, text string) error {
	store, err := NewStore(fsys)
	if err != nil {
		return err
	}
	if _, err := store.Put(ctx, name, strings.NewReader(text)); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", name, err)
	}
	return nil
}
