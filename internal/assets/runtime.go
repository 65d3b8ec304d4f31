package assets

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/sync/errgroup"
)

// copyConcurrency 限制同时复制的运行时文件数量。
const copyConcurrency = 4

// SyncReport 记录一次运行时同步的结果，路径均为目标文件系统中的路径。
type SyncReport struct {
	Copied  []string `json:"copied"`
	Skipped []string `json:"skipped"`
	Ignored []string `json:"ignored"`
}

// SyncRuntime 把 src 中的 Workbox 运行时文件复制到 dst 的 publicPath 下。
// 调试构建（文件名含 .dev.）不复制，目标已存在的文件保持不动，因此可以重复执行。
func SyncRuntime(ctx context.Context, src, dst billy.Filesystem, publicPath string) (*SyncReport, error) {
	if src == nil || dst == nil {
		return nil, fmt.Errorf("运行时同步需要源与目标文件系统")
	}
	store, err := NewStore(dst)
	if err != nil {
		return nil, err
	}

	var files []string
	err = util.Walk(src, "/", func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		files = append(files, strings.TrimPrefix(filepath.ToSlash(name), "/"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("读取运行时目录失败: %w", err)
	}
	sort.Strings(files)

	base := "/" + strings.Trim(publicPath, "/")
	report := &SyncReport{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)
	for _, rel := range files {
		target := path.Join(base, rel)
		if strings.Contains(path.Base(rel), ".dev.") {
			report.Ignored = append(report.Ignored, target)
			continue
		}
		exists, err := store.Exists(target)
		if err != nil {
			return nil, fmt.Errorf("检查 %s 失败: %w", target, err)
		}
		if exists {
			report.Skipped = append(report.Skipped, target)
			continue
		}

		g.Go(func() error {
			if err := copyFile(gctx, src, store, "/"+rel, target); err != nil {
				return fmt.Errorf("复制 %s 失败: %w", rel, err)
			}
			mu.Lock()
			report.Copied = append(report.Copied, target)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(report.Copied)
	return report, nil
}

func copyFile(ctx context.Context, src billy.Filesystem, store *Store, from, to string) error {
	f, err := src.Open(from)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = store.Put(ctx, to, f)
	return err
}
