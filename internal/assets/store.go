package assets

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
)

// ErrInvalidPath 表示目标路径为空或越出了文件系统根目录。
var ErrInvalidPath = errors.New("invalid asset path")

// Store 以原子方式向 billy 文件系统写入文件，可被多个 goroutine 共享。
// billy 的部分实现（如 memfs）并不保证目录结构操作的并发安全，
// 因此创建、重命名与查询统一在 fsMu 下进行，正文复制不持锁。
type Store struct {
	fs billy.Filesystem

	fsMu sync.Mutex

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore 构建写入 fsys 的 Store。
func NewStore(fsys billy.Filesystem) (*Store, error) {
	if fsys == nil {
		return nil, errors.New("filesystem required")
	}
	return &Store{fs: fsys, locks: make(map[string]*entryLock)}, nil
}

// Exists 判断 name 是否已存在且为普通文件。
func (s *Store) Exists(name string) (bool, error) {
	p, err := cleanPath(name)
	if err != nil {
		return false, err
	}
	s.fsMu.Lock()
	defer s.fsMu.Unlock()

	info, err := s.fs.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// Put 把 body 写入 name，返回写入的字节数。同一路径的并发写入会被串行化。
func (s *Store) Put(ctx context.Context, name string, body io.Reader) (int64, error) {
	p, err := cleanPath(name)
	if err != nil {
		return 0, err
	}
	unlock := s.lockEntry(p)
	defer unlock()

	tempFile, err := s.createTemp(p)
	if err != nil {
		return 0, err
	}
	tempName := tempFile.Name()

	written, err := copyWithContext(ctx, tempFile, body)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		s.remove(tempName)
		return 0, err
	}

	s.fsMu.Lock()
	err = s.fs.Rename(tempName, p)
	s.fsMu.Unlock()
	if err != nil {
		s.remove(tempName)
		return 0, err
	}
	return written, nil
}

func (s *Store) createTemp(p string) (billy.File, error) {
	s.fsMu.Lock()
	defer s.fsMu.Unlock()

	dir := path.Dir(p)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return s.fs.TempFile(dir, ".swforge-")
}

func (s *Store) remove(name string) {
	s.fsMu.Lock()
	defer s.fsMu.Unlock()
	_ = s.fs.Remove(name)
}

func (s *Store) lockEntry(key string) func() {
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// cleanPath 统一为以 / 开头的 URL 风格路径，拒绝 .. 越界。
func cleanPath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(strings.ReplaceAll(name, "\\", "/"), "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	p := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	if p == "/" {
		return "", ErrInvalidPath
	}
	return p, nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
