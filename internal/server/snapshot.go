package server

import (
	"sync"
	"time"

	"github.com/any-hub/swforge/internal/compiler"
)

// Snapshot 是最近一次成功编译的结果，诊断接口只读取它。
type Snapshot struct {
	JobID      string
	ConfigPath string
	Dest       string
	CompiledAt time.Time
	Artifact   *compiler.Artifact
}

// SnapshotStore 保存当前快照；重新编译成功后整体替换，读写可并发。
type SnapshotStore struct {
	mu      sync.RWMutex
	current *Snapshot
}

// NewSnapshotStore 创建空的快照存储。
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Set 替换当前快照，Artifact 为空时忽略。
func (s *SnapshotStore) Set(snap Snapshot) {
	if s == nil || snap.Artifact == nil {
		return
	}
	if snap.CompiledAt.IsZero() {
		snap.CompiledAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.current = &snap
	s.mu.Unlock()
}

// Current 返回当前快照的副本。
func (s *SnapshotStore) Current() (Snapshot, bool) {
	if s == nil {
		return Snapshot{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Snapshot{}, false
	}
	return *s.current, true
}

// Strategy 按名称查找当前快照中的策略摘要。
func (s *SnapshotStore) Strategy(name string) (compiler.StrategySummary, bool) {
	snap, ok := s.Current()
	if !ok {
		return compiler.StrategySummary{}, false
	}
	for _, st := range snap.Artifact.Strategies {
		if st.Name == name {
			return st, true
		}
	}
	return compiler.StrategySummary{}, false
}
