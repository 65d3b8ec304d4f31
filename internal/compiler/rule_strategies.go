package compiler

import (
	"fmt"
)

type strategyRule struct{}

func (strategyRule) Name() string { return "strategies" }

// Apply 为每个启用的策略生成声明，停用的策略不产生任何输出。
func (r strategyRule) Apply(doc *Document, in *Input) error {
	if !in.Config.WorkboxActive() {
		return nil
	}
	idx := 0
	for _, s := range in.Strategies {
		if !s.Enabled() {
			continue
		}
		js, err := renderStrategy(fmt.Sprintf("strategy_%d", idx), s)
		if err != nil {
			return &ConsistencyError{Rule: r.Name(), Reason: err.Error()}
		}
		doc.Append(SlotRules, r.Name(), js)
		doc.DeclareCache(r.Name(), s.CacheName())
		idx++
	}
	return nil
}

type backgroundSyncRule struct{}

func (backgroundSyncRule) Name() string { return "background-sync" }

func (r backgroundSyncRule) Apply(doc *Document, in *Input) error {
	if !in.Config.WorkboxActive() {
		return nil
	}
	idx := 0
	for _, q := range in.Queues {
		if !q.Enabled() {
			continue
		}
		js, err := renderStrategy(fmt.Sprintf("backgroundSync_%d", idx), q)
		if err != nil {
			return &ConsistencyError{Rule: r.Name(), Reason: err.Error()}
		}
		doc.Append(SlotRules, r.Name(), js)
		idx++
	}
	return nil
}
