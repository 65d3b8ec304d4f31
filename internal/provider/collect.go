package provider

import (
	"fmt"

	"github.com/any-hub/swforge/internal/config"
	"github.com/any-hub/swforge/internal/workbox"
)

// Collect 依注册顺序运行全部 Provider，并保证策略名在整个集合内唯一。
func Collect(cfg *config.Config, rc RuntimeContext, reg *Registry) ([]workbox.Strategy, error) {
	if reg == nil {
		reg = Default()
	}

	var out []workbox.Strategy
	owners := map[string]string{}
	for _, p := range reg.List() {
		strategies, err := p.Produce(cfg, rc)
		if err != nil {
			return nil, err
		}
		for _, s := range strategies {
			if owner, dup := owners[s.Name()]; dup {
				return nil, config.NewSchemaError(field(p.Key(), "cache_name"),
					fmt.Sprintf("策略名 %q 与 %s 重复", s.Name(), owner))
			}
			owners[s.Name()] = p.Key()
			out = append(out, s)
		}
	}

	queues, err := BackgroundSyncQueues(cfg)
	if err != nil {
		return nil, err
	}
	if err := CheckQueueNames(out, queues); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckQueueNames 保证后台同步队列名既不与已有策略重名，也不互相重名。
// queues 须与 background_sync 列表一一对应。
func CheckQueueNames(strategies, queues []workbox.Strategy) error {
	owners := make(map[string]string, len(strategies)+len(queues))
	for _, s := range strategies {
		owners[s.Name()] = "已有策略"
	}
	for i, q := range queues {
		base := fmt.Sprintf("background_sync[%d]", i)
		if owner, dup := owners[q.Name()]; dup {
			return config.NewSchemaError(field(base, "queue_name"),
				fmt.Sprintf("队列名 %q 与 %s 重复", q.Name(), owner))
		}
		owners[q.Name()] = base
	}
	return nil
}

// BackgroundSyncQueues 为每个后台同步队列生成 NetworkOnly 策略，失败的请求进入对应队列重放。
func BackgroundSyncQueues(cfg *config.Config) ([]workbox.Strategy, error) {
	wb := cfg.ServiceWorker.Workbox
	out := make([]workbox.Strategy, 0, len(wb.BackgroundSync))
	for i, q := range wb.BackgroundSync {
		base := fmt.Sprintf("background_sync[%d]", i)
		test, err := regexTest(q.Regex)
		if err != nil {
			return nil, config.NewSchemaError(field(base, "regex"), err.Error())
		}
		plugin, err := workbox.BackgroundSync(q.QueueName, q.MaxRetentionTime, q.ForceSyncCallback)
		if err != nil {
			return nil, config.NewSchemaError(field(base), err.Error())
		}
		strategy, err := workbox.NewStrategy(workbox.StrategySpec{
			Name:            q.QueueName,
			MatchExpression: "({url}) => " + test,
			Kind:            workbox.NetworkOnly,
			Enabled:         wb.Enabled,
			RegisterRoute:   true,
			Method:          q.Method,
			Plugins:         []workbox.Plugin{plugin},
		})
		if err != nil {
			return nil, config.NewSchemaError(field(base), err.Error())
		}
		out = append(out, strategy)
	}
	return out, nil
}
