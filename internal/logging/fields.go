package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/any-hub/swforge/internal/config"
)

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// CompileFields 描述一次编译的结果，供 build/serve 日志复用。
func CompileFields(jobID, dest string, strategies, caches int) logrus.Fields {
	return logrus.Fields{
		"job_id":     jobID,
		"dest":       dest,
		"strategies": strategies,
		"caches":     caches,
	}
}

// LogDeprecations 以 warn 级别逐条输出弃用提示，不影响后续流程。
func LogDeprecations(logger logrus.FieldLogger, action string, notices []config.Deprecation) {
	for _, n := range notices {
		logger.WithFields(logrus.Fields{
			"action":      action,
			"key":         n.Key,
			"replacement": n.Replacement,
		}).Warn(n.Message)
	}
}
