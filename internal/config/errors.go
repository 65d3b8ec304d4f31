package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind 区分配置错误的类别。
type ErrorKind string

const (
	KindSchema      ErrorKind = "schema"
	KindExclusivity ErrorKind = "exclusivity"
)

var (
	// ErrSchema 匹配缺字段、类型错误或超出取值范围的配置。
	ErrSchema = errors.New("配置不符合 schema")
	// ErrExclusivity 匹配互斥字段同时出现（或都缺失）的配置。
	ErrExclusivity = errors.New("配置存在互斥冲突")
)

// FieldError 提供字段路径与错误原因，便于 CLI 向用户反馈。
type FieldError struct {
	Kind   ErrorKind
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is 让 errors.Is(err, ErrSchema) 这类判断可以直接使用。
func (e *FieldError) Is(target error) bool {
	switch target {
	case ErrSchema:
		return e.Kind == KindSchema
	case ErrExclusivity:
		return e.Kind == KindExclusivity
	}
	return false
}

// NewSchemaError 创建 schema 类错误，其他包（如 provider）也复用该类型报告字段问题。
func NewSchemaError(field, reason string) error {
	return &FieldError{Kind: KindSchema, Field: field, Reason: reason}
}

// NewExclusivityError 创建互斥类错误。
func NewExclusivityError(field, reason string) error {
	return &FieldError{Kind: KindExclusivity, Field: field, Reason: reason}
}

// Deprecation 是非致命的弃用提示，随归一化结果一并返回。
type Deprecation struct {
	Key         string `json:"key"`
	Replacement string `json:"replacement,omitempty"`
	Message     string `json:"message"`
}

func (d Deprecation) String() string {
	return d.Message
}

func newDeprecation(key, replacement string) Deprecation {
	msg := fmt.Sprintf("选项 %q 已弃用，将在 2.0.0 中移除", key)
	if replacement != "" {
		msg += fmt.Sprintf("，请改用 %q", replacement)
	} else {
		msg += "，没有替代项"
	}
	return Deprecation{Key: key, Replacement: replacement, Message: msg}
}

// joinPath 拼接 a.b.c 形式的字段路径，忽略空段。
func joinPath(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}

func indexPath(base string, idx int, field string) string {
	return joinPath(fmt.Sprintf("%s[%d]", base, idx), field)
}
