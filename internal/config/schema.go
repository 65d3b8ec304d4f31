package config

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

type schemaIssue struct {
	path    string
	message string
}

// validateSchema 将规范树与内嵌的 CUE schema 合一，检查取值范围与字段形态。
// 每次调用都新建 cue.Context，调用之间不共享状态。
func validateSchema(c *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("内置 schema 无法编译: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("内置 schema 缺少 #Config: %w", err)
	}

	data := ctx.Encode(c.ToRaw())
	if err := data.Err(); err != nil {
		return NewSchemaError("", err.Error())
	}

	unified := def.Unify(data)
	err := unified.Validate(cue.Concrete(true), cue.All())
	if err == nil {
		return nil
	}

	var issues []schemaIssue
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		issues = append(issues, schemaIssue{
			path:    cuePath(e.Path()),
			message: fmt.Sprintf(format, args...),
		})
	}
	if len(issues) == 0 {
		return NewSchemaError("", err.Error())
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].path < issues[j].path })
	return NewSchemaError(issues[0].path, issues[0].message)
}

// cuePath 把 ["a", "b", "0", "c"] 转为 a.b[0].c，并去掉定义名。
func cuePath(parts []string) string {
	var b strings.Builder
	for _, part := range parts {
		if strings.HasPrefix(part, "#") {
			continue
		}
		if _, err := strconv.Atoi(part); err == nil {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
