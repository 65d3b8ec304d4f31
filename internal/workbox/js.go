package workbox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// ErrInvalidRegex 表示正则字面量无法在 ECMAScript 语义下编译。
var ErrInvalidRegex = errors.New("invalid regex literal")

const regexFlags = "dgimsuy"

// Regex 是拆分后的 JS 正则字面量 /pattern/flags。
type Regex struct {
	Pattern string
	Flags   string
}

// ParseRegex 解析并校验 /pattern/flags 形式的正则字面量。
func ParseRegex(literal string) (Regex, error) {
	literal = strings.TrimSpace(literal)
	if len(literal) < 3 || literal[0] != '/' {
		return Regex{}, fmt.Errorf("%w: %q 需要 /pattern/flags 形式", ErrInvalidRegex, literal)
	}
	end := strings.LastIndex(literal, "/")
	if end <= 1 {
		return Regex{}, fmt.Errorf("%w: %q 缺少结束分隔符或表达式为空", ErrInvalidRegex, literal)
	}
	re := Regex{Pattern: literal[1:end], Flags: literal[end+1:]}

	seen := map[rune]bool{}
	for _, flag := range re.Flags {
		if !strings.ContainsRune(regexFlags, flag) || seen[flag] {
			return Regex{}, fmt.Errorf("%w: %q 的 flag %q 不合法", ErrInvalidRegex, literal, flag)
		}
		seen[flag] = true
	}
	if hasUnescapedSlash(re.Pattern) {
		return Regex{}, fmt.Errorf("%w: %q 含未转义的 /", ErrInvalidRegex, literal)
	}

	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	if seen['i'] {
		opts |= regexp2.IgnoreCase
	}
	if seen['m'] {
		opts |= regexp2.Multiline
	}
	if _, err := regexp2.Compile(re.Pattern, opts); err != nil {
		return Regex{}, fmt.Errorf("%w: %q: %v", ErrInvalidRegex, literal, err)
	}
	return re, nil
}

// Literal 还原为 JS 正则字面量。
func (r Regex) Literal() string {
	return "/" + r.Pattern + "/" + r.Flags
}

// Tester 返回去掉 g/y 的字面量：带状态的 flag 会让 RegExp.test 在多次调用间产生偏移。
func (r Regex) Tester() string {
	flags := strings.Map(func(c rune) rune {
		if c == 'g' || c == 'y' {
			return -1
		}
		return c
	}, r.Flags)
	return "/" + r.Pattern + "/" + flags
}

// QuoteJS 生成单引号 JS 字符串字面量。
func QuoteJS(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\u2028':
			b.WriteString(`\u2028`)
		case '\u2029':
			b.WriteString(`\u2029`)
		case '<':
			// 防止 "</script>" 之类的片段在内联场景下截断脚本
			b.WriteString(`\x3c`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func hasUnescapedSlash(pattern string) bool {
	inClass := false
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if !inClass {
				return true
			}
		}
	}
	return false
}
