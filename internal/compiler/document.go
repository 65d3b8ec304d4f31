package compiler

import (
	"fmt"
	"strings"

	"github.com/any-hub/swforge/internal/config"
)

// Slot 是模板中的命名插入点。
type Slot string

const (
	SlotImport  Slot = "import"
	SlotRules   Slot = "rules"
	SlotOffline Slot = "offline"
)

// 兼容旧模板中的占位注释。
const (
	importMarker  = "//WORKBOX_IMPORT_PLACEHOLDER"
	rulesMarker   = "//STANDARD_RULES_PLACEHOLDER"
	offlineMarker = "//OFFLINE_FALLBACK_PLACEHOLDER"
)

var slotMarkers = []struct {
	slot   Slot
	marker string
}{
	{SlotImport, importMarker},
	{SlotRules, rulesMarker},
	{SlotOffline, offlineMarker},
}

// DefaultTemplate 是未提供模板时使用的骨架。
const DefaultTemplate = importMarker + "\n\n" + rulesMarker + "\n\n" + offlineMarker + "\n"

// Section 是某条规则写入插槽的一段脚本。
type Section struct {
	Rule string
	Body string
}

type part struct {
	literal string
	slot    Slot
}

// Document 是一次编译的中间表示：模板文本被切分为字面段与插槽，
// 规则只向插槽追加 Section，并通过 DeclareCache 共享已声明的缓存名。
type Document struct {
	parts    []part
	sections map[Slot][]Section
	caches   []string
	declared map[string]string
}

// ParseTemplate 解析模板；缺失的 import 插槽补在开头，rules/offline 补在末尾。
// 插槽重复或顺序颠倒（offline 在 rules 之前等）视为模板错误。
func ParseTemplate(text string) (*Document, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultTemplate
	}

	type found struct {
		slot Slot
		pos  int
		end  int
	}
	var hits []found
	for _, m := range slotMarkers {
		switch strings.Count(text, m.marker) {
		case 0:
		case 1:
			pos := strings.Index(text, m.marker)
			hits = append(hits, found{slot: m.slot, pos: pos, end: pos + len(m.marker)})
		default:
			return nil, config.NewSchemaError("serviceworker.src", fmt.Sprintf("模板中 %s 出现了多次", m.marker))
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].pos < hits[i-1].pos {
			return nil, config.NewSchemaError("serviceworker.src",
				fmt.Sprintf("模板插槽顺序错误: %s 必须位于 %s 之前", hits[i-1].slot, hits[i].slot))
		}
	}

	doc := &Document{sections: map[Slot][]Section{}, declared: map[string]string{}}
	has := func(s Slot) bool {
		for _, h := range hits {
			if h.slot == s {
				return true
			}
		}
		return false
	}
	if !has(SlotImport) {
		doc.parts = append(doc.parts, part{slot: SlotImport}, part{literal: "\n\n"})
	}
	cursor := 0
	for _, h := range hits {
		doc.parts = append(doc.parts, part{literal: text[cursor:h.pos]}, part{slot: h.slot})
		cursor = h.end
	}
	doc.parts = append(doc.parts, part{literal: text[cursor:]})
	for _, s := range []Slot{SlotRules, SlotOffline} {
		if !has(s) {
			doc.parts = append(doc.parts, part{literal: "\n\n"}, part{slot: s})
		}
	}
	return doc, nil
}

// Append 把一段脚本追加到插槽末尾。
func (d *Document) Append(slot Slot, rule, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	d.sections[slot] = append(d.sections[slot], Section{Rule: rule, Body: body})
}

// Sections 返回插槽内的片段副本。
func (d *Document) Sections(slot Slot) []Section {
	return append([]Section(nil), d.sections[slot]...)
}

// DeclareCache 记录某条规则声明的缓存名，重复声明会被忽略。
func (d *Document) DeclareCache(rule, name string) {
	if name == "" {
		return
	}
	if _, ok := d.declared[name]; ok {
		return
	}
	d.declared[name] = rule
	d.caches = append(d.caches, name)
}

// HasCache 判断缓存名是否已被之前的规则声明。
func (d *Document) HasCache(name string) bool {
	_, ok := d.declared[name]
	return ok
}

// CacheNames 按声明顺序返回全部缓存名。
func (d *Document) CacheNames() []string {
	return append([]string(nil), d.caches...)
}

// Render 把字面段与插槽内容拼接成最终脚本。
// 只有空插槽两侧的空行会被压缩，模板其余文本原样保留。
func (d *Document) Render() string {
	var out string
	pending := false
	for _, p := range d.parts {
		text := p.literal
		if p.slot != "" {
			bodies := make([]string, 0, len(d.sections[p.slot]))
			for _, s := range d.sections[p.slot] {
				bodies = append(bodies, s.Body)
			}
			text = strings.Join(bodies, "\n\n")
			if text == "" {
				pending = true
				continue
			}
		}
		if text == "" {
			continue
		}
		if pending {
			out = joinAroundEmpty(out, text)
			pending = false
			continue
		}
		out += text
	}
	return strings.TrimSpace(out) + "\n"
}

// joinAroundEmpty 拼接空插槽两侧的文本，两侧换行合计超过两个时收拢为一个空行。
func joinAroundEmpty(before, after string) string {
	head := strings.TrimRight(before, " \t\n")
	newlines := strings.Count(before[len(head):], "\n")
	tail := after
	for {
		i := strings.IndexByte(tail, '\n')
		if i < 0 || strings.Trim(tail[:i], " \t") != "" {
			break
		}
		tail = tail[i+1:]
		newlines++
	}
	if newlines <= 2 {
		return before + after
	}
	return head + "\n\n" + tail
}
